package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/reactionwatch/internal/config"
)

// secretVars are masked when printed.
var secretVars = map[string]bool{
	"GITHUB_TOKEN":   true,
	"SMTP_PASSWORD":  true,
	"RESEND_API_KEY": true,
}

// ConfigCheckResult holds the result of configuration validation
type ConfigCheckResult struct {
	Missing   []string          // Required variables that are missing
	Present   map[string]string // Variables that are set (masked values)
	Warnings  []string          // Non-fatal warnings
	Transport string
}

// requiredVars lists the plain variables a run needs for the given transport.
func requiredVars(transport string) []string {
	vars := []string{"GITHUB_TOKEN", "GITHUB_USERNAME"}
	switch strings.ToLower(transport) {
	case "", "smtp":
		vars = append(vars, "SMTP_HOST", "SMTP_USER", "SMTP_PASSWORD", "EMAIL_FROM", "EMAIL_TO")
	case "resend":
		vars = append(vars, "RESEND_API_KEY", "EMAIL_FROM", "EMAIL_TO")
	}
	return vars
}

// CheckRequiredConfig validates that required environment variables are set.
// Values supplied through the config file or the prefixed form only show up
// in config validate.
func CheckRequiredConfig(transport string) *ConfigCheckResult {
	result := &ConfigCheckResult{
		Missing:   []string{},
		Present:   make(map[string]string),
		Warnings:  []string{},
		Transport: transport,
	}

	for _, v := range requiredVars(transport) {
		if val := os.Getenv(v); val == "" {
			result.Missing = append(result.Missing, v)
		}
	}

	for name := range config.EnvKeys() {
		val := os.Getenv(name)
		if val == "" {
			continue
		}
		if secretVars[name] {
			val = maskSecret(val)
		}
		result.Present[name] = val
	}

	if strings.ToLower(transport) == "log" {
		result.Warnings = append(result.Warnings, "mail transport is log, digests are printed instead of sent")
	}
	if os.Getenv("SMTP_SECURE") == "true" && os.Getenv("SMTP_PORT") == "587" {
		result.Warnings = append(result.Warnings, "SMTP_SECURE=true usually pairs with port 465, not 587")
	}

	return result
}

// PrintConfigCheck prints the configuration check results
func PrintConfigCheck(result *ConfigCheckResult) {
	fmt.Println("=== Configuration Check ===")

	transport := result.Transport
	if transport == "" {
		transport = "smtp"
	}
	fmt.Printf("Mail transport: %s\n", transport)
	fmt.Println("")

	if len(result.Missing) > 0 {
		fmt.Println("❌ Missing required variables:")
		for _, v := range result.Missing {
			fmt.Printf("   - %s\n", v)
		}
		fmt.Println("")
	}

	if len(result.Present) > 0 {
		names := make([]string, 0, len(result.Present))
		for k := range result.Present {
			names = append(names, k)
		}
		sort.Strings(names)

		fmt.Println("✓ Configured variables:")
		for _, k := range names {
			fmt.Printf("   - %s = %s\n", k, result.Present[k])
		}
		fmt.Println("")
	}

	for _, w := range result.Warnings {
		fmt.Printf("⚠ Warning: %s\n", w)
	}

	if len(result.Missing) == 0 {
		fmt.Println("✓ All required configuration is present")
	}

	fmt.Println("============================")
}

// maskSecret masks a secret value for display, showing only first and last 2 chars
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:2] + "****" + value[len(value)-2:]
}

// LoadEnvFile loads environment variables from a file, overwriting existing ones.
func LoadEnvFile(filename string) error {
	if err := godotenv.Overload(filename); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", filename, err)
	}
	return nil
}
