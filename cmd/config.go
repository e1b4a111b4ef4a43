package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/reactionwatch/internal/config"
)

// ConfigCommand returns the config command
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize a new configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "reactionwatch.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration file and environment",
				Action: runConfigValidate,
			},
			{
				Name:   "check",
				Usage:  "Show which environment variables are set",
				Action: runConfigCheck,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigValidate(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Println("Configuration is valid")
	return nil
}

func runConfigCheck(c *cli.Context) error {
	transport := ""
	if cfg, err := config.LoadConfig(c.String("config")); err == nil {
		transport = cfg.Mail.Transport
	}

	result := CheckRequiredConfig(transport)
	PrintConfigCheck(result)

	if len(result.Missing) > 0 {
		return fmt.Errorf("%d required variable(s) missing", len(result.Missing))
	}
	return nil
}
