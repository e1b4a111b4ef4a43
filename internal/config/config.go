package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix selects environment variables that map onto any config key,
// e.g. REACTIONWATCH_FETCH_CONCURRENCY -> fetch.concurrency.
const EnvPrefix = "REACTIONWATCH_"

// ErrMissingSetting is wrapped by Validate when required values are absent.
var ErrMissingSetting = errors.New("missing required setting")

// Config represents the application configuration
type Config struct {
	GitHub struct {
		Token             string  `koanf:"token"`
		Username          string  `koanf:"username"`
		APIURL            string  `koanf:"api_url"`
		GraphQLURL        string  `koanf:"graphql_url"`
		RequestsPerSecond float64 `koanf:"requests_per_second"`
		Burst             int     `koanf:"burst"`
		MaxRetries        int     `koanf:"max_retries"`
	} `koanf:"github"`

	Mail struct {
		Transport     string `koanf:"transport"`
		From          string `koanf:"from"`
		To            string `koanf:"to"`
		SubjectPrefix string `koanf:"subject_prefix"`
	} `koanf:"mail"`

	SMTP struct {
		Host     string `koanf:"host"`
		Port     int    `koanf:"port"`
		Secure   bool   `koanf:"secure"`
		User     string `koanf:"user"`
		Password string `koanf:"password"`
	} `koanf:"smtp"`

	Resend struct {
		APIKey string `koanf:"api_key"`
	} `koanf:"resend"`

	State struct {
		Backend    string `koanf:"backend"`
		Path       string `koanf:"path"`
		MaxEntries int    `koanf:"max_entries"`
	} `koanf:"state"`

	Fetch struct {
		Concurrency     int  `koanf:"concurrency"`
		EventPages      int  `koanf:"event_pages"`
		PerPage         int  `koanf:"per_page"`
		DiscussionLimit int  `koanf:"discussion_limit"`
		SkipDiscussions bool `koanf:"skip_discussions"`
	} `koanf:"fetch"`

	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
		Dir    string `koanf:"dir"`
	} `koanf:"log"`

	Metrics struct {
		Textfile string `koanf:"textfile"`
	} `koanf:"metrics"`

	Run struct {
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"run"`

	Capture struct {
		Dir string `koanf:"dir"`
	} `koanf:"capture"`
}

var defaults = map[string]interface{}{
	"github.api_url":             "https://api.github.com/",
	"github.graphql_url":         "https://api.github.com/graphql",
	"github.requests_per_second": 5.0,
	"github.burst":               5,
	"github.max_retries":         3,
	"mail.transport":             "smtp",
	"smtp.port":                  587,
	"smtp.secure":                false,
	"state.backend":              "file",
	"state.max_entries":          1000,
	"fetch.concurrency":          4,
	"fetch.event_pages":          10,
	"fetch.per_page":             30,
	"fetch.discussion_limit":     50,
	"log.level":                  "info",
	"log.format":                 "console",
}

// envKeys maps the plain environment variables the notifier has always read.
var envKeys = map[string]string{
	"GITHUB_TOKEN":    "github.token",
	"GITHUB_USERNAME": "github.username",
	"SMTP_HOST":       "smtp.host",
	"SMTP_PORT":       "smtp.port",
	"SMTP_SECURE":     "smtp.secure",
	"SMTP_USER":       "smtp.user",
	"SMTP_PASSWORD":   "smtp.password",
	"EMAIL_FROM":      "mail.from",
	"EMAIL_TO":        "mail.to",
	"RESEND_API_KEY":  "resend.api_key",
	"STATE_PATH":      "state.path",
}

// EnvKeys returns the plain environment variable names and their config keys.
func EnvKeys() map[string]string {
	out := make(map[string]string, len(envKeys))
	for k, v := range envKeys {
		out[k] = v
	}
	return out
}

// DefaultPaths are searched in order when no config file is given.
var DefaultPaths = []string{"./data/reactionwatch.toml", "./reactionwatch.toml", "$HOME/.reactionwatch.toml"}

// LoadConfig loads defaults, then the TOML file, then the environment.
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		for _, path := range DefaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
					return nil, fmt.Errorf("error loading config %s: %w", path, err)
				}
				break
			}
		}
	}

	// Plain variables first so the prefixed form wins. Empty ones are unset.
	plain := make(map[string]interface{})
	for name, key := range envKeys {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			plain[key] = v
		}
	}
	if err := k.Load(confmap.Provider(plain, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", prefixedKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// prefixedKey turns REACTIONWATCH_SECTION_SOME_KEY into section.some_key.
func prefixedKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok || key == "" {
		return ""
	}
	return section + "." + key
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# reactionwatch configuration
# Every key can also be set as REACTIONWATCH_<SECTION>_<KEY>.

[github]
token = ""        # or GITHUB_TOKEN
username = ""     # or GITHUB_USERNAME
requests_per_second = 5.0
max_retries = 3

[mail]
transport = "smtp"   # smtp, resend or log
from = "notifier@example.com"
to = "you@example.com"

[smtp]
host = "smtp.example.com"
port = 587
secure = false
user = ""
password = ""

[resend]
api_key = ""

[state]
backend = "file"   # file or sqlite
path = "./data/seen-reactions.json"
max_entries = 1000

[fetch]
concurrency = 4
event_pages = 10
per_page = 30
discussion_limit = 50

[log]
level = "info"
format = "console"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate checks that everything a run needs is present. Missing values are
// reported together, wrapped in ErrMissingSetting.
func Validate(config *Config) error {
	var missing []string
	need := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	need(config.GitHub.Token, "github.token (GITHUB_TOKEN)")
	need(config.GitHub.Username, "github.username (GITHUB_USERNAME)")

	transport := strings.ToLower(config.Mail.Transport)
	switch transport {
	case "", "smtp":
		need(config.SMTP.Host, "smtp.host (SMTP_HOST)")
		need(config.SMTP.User, "smtp.user (SMTP_USER)")
		need(config.SMTP.Password, "smtp.password (SMTP_PASSWORD)")
	case "resend":
		need(config.Resend.APIKey, "resend.api_key (RESEND_API_KEY)")
	case "log":
	default:
		return fmt.Errorf("unknown mail transport %q", config.Mail.Transport)
	}
	if transport != "log" {
		need(config.Mail.From, "mail.from (EMAIL_FROM)")
		need(config.Mail.To, "mail.to (EMAIL_TO)")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSetting, strings.Join(missing, ", "))
	}

	switch strings.ToLower(strings.TrimSpace(config.State.Backend)) {
	case "", "file", "sqlite":
	default:
		return fmt.Errorf("unknown state backend %q", config.State.Backend)
	}

	if config.SMTP.Port < 0 || config.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port %d is out of range", config.SMTP.Port)
	}
	if config.Fetch.Concurrency < 1 {
		return fmt.Errorf("fetch.concurrency must be at least 1")
	}
	if config.State.MaxEntries < 1 {
		return fmt.Errorf("state.max_entries must be at least 1")
	}

	return nil
}
