package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Flags are the command line options of the service.
// Zero values mean "not given"; the other configuration sources apply.
type Flags struct {
	Port       int
	Env        string
	ConfigFile string
	EnvFile    string
}

// ParseFlags parses the command line arguments (without the program name).
func ParseFlags(args []string, output io.Writer) (Flags, error) {
	var f Flags
	fs := flag.NewFlagSet("vehicletracker", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&f.Port, "port", 0, "HTTP server port (default 5001)")
	fs.StringVar(&f.Env, "env", "", "Environment (development|staging|production)")
	fs.StringVar(&f.ConfigFile, "config-file", "", "Path to an optional YAML configuration file")
	fs.StringVar(&f.EnvFile, "env-file", "", "Path to a .env file (default .env if present)")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	if fs.NArg() > 0 {
		return Flags{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return f, nil
}

// Load builds the configuration from defaults, the optional YAML file,
// the environment (including a .env file) and finally the flags.
func Load(f Flags) (*Config, error) {
	cfg := Default()

	if f.ConfigFile != "" {
		if err := loadConfigFromFile(f.ConfigFile, cfg); err != nil {
			return nil, err
		}
	}

	fileEnv, err := readEnvFile(f.EnvFile)
	if err != nil {
		return nil, err
	}
	applyEnv(cfg, fileEnv)

	if f.Port != 0 {
		cfg.Port = f.Port
	}
	if f.Env != "" {
		cfg.Env = f.Env
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to unmarshal YAML config %s: %w", filePath, err)
	}
	return nil
}

// readEnvFile reads a .env file without touching the process environment.
// A missing default .env is not an error; a missing explicit one is.
func readEnvFile(path string) (map[string]string, error) {
	if path == "" {
		vars, err := godotenv.Read()
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
		return vars, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return vars, nil
}

// applyEnv overrides cfg with the process environment, falling back to the
// .env values. Empty values count as unset in both.
func applyEnv(cfg *Config, fileEnv map[string]string) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		} else if v := fileEnv[key]; v != "" {
			*dst = v
		}
	}
	set(&cfg.FeedBaseURL, "FEED_BASE_URL")
	set(&cfg.APIKey, "FEED_API_KEY")
	set(&cfg.StaticDir, "STATIC_DIR")
	set(&cfg.StaticBundleURL, "STATIC_BUNDLE_URL")
	set(&cfg.CacheDir, "CACHE_DIR")
	set(&cfg.IconDir, "ICON_DIR")
	set(&cfg.Timezone, "TIMEZONE")
	set(&cfg.SentryDSN, "SENTRY_DSN")
}

var validate = validator.New()

// Validate checks the struct tags and that the timezone can be resolved.
func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			msgs := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				msgs = append(msgs, formatValidationError(fe))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return fmt.Errorf("invalid configuration: unknown timezone %q: %w", cfg.Timezone, err)
	}
	return nil
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s is out of range", fe.Field())
	default:
		return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
	}
}
