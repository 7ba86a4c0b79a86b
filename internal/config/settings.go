package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the CLI reads, e.g.
// CHATGPT_CLI_API_KEY.
const EnvPrefix = "CHATGPT_CLI"

// Setting keys shared by flags, environment variables and the config file.
const (
	KeyModel           = "model"
	KeyAPIKey          = "api_key"
	KeyInstructions    = "instructions"
	KeyTemperature     = "temperature"
	KeyMaxOutputTokens = "max_output_tokens"
	KeyBaseURL         = "base_url"
)

// fileKeys maps setting keys to their config file spelling.
var fileKeys = map[string]string{
	KeyModel:           "MODEL",
	KeyAPIKey:          "API_KEY",
	KeyInstructions:    "INSTRUCTIONS",
	KeyTemperature:     "TEMPERATURE",
	KeyMaxOutputTokens: "MAX_OUTPUT_TOKENS",
	KeyBaseURL:         "BASE_URL",
}

// FlagNames maps setting keys to the command-line flags that override them.
var FlagNames = map[string]string{
	KeyModel:           "model",
	KeyAPIKey:          "key",
	KeyInstructions:    "instructions",
	KeyTemperature:     "temperature",
	KeyMaxOutputTokens: "max-output-tokens",
	KeyBaseURL:         "base-url",
}

// ErrInvalidSettings wraps every validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings are the resolved inputs for one request.
type Settings struct {
	// Model is the provider model identifier.
	Model string `validate:"required"`
	// APIKey is the bearer credential.
	APIKey string `validate:"required"`
	// Instructions is an optional system prompt.
	Instructions string
	// Temperature is nil when unset.
	Temperature *float64 `validate:"omitempty,gte=0,lte=2"`
	// MaxOutputTokens is nil when unset.
	MaxOutputTokens *uint64
	// BaseURL overrides the API root when set.
	BaseURL string `validate:"omitempty,url"`
	// Prompt is the positional arguments joined by single spaces.
	Prompt string `validate:"required"`
	// ConfigPath is reported in error messages.
	ConfigPath string `validate:"-"`
}

// NewViper layers the config file, environment and flags, from lowest to
// highest precedence. Config file values are registered as defaults.
func NewViper(file *File, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	for key, fileKey := range fileKeys {
		if value, ok := file.Lookup(fileKey); ok {
			v.SetDefault(key, value)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range FlagNames {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	return v, nil
}

// Resolve builds validated Settings from v and the positional arguments.
func Resolve(v *viper.Viper, args []string, configPath string) (*Settings, error) {
	settings := &Settings{
		Model:        strings.TrimSpace(v.GetString(KeyModel)),
		APIKey:       strings.TrimSpace(v.GetString(KeyAPIKey)),
		Instructions: v.GetString(KeyInstructions),
		BaseURL:      strings.TrimSpace(v.GetString(KeyBaseURL)),
		ConfigPath:   configPath,
	}

	if v.IsSet(KeyTemperature) {
		raw := strings.TrimSpace(v.GetString(KeyTemperature))
		temperature, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: temperature %q is not a number", ErrInvalidSettings, raw)
		}
		settings.Temperature = &temperature
	}

	if v.IsSet(KeyMaxOutputTokens) {
		raw := strings.TrimSpace(v.GetString(KeyMaxOutputTokens))
		maxTokens, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: max output tokens %q is not an unsigned integer", ErrInvalidSettings, raw)
		}
		settings.MaxOutputTokens = &maxTokens
	}

	prompt := strings.Join(args, " ")
	if strings.TrimSpace(prompt) != "" {
		settings.Prompt = prompt
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks required fields and ranges.
func (s *Settings) Validate() error {
	validate := validator.New()
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	// Report the first failure in declaration order, like a flag parser would.
	return fmt.Errorf("%w: %s", ErrInvalidSettings, s.describe(fieldErrs[0]))
}

// describe turns a validation failure into a user-facing message.
func (s *Settings) describe(fieldErr validator.FieldError) string {
	configPath := s.ConfigPath
	if configPath == "" {
		configPath = "the config file"
	}
	switch fieldErr.Field() {
	case "Model":
		return fmt.Sprintf("model not provided; specify with --model, %s_MODEL or MODEL in %s", EnvPrefix, configPath)
	case "APIKey":
		return fmt.Sprintf("OpenAI API key not provided; specify with %s_API_KEY environment variable or --key", EnvPrefix)
	case "Temperature":
		return "temperature must be between 0 and 2"
	case "BaseURL":
		return fmt.Sprintf("base url %q is not a valid URL", s.BaseURL)
	case "Prompt":
		return "prompt not specified; use --help for usage"
	default:
		return fieldErr.Error()
	}
}

// LoadDotEnv loads appDir/.env into the process environment. Variables that
// are already set keep their values; a missing file is ignored.
func LoadDotEnv(appDir string) error {
	path := filepath.Join(appDir, DotEnvFileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}
