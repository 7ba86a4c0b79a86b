package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/chatgpt-cli/chatgpt-cli/internal/testutil"
)

// clearEnv unsets every variable the resolver reads for the duration of the test.
func clearEnv(testingHandle *testing.T) {
	testingHandle.Helper()
	for _, fileKey := range fileKeys {
		name := EnvPrefix + "_" + fileKey
		testingHandle.Setenv(name, "")
		testutil.RequireNoError(testingHandle, os.Unsetenv(name), "unset "+name)
	}
}

// newFlagSet declares the setting flags the way the CLI does.
func newFlagSet(testingHandle *testing.T, args ...string) *pflag.FlagSet {
	testingHandle.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(FlagNames[KeyModel], "", "")
	flags.String(FlagNames[KeyAPIKey], "", "")
	flags.String(FlagNames[KeyInstructions], "", "")
	flags.Float64(FlagNames[KeyTemperature], 0, "")
	flags.Uint64(FlagNames[KeyMaxOutputTokens], 0, "")
	flags.String(FlagNames[KeyBaseURL], "", "")
	testutil.RequireNoError(testingHandle, flags.Parse(args), "parse flags")
	return flags
}

// resolve runs NewViper and Resolve over in-memory config content.
func resolve(testingHandle *testing.T, content string, flags *pflag.FlagSet, args ...string) (*Settings, error) {
	testingHandle.Helper()
	v, err := NewViper(ParseFile([]byte(content)), flags)
	testutil.RequireNoError(testingHandle, err, "new viper")
	return Resolve(v, args, "/home/u/.chatgpt-cli/.config")
}

// TestResolvePrecedence verifies flags beat environment variables, which beat the config file.
func TestResolvePrecedence(testingHandle *testing.T) {
	file := "MODEL=file-model\nAPI_KEY=file-key\nINSTRUCTIONS=file instructions\n"

	testingHandle.Run("file only", func(testingHandle *testing.T) {
		clearEnv(testingHandle)
		settings, err := resolve(testingHandle, file, newFlagSet(testingHandle), "hello")
		testutil.RequireNoError(testingHandle, err, "resolve settings")
		testutil.RequireEqual(testingHandle, settings.Model, "file-model", "model")
		testutil.RequireEqual(testingHandle, settings.APIKey, "file-key", "api key")
		testutil.RequireEqual(testingHandle, settings.Instructions, "file instructions", "instructions")
	})

	testingHandle.Run("environment beats file", func(testingHandle *testing.T) {
		clearEnv(testingHandle)
		testingHandle.Setenv("CHATGPT_CLI_MODEL", "env-model")
		testingHandle.Setenv("CHATGPT_CLI_API_KEY", "env-key")
		settings, err := resolve(testingHandle, file, newFlagSet(testingHandle), "hello")
		testutil.RequireNoError(testingHandle, err, "resolve settings")
		testutil.RequireEqual(testingHandle, settings.Model, "env-model", "model")
		testutil.RequireEqual(testingHandle, settings.APIKey, "env-key", "api key")
		testutil.RequireEqual(testingHandle, settings.Instructions, "file instructions", "instructions")
	})

	testingHandle.Run("flags beat environment", func(testingHandle *testing.T) {
		clearEnv(testingHandle)
		testingHandle.Setenv("CHATGPT_CLI_MODEL", "env-model")
		testingHandle.Setenv("CHATGPT_CLI_API_KEY", "env-key")
		flags := newFlagSet(testingHandle, "--model", "flag-model", "--key", "flag-key", "--instructions", "flag instructions")
		settings, err := resolve(testingHandle, file, flags, "hello")
		testutil.RequireNoError(testingHandle, err, "resolve settings")
		testutil.RequireEqual(testingHandle, settings.Model, "flag-model", "model")
		testutil.RequireEqual(testingHandle, settings.APIKey, "flag-key", "api key")
		testutil.RequireEqual(testingHandle, settings.Instructions, "flag instructions", "instructions")
	})
}

// TestResolveOptionalNumbers verifies temperature and max output tokens are parsed only when set.
func TestResolveOptionalNumbers(testingHandle *testing.T) {
	base := "MODEL=m\nAPI_KEY=k\n"

	testingHandle.Run("unset stays nil", func(testingHandle *testing.T) {
		clearEnv(testingHandle)
		settings, err := resolve(testingHandle, base, newFlagSet(testingHandle), "hi")
		testutil.RequireNoError(testingHandle, err, "resolve settings")
		testutil.RequireTrue(testingHandle, settings.Temperature == nil, "temperature unset")
		testutil.RequireTrue(testingHandle, settings.MaxOutputTokens == nil, "max output tokens unset")
	})

	testingHandle.Run("from file", func(testingHandle *testing.T) {
		clearEnv(testingHandle)
		settings, err := resolve(testingHandle, base+"TEMPERATURE=0.2\nMAX_OUTPUT_TOKENS=300\n", newFlagSet(testingHandle), "hi")
		testutil.RequireNoError(testingHandle, err, "resolve settings")
		testutil.RequireTrue(testingHandle, settings.Temperature != nil, "temperature set")
		testutil.RequireTrue(testingHandle, settings.MaxOutputTokens != nil, "max output tokens set")
		testutil.RequireInDelta(testingHandle, *settings.Temperature, 0.2, 1e-9, "temperature")
		testutil.RequireEqual(testingHandle, *settings.MaxOutputTokens, uint64(300), "max output tokens")
	})

	testingHandle.Run("from flags", func(testingHandle *testing.T) {
		clearEnv(testingHandle)
		flags := newFlagSet(testingHandle, "--temperature", "1.5", "--max-output-tokens", "64")
		settings, err := resolve(testingHandle, base+"TEMPERATURE=0.2\n", flags, "hi")
		testutil.RequireNoError(testingHandle, err, "resolve settings")
		testutil.RequireInDelta(testingHandle, *settings.Temperature, 1.5, 1e-9, "temperature")
		testutil.RequireEqual(testingHandle, *settings.MaxOutputTokens, uint64(64), "max output tokens")
	})

	testingHandle.Run("bad temperature", func(testingHandle *testing.T) {
		clearEnv(testingHandle)
		testingHandle.Setenv("CHATGPT_CLI_TEMPERATURE", "warm")
		_, err := resolve(testingHandle, base, newFlagSet(testingHandle), "hi")
		testutil.RequireErrorIs(testingHandle, err, ErrInvalidSettings, "invalid settings")
		testutil.RequireStringContains(testingHandle, err.Error(), "not a number", "error message")
	})

	testingHandle.Run("bad max output tokens", func(testingHandle *testing.T) {
		clearEnv(testingHandle)
		_, err := resolve(testingHandle, base+"MAX_OUTPUT_TOKENS=-1\n", newFlagSet(testingHandle), "hi")
		testutil.RequireErrorIs(testingHandle, err, ErrInvalidSettings, "invalid settings")
		testutil.RequireStringContains(testingHandle, err.Error(), "not an unsigned integer", "error message")
	})

	testingHandle.Run("temperature out of range", func(testingHandle *testing.T) {
		clearEnv(testingHandle)
		_, err := resolve(testingHandle, base+"TEMPERATURE=2.5\n", newFlagSet(testingHandle), "hi")
		testutil.RequireErrorIs(testingHandle, err, ErrInvalidSettings, "invalid settings")
		testutil.RequireStringContains(testingHandle, err.Error(), "temperature must be between 0 and 2", "error message")
	})
}

// TestResolveValidation verifies each missing or invalid setting reports a usable message.
func TestResolveValidation(testingHandle *testing.T) {
	cases := []struct {
		name    string
		content string
		args    []string
		wantErr string
	}{
		{
			name:    "missing model",
			content: "API_KEY=k\n",
			args:    []string{"hi"},
			wantErr: "model not provided; specify with --model, CHATGPT_CLI_MODEL or MODEL in /home/u/.chatgpt-cli/.config",
		},
		{
			name:    "missing key",
			content: "MODEL=m\n",
			args:    []string{"hi"},
			wantErr: "OpenAI API key not provided",
		},
		{
			name:    "missing prompt",
			content: "MODEL=m\nAPI_KEY=k\n",
			wantErr: "prompt not specified; use --help for usage",
		},
		{
			name:    "blank prompt",
			content: "MODEL=m\nAPI_KEY=k\n",
			args:    []string{" ", ""},
			wantErr: "prompt not specified",
		},
		{
			name:    "invalid base url",
			content: "MODEL=m\nAPI_KEY=k\nBASE_URL=not a url\n",
			args:    []string{"hi"},
			wantErr: "is not a valid URL",
		},
		{
			name:    "model reported before key",
			content: "",
			args:    []string{"hi"},
			wantErr: "model not provided",
		},
	}

	for _, testCase := range cases {
		testingHandle.Run(testCase.name, func(testingHandle *testing.T) {
			clearEnv(testingHandle)
			_, err := resolve(testingHandle, testCase.content, newFlagSet(testingHandle), testCase.args...)
			testutil.RequireErrorIs(testingHandle, err, ErrInvalidSettings, "invalid settings")
			testutil.RequireStringContains(testingHandle, err.Error(), testCase.wantErr, "error message")
		})
	}
}

// TestResolvePromptJoin verifies positional arguments are joined by single spaces.
func TestResolvePromptJoin(testingHandle *testing.T) {
	clearEnv(testingHandle)
	settings, err := resolve(testingHandle, "MODEL=m\nAPI_KEY=k\n", nil, "what", "is", " go ")
	testutil.RequireNoError(testingHandle, err, "resolve settings")
	testutil.RequireEqual(testingHandle, settings.Prompt, "what is  go ", "prompt")
}

// TestLoadDotEnv verifies .env values load without overriding the process environment.
func TestLoadDotEnv(testingHandle *testing.T) {
	const (
		loaded = "CHATGPT_CLI_DOTENV_LOADED"
		kept   = "CHATGPT_CLI_DOTENV_KEPT"
	)
	testingHandle.Setenv(loaded, "")
	testutil.RequireNoError(testingHandle, os.Unsetenv(loaded), "unset "+loaded)
	testingHandle.Setenv(kept, "from-process")

	dir := testingHandle.TempDir()
	testutil.RequireNoError(testingHandle, LoadDotEnv(dir), "missing .env is ignored")

	content := loaded + "=from-dotenv\n" + kept + "=from-dotenv\n"
	testutil.RequireNoError(testingHandle, os.WriteFile(filepath.Join(dir, DotEnvFileName), []byte(content), 0o600), "write .env")
	testutil.RequireNoError(testingHandle, LoadDotEnv(dir), "load .env")

	testutil.RequireEqual(testingHandle, os.Getenv(loaded), "from-dotenv", "value from .env")
	testutil.RequireEqual(testingHandle, os.Getenv(kept), "from-process", "process value kept")
}
