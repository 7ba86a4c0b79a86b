package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chatgpt-cli/chatgpt-cli/internal/config"
	"github.com/chatgpt-cli/chatgpt-cli/internal/history"
	"github.com/chatgpt-cli/chatgpt-cli/internal/llm/openai"
	"github.com/chatgpt-cli/chatgpt-cli/internal/logger"
)

// version is the CLI build version.
const version = "0.1.0"

const (
	logFormatText = "text"
	logFormatJSON = "json"
)

// options holds all CLI flags.
type options struct {
	// Model overrides the configured model.
	Model string
	// APIKey overrides the CHATGPT_CLI_API_KEY environment variable.
	APIKey string
	// Instructions overrides the configured system instructions.
	Instructions string
	// Temperature is sent only when the flag is given.
	Temperature float64
	// MaxOutputTokens is sent only when the flag is given.
	MaxOutputTokens uint64
	// BaseURL points at an OpenAI-compatible API root.
	BaseURL string
	// ConfigDir overrides the application directory.
	ConfigDir string
	// Raw prints the final response object as JSON instead of streamed text.
	Raw bool
	// Continue sends the previous response id to continue the conversation.
	Continue bool
	// EchoID prints the response id as soon as the server assigns it.
	EchoID bool
	// Markdown renders the finished answer as markdown on terminals.
	Markdown bool
	// ShowHistory prints the stored previous response id and exits.
	ShowHistory bool
	// ClearHistory forgets the stored previous response id and exits.
	ClearHistory bool
	// Debug enables debug logging on stderr.
	Debug bool
	// LogFormat selects "text" or "json" log records.
	LogFormat string
	// Version prints the CLI version.
	Version bool
}

// main wires Cobra and executes the CLI.
func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand builds the root command and its flags.
func newRootCommand() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "chatgpt-cli [flags] PROMPT...",
		Short:         "Stream an answer from the OpenAI Responses API",
		Long:          longDescription(),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Version {
				fmt.Fprintln(cmd.OutOrStdout(), version)
				return nil
			}
			return runRoot(cmd, opts, args)
		},
	}
	applyFlags(rootCmd.Flags(), opts)
	return rootCmd
}

// applyFlags defines the CLI flags. Flag names for settings come from
// config.FlagNames so viper can bind them.
func applyFlags(flags *pflag.FlagSet, opts *options) {
	flags.SortFlags = false

	flags.StringVarP(&opts.Model, config.FlagNames[config.KeyModel], "m", "", "OpenAI model to use (overrides MODEL config option)")
	flags.StringVarP(&opts.APIKey, config.FlagNames[config.KeyAPIKey], "k", "", "OpenAI API key (overrides "+config.EnvPrefix+"_API_KEY)")
	flags.StringVarP(&opts.Instructions, config.FlagNames[config.KeyInstructions], "i", "", "System instructions for the model (overrides INSTRUCTIONS config option)")
	flags.Float64VarP(&opts.Temperature, config.FlagNames[config.KeyTemperature], "t", 0, "Sampling temperature between 0 and 2")
	flags.Uint64Var(&opts.MaxOutputTokens, config.FlagNames[config.KeyMaxOutputTokens], 0, "Upper bound on generated tokens")
	flags.StringVar(&opts.BaseURL, config.FlagNames[config.KeyBaseURL], "", "OpenAI-compatible API base URL (default "+openai.DefaultBaseURL+")")
	flags.BoolVarP(&opts.Raw, "raw", "r", false, "Print raw JSON response instead of parsed text")
	flags.BoolVarP(&opts.Continue, "continue", "c", false, "Continue from the previous response")
	flags.BoolVarP(&opts.EchoID, "echo-id", "e", false, "Print the response id when the response is created")
	flags.BoolVar(&opts.Markdown, "markdown", false, "Render the finished answer as markdown on terminals")
	flags.BoolVar(&opts.ShowHistory, "show-history", false, "Print the stored previous response id and exit")
	flags.BoolVar(&opts.ClearHistory, "clear-history", false, "Forget the stored previous response id and exit")
	flags.StringVar(&opts.ConfigDir, "config-dir", "", "Application directory holding .config, .env and .prev")
	flags.BoolVar(&opts.Debug, "debug", false, "Enable debug logging on stderr")
	flags.StringVar(&opts.LogFormat, "log-format", logFormatText, "Log record format: text or json")
	flags.BoolVarP(&opts.Version, "version", "v", false, "Output the version number")
}

// longDescription mirrors the help text, including the config file location.
func longDescription() string {
	text := `Send PROMPT to the OpenAI Responses API and stream the answer as it arrives.

Required:
  a model    --model, ` + config.EnvPrefix + `_MODEL or MODEL in the config file
  an API key --key, ` + config.EnvPrefix + `_API_KEY or API_KEY in the config file

Environment:
  ` + config.EnvPrefix + `_API_KEY  API key if not provided with --key
`
	if appDir, err := config.AppDir(); err == nil {
		text += `
Configuration:
  ` + config.FilePath(appDir) + `
  Keys include MODEL, INSTRUCTIONS, API_KEY, TEMPERATURE, MAX_OUTPUT_TOKENS and BASE_URL,
  used when not provided via command-line or environment.
  Each key is stored as KEY=VALUE on a separate line. Use | to escape newlines.
`
	}
	return text
}

// runRoot resolves settings, sends the request and streams the answer.
func runRoot(cmd *cobra.Command, opts *options, args []string) error {
	if opts.LogFormat != logFormatText && opts.LogFormat != logFormatJSON {
		return fmt.Errorf("unknown log format %q; use %s or %s", opts.LogFormat, logFormatText, logFormatJSON)
	}
	log := logger.New(
		logger.WithDebug(opts.Debug),
		logger.WithPretty(isTerminal(cmd.ErrOrStderr())),
		logger.WithJSON(opts.LogFormat == logFormatJSON),
		logger.WithWriter(cmd.ErrOrStderr()),
	)

	appDir, err := resolveAppDir(opts)
	if err != nil {
		return err
	}
	store := history.NewStore(appDir)

	if opts.ShowHistory || opts.ClearHistory {
		return runHistory(cmd, opts, store)
	}

	if err := config.LoadDotEnv(appDir); err != nil {
		return err
	}
	file, err := config.LoadFile(config.FilePath(appDir))
	if err != nil {
		return err
	}
	v, err := config.NewViper(file, cmd.Flags())
	if err != nil {
		return err
	}
	settings, err := config.Resolve(v, args, file.Path)
	if err != nil {
		return err
	}

	req := &openai.ResponsesRequest{
		Model:           settings.Model,
		Input:           settings.Prompt,
		Instructions:    settings.Instructions,
		Temperature:     settings.Temperature,
		MaxOutputTokens: settings.MaxOutputTokens,
	}
	if opts.Continue {
		previousID, err := store.Load()
		if err != nil {
			return err
		}
		req.PreviousResponseID = previousID
		log.Debug("continuing conversation", "previous_response_id", previousID)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	client := openai.NewClient(settings.BaseURL, settings.APIKey, 0, openai.WithLogger(log))
	printer := newStreamPrinter(cmd.OutOrStdout(), opts.Markdown)

	_, err = client.StreamResponse(ctx, req, printer.Handle, openai.DispatcherOptions{
		Raw:            opts.Raw,
		EchoResponseID: opts.EchoID,
		History:        store,
		Logger:         log,
	})
	printer.EnsureNewline()
	return err
}

// runHistory serves --show-history and --clear-history.
func runHistory(cmd *cobra.Command, opts *options, store *history.Store) error {
	if opts.ClearHistory {
		return store.Clear()
	}
	previousID, err := store.Load()
	if err != nil {
		return err
	}
	if previousID != "" {
		fmt.Fprintln(cmd.OutOrStdout(), previousID)
	}
	return nil
}

// resolveAppDir picks --config-dir or the per-user default.
func resolveAppDir(opts *options) (string, error) {
	if opts.ConfigDir != "" {
		return opts.ConfigDir, nil
	}
	return config.AppDir()
}
