// Package app runs one nimbasms invocation: it resolves the command line,
// builds the API client, runs the handler and renders the outcome.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/nimbasms/nimbasms-cli/internal/command"
	"github.com/nimbasms/nimbasms-cli/internal/commands"
	"github.com/nimbasms/nimbasms-cli/pkg/api"
	"github.com/nimbasms/nimbasms-cli/pkg/config"
	"github.com/nimbasms/nimbasms-cli/pkg/nimba"
	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

// Options configures an App. Zero values select the production behavior.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	// Version is reported in the User-Agent header.
	Version string
	// SearchPaths overrides config.DefaultSearchPaths.
	SearchPaths []string
	// Credentials overrides the OS keyring.
	Credentials config.CredentialStore
	HTTPClient  *http.Client
	// Spinner forces the progress spinner on or off. Nil enables it when
	// stderr is a terminal.
	Spinner  *bool
	Commands commands.Options
}

// App is the nimbasms command line bound to its outputs.
type App struct {
	opts   Options
	tree   *command.Tree
	logger *slog.Logger
	level  *slog.LevelVar
}

// New builds the command tree and the logger.
func New(opts Options) (*App, error) {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.SearchPaths == nil {
		opts.SearchPaths = config.DefaultSearchPaths()
	}
	if opts.Credentials == nil {
		store, err := config.NewKeyringStore(config.AppName)
		if err != nil {
			return nil, err
		}
		opts.Credentials = store
	}

	tree, err := commands.NewTree(opts.Commands)
	if err != nil {
		return nil, err
	}
	logger, level := newLogger(opts.Stderr)
	return &App{opts: opts, tree: tree, logger: logger, level: level}, nil
}

// Tree returns the command tree, for completion.
func (a *App) Tree() *command.Tree {
	return a.tree
}

// invocation carries the state of one Run.
type invocation struct {
	cfg     *config.ResolvedConfig
	spinner *output.Spinner
}

// Run executes argv and returns the process exit code. Results go to
// stdout, errors and diagnostics to stderr.
func (a *App) Run(ctx context.Context, argv []string) int {
	inv := &invocation{}
	session := command.Session{
		Config: func(flags *pflag.FlagSet) (*config.ResolvedConfig, error) {
			cfg, err := a.resolveConfig(flags)
			if err != nil {
				return nil, err
			}
			inv.cfg = cfg
			return cfg, nil
		},
		Client: func(cfg *config.ResolvedConfig) (*api.Client, error) {
			client, err := a.newClient(cfg)
			if err != nil {
				return nil, err
			}
			inv.spinner = output.NewSpinner(a.opts.Stderr, a.spinnerEnabled(cfg))
			inv.spinner.Start("Contacting Nimba SMS")
			return client, nil
		},
	}

	res, err := a.tree.Dispatch(ctx, argv, session)
	inv.spinner.Stop()

	format, noColor := inv.settings(argv)
	if err != nil {
		a.logFailure(err)
		return newManager(a.opts.Stderr, noColor).RenderError(a.opts.Stderr, err, format)
	}

	if err := newManager(a.opts.Stdout, noColor).Render(a.opts.Stdout, res, format); err != nil {
		a.logger.Error("failed to render output", "format", format, "error", err)
		return output.ExitSoftware
	}
	return output.ExitOK
}

// newManager returns an output manager with colors enabled when w is a
// terminal that accepts them.
func newManager(w io.Writer, noColor bool) *output.Manager {
	mgr := output.NewManager()
	mgr.SetConfig(output.NewFormatConfig().WithColors(output.ColorsEnabled(w, noColor)))
	return mgr
}

func (a *App) resolveConfig(flags *pflag.FlagSet) (*config.ResolvedConfig, error) {
	path, _ := flags.GetString(config.FlagConfig)
	if verbose, _ := flags.GetBool(config.FlagVerbose); verbose {
		a.level.Set(slog.LevelDebug)
	}

	cfg, err := config.Resolve(config.Options{
		FilePath:    path,
		SearchPaths: a.opts.SearchPaths,
		Flags:       flags,
		Credentials: a.opts.Credentials,
		Logger:      a.logger,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		a.level.Set(slog.LevelDebug)
	}
	a.logger.Debug("configuration resolved",
		"api_url", cfg.APIURL,
		"file", cfg.FilePath,
		"api_key_source", cfg.Sources[config.KeyAPIKey],
		"format", cfg.Format)
	return cfg, nil
}

func (a *App) newClient(cfg *config.ResolvedConfig) (*api.Client, error) {
	contract, err := nimba.DefaultContract()
	if err != nil {
		return nil, err
	}
	userAgent := config.AppName
	if a.opts.Version != "" {
		userAgent += "/" + a.opts.Version
	}
	return api.NewClient(api.Options{
		BaseURL:     cfg.APIURL,
		APIKey:      cfg.APIKey,
		ServiceID:   cfg.ServiceID,
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.MaxAttempts,
		RateLimit:   cfg.RateLimit,
		UserAgent:   userAgent,
		HTTPClient:  a.opts.HTTPClient,
		Schemas:     contract,
		Logger:      a.logger,
	})
}

func (a *App) spinnerEnabled(cfg *config.ResolvedConfig) bool {
	if a.opts.Spinner != nil {
		return *a.opts.Spinner
	}
	return !cfg.Verbose && output.IsTerminal(a.opts.Stderr)
}

func (a *App) logFailure(err error) {
	var panicErr *command.PanicError
	if errors.As(err, &panicErr) {
		a.logger.Error("handler panicked", "command", panicErr.Command, "panic", panicErr.Value, "stack", string(panicErr.Stack))
		return
	}
	a.logger.Debug("command failed", "error", err, "exit_code", output.ExitCode(err))
}

// settings returns the output format and color choice. When configuration
// could not be resolved they are read from the environment and the raw
// flags so errors still honor NIMBASMS_FORMAT and --format.
func (inv *invocation) settings(argv []string) (format string, noColor bool) {
	if inv.cfg != nil {
		return inv.cfg.Format, inv.cfg.NoColor
	}
	format = config.FormatTable
	if v := strings.TrimSpace(os.Getenv(config.EnvVar(config.KeyFormat))); v != "" {
		format = strings.ToLower(v)
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		noColor = true
	}
	if b, err := strconv.ParseBool(os.Getenv(config.EnvVar(config.KeyNoColor))); err == nil && b {
		noColor = true
	}
	for i := 0; i < len(argv); i++ {
		tok := argv[i]
		if tok == "--" {
			break
		}
		switch {
		case tok == "--"+config.FlagNoColor:
			noColor = true
		case tok == "--"+config.FlagFormat && i+1 < len(argv):
			format = strings.ToLower(argv[i+1])
			i++
		case strings.HasPrefix(tok, "--"+config.FlagFormat+"="):
			format = strings.ToLower(strings.TrimPrefix(tok, "--"+config.FlagFormat+"="))
		}
	}
	return format, noColor
}
