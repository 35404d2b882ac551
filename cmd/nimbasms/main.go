// Command nimbasms is the command line client for the Nimba SMS API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nimbasms/nimbasms-cli/internal/app"
	"github.com/nimbasms/nimbasms-cli/pkg/config"
	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

var (
	// version is set at build time
	version = "0.1.0"
	// buildDate is set at build time
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

// run executes one invocation. opts may be nil; its writers are replaced by
// stdout and stderr.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, opts *app.Options) int {
	var appOpts app.Options
	if opts != nil {
		appOpts = *opts
	}
	appOpts.Stdout, appOpts.Stderr = stdout, stderr
	appOpts.Version = version

	a, err := app.New(appOpts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return output.ExitSoftware
	}

	code := output.ExitOK
	root := newRootCmd(a, &code)
	root.AddCommand(newVersionCmd(stdout))
	root.AddCommand(newCompletionCmd(root, stdout))
	root.AddCommand(newConfigCmd(stdin, stdout, appOpts))
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError(err) })
	if args == nil {
		// cobra falls back to os.Args on a nil slice
		args = []string{}
	}
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		noColor := os.Getenv("NO_COLOR") != ""
		mgr := output.NewManager()
		mgr.SetConfig(output.NewFormatConfig().WithColors(output.ColorsEnabled(stderr, noColor)))
		return mgr.RenderError(stderr, err, config.FormatTable)
	}
	return code
}

// newRootCmd hands every command line that is not a built-in to the app,
// which parses its own flags.
func newRootCmd(a *app.App, code *int) *cobra.Command {
	cmd := &cobra.Command{
		Use:                config.AppName,
		Short:              "Command line client for the Nimba SMS API",
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceErrors:      true,
		SilenceUsage:       true,
		CompletionOptions:  cobra.CompletionOptions{DisableDefaultCmd: true},
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return a.Tree().Complete(args, toComplete), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if wantsRootHelp(args) {
				return writeRootHelp(cmd, a)
			}
			*code = a.Run(cmd.Context(), args)
			return nil
		},
	}
	cmd.SetHelpCommand(&cobra.Command{
		Use:   "help [command]",
		Short: "Help about any command",
		RunE: func(c *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeRootHelp(cmd, a)
			}
			if sub, _, err := cmd.Find(args); err == nil && sub != cmd {
				return sub.Help()
			}
			text, err := a.Tree().Help(args)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.OutOrStdout(), strings.TrimRight(text, "\n"))
			return err
		},
	})
	return cmd
}

func wantsRootHelp(args []string) bool {
	if len(args) == 0 {
		return true
	}
	return len(args) == 1 && (args[0] == "-h" || args[0] == "--help" || args[0] == "help")
}

func writeRootHelp(cmd *cobra.Command, a *app.App) error {
	text, err := a.Tree().Help(nil)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(w, strings.TrimRight(text, "\n"))
	_, _ = fmt.Fprintln(w, "\nAdditional Commands:")
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			_, _ = fmt.Fprintf(w, "  %-12s %s\n", sub.Name(), sub.Short)
		}
	}
	return nil
}
