package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nimbasms/nimbasms-cli/pkg/config"
	"github.com/nimbasms/nimbasms-cli/pkg/output"
)

// versionInfo describes the binary.
type versionInfo struct {
	ClientVersion string `json:"client_version"`
	Built         string `json:"built"`
	APIURL        string `json:"default_api_url"`
	GoVersion     string `json:"go_version"`
	Platform      string `json:"platform"`
	Compiler      string `json:"compiler"`
}

var versionColumns = []output.Column{
	output.Col("VERSION", "client_version"),
	output.Col("BUILT", "built"),
	output.Col("API", "default_api_url"),
	output.Col("GO", "go_version"),
	output.Col("PLATFORM", "platform"),
	output.Col("COMPILER", "compiler"),
}

func newVersionCmd(w io.Writer) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(w, format)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", config.FormatTable, "Output format (table|json|yaml)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{config.FormatTable, config.FormatJSON, config.FormatYAML}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func runVersion(w io.Writer, format string) error {
	info := versionInfo{
		ClientVersion: version,
		Built:         buildDate,
		APIURL:        config.DefaultAPIURL,
		GoVersion:     runtime.Version(),
		Platform:      fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		Compiler:      runtime.Compiler,
	}
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode version: %w", err)
	}

	mgr := output.NewManager()
	if _, err := mgr.GetFormatter(format); err != nil {
		return usageError(err)
	}
	return mgr.Render(w, output.Object("version", raw, versionColumns...), format)
}
