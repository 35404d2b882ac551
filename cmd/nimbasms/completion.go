package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nimbasms/nimbasms-cli/pkg/config"
)

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

func newCompletionCmd(root *cobra.Command, w io.Writer) *cobra.Command {
	name := config.AppName
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: fmt.Sprintf(`Generate shell completion scripts for %[1]s.

Completion covers resource commands, nested extension commands and flags.

Bash:
  $ %[1]s completion bash > ~/.local/share/bash-completion/completions/%[1]s

Zsh:
  $ %[1]s completion zsh > ~/.zsh/completion/_%[1]s
  Then add to ~/.zshrc:
  fpath=(~/.zsh/completion $fpath)
  autoload -Uz compinit && compinit

Fish:
  $ %[1]s completion fish > ~/.config/fish/completions/%[1]s.fish

PowerShell:
  $ %[1]s completion powershell > %[1]s.ps1`, name),
		ValidArgs:             completionShells,
		Args:                  usageArgs(cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)),
		DisableFlagsInUseLine: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeCompletion(root, args[0], w)
		},
	}
}

func writeCompletion(root *cobra.Command, shell string, w io.Writer) error {
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(w, true)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(w)
	default:
		return fmt.Errorf("unsupported shell: %s", shell)
	}
}
