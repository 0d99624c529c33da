// Package completion provides shell completion generation commands.
package completion

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yangming0322/splittable/internal/output"
)

// NewCommand returns the completion command.
func NewCommand(rootCmd *cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completions",
		Long: `Generate shell completion scripts for splittable.

Install instructions:
  Bash:       splittable completion bash > /etc/bash_completion.d/splittable
              echo 'source <(splittable completion bash)' >> ~/.bashrc
  Zsh:        splittable completion zsh > ~/.zsh/completions/_splittable
  Fish:       splittable completion fish > ~/.config/fish/completions/splittable.fish
  PowerShell: splittable completion powershell >> $PROFILE`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      output.UsageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				fmt.Fprintln(out, "# splittable bash completion")
				fmt.Fprintln(out, "# Install: splittable completion bash > /etc/bash_completion.d/splittable")
				fmt.Fprintln(out, "# Or:      echo 'source <(splittable completion bash)' >> ~/.bashrc")
				fmt.Fprintln(out)
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				fmt.Fprintln(out, "# splittable zsh completion")
				fmt.Fprintln(out, "# Install: splittable completion zsh > ~/.zsh/completions/_splittable")
				fmt.Fprintln(out)
				return rootCmd.GenZshCompletion(out)
			case "fish":
				fmt.Fprintln(out, "# splittable fish completion")
				fmt.Fprintln(out, "# Install: splittable completion fish > ~/.config/fish/completions/splittable.fish")
				fmt.Fprintln(out)
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				fmt.Fprintln(out, "# splittable PowerShell completion")
				fmt.Fprintln(out, "# Install: splittable completion powershell >> $PROFILE")
				fmt.Fprintln(out)
				return rootCmd.GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("%w: unsupported shell: %s (supported: bash, zsh, fish, powershell)", output.ErrUsage, args[0])
			}
		},
	}
	return cmd
}
