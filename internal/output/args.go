package output

import (
	"fmt"

	"github.com/spf13/cobra"
)

// UsageArgs wraps a cobra argument validator so its errors count as usage
// errors (exit code 1).
func UsageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		return nil
	}
}

// UsageFlagError marks flag parsing errors as usage errors.
func UsageFlagError(cmd *cobra.Command, err error) error {
	return fmt.Errorf("%w: %v", ErrUsage, err)
}
