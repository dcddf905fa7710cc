package commands

import (
	"context"

	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "foodstagram",
		Short:         "Turn food photos, names and links into recipes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("server", "", "API server URL (default: stored server or "+defaultServer+")")

	root.AddCommand(newInitCommand())
	root.AddCommand(newConfigCommand())
	root.AddCommand(newCleanCommand())
	root.AddCommand(newLinkCommand())
	root.AddCommand(newRegisterCommand())
	root.AddCommand(newLoginCommand())
	root.AddCommand(newLogoutCommand())
	root.AddCommand(newSetKeyCommand())
	root.AddCommand(newGenerateCommand())
	root.AddCommand(newVideoCommand())
	root.AddCommand(newSavedCommand())
	root.AddCommand(newShowCommand())
	root.AddCommand(newSaveToggleCommand())
	root.AddCommand(newRateCommand())
	root.AddCommand(newDeleteCommand())
	root.AddCommand(newTimerCommand())

	return root
}

// Execute runs the CLI. Returned errors have already been printed and carry
// the process exit code.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	return reportError(root.ErrOrStderr(), root.ExecuteContext(ctx))
}
