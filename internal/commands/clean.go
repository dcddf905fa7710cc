package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bit2swaz/foodstagram/internal/config"
)

func newCleanCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove locally archived media",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			root := cfg.Storage.LocalRoot
			if root == "" {
				return fmt.Errorf("storage.local_root is not set")
			}
			if err := os.RemoveAll(root); err != nil {
				return fmt.Errorf("remove %s: %w", root, err)
			}
			logInfo(cmd.OutOrStdout(), fmt.Sprintf("Removed %s", root))
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "config", "", "config file (default ./"+config.FileName+")")
	return cmd
}
