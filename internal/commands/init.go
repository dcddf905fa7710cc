package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	foodstagram "github.com/bit2swaz/foodstagram"
	"github.com/bit2swaz/foodstagram/internal/config"
)

func newInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a foodstagram.yaml configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func runInit(cmd *cobra.Command, force bool) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine working directory: %w", err)
	}

	targetPath := filepath.Join(wd, config.FileName)

	if _, err := os.Stat(targetPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", config.FileName)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", config.FileName, err)
	}

	if err := os.WriteFile(targetPath, foodstagram.ConfigTemplate(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", config.FileName, err)
	}
	logSuccess(cmd.OutOrStdout(), fmt.Sprintf("Generated %s", config.FileName))
	return nil
}

func newConfigCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved API server configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			data, err := cfg.Redacted()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&path, "config", "", "config file (default ./"+config.FileName+")")
	return cmd
}
