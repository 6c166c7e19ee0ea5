package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vectlabs/vectdb/internal/adapters/driven/config/file"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Creates a configuration file populated with defaults at the
--config path, or ~/.vectdb/config.toml when unset. Existing files are
left alone unless --force is given.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		var err error
		path, err = file.DefaultPath()
		if err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}

	if err := file.Default().Save(path); err != nil {
		return err
	}
	cmd.Printf("Wrote default configuration to %s\n", path)
	return nil
}
