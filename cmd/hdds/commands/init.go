package commands

import (
	"fmt"
	"os"

	"github.com/hdds-team/hdds/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a sample hdds configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/hdds/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  hdds init

  # Initialize with custom path
  hdds init --config /etc/hdds/config.yaml

  # Force overwrite an existing config file
  hdds init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	cfg := config.GetDefaultConfig()
	if err := config.SaveConfig(cfg, path); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to set domain_id and participant_id")
	fmt.Println("  2. Start the participant with: hdds start")
	fmt.Printf("  3. Or specify a custom config: hdds start --config %s\n", path)

	return nil
}
