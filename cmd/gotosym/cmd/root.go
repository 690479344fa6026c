package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gotosym/internal/config"
	"gotosym/internal/recent"
)

var rootCmd = &cobra.Command{
	Use:   "gotosym",
	Short: "gotosym - jump to symbol definitions by name",
	Long:  "Indexes symbol definitions across a source tree and serves ranked lookups, favoring recently visited symbols.",

	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(gotoCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(rescanCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
}

// projectRoot returns the project identity for this invocation: the
// --project flag when given, else the working directory.
func projectRoot(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return dir, nil
}

// loadStores opens the settings and recent-symbols stores.
func loadStores() (*config.Store, *recent.Store, error) {
	settings, err := config.LoadStore()
	if err != nil {
		return nil, nil, err
	}
	recents, err := recent.Open(settings.Settings().RecentDBPath)
	if err != nil {
		return nil, nil, err
	}
	return settings, recents, nil
}
