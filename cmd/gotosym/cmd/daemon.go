package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gotosym/internal/daemon"
	"gotosym/internal/logging"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background indexing daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon (runs in the foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := daemon.NewIPCClient(daemon.DefaultSocketPath())
		if client.IsRunning() {
			return fmt.Errorf("daemon is already running")
		}

		settings, recents, err := loadStores()
		if err != nil {
			return err
		}
		defer recents.Close()

		logger := logging.Default("gotosym-daemon")
		d, err := daemon.New(settings, recents, logger)
		if err != nil {
			return err
		}

		cfg := daemon.DefaultConfig()
		cfg.DebounceMs = settings.Settings().DebounceMs
		return d.Run(cfg)
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := daemon.NewIPCClient(daemon.DefaultSocketPath())
		if !client.IsRunning() {
			return fmt.Errorf("daemon is not running")
		}
		if err := client.Stop(); err != nil {
			return err
		}
		fmt.Println("daemon stopped")
		return nil
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := daemon.NewIPCClient(daemon.DefaultSocketPath())
		status, err := client.Status()
		if err != nil {
			fmt.Println("daemon: not running")
			return nil
		}
		fmt.Printf("daemon: running (pid %d)\n", status.PID)
		fmt.Printf("started: %s\n", status.StartedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("projects: %d\n", status.Projects)
		fmt.Printf("watches: %d\n", status.Watches)
		return nil
	},
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}
