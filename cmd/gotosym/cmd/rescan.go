package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gotosym/internal/daemon"
)

var rescanProject string

var rescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Trigger a full rescan of the project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot(rescanProject)
		if err != nil {
			return err
		}

		client := daemon.NewIPCClient(daemon.DefaultSocketPath())
		if !client.IsRunning() {
			return fmt.Errorf("daemon is not running")
		}
		if err := client.Rescan(root); err != nil {
			return err
		}
		fmt.Println("rescan started")
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register a project with the daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := daemon.NewIPCClient(daemon.DefaultSocketPath())
		if !client.IsRunning() {
			return fmt.Errorf("daemon is not running")
		}
		return client.AddProject(args[0])
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Unregister a project from the daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := daemon.NewIPCClient(daemon.DefaultSocketPath())
		if !client.IsRunning() {
			return fmt.Errorf("daemon is not running")
		}
		return client.RemoveProject(args[0])
	},
}

func init() {
	rescanCmd.Flags().StringVar(&rescanProject, "project", "", "project root (default: working directory)")
}
