package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"gotosym/internal/daemon"
)

// eventCmd is the shim surface for editors: plugins forward their
// file-lifecycle events here and the daemon decides whether a full
// rescan, a single-file rescan, or a removal is warranted.
var eventCmd = &cobra.Command{
	Use:   "event <open|close|save>",
	Short: "Forward an editor file-lifecycle event to the daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		action := args[0]
		switch action {
		case "open", "close", "save":
		default:
			return fmt.Errorf("unknown event %q (want open, close, or save)", action)
		}

		root, err := projectRoot(eventProjectFlag)
		if err != nil {
			return err
		}

		client := daemon.NewIPCClient(daemon.DefaultSocketPath())
		if !client.IsRunning() {
			return fmt.Errorf("daemon is not running")
		}
		return client.NotifyEvent(action, root, eventFileFlag, eventFolderFlags)
	},
}

var (
	eventProjectFlag string
	eventFileFlag    string
	eventFolderFlags []string
)

func init() {
	eventCmd.Flags().StringVar(&eventProjectFlag, "project", "", "project root (default: working directory)")
	eventCmd.Flags().StringVar(&eventFileFlag, "file", "", "file the event concerns")
	eventCmd.Flags().StringArrayVar(&eventFolderFlags, "folder", nil, "current workspace folder (repeatable)")
}
