package cmd

import (
	"github.com/spf13/cobra"

	"gotosym/internal/config"
	"gotosym/internal/daemon"
	"gotosym/internal/logging"
	"gotosym/internal/nav"
	"gotosym/internal/project"
	"gotosym/internal/recent"
	"gotosym/internal/symbols"
)

var gotoProject string

var gotoCmd = &cobra.Command{
	Use:   "goto <name>",
	Short: "Jump to a symbol definition by exact name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLookup(gotoProject, args[0])
	},
}

var listProject string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all indexed symbols, recently visited first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLookup(listProject, "")
	},
}

func init() {
	gotoCmd.Flags().StringVar(&gotoProject, "project", "", "project root (default: working directory)")
	listCmd.Flags().StringVar(&listProject, "project", "", "project root (default: working directory)")
}

// runLookup resolves candidates through the daemon when one is
// running, otherwise scans in-process, then navigates. An empty name
// means show everything.
func runLookup(projectFlag, name string) error {
	root, err := projectRoot(projectFlag)
	if err != nil {
		return err
	}

	settings, recents, err := loadStores()
	if err != nil {
		return err
	}
	defer recents.Close()

	var candidates []symbols.Symbol
	client := daemon.NewIPCClient(daemon.DefaultSocketPath())
	if client.IsRunning() {
		candidates, err = client.Symbols(root, name)
		if err != nil {
			return err
		}
	} else {
		candidates, err = scanOnce(settings, recents, root, name)
		if err != nil {
			return err
		}
	}

	svc := nav.NewService(newTermHost(), recents, logging.Default("gotosym"))
	svc.Navigate(candidates)
	return nil
}

// scanOnce runs a blocking full scan without a daemon and returns the
// ranked (optionally name-filtered) snapshot.
func scanOnce(settings *config.Store, recents *recent.Store, root, name string) ([]symbols.Symbol, error) {
	mgr := project.NewManager(root, project.Options{
		Settings: settings,
		Recent:   recents,
		Status:   termStatus,
		Logger:   logging.Default("gotosym"),
	})
	if err := mgr.ScanAllSync(); err != nil {
		return nil, err
	}

	syms := mgr.Symbols()
	if name == "" {
		return syms, nil
	}
	var matched []symbols.Symbol
	for _, sym := range syms {
		if sym.Name == name {
			matched = append(matched, sym)
		}
	}
	return matched, nil
}
