package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/brennhill/gasoline-history/internal/history"
)

// appContext carries the resolved --workspace/--project/--state-dir
// values and the shared Facade registry down to every subcommand.
type appContext struct {
	logger    zerolog.Logger
	registry  *history.Registry
	workspace string
	project   string
	stateDir  string

	configPath   string
	maxRecords   int
	archiveBatch int
}

func (a *appContext) facade() (*history.Facade, error) {
	var opts []history.Option
	if a.stateDir != "" {
		opts = append(opts, history.WithStateDir(a.stateDir))
	}
	if a.maxRecords > 0 {
		opts = append(opts, history.WithMaxRecords(a.maxRecords))
	}
	if a.archiveBatch > 0 {
		opts = append(opts, history.WithArchiveBatch(a.archiveBatch))
	}
	opts = append(opts, history.WithLogger(a.logger))
	return a.registry.Get(a.workspace, a.project, opts...)
}

func newRootCmd(logger zerolog.Logger) *cobra.Command {
	app := &appContext{logger: logger, registry: history.NewRegistry()}

	root := &cobra.Command{
		Use:           "historyctl",
		Short:         "Inspect and maintain a project's message history store",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			fc, err := loadFileConfig(app.configPath)
			if err != nil {
				return err
			}
			if app.workspace == "" {
				app.workspace = fc.Workspace
			}
			if app.project == "" {
				app.project = fc.Project
			}
			if app.stateDir == "" {
				app.stateDir = fc.StateDir
			}
			if app.maxRecords == 0 {
				app.maxRecords = fc.MaxRecords
			}
			if app.archiveBatch == 0 {
				app.archiveBatch = fc.ArchiveBatch
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.workspace, "workspace", "", "workspace identifier (directory path or logical name)")
	flags.StringVar(&app.project, "project", "", "project identifier within the workspace")
	flags.StringVar(&app.stateDir, "state-dir", "", "override the runtime state root (defaults to the platform state directory)")
	flags.StringVar(&app.configPath, "config", "", "path to a YAML config file providing defaults for the above")

	root.AddCommand(
		newTailCmd(app),
		newAfterGSNCmd(app),
		newBeforeGSNCmd(app),
		newStatsCmd(app),
		newRepairCmd(app),
		newCompactCmd(app),
		newGSNCmd(app),
		newAppendCmd(app),
	)
	return root
}
