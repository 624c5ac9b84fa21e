package commands

import (
	"github.com/urfave/cli/v3"

	"todoapp/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "todo",
		Usage: "Local task manager",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ResolveConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewTUICommand(),
			NewLoginCommand(),
			NewRegisterCommand(),
			NewLogoutCommand(),
			NewWhoamiCommand(),
			NewAddCommand(),
			NewListCommand(),
			NewEditCommand(),
			NewToggleCommand(),
			NewRemoveCommand(),
			NewBatchCommand(),
			NewCategoryCommand(),
			NewExportCommand(),
			NewImportCommand(),
			NewStatsCommand(),
		},
		DefaultCommand: "tui",
	}
}
