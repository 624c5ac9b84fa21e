package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"todoapp/internal/storage"
)

// NewExportCommand returns the export subcommand.
func NewExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write tasks and categories as JSON (" + storage.ExportMediaType + ")",
		ArgsUsage: "[file]",
		Action:    loggedIn(runExport),
	}
}

// NewImportCommand returns the import subcommand.
func NewImportCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Replace tasks and categories with a JSON export",
		ArgsUsage: "<file>",
		Action:    loggedIn(runImport),
	}
}

func runExport(_ context.Context, cmd *cli.Command, s *session) error {
	path := cmd.Args().First()
	if path == "" || path == "-" {
		return s.app.Export(stdout(cmd))
	}

	var buf bytes.Buffer
	if err := s.app.Export(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(stdout(cmd), "Exported %d task(s) to %s.\n", len(s.app.Repo().Tasks()), path)
	return nil
}

func runImport(ctx context.Context, cmd *cli.Command, s *session) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: todo import <file> (for example %s)", storage.ExportFileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	snap, err := s.app.Import(ctx, data)
	switch {
	case errors.Is(err, storage.ErrParse):
		return fmt.Errorf("%s is not valid JSON: %w", path, err)
	case errors.Is(err, storage.ErrFormat):
		return fmt.Errorf("%s is not a todo export: %w", path, err)
	case err != nil:
		return err
	}
	fmt.Fprintf(stdout(cmd), "Imported %d task(s) and %d categories.\n", len(snap.Tasks), len(snap.Categories))
	return nil
}
