package cmd

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // migrate postgres driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // migrate file source
	"github.com/spf13/cobra"

	"github.com/jonesrussell/gosearch/internal/config"
)

func newMigrateCommand() *cobra.Command {
	var migrationsDir string

	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply database schema migrations",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(_ *cobra.Command, args []string) error {
			direction := "up"
			if len(args) > 0 {
				direction = args[0]
			}

			return runMigrate(direction, migrationsDir)
		},
	}

	cmd.Flags().StringVar(&migrationsDir, "path", "migrations", "migrations directory")

	return cmd
}

func runMigrate(direction, migrationsDir string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	m, err := migrate.New("file://"+migrationsDir, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	var migrateErr error

	switch direction {
	case "up":
		migrateErr = m.Up()
	case "down":
		migrateErr = m.Down()
	default:
		return fmt.Errorf("invalid direction %q (must be \"up\" or \"down\")", direction)
	}

	if migrateErr != nil {
		if errors.Is(migrateErr, migrate.ErrNoChange) {
			fmt.Println("No migrations to apply")
			return nil
		}

		return fmt.Errorf("migration %s failed: %w", direction, migrateErr)
	}

	fmt.Printf("Migration %s completed successfully\n", direction)

	return nil
}
