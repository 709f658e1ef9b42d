// Package migrations holds the database schema and applies it with golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed sql/*.sql
var files embed.FS

// Options select where migrations come from and how far to move
type Options struct {
	Dir       string // file:// source; empty uses the embedded files
	Direction string // "up" or "down"
	Steps     int    // 0 applies all
}

// Run applies migrations against the postgres:// URL
func Run(databaseURL string, opts Options) error {
	m, err := newMigrate(databaseURL, opts.Dir)
	if err != nil {
		return err
	}
	defer m.Close()

	switch opts.Direction {
	case "", "up":
		if opts.Steps > 0 {
			err = m.Steps(opts.Steps)
		} else {
			err = m.Up()
		}
	case "down":
		if opts.Steps > 0 {
			err = m.Steps(-opts.Steps)
		} else {
			err = m.Down()
		}
	default:
		return fmt.Errorf("unknown direction: %s", opts.Direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", opts.Direction, err)
	}

	version, dirty, verr := m.Version()
	if verr == nil {
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
	}
	return nil
}

func newMigrate(databaseURL, dir string) (*migrate.Migrate, error) {
	if dir != "" {
		m, err := migrate.New(dir, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open migrations %s: %w", dir, err)
		}
		return m, nil
	}

	src, err := iofs.New(files, "sql")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return m, nil
}

// Names lists the embedded migration files
func Names() ([]string, error) {
	entries, err := files.ReadDir("sql")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
