package main

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/lib/pq"
	"github.com/schoolops/enrollment/internal/infrastructure/config"
	"github.com/schoolops/enrollment/internal/infrastructure/logger"
	"github.com/schoolops/enrollment/internal/infrastructure/migration"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

// cli carries the persistent flags and the logger built from them
type cli struct {
	migrationsPath string
	configPath     string
	logLevel       string
	log            *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the enrollment database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := logger.New(logger.Config{
				Level:      c.logLevel,
				Format:     "console",
				Output:     "stdout",
				TimeFormat: time.DateTime,
			})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			c.log = log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&c.migrationsPath, "path", "", "migrations directory; the embedded migrations are used when empty")
	flags.StringVar(&c.configPath, "config", "", "path to config.toml (default ./config.toml or /app/config.toml)")
	flags.StringVar(&c.logLevel, "log-level", "info", "debug, info, warn or error")

	root.AddCommand(
		c.migratorCmd("up", "Apply all pending migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Up() }),
		c.migratorCmd("down", "Roll back all migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Down() }),
		c.migratorCmd("step <n>", "Apply n migrations, rolling back when n is negative", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		c.migratorCmd("goto <version>", "Migrate up or down to a version", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.GoTo(uint(v))
			}),
		c.migratorCmd("force <version>", "Record a version without running it, clearing the dirty flag", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(v)
			}),
		c.migratorCmd("version", "Show the applied version", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				c.log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
				return nil
			}),
		c.createCmd(),
		c.listCmd(),
	)
	return root
}

// migratorCmd builds a subcommand that runs against the configured database
func (c *cli) migratorCmd(use, short string, args cobra.PositionalArgs, run func(*migration.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := c.openMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			return run(m, args)
		},
	}
}

func (c *cli) openMigrator(ctx context.Context) (*migration.Migrator, func(), error) {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	var src source.Driver
	if c.migrationsPath == "" {
		src, err = migration.EmbeddedSource()
	} else {
		src, err = migration.DirSource(absPath(c.migrationsPath))
	}
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("open migrations: %w", err)
	}

	m, err := migration.New(db, src, c.log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	// closing the migrator closes db
	return m, func() { _ = m.Close() }, nil
}

func (c *cli) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create the next sequential migration pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			description := ""
			if len(args) == 2 {
				description = args[1]
			}
			mf, err := migration.CreateMigration(c.dir(), args[0], description)
			if err != nil {
				return err
			}
			c.log.Info("Migration created",
				zap.Uint64("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List migrations in the migrations directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := migration.ListMigrations(c.dir())
			if err != nil {
				return err
			}
			for _, name := range names {
				cmd.Println(name)
			}
			return nil
		},
	}
}

// dir is the directory create and list work in
func (c *cli) dir() string {
	if c.migrationsPath == "" {
		return absPath(defaultMigrationsPath)
	}
	return absPath(c.migrationsPath)
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
