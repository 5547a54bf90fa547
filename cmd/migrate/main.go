package main

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/logger"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/urfave/cli/v2"
)

func openRunner(c *cli.Context, log *logger.Logger) (*migrations.Runner, func(), error) {
	dsn := c.String("dsn")
	if dsn == "" {
		return nil, nil, fmt.Errorf("no database DSN: pass --dsn or set POSTGRES_DSN")
	}

	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := sqldb.PingContext(c.Context); err != nil {
		sqldb.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	opts := migrations.DefaultOptions()
	opts.SchemaOnly = c.Bool("schema-only")
	return migrations.NewRunner(bunDB, opts, log), func() { bunDB.Close() }, nil
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	if err := godotenv.Load(); err == nil {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()

	app := &cli.App{
		Name:  "migrate",
		Usage: "Manage the booking database schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "postgres connection string",
				Value:   cfg.Database.DSN,
				EnvVars: []string{"POSTGRES_DSN"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "schema-only", Usage: "stop before the booking stored procedures"},
				},
				Action: func(c *cli.Context) error {
					runner, closeDB, err := openRunner(c, log)
					if err != nil {
						return err
					}
					defer closeDB()
					return runner.RunMigrations()
				},
			},
			{
				Name:  "down",
				Usage: "roll back every migration",
				Action: func(c *cli.Context) error {
					runner, closeDB, err := openRunner(c, log)
					if err != nil {
						return err
					}
					defer closeDB()
					if err := runner.MigrateDown(); err != nil {
						return err
					}
					log.Info("DATABASE", "All migrations rolled back")
					return nil
				},
			},
			{
				Name:      "to",
				ArgsUsage: "<version>",
				Usage:     "migrate up or down to a specific version",
				Action: func(c *cli.Context) error {
					version, err := strconv.ParseUint(c.Args().First(), 10, 32)
					if err != nil {
						return fmt.Errorf("invalid version %q", c.Args().First())
					}
					runner, closeDB, err := openRunner(c, log)
					if err != nil {
						return err
					}
					defer closeDB()
					if err := runner.MigrateTo(uint(version)); err != nil {
						return err
					}
					log.Info("DATABASE", fmt.Sprintf("Schema now at version %d", version))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("DATABASE", err.Error())
		os.Exit(1)
	}
}
