package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	"github.com/openshelf/openshelf/pkg/backup"
	"github.com/openshelf/openshelf/pkg/config"
	"github.com/openshelf/openshelf/pkg/database"
	"github.com/openshelf/openshelf/pkg/migrations"
	"github.com/openshelf/openshelf/pkg/recommendations"
)

func main() {
	log := logger.New()

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	app := &cli.App{
		Name:        "admin",
		Usage:       "CLI for OpenShelf maintenance",
		Description: "Runs migrations, backs up and restores the catalog, and resanitizes stored text",
		Commands: []*cli.Command{
			{
				Name:  "migrations",
				Usage: "interact with migrations",
				Subcommands: []*cli.Command{
					{
						Name:  "init",
						Usage: "create migration tables",
						Action: func(c *cli.Context) error {
							migrator := migrate.NewMigrator(db, migrations.Migrations)
							return migrator.Init(c.Context)
						},
					},
					{
						Name:  "migrate",
						Usage: "migrate database",
						Action: func(c *cli.Context) error {
							migrator := migrate.NewMigrator(db, migrations.Migrations)

							group, err := migrator.Migrate(c.Context)
							if err != nil {
								return err
							}

							if group.ID == 0 {
								fmt.Printf("There are no new migrations to run\n")
								return nil
							}

							fmt.Printf("Migrated to %s\n", group)
							return nil
						},
					},
					{
						Name:  "rollback",
						Usage: "rollback the last migration group",
						Action: func(c *cli.Context) error {
							migrator := migrate.NewMigrator(db, migrations.Migrations)

							group, err := migrator.Rollback(c.Context)
							if err != nil {
								return err
							}

							if group.ID == 0 {
								fmt.Printf("There are no groups to roll back\n")
								return nil
							}

							fmt.Printf("Rolled back %s\n", group)
							return nil
						},
					},
					{
						Name:  "create",
						Usage: "create Go migration",
						Action: func(c *cli.Context) error {
							migrator := migrate.NewMigrator(db, migrations.Migrations)

							name := strings.Join(c.Args().Slice(), "_")
							mf, err := migrator.CreateGoMigration(
								c.Context,
								name,
								migrate.WithGoTemplate(migrationTemplate),
							)
							if err != nil {
								return err
							}
							fmt.Printf("Created migration %s (%s)\n", mf.Name, mf.Path)

							return nil
						},
					},
					{
						Name:  "status",
						Usage: "print migrations status",
						Action: func(c *cli.Context) error {
							migrator := migrate.NewMigrator(db, migrations.Migrations)

							ms, err := migrator.MigrationsWithStatus(c.Context)
							if err != nil {
								return err
							}
							fmt.Printf("Migrations: %s\n", ms)
							fmt.Printf("Unapplied migrations: %s\n", ms.Unapplied())
							fmt.Printf("Last migration group: %s\n", ms.LastGroup())

							return nil
						},
					},
				},
			},
			{
				Name:  "export",
				Usage: "write a full backup CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "file to write, defaults to a timestamped name in the current directory",
					},
				},
				Action: func(c *cli.Context) error {
					path := c.String("output")
					if path == "" {
						path = backup.Filename(time.Now())
					}

					f, err := os.Create(path)
					if err != nil {
						return errors.WithStack(err)
					}
					defer f.Close()

					if err := backup.NewService(db).Export(c.Context, f); err != nil {
						return err
					}
					fmt.Printf("Wrote backup to %s\n", path)
					return nil
				},
			},
			{
				Name:      "restore",
				Usage:     "load a full backup CSV",
				ArgsUsage: "<path/to/backup.csv>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "clear",
						Usage: "delete every recommendation before restoring",
					},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("restore needs exactly one backup file", 1)
					}
					path := c.Args().First()

					data, err := os.ReadFile(path)
					if err != nil {
						return errors.WithStack(err)
					}

					summary, err := backup.NewService(db).Restore(c.Context, filepath.Base(path), data, backup.RestoreOptions{
						ClearExisting: c.Bool("clear"),
					})
					if err != nil {
						return err
					}
					fmt.Printf("Processed %d recommendations: %d added, %d items added, %d items updated, %d comments added, %d rows skipped\n",
						summary.RecommendationsProcessed, summary.RecommendationsAdded, summary.ItemsAdded, summary.ItemsUpdated, summary.CommentsAdded, summary.RowsSkipped)
					return nil
				},
			},
			{
				Name:  "resanitize",
				Usage: "strip markup from every stored description",
				Action: func(c *cli.Context) error {
					n, err := recommendations.NewService(db).Resanitize(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("Resanitized %d items\n", n)
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}
}

const migrationTemplate = `package %s

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("")
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
`
