// Command blogplatform is the entry point of the blog platform backend. It
// serves the REST API, runs schema migrations and loads seed fixtures.
//
// @title Blog Platform API
// @version 1.0
// @description Blog platform backend: accounts, posts, comments, categories and tags.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/user/blogplatform-go/background"
	"github.com/user/blogplatform-go/config"
	"github.com/user/blogplatform-go/db"
	"github.com/user/blogplatform-go/notify"
	"github.com/user/blogplatform-go/seed"
)

func main() {
	// In production variables come from the environment; .env is a
	// development convenience.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading it: %v", err)
	}

	app := &cli.App{
		Name:   "blogplatform",
		Usage:  "blog platform API server",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "manage the database schema",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "apply all pending migrations", Action: migrateUp},
					{
						Name:   "down",
						Usage:  "roll back migrations",
						Flags:  []cli.Flag{&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"}},
						Action: migrateDown,
					},
					{Name: "version", Usage: "print the current schema version", Action: migrateVersion},
				},
			},
			{
				Name:  "seed",
				Usage: "load fixtures from a YAML file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "fixture file (default SEED_FILE)"},
				},
				Action: runSeed,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}

// serve runs the API server, the mail dispatcher and the sweeper until
// SIGINT/SIGTERM, then shuts them down together.
func serve(c *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.EnableExtensions(ctx, pool); err != nil {
		return err
	}
	if cfg.Server.AutoMigrate {
		if err := db.RunMigrations(cfg.DB, cfg.Server.MigrationsDir); err != nil {
			return err
		}
		log.Println("Migrations applied")
	}

	dispatcher := notify.NewDispatcher(notify.NewSender(cfg.Mail), cfg.Mail.Workers, cfg.Mail.QueueSize)
	mailer, err := notify.NewMailer(dispatcher, cfg.Server.AppName, cfg.Mail.FrontendURL)
	if err != nil {
		return err
	}

	st := pgStores(pool)
	comps := buildComponents(cfg, st, mailer)
	sweeper := background.NewSweeper(cfg.Server.SweepInterval, nil, background.PruneUsedTokens(st.users))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      newRouter(cfg, comps, probes{ping: pool.Ping, mail: dispatcher, sweeper: sweeper}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("Server stopped gracefully")
	return nil
}

func withMigrator(fn func(cfg *config.AppConfig, mg *db.Migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		mg, err := db.NewMigrator(cfg.DB, cfg.Server.MigrationsDir)
		if err != nil {
			return err
		}
		defer mg.Close()
		return fn(cfg, mg)
	}
}

var migrateUp = withMigrator(func(_ *config.AppConfig, mg *db.Migrator) error {
	if err := mg.Up(); err != nil {
		return err
	}
	log.Println("Migrations applied")
	return nil
})

func migrateDown(c *cli.Context) error {
	steps := c.Int("steps")
	return withMigrator(func(_ *config.AppConfig, mg *db.Migrator) error {
		if err := mg.Down(steps); err != nil {
			return err
		}
		log.Printf("Rolled back %d migration(s)", steps)
		return nil
	})(c)
}

var migrateVersion = withMigrator(func(_ *config.AppConfig, mg *db.Migrator) error {
	v, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	fmt.Printf("schema version %d (dirty=%t)\n", v, dirty)
	return nil
})

func runSeed(c *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	path := c.String("file")
	if path == "" {
		path = cfg.Server.SeedFile
	}
	fixtures, err := seed.Load(path)
	if err != nil {
		return err
	}

	pool, err := db.NewPool(c.Context, cfg.DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := pgStores(pool)
	comps := buildComponents(cfg, st, nil)
	seeder := seed.NewSeeder(st.users, comps.hasher, comps.categories, comps.tags, comps.posts, nil)
	_, err = seeder.Run(c.Context, fixtures)
	return err
}
