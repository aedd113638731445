package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/surplusx-backend/internal/bootstrap"
	"github.com/angelmondragon/surplusx-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

// dbCommands run against a live Postgres connection.
var dbCommands = map[string]func(ctx context.Context, sqlDB *sql.DB, opts options) error{
	"up": func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		return migrate.Run(ctx, sqlDB, opts.dir, "up")
	},
	"down": func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		return migrate.Run(ctx, sqlDB, opts.dir, "down")
	},
	"status": func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		return migrate.Run(ctx, sqlDB, opts.dir, "status")
	},
	"version": func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		if opts.version == "" {
			return fmt.Errorf("missing -version")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
	},
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// offline commands need neither config nor a database
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			fail("create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	run, ok := dbCommands[opts.cmd]
	if !ok {
		fail("unknown -cmd value: %s", opts.cmd)
	}

	ctx := context.Background()
	rt, err := bootstrap.Start(ctx, bootstrap.Options{Service: "migrate", SkipAutoMigrate: true})
	if err != nil {
		bootstrap.Fail("migrate", err)
	}
	defer rt.Close()
	if rt.Config.DB.IsSQLite() {
		rt.Fatal(ctx, "migrate.unsupported_driver", fmt.Errorf("goose migrations target postgres; driver is %s", rt.Config.DB.Driver))
	}

	ctx = rt.Context(ctx, map[string]any{"cmd": opts.cmd, "dir": opts.dir})
	sqlDB, err := rt.DB.DB().DB()
	if err != nil {
		rt.Fatal(ctx, "migrate.sql_handle_failed", err)
	}

	rt.Logger.Info(ctx, "migrate.started")
	if err := run(ctx, sqlDB, opts); err != nil {
		rt.Fatal(ctx, "migrate.failed", err)
	}
	rt.Logger.Info(ctx, "migrate.completed")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
