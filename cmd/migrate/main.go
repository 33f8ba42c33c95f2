package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var commands = map[string]bool{
	"up": true, "up-by-one": true, "down": true, "redo": true,
	"reset": true, "status": true, "version": true, "create": true,
}

// gooseArgs checks the command and builds the extra goose arguments.
// Only "create" takes any: the migration name, always as a SQL file.
func gooseArgs(command, name string) ([]string, error) {
	if !commands[command] {
		return nil, fmt.Errorf("unknown command %q", command)
	}
	if command != "create" {
		return nil, nil
	}
	if name == "" {
		return nil, errors.New("-name is required for create")
	}
	return []string{name, "sql"}, nil
}

func main() {
	command := flag.String("command", "up", "goose command: up, up-by-one, down, redo, reset, status, version, create")
	name := flag.String("name", "", "migration name for create")
	flag.Parse()

	loadEnvFiles()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(context.Background(), *command, *name); err != nil {
		logger.Error("migration failed", "command", *command, "err", err)
		os.Exit(1)
	}
	logger.Info("migration finished", "command", *command, "dir", migrationsDir())
}

func run(ctx context.Context, command, name string) error {
	args, err := gooseArgs(command, name)
	if err != nil {
		return err
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = defaultDSN
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.RunContext(ctx, command, db, migrationsDir(), args...)
}
