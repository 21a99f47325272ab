package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
	"github.com/vibecoder/vibecoder/database"
	"github.com/vibecoder/vibecoder/database/memory"
	"github.com/vibecoder/vibecoder/database/postgres"
	"github.com/vibecoder/vibecoder/database/sqlite"
)

func main() {
	config := NewConfig()
	app := cli.App{
		Name:  "vibecoder",
		Usage: "anonymous community for vibe coders",
		Flags: configFlags(config),
		Action: func(cctx *cli.Context) error {
			if err := config.Load(cctx); err != nil {
				return err
			}
			return run(config)
		},
	}
	app.RunAndExitOnError()
}

func run(config *Config) error {
	logger := newLogger(config.LogLevel, os.Stderr)

	db, err := openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	v := NewVibeCoder(config, db, logger)
	return v.Run()
}

func newLogger(level string, writer io.Writer) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "error":
		l = slog.LevelError
	case "warn":
		l = slog.LevelWarn
	case "debug":
		l = slog.LevelDebug
	default:
		l = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: l,
	}))
	slog.SetDefault(logger)
	return logger
}

func openDatabase(config *Config) (database.Database, error) {
	var db database.Database
	driver := config.Database
	switch config.Database {
	case "sqlite", "sqlite3":
		db, driver = sqlite.New(), sqlite.DriverName
		if dir := filepath.Dir(config.Dsn); !strings.HasPrefix(config.Dsn, "file:") && config.Dsn != ":memory:" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
	case "postgres":
		db, driver = postgres.New(), postgres.DriverName
	case "memory":
		db = memory.New()
	default:
		return nil, fmt.Errorf("unknown database %q", config.Database)
	}
	if err := db.Open(driver, config.Dsn); err != nil {
		return nil, fmt.Errorf("open %s: %w", config.Database, err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
