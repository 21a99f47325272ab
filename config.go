package main

import (
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/vibecoder/vibecoder/newsfeed"
)

type Config struct {
	Server       string
	Database     string
	Dsn          string
	LogLevel     string
	Static       string
	Translations string
	News         bool
	NewsRefresh  time.Duration
}

func NewConfig() *Config {
	return &Config{
		Server:      ":8080",
		Database:    "sqlite",
		Dsn:         "./db/vibecoder.sqlite",
		LogLevel:    "info",
		Static:      "./public_html",
		News:        true,
		NewsRefresh: newsfeed.DefaultRefresh,
	}
}

func configFlags(c *Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "listen",
			Usage:   "address to serve HTTP on",
			Value:   c.Server,
			EnvVars: []string{"PORT", "VIBE_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "database",
			Usage:   "storage backend: sqlite, postgres or memory",
			Value:   c.Database,
			EnvVars: []string{"VIBE_DATABASE"},
		},
		&cli.StringFlag{
			Name:    "dsn",
			Usage:   "database connection string",
			Value:   c.Dsn,
			EnvVars: []string{"DATABASE_URL", "VIBE_DSN"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity: error, warn, info or debug",
			Value:   c.LogLevel,
			EnvVars: []string{"VIBE_LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "static",
			Usage:   "directory of static assets",
			Value:   c.Static,
			EnvVars: []string{"VIBE_STATIC"},
		},
		&cli.StringFlag{
			Name:    "translations",
			Usage:   "directory of <lang>.json translation files",
			EnvVars: []string{"VIBE_TRANSLATIONS"},
		},
		&cli.BoolFlag{
			Name:    "news",
			Usage:   "serve the AI news feed",
			Value:   c.News,
			EnvVars: []string{"VIBE_NEWS"},
		},
		&cli.DurationFlag{
			Name:    "news-refresh",
			Usage:   "minimum interval between news refreshes",
			Value:   c.NewsRefresh,
			EnvVars: []string{"VIBE_NEWS_REFRESH"},
		},
	}
}

func (c *Config) Load(cctx *cli.Context) error {
	c.Server = cctx.String("listen")
	if !strings.Contains(c.Server, ":") {
		// PORT carries a bare port number
		c.Server = ":" + c.Server
	}
	c.Database = cctx.String("database")
	c.Dsn = cctx.String("dsn")
	if !cctx.IsSet("database") && isPostgresDSN(c.Dsn) {
		c.Database = "postgres"
	}
	c.LogLevel = cctx.String("log-level")
	c.Static = cctx.String("static")
	c.Translations = cctx.String("translations")
	c.News = cctx.Bool("news")
	c.NewsRefresh = cctx.Duration("news-refresh")
	return nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
