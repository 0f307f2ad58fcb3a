package main

import (
	"os"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/pkg/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.App.LogLevel)

	app := &cli.App{
		Name:  "gapwatch",
		Usage: "Score supply-demand gaps, track them week over week and plan actions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   cfg.App.LogLevel,
				EnvVars: []string{"APP_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:    "json-logs",
				Usage:   "Emit JSON log lines instead of console output",
				EnvVars: []string{"APP_JSON_LOGS"},
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("json-logs") {
				logger.UseJSON(os.Stdout)
			}
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			runCommand(cfg),
			scoreCommand(cfg),
			snapshotCommand(cfg),
			fetchCommand(cfg),
			seedCommand(cfg),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("gapwatch failed")
	}
}
