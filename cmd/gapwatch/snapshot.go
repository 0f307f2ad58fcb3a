package main

import (
	"encoding/json"
	"fmt"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/andresuchdata/gapwatch/internal/monitoring"
	"github.com/urfave/cli/v2"
)

func snapshotCommand(cfg *config.Config) *cli.Command {
	dirFlag := &cli.StringFlag{
		Name:    "snapshot-dir",
		Usage:   "Directory holding weekly snapshots",
		Value:   cfg.App.SnapshotDir,
		EnvVars: []string{"APP_SNAPSHOT_DIR"},
	}

	return &cli.Command{
		Name:  "snapshot",
		Usage: "Inspect persisted weekly snapshots",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List snapshots, oldest first",
				Flags: []cli.Flag{dirFlag},
				Action: func(c *cli.Context) error {
					infos, err := monitoring.NewSnapshotStore(c.String("snapshot-dir")).List()
					if err != nil {
						return err
					}
					if len(infos) == 0 {
						fmt.Fprintln(c.App.Writer, "no snapshots found")
						return nil
					}
					for _, info := range infos {
						fmt.Fprintf(c.App.Writer, "%s  week %2d  %s\n", info.Date, info.Week, info.Path)
					}
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Print one snapshot as JSON (latest when --date is empty)",
				Flags: []cli.Flag{
					dirFlag,
					&cli.StringFlag{Name: "date", Usage: "Snapshot date in YYYY-MM-DD"},
				},
				Action: func(c *cli.Context) error {
					store := monitoring.NewSnapshotStore(c.String("snapshot-dir"))
					var (
						snap  domain.Snapshot
						found bool
						err   error
					)
					if date := c.String("date"); date != "" {
						snap, found, err = store.LoadByDate(date)
					} else {
						snap, found, err = store.LoadLatest()
					}
					if err != nil {
						return err
					}
					if !found {
						return fmt.Errorf("snapshot not found")
					}

					enc := json.NewEncoder(c.App.Writer)
					enc.SetIndent("", "  ")
					return enc.Encode(snap)
				},
			},
		},
	}
}
