package main

import (
	"fmt"
	"path/filepath"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/pipeline/gap_score"
	"github.com/urfave/cli/v2"
)

func scoreCommand(cfg *config.Config) *cli.Command {
	flags := append(sourceFlags(cfg), dimensionFlag(cfg),
		&cli.StringFlag{
			Name:  "out",
			Usage: "Ranked gap table CSV",
			Value: filepath.Join(cfg.App.OutputDir, "gap_scores.csv"),
		},
		&cli.IntFlag{
			Name:  "top-n",
			Usage: "Rows printed to stdout",
			Value: 10,
		},
		&cli.BoolFlag{
			Name:  "ascending",
			Usage: "Rank lowest gap score first",
		},
	)

	return &cli.Command{
		Name:  "score",
		Usage: "Aggregate and score the dataset without snapshotting or planning",
		Flags: flags,
		Action: func(c *cli.Context) error {
			dim, err := resolveDimension(c)
			if err != nil {
				return err
			}
			p := gap_score.NewGapScorePipeline(gap_score.Config{
				Dimension: dim,
				Gap:       cfg.Gap,
				Ascending: c.Bool("ascending"),
			})

			ds, err := loadDataset(c.Context, c, cfg)
			if err != nil {
				return fmt.Errorf("load dataset: %w", err)
			}
			if err := p.Validate(ds); err != nil {
				return err
			}
			records, err := p.Transform(c.Context, ds)
			if err != nil {
				return err
			}

			out := c.String("out")
			if err := gap_score.WriteGapRecordsCSV(out, dim, records); err != nil {
				return err
			}

			w := c.App.Writer
			fmt.Fprintf(w, "%-4s %-40s %8s %8s %10s %10s  %s\n", "rank", dim.Name, "supply", "demand", "gap_score", "normalized", "status")
			for i, r := range records {
				if i >= c.Int("top-n") {
					break
				}
				fmt.Fprintf(w, "%-4d %-40s %8d %8d %10.2f %10.4f  %s\n",
					r.Rank, r.Category, r.UniqueSupply, r.TotalDemand, r.GapScore, r.NormalizedGapScore, r.Severity)
			}
			fmt.Fprintf(w, "\n%d rows written to %s\n", len(records), out)
			return nil
		},
	}
}
