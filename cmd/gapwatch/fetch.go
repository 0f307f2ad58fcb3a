package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/andresuchdata/gapwatch/internal/config"
	"github.com/andresuchdata/gapwatch/internal/drive"
	"github.com/andresuchdata/gapwatch/internal/storage"
	"github.com/andresuchdata/gapwatch/pkg/logger"
	"github.com/urfave/cli/v2"
)

// workbookSheets maps the sheets of the source workbook to the CSV names the csv loader reads.
func workbookSheets(cfg *config.Config) map[string]string {
	return map[string]string{
		cfg.Source.ProductsSheet:    "products.csv",
		cfg.Source.SalesSheet:       "sales.csv",
		cfg.Source.TerritoriesSheet: "territories.csv",
	}
}

func fetchCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Download input files from Google Drive or object storage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "from",
				Usage: "Remote source: drive or s3",
				Value: "drive",
			},
			&cli.StringFlag{
				Name:    "download-dir",
				Usage:   "Local directory for downloaded files",
				Value:   cfg.Drive.DownloadDir,
				EnvVars: []string{"DRIVE_DOWNLOAD_DIR"},
			},
			&cli.StringFlag{
				Name:    "drive-folder-id",
				Usage:   "Google Drive folder ID",
				Value:   cfg.Drive.FolderID,
				EnvVars: []string{"DRIVE_FOLDER_ID"},
			},
			&cli.StringFlag{
				Name:  "drive-folder-path",
				Usage: "Slash separated Drive folder path, used when no folder ID is given",
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "Object key prefix to mirror when fetching from s3",
				Value: cfg.Storage.Prefix + "/input",
			},
		},
		Action: func(c *cli.Context) error {
			var (
				paths []string
				err   error
			)
			switch from := strings.ToLower(c.String("from")); from {
			case "drive":
				paths, err = fetchFromDrive(c, cfg)
			case "s3":
				paths, err = fetchFromStorage(c, cfg)
			default:
				return fmt.Errorf("unknown fetch source %q", from)
			}
			if err != nil {
				return err
			}

			logger.Log.Info().Int("files", len(paths)).Str("dir", c.String("download-dir")).Msg("fetch completed")
			for _, p := range paths {
				fmt.Fprintln(c.App.Writer, p)
			}
			return nil
		},
	}
}

func fetchFromDrive(c *cli.Context, cfg *config.Config) ([]string, error) {
	creds, err := driveCredentials(cfg.Drive.CredentialsJSON)
	if err != nil {
		return nil, err
	}
	svc, err := drive.NewService(c.Context, creds)
	if err != nil {
		return nil, err
	}

	folderID := c.String("drive-folder-id")
	if folderID == "" && c.String("drive-folder-path") != "" {
		folderID, err = svc.FindFolderByPath(c.Context, c.String("drive-folder-path"))
		if err != nil {
			return nil, err
		}
	}
	if folderID == "" {
		return nil, fmt.Errorf("drive folder id or path is required")
	}

	return drive.NewDownloader(svc).DownloadFolder(c.Context, drive.DownloadOptions{
		FolderID:    folderID,
		DownloadDir: c.String("download-dir"),
		SplitSheets: workbookSheets(cfg),
	})
}

// driveCredentials accepts either the service account JSON itself or a path to it.
func driveCredentials(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("GOOGLE_DRIVE_CREDENTIALS_JSON is not set")
	}
	if strings.HasPrefix(value, "{") {
		return value, nil
	}
	raw, err := os.ReadFile(value)
	if err != nil {
		return "", fmt.Errorf("failed to read drive credentials: %w", err)
	}
	return string(raw), nil
}

func fetchFromStorage(c *cli.Context, cfg *config.Config) ([]string, error) {
	store, err := storage.NewS3Storage(cfg.Storage)
	if err != nil {
		return nil, err
	}
	return storage.DownloadPrefix(c.Context, store, c.String("prefix"), c.String("download-dir"))
}
