package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// fileSource is the part of Service the downloader needs.
type fileSource interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
	// SplitSheets maps workbook sheet names to CSV file names. Every downloaded
	// workbook containing a listed sheet gets that sheet written as CSV next to it.
	SplitSheets map[string]string
}

// Downloader wraps Service to download input files from a specific folder.
type Downloader struct {
	service fileSource
}

// NewDownloader creates a new Downloader.
func NewDownloader(s *Service) *Downloader {
	return &Downloader{service: s}
}

// DownloadFolder downloads all CSV and XLSX files from the folder into DownloadDir and
// returns the local paths, including CSVs split out of workbooks.
func (d *Downloader) DownloadFolder(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.service.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		localPath := filepath.Join(opts.DownloadDir, filepath.Base(f.Name))
		if err := d.download(ctx, f, localPath); err != nil {
			return nil, err
		}
		localPaths = append(localPaths, localPath)

		if ext == ".xlsx" && len(opts.SplitSheets) > 0 {
			written, err := splitWorkbook(localPath, opts.DownloadDir, opts.SplitSheets)
			if err != nil {
				return nil, fmt.Errorf("failed to split %s: %w", f.Name, err)
			}
			localPaths = append(localPaths, written...)
		}

		log.Info().Str("file", f.Name).Str("path", localPath).Msg("drive: downloaded")
	}

	return localPaths, nil
}

func (d *Downloader) download(ctx context.Context, f *File, localPath string) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	if err := d.service.DownloadFile(ctx, f.ID, out); err != nil {
		out.Close()
		os.Remove(localPath)
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	return out.Close()
}
