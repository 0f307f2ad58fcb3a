package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// Uploader is the write half of ObjectStorage.
type Uploader interface {
	UploadObject(ctx context.Context, key string, data []byte) error
}

// ObjectStorage captures the minimal S3-compatible operations the pipeline needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// ArtifactKey places a local artifact under prefix/<date>/<file name>.
func ArtifactKey(prefix, date, localPath string) string {
	return path.Join(strings.Trim(prefix, "/"), date, filepath.Base(localPath))
}

// UploadFiles uploads every local file under prefix/<date>/ and returns the keys written.
// It stops at the first failure.
func UploadFiles(ctx context.Context, store Uploader, prefix, date string, paths []string) ([]string, error) {
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return keys, fmt.Errorf("read artifact %s: %w", p, err)
		}
		key := ArtifactKey(prefix, date, p)
		if err := store.UploadObject(ctx, key, data); err != nil {
			return keys, fmt.Errorf("upload %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// DownloadPrefix mirrors every object under prefix into destDir, keeping base names.
func DownloadPrefix(ctx context.Context, store ObjectStorage, prefix, destDir string) ([]string, error) {
	objects, err := store.ListObjects(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		dest := filepath.Join(destDir, path.Base(obj.Key))
		if err := store.DownloadObject(ctx, obj.Key, dest); err != nil {
			return paths, fmt.Errorf("download %s: %w", obj.Key, err)
		}
		paths = append(paths, dest)
	}
	return paths, nil
}

func contentType(key string) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}
