package drive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

type fakeSource struct {
	files   []*File
	content map[string][]byte
}

func (f *fakeSource) ListFiles(context.Context, string) ([]*File, error) {
	return f.files, nil
}

func (f *fakeSource) DownloadFile(_ context.Context, id string, w io.Writer) error {
	data, ok := f.content[id]
	if !ok {
		return errors.New("missing")
	}
	_, err := io.Copy(w, bytes.NewReader(data))
	return err
}

func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Products"); err != nil {
		t.Fatal(err)
	}
	f.SetSheetRow("Products", "A1", &[]interface{}{"ProductKey", "CategoryName"})
	f.SetSheetRow("Products", "A2", &[]interface{}{"P1", "Bikes"})
	if _, err := f.NewSheet("Notes"); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDownloadFolder(t *testing.T) {
	src := &fakeSource{
		files: []*File{
			{ID: "1", Name: "sales.csv"},
			{ID: "2", Name: "Project Data.xlsx"},
			{ID: "3", Name: "readme.pdf"},
		},
		content: map[string][]byte{
			"1": []byte("OrderNumber\nSO1\n"),
			"2": workbookBytes(t),
		},
	}
	dir := t.TempDir()
	d := &Downloader{service: src}

	paths, err := d.DownloadFolder(context.Background(), DownloadOptions{
		DownloadDir: dir,
		SplitSheets: map[string]string{"Products": "products.csv", "Territories": "territories.csv"},
	})
	if err != nil {
		t.Fatalf("DownloadFolder: %v", err)
	}

	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	sort.Strings(names)
	if strings.Join(names, ",") != "Project Data.xlsx,products.csv,sales.csv" {
		t.Fatalf("unexpected files %v", names)
	}

	got, _ := os.ReadFile(filepath.Join(dir, "products.csv"))
	if string(got) != "ProductKey,CategoryName\nP1,Bikes\n" {
		t.Errorf("unexpected split csv %q", got)
	}
}

func TestDownloadFolderRequiresDir(t *testing.T) {
	d := &Downloader{service: &fakeSource{}}
	if _, err := d.DownloadFolder(context.Background(), DownloadOptions{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDownloadFolderFailureRemovesPartialFile(t *testing.T) {
	src := &fakeSource{files: []*File{{ID: "x", Name: "sales.csv"}}}
	dir := t.TempDir()
	d := &Downloader{service: src}
	if _, err := d.DownloadFolder(context.Background(), DownloadOptions{DownloadDir: dir}); err == nil {
		t.Fatal("expected download error")
	}
	if _, err := os.Stat(filepath.Join(dir, "sales.csv")); !os.IsNotExist(err) {
		t.Error("partial file should be removed")
	}
}
