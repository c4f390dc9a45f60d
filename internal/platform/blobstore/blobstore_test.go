package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	disk, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Store{
		"disk":   disk,
		"memory": NewMemoryStore(),
	}
}

func TestPutOpenRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			content := []byte("%PDF-1.4 fake report")

			info, err := store.Put(ctx, FileInfo{
				FileName:    "cbc-panel.pdf",
				ContentType: "application/pdf",
			}, bytes.NewReader(content))
			if err != nil {
				t.Fatalf("Put: %v", err)
			}
			if info.ID == "" {
				t.Error("expected generated ID")
			}
			if info.Size != int64(len(content)) {
				t.Errorf("size = %d, want %d", info.Size, len(content))
			}
			if info.Hash == "" {
				t.Error("expected content hash")
			}

			rc, got, err := store.Open(ctx, info.ID)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(data, content) {
				t.Error("content mismatch after round trip")
			}
			if got.FileName != "cbc-panel.pdf" {
				t.Errorf("file name = %q", got.FileName)
			}
		})
	}
}

func TestPutRejectsBadInput(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Put(ctx, FileInfo{ContentType: "application/pdf"}, strings.NewReader("x"))
			if !errors.Is(err, ErrMissingFileName) {
				t.Errorf("expected ErrMissingFileName, got %v", err)
			}

			_, err = store.Put(ctx, FileInfo{
				FileName:    "report.exe",
				ContentType: "application/x-msdownload",
			}, strings.NewReader("x"))
			if !errors.Is(err, ErrInvalidContentType) {
				t.Errorf("expected ErrInvalidContentType, got %v", err)
			}
		})
	}
}

func TestStatAndDelete(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			info, err := store.Put(ctx, FileInfo{
				FileName:    "scan.png",
				ContentType: "image/png",
			}, strings.NewReader("png-bytes"))
			if err != nil {
				t.Fatal(err)
			}

			if _, err := store.Stat(ctx, info.ID); err != nil {
				t.Errorf("Stat: %v", err)
			}
			if err := store.Delete(ctx, info.ID); err != nil {
				t.Errorf("Delete: %v", err)
			}
			if _, err := store.Stat(ctx, info.ID); !errors.Is(err, ErrBlobNotFound) {
				t.Errorf("expected ErrBlobNotFound after delete, got %v", err)
			}
			if err := store.Delete(ctx, info.ID); !errors.Is(err, ErrBlobNotFound) {
				t.Errorf("expected ErrBlobNotFound on double delete, got %v", err)
			}
		})
	}
}

func TestOpenMissingBlob(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := store.Open(context.Background(), "no-such-id")
			if !errors.Is(err, ErrBlobNotFound) {
				t.Errorf("expected ErrBlobNotFound, got %v", err)
			}
		})
	}
}
