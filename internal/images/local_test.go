package images

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lalith-99/estatehub/internal/apperr"
	"github.com/lalith-99/estatehub/internal/models"
	"go.uber.org/zap"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func testStore(t *testing.T, maxSize int) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), "/uploads/", maxSize, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestUploadAndDelete(t *testing.T) {
	s := testStore(t, 0)
	ctx := context.Background()

	urls, err := s.Upload(ctx, "tenant-a/property-b", []models.Upload{
		{Filename: "front.txt", Data: pngHeader},
		{Filename: "back.png", Data: pngHeader},
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("urls = %v", urls)
	}
	for _, u := range urls {
		if !strings.HasPrefix(u, "/uploads/tenant-a/property-b/") || !strings.HasSuffix(u, ".png") {
			t.Errorf("url = %q", u)
		}
	}

	onDisk := filepath.Join(s.Dir(), strings.TrimPrefix(urls[0], "/uploads/"))
	data, err := os.ReadFile(onDisk)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(data, pngHeader) {
		t.Error("stored bytes differ from upload")
	}

	if err := s.Delete(ctx, urls[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(onDisk); !os.IsNotExist(err) {
		t.Errorf("file still present: %v", err)
	}
	if err := s.Delete(ctx, urls[0]); err != nil {
		t.Errorf("deleting a missing file: %v", err)
	}
}

func TestValidate(t *testing.T) {
	s := testStore(t, 64)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"empty", nil, "is empty"},
		{"too large", append(append([]byte{}, pngHeader...), make([]byte, 64)...), "file size"},
		{"plain text", []byte("just some words, not a picture"), "file type not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Validate(models.Upload{Filename: "x.png", Data: tt.data})
			if !apperr.IsValidation(err) {
				t.Fatalf("err = %v, want validation", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestUploadIsAllOrNothing(t *testing.T) {
	s := testStore(t, 0)

	_, err := s.Upload(context.Background(), "f", []models.Upload{
		{Filename: "ok.png", Data: pngHeader},
		{Filename: "bad.png", Data: []byte("hello")},
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 0 {
		t.Errorf("upload dir has %d entries after a rejected batch", len(entries))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Upload(ctx, "f", []models.Upload{{Filename: "ok.png", Data: pngHeader}}); err == nil {
		t.Fatal("upload with cancelled context succeeded")
	}
	files, _ := os.ReadDir(filepath.Join(s.Dir(), "f"))
	if len(files) != 0 {
		t.Errorf("%d files left after a cancelled upload", len(files))
	}
}

func TestDeleteRejectsForeignPaths(t *testing.T) {
	s := testStore(t, 0)
	for _, u := range []string{
		"/uploads/../secret.txt",
		"/uploads/a/../../secret.txt",
		"https://elsewhere.example.com/a.png",
		"/uploads/",
	} {
		if err := s.Delete(context.Background(), u); err == nil {
			t.Errorf("Delete(%q) = nil, want error", u)
		}
	}
}
