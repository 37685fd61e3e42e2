package source

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autograder/internal/common/storage"
	appErr "autograder/pkg/errors"

	"github.com/klauspost/compress/zstd"
)

type tarEntry struct {
	name string
	body string
	dir  bool
}

func buildArchive(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.dir {
			hdr = &tar.Header{Name: e.name, Mode: 0755, Typeflag: tar.TypeDir}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if !e.dir {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("write body: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}

	var out bytes.Buffer
	zw, err := zstd.NewWriter(&out)
	if err != nil {
		t.Fatalf("new zstd writer: %v", err)
	}
	if _, err := zw.Write(tarBuf.Bytes()); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zstd: %v", err)
	}
	return out.Bytes()
}

type fakeStorage struct {
	objects map[string][]byte
}

func (f *fakeStorage) GetObject(ctx context.Context, bucket, objectKey string) (storage.ObjectReader, error) {
	data, ok := f.objects[bucket+"/"+objectKey]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) StatObject(ctx context.Context, bucket, objectKey string) (storage.ObjectStat, error) {
	data, ok := f.objects[bucket+"/"+objectKey]
	if !ok {
		return storage.ObjectStat{}, errors.New("object not found")
	}
	return storage.ObjectStat{SizeBytes: int64(len(data))}, nil
}

type recordingMaterializer struct {
	urls []string
}

func (r *recordingMaterializer) Materialize(ctx context.Context, url, dest string) error {
	r.urls = append(r.urls, url)
	return nil
}

func TestArchiveMaterialize(t *testing.T) {
	archive := buildArchive(t, []tarEntry{
		{name: "src/", dir: true},
		{name: "main.py", body: "print(1)\n"},
		{name: "src/util.py", body: "X = 1\n"},
	})
	m := NewArchiveMaterializer(&fakeStorage{objects: map[string][]byte{"subs/a.tar.zst": archive}}, 0, 0)
	dest := filepath.Join(t.TempDir(), "sub")

	if err := m.Materialize(context.Background(), "s3://subs/a.tar.zst", dest); err != nil {
		t.Fatalf("materialize: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dest, "main.py"))
	if err != nil || string(data) != "print(1)\n" {
		t.Fatalf("main.py not extracted: %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(dest, "src", "util.py")); err != nil {
		t.Fatalf("nested file not extracted: %v", err)
	}
	if path, ok := LocateEntry(dest, "main.py"); !ok || path != filepath.Join(dest, "main.py") {
		t.Fatalf("entry not located: %s %v", path, ok)
	}
	if _, ok := LocateEntry(dest, "Main.java"); ok {
		t.Fatalf("missing entry reported present")
	}
	if _, ok := LocateEntry(dest, "src"); ok {
		t.Fatalf("directory reported as entry file")
	}
}

func TestArchiveRejectsTraversal(t *testing.T) {
	archive := buildArchive(t, []tarEntry{{name: "../evil.sh", body: "rm -rf /"}})
	m := NewArchiveMaterializer(&fakeStorage{objects: map[string][]byte{"subs/bad.tar.zst": archive}}, 0, 0)
	parent := t.TempDir()

	err := m.Materialize(context.Background(), "s3://subs/bad.tar.zst", filepath.Join(parent, "sub"))
	if !appErr.Is(err, appErr.SubmissionFetchFailed) {
		t.Fatalf("expected SubmissionFetchFailed, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(parent, "evil.sh")); statErr == nil {
		t.Fatalf("traversal entry was written")
	}
}

func TestArchiveRejectsOversizedExpansion(t *testing.T) {
	archive := buildArchive(t, []tarEntry{{name: "main.py", body: strings.Repeat("0", 1<<20)}})
	m := NewArchiveMaterializer(&fakeStorage{objects: map[string][]byte{"subs/bomb.tar.zst": archive}}, 0, 64<<10)
	dest := filepath.Join(t.TempDir(), "sub")

	err := m.Materialize(context.Background(), "s3://subs/bomb.tar.zst", dest)
	if !appErr.Is(err, appErr.SubmissionFetchFailed) {
		t.Fatalf("expected SubmissionFetchFailed, got %v", err)
	}
	if !errors.Is(err, errExtractLimit) {
		t.Fatalf("expected extraction limit error, got %v", err)
	}
	if info, statErr := os.Stat(filepath.Join(dest, "main.py")); statErr == nil && info.Size() > 64<<10 {
		t.Fatalf("wrote %d bytes past the limit", info.Size())
	}
}

func TestArchiveFailures(t *testing.T) {
	m := NewArchiveMaterializer(&fakeStorage{objects: map[string][]byte{"subs/big": make([]byte, 100)}}, 10, 0)
	tests := []struct {
		name string
		url  string
	}{
		{"missing key", "s3://subs"},
		{"unknown object", "s3://subs/none.tar.zst"},
		{"too large", "s3://subs/big"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Materialize(context.Background(), tt.url, filepath.Join(t.TempDir(), "sub"))
			if !appErr.Is(err, appErr.SubmissionFetchFailed) {
				t.Fatalf("expected SubmissionFetchFailed, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), "Failed to clone repo: ") {
				t.Fatalf("unexpected message: %s", err.Error())
			}
		})
	}
}

func TestRouterDispatch(t *testing.T) {
	gitM := &recordingMaterializer{}
	archiveM := &recordingMaterializer{}
	r := NewRouter(gitM, archiveM)

	if err := r.Materialize(context.Background(), "https://github.com/a/b", "/tmp/x"); err != nil {
		t.Fatalf("git dispatch: %v", err)
	}
	if err := r.Materialize(context.Background(), "s3://subs/a.tar.zst", "/tmp/y"); err != nil {
		t.Fatalf("archive dispatch: %v", err)
	}
	if len(gitM.urls) != 1 || len(archiveM.urls) != 1 {
		t.Fatalf("unexpected dispatch: git=%v archive=%v", gitM.urls, archiveM.urls)
	}
	if err := r.Materialize(context.Background(), " ", "/tmp/z"); !appErr.Is(err, appErr.ValidationFailed) {
		t.Fatalf("expected ValidationFailed for empty url, got %v", err)
	}

	noArchive := NewRouter(gitM, nil)
	if err := noArchive.Materialize(context.Background(), "s3://subs/a", "/tmp/w"); !appErr.Is(err, appErr.SubmissionFetchFailed) {
		t.Fatalf("expected SubmissionFetchFailed without storage, got %v", err)
	}
}

func TestGitMaterializeInvalidRemote(t *testing.T) {
	m := NewGitMaterializer(GitConfig{Depth: 1})
	err := m.Materialize(context.Background(), filepath.Join(t.TempDir(), "no-such-repo"), filepath.Join(t.TempDir(), "dest"))
	if !appErr.Is(err, appErr.SubmissionFetchFailed) {
		t.Fatalf("expected SubmissionFetchFailed, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "Failed to clone repo: ") {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}
