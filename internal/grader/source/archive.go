package source

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"autograder/internal/common/storage"
	appErr "autograder/pkg/errors"
	"autograder/pkg/utils/logger"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

const (
	defaultMaxArchiveBytes   int64 = 64 << 20
	defaultMaxExtractedBytes int64 = 256 << 20
)

var errExtractLimit = errors.New("archive expands beyond the extraction limit")

// ArchiveMaterializer fetches s3://bucket/key.tar.zst submissions from object storage.
type ArchiveMaterializer struct {
	storage           storage.ObjectStorage
	maxBytes          int64
	maxExtractedBytes int64
}

// NewArchiveMaterializer creates an archive materializer.
// maxBytes caps the compressed object size and maxExtractedBytes the
// decompressed stream; zero uses the defaults.
func NewArchiveMaterializer(objStorage storage.ObjectStorage, maxBytes, maxExtractedBytes int64) *ArchiveMaterializer {
	if maxBytes <= 0 {
		maxBytes = defaultMaxArchiveBytes
	}
	if maxExtractedBytes <= 0 {
		maxExtractedBytes = defaultMaxExtractedBytes
	}
	return &ArchiveMaterializer{storage: objStorage, maxBytes: maxBytes, maxExtractedBytes: maxExtractedBytes}
}

func (a *ArchiveMaterializer) Materialize(ctx context.Context, url, dest string) error {
	bucket, key, err := parseArchiveURL(url)
	if err != nil {
		return fetchFailed(err)
	}
	stat, err := a.storage.StatObject(ctx, bucket, key)
	if err != nil {
		return fetchFailed(err)
	}
	if stat.SizeBytes > a.maxBytes {
		return fetchFailed(fmt.Errorf("archive is %d bytes, limit is %d", stat.SizeBytes, a.maxBytes))
	}

	obj, err := a.storage.GetObject(ctx, bucket, key)
	if err != nil {
		return fetchFailed(err)
	}
	defer obj.Close()

	if err := os.MkdirAll(dest, 0755); err != nil {
		return appErr.Wrapf(err, appErr.JudgeSystemError, "create submission dir failed")
	}
	if err := extractArchive(obj, dest, a.maxExtractedBytes); err != nil {
		return fetchFailed(err)
	}
	logger.Info(ctx, "archive extracted",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int64("size_bytes", stat.SizeBytes),
	)
	return nil
}

func parseArchiveURL(url string) (string, string, error) {
	rest := strings.TrimPrefix(url, archiveScheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid archive url %q", url)
	}
	return bucket, key, nil
}

// extractArchive unpacks a zstd-compressed tar stream into dstDir,
// rejecting entries that would land outside it and streams that
// decompress to more than limit bytes.
func extractArchive(r io.Reader, dstDir string, limit int64) error {
	zstdReader, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("create zstd reader failed: %w", err)
	}
	defer zstdReader.Close()

	root := filepath.Clean(dstDir)
	tr := tar.NewReader(&budgetReader{r: zstdReader, remaining: limit})
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry failed: %w", err)
		}
		if hdr.Name == "" {
			continue
		}
		cleanName := filepath.Clean(hdr.Name)
		if cleanName == "." {
			continue
		}
		if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
			return fmt.Errorf("invalid tar entry path %q", hdr.Name)
		}
		target := filepath.Join(root, cleanName)
		if !strings.HasPrefix(target, root+string(filepath.Separator)) {
			return fmt.Errorf("tar entry escape detected: %q", hdr.Name)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create dir failed: %w", err)
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, fs.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		default:
			// links and devices are skipped
		}
	}
}

// budgetReader fails once more than remaining bytes have been read.
type budgetReader struct {
	r         io.Reader
	remaining int64
}

func (b *budgetReader) Read(p []byte) (int, error) {
	if b.remaining < 0 {
		return 0, errExtractLimit
	}
	if int64(len(p)) > b.remaining+1 {
		p = p[:b.remaining+1]
	}
	n, err := b.r.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		return n, errExtractLimit
	}
	return n, err
}

func writeEntry(target string, r io.Reader, mode fs.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create parent dir failed: %w", err)
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode|0600)
	if err != nil {
		return fmt.Errorf("create file failed: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		return fmt.Errorf("write file failed: %w", err)
	}
	return file.Close()
}
