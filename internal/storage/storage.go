// Package storage keeps analysis reports in a local directory or a COS
// bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/size-analysis/pkg/compression"
	"github.com/size-analysis/pkg/config"
	"github.com/size-analysis/pkg/errors"
)

// ReportPrefix is the key prefix of stored reports.
const ReportPrefix = "reports/"

// Storage is a flat key/value object store.
type Storage interface {
	// Put stores the contents of r under key, replacing any previous object.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get opens the object stored under key. A missing key yields a
	// NOT_FOUND error.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns a location for key that can be shown to users.
	URL(key string) string
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeCOS   StorageType = "cos"
)

// NewStorage creates a Storage from configuration.
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch StorageType(cfg.Type) {
	case StorageTypeCOS:
		return NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}

// ValidateConfig validates the storage configuration. An empty type means
// local storage.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return errors.New(errors.CodeConfigError, "storage config is nil")
	}

	switch StorageType(cfg.Type) {
	case StorageTypeCOS:
		if cfg.Bucket == "" || cfg.Region == "" {
			return errors.New(errors.CodeConfigError, "COS bucket and region are required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return errors.New(errors.CodeConfigError, "COS credentials are required")
		}
	case StorageTypeLocal, "":
		if cfg.LocalPath == "" {
			return errors.New(errors.CodeConfigError, "local storage path is required")
		}
	default:
		return errors.Newf(errors.CodeConfigError, "unsupported storage type: %s", cfg.Type)
	}
	return nil
}

// ReportKey returns the key of the report for runID.
func ReportKey(runID string, compressed bool) string {
	key := ReportPrefix + runID + ".json"
	if compressed {
		key += compression.TypeGzip.Extension()
	}
	return key
}

// cleanKey rejects keys that are empty or escape the store root.
func cleanKey(key string) (string, error) {
	slashed := strings.ReplaceAll(key, "\\", "/")
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return "", errors.Newf(errors.CodeInvalidInput, "invalid storage key %q", key)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+slashed), "/")
	if cleaned == "" {
		return "", errors.Newf(errors.CodeInvalidInput, "invalid storage key %q", key)
	}
	return cleaned, nil
}

// SaveReport stores an encoded report for runID, gzip-compressed when
// compress is set, and returns its key.
func SaveReport(ctx context.Context, s Storage, runID string, report []byte, compress bool) (string, error) {
	body := report
	if compress {
		packed, err := compression.NewGzipCompressor(compression.LevelDefault).Compress(report)
		if err != nil {
			return "", errors.Wrap(errors.CodeStorageError, "failed to compress report", err)
		}
		body = packed
	}

	key := ReportKey(runID, compress)
	if err := s.Put(ctx, key, bytes.NewReader(body)); err != nil {
		return "", err
	}
	return key, nil
}

// LoadReport reads the report stored under key, decompressing it when
// needed.
func LoadReport(ctx context.Context, s Storage, key string) ([]byte, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, fmt.Sprintf("failed to read %s", key), err)
	}
	plain, _, err := compression.MaybeDecompress(data)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageError, fmt.Sprintf("failed to decompress %s", key), err)
	}
	return plain, nil
}
