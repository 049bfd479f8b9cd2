package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tencentyun/cos-go-sdk-v5"

	"github.com/size-analysis/pkg/errors"
)

// COSConfig holds COS-specific configuration.
type COSConfig struct {
	Bucket    string
	Region    string
	SecretID  string
	SecretKey string
	Domain    string // defaults to "myqcloud.com"
	Scheme    string // defaults to "https"
}

func (c *COSConfig) bucketURL() string {
	return fmt.Sprintf("%s://%s.cos.%s.%s", c.Scheme, c.Bucket, c.Region, c.Domain)
}

// COSStorage stores objects in a Tencent Cloud COS bucket.
type COSStorage struct {
	client *cos.Client
	base   string
}

// NewCOSStorage creates a COS client for the configured bucket.
func NewCOSStorage(cfg *COSConfig) (*COSStorage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, errors.New(errors.CodeConfigError, "bucket and region are required for COS storage")
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, errors.New(errors.CodeConfigError, "credentials are required for COS storage")
	}

	resolved := *cfg
	if resolved.Domain == "" {
		resolved.Domain = "myqcloud.com"
	}
	if resolved.Scheme == "" {
		resolved.Scheme = "https"
	}

	bucketURL, err := url.Parse(resolved.bucketURL())
	if err != nil {
		return nil, errors.Wrap(errors.CodeConfigError, "failed to parse bucket URL", err)
	}
	serviceURL, err := url.Parse(fmt.Sprintf("%s://cos.%s.%s", resolved.Scheme, resolved.Region, resolved.Domain))
	if err != nil {
		return nil, errors.Wrap(errors.CodeConfigError, "failed to parse service URL", err)
	}

	client := cos.NewClient(&cos.BaseURL{
		BucketURL:  bucketURL,
		ServiceURL: serviceURL,
	}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  resolved.SecretID,
			SecretKey: resolved.SecretKey,
		},
	})

	return &COSStorage{client: client, base: resolved.bucketURL()}, nil
}

// Put uploads r under key.
func (s *COSStorage) Put(ctx context.Context, key string, r io.Reader) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	opts := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: contentType(key)},
	}
	if _, err := s.client.Object.Put(ctx, key, r, opts); err != nil {
		return errors.Wrap(errors.CodeStorageError, "failed to upload to COS", err)
	}
	return nil
}

// Get downloads key.
func (s *COSStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Object.Get(ctx, key, nil)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return nil, errors.Newf(errors.CodeNotFound, "object not found: %s", key)
		}
		return nil, errors.Wrap(errors.CodeStorageError, "failed to download from COS", err)
	}
	return resp.Body, nil
}

// Delete removes key.
func (s *COSStorage) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.Object.Delete(ctx, key, nil); err != nil && !cos.IsNotFoundError(err) {
		return errors.Wrap(errors.CodeStorageError, "failed to delete from COS", err)
	}
	return nil
}

// Exists checks whether key is present in the bucket.
func (s *COSStorage) Exists(ctx context.Context, key string) (bool, error) {
	key, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	ok, err := s.client.Object.IsExist(ctx, key)
	if err != nil {
		return false, errors.Wrap(errors.CodeStorageError, "failed to check existence in COS", err)
	}
	return ok, nil
}

// URL returns the public URL for key.
func (s *COSStorage) URL(key string) string {
	return s.base + "/" + key
}

func contentType(key string) string {
	if len(key) > 3 && key[len(key)-3:] == ".gz" {
		return "application/gzip"
	}
	return "application/json"
}
