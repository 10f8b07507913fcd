// Package objstore mirrors written output files to S3-compatible object
// storage. The Mirror subscribes to file.processed events.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/phrazzld/prompttick/internal/config"
	"github.com/phrazzld/prompttick/internal/events"
	"github.com/phrazzld/prompttick/internal/generation"
)

const contentType = "text/plain; charset=utf-8"

// ErrMirror is returned when an output cannot be uploaded.
var ErrMirror = errors.New("output mirror failed")

// Mirror uploads output files to <bucket>/<prefix>/<name>.
type Mirror struct {
	client *minio.Client
	bucket string
	prefix string
	region string
	logger *slog.Logger

	mu          sync.Mutex
	bucketReady bool
}

var _ events.EventHandler = (*Mirror)(nil)

// New creates a mirror from cfg. The endpoint may be given as host:port or as
// a URL, in which case its scheme overrides use_ssl. Credentials may use
// ${ENV:NAME} placeholders.
func New(logger *slog.Logger, cfg config.OutputMirrorConfig) (*Mirror, error) {
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("%w: output_mirror.bucket is required", generation.ErrConfiguration)
	}

	access, err := generation.ExpandEnv(strings.TrimSpace(cfg.AccessKey), nil)
	if err != nil {
		return nil, fmt.Errorf("output_mirror.access_key: %w", err)
	}
	secret, err := generation.ExpandEnv(strings.TrimSpace(cfg.SecretKey), nil)
	if err != nil {
		return nil, fmt.Errorf("output_mirror.secret_key: %w", err)
	}

	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init s3 client: %v", generation.ErrConfiguration, err)
	}

	return &Mirror{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		region: region,
		logger: logger.With("component", "output_mirror", "bucket", bucket),
	}, nil
}

func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("%w: output_mirror.endpoint is required", generation.ErrConfiguration)
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimSuffix(raw, "/"), useSSL, nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false, fmt.Errorf("%w: output_mirror.endpoint %q is not valid", generation.ErrConfiguration, raw)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("%w: output_mirror.endpoint scheme %q is not supported", generation.ErrConfiguration, u.Scheme)
	}
}

// ObjectKey returns the key an output file named name is stored under.
func (m *Mirror) ObjectKey(name string) string {
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

// EnsureBucket creates the bucket when it does not exist. Success is cached.
func (m *Mirror) EnsureBucket(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.bucketReady {
		return nil
	}
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("%w: check bucket: %v", ErrMirror, err)
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
			return fmt.Errorf("%w: create bucket: %v", ErrMirror, err)
		}
		m.logger.InfoContext(ctx, "created bucket")
	}
	m.bucketReady = true
	return nil
}

// Upload copies the local file to object storage and returns its key.
func (m *Mirror) Upload(ctx context.Context, localPath string) (string, error) {
	if err := m.EnsureBucket(ctx); err != nil {
		return "", err
	}

	key := m.ObjectKey(filepath.Base(localPath))
	info, err := m.client.FPutObject(ctx, m.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("%w: upload %s: %v", ErrMirror, key, err)
	}

	m.logger.InfoContext(ctx, "output mirrored", "key", key, "size", info.Size)
	return key, nil
}

// HandleEvent implements events.EventHandler. Only file.processed events
// with an output path are acted on.
func (m *Mirror) HandleEvent(ctx context.Context, event *events.Event) error {
	if event == nil || event.Type != events.TypeFileProcessed || event.OutputPath == "" {
		return nil
	}
	_, err := m.Upload(ctx, event.OutputPath)
	return err
}
