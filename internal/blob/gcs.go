package blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/abhisek/brainbrew/internal/logging"
	"github.com/abhisek/brainbrew/internal/tutor"
)

// SignedURLExpiry is how long a signed document link stays valid.
const SignedURLExpiry = 3600 * time.Second

type signFunc func(object string, opts *storage.SignedURLOptions) (string, error)

// GCS stores documents in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	sign   signFunc
	log    *logging.Logger
}

// NewGCS creates a client for bucket. Credentials come from the
// environment unless opts override them.
func NewGCS(ctx context.Context, bucket string, log *logging.Logger, opts ...option.ClientOption) (*GCS, error) {
	if bucket == "" {
		return nil, errors.New("gcs: bucket is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	g := &GCS{
		client: client,
		bucket: bucket,
		log:    logging.OrNop(log).Named("gcs"),
	}
	g.sign = client.Bucket(bucket).SignedURL
	return g, nil
}

func (g *GCS) Put(ctx context.Context, key, contentType string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gcs object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gcs writer %q: %w", key, err)
	}
	return nil
}

// URL returns a V4 signed GET link. When signing is not possible, for
// example without a service account key, it falls back to the public
// object URL.
func (g *GCS) URL(_ context.Context, key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	u, err := g.sign(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(SignedURLExpiry),
	})
	if err == nil {
		return u, nil
	}
	g.log.Warn("signed URL failed, using public URL", "key", key, "error", err)
	return publicURL(g.bucket, key), nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return tutor.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete gcs object %q in bucket %q: %w", key, g.bucket, err)
	}
	return nil
}

func (g *GCS) Close() error { return g.client.Close() }

func publicURL(bucket, key string) string {
	u := url.URL{Scheme: "https", Host: "storage.googleapis.com", Path: "/" + bucket + "/" + key}
	return u.String()
}
