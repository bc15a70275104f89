package export

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Archiver keeps a copy of every generated export
type Archiver interface {
	Archive(ctx context.Context, name, contentType string, data []byte) error
}

// GCSArchiver writes exports to exports/<name> in a Cloud Storage bucket
type GCSArchiver struct {
	client *storage.Client
	bucket string
}

// NewGCSArchiver uses credentialsJSON when given, Application Default Credentials otherwise
func NewGCSArchiver(ctx context.Context, bucket, credentialsJSON string) (*GCSArchiver, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("gcs bucket %q not found or not accessible: %w", bucket, err)
	}
	return &GCSArchiver{client: client, bucket: bucket}, nil
}

func (a *GCSArchiver) Archive(ctx context.Context, name, contentType string, data []byte) error {
	wc := a.client.Bucket(a.bucket).Object("exports/" + name).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return fmt.Errorf("failed to write export %s: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to upload export %s: %w", name, err)
	}
	return nil
}

func (a *GCSArchiver) Close() error {
	return a.client.Close()
}
