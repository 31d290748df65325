package bucket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	storage "google.golang.org/api/storage/v1"
)

// gcsStore implements Store against a real GCS bucket via the
// google.golang.org/api/storage/v1 client, matching the transport already
// pulled in for the rest of the Google Cloud surface (Cloud Tasks, Gemini).
type gcsStore struct {
	svc    *storage.Service
	bucket string
}

// NewGCSStore wraps an already-authenticated storage client.
func NewGCSStore(svc *storage.Service, bucketName string) Store {
	return &gcsStore{svc: svc, bucket: bucketName}
}

func (s *gcsStore) Read(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.svc.Objects.Get(s.bucket, name).Context(ctx).Download()
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("bucket: get %s: %w", name, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Write stages data under a temporary object name and then atomically
// promotes it into place via a server-side Copy, deleting the temp object
// afterwards. No reader ever observes a partially written object (§5).
func (s *gcsStore) Write(ctx context.Context, name string, data []byte) error {
	tmpName := name + ".tmp." + uuid.NewString()
	obj := &storage.Object{Name: tmpName, Bucket: s.bucket}
	if _, err := s.svc.Objects.Insert(s.bucket, obj).Media(bytes.NewReader(data)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("bucket: stage %s: %w", tmpName, err)
	}
	dest := &storage.Object{Name: name, Bucket: s.bucket}
	if _, err := s.svc.Objects.Copy(s.bucket, tmpName, s.bucket, name, dest).Context(ctx).Do(); err != nil {
		_ = s.svc.Objects.Delete(s.bucket, tmpName).Context(ctx).Do()
		return fmt.Errorf("bucket: promote %s: %w", name, err)
	}
	return s.svc.Objects.Delete(s.bucket, tmpName).Context(ctx).Do()
}

func (s *gcsStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	call := s.svc.Objects.List(s.bucket).Prefix(prefix).Context(ctx)
	for {
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("bucket: list %s: %w", prefix, err)
		}
		for _, o := range resp.Items {
			if strings.HasSuffix(o.Name, ".tmp") || strings.Contains(o.Name, ".tmp.") {
				continue
			}
			names = append(names, o.Name)
		}
		if resp.NextPageToken == "" {
			break
		}
		call = call.PageToken(resp.NextPageToken)
	}
	return names, nil
}

func (s *gcsStore) Delete(ctx context.Context, name string) error {
	err := s.svc.Objects.Delete(s.bucket, name).Context(ctx).Do()
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("bucket: delete %s: %w", name, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "404")
}
