package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
	order   []string
	failOn  string
}

func (b *fakeBucket) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == b.failOn {
		return nil, errors.New("access denied")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = string(data)
	b.types[key] = aws.ToString(in.ContentType)
	b.order = append(b.order, key)
	return &s3.PutObjectOutput{}, nil
}

func newBucket() *fakeBucket {
	return &fakeBucket{objects: map[string]string{}, types: map[string]string{}}
}

func setupFiles(t *testing.T) (page, thumbs string) {
	t.Helper()
	dir := t.TempDir()
	page = filepath.Join(dir, "index.html")
	thumbs = filepath.Join(dir, "thumbs")
	require.NoError(t, os.WriteFile(page, []byte("<html></html>"), 0644))
	require.NoError(t, os.MkdirAll(thumbs, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(thumbs, "aaa.png"), []byte("png-a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(thumbs, "bbb.png"), []byte("png-b"), 0644))
	return page, thumbs
}

func TestPublishUploadsPageAndThumbnails(t *testing.T) {
	page, thumbs := setupFiles(t)
	bucket := newBucket()
	p := NewS3PublisherWithClient(bucket, "site", "catalog", nil)

	n, err := p.Publish(context.Background(), page, thumbs, "processing/screenshot_thumbnails")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, "<html></html>", bucket.objects["catalog/index.html"])
	assert.Equal(t, "text/html; charset=utf-8", bucket.types["catalog/index.html"])
	assert.Equal(t, "png-a", bucket.objects["catalog/processing/screenshot_thumbnails/aaa.png"])
	assert.Equal(t, "image/png", bucket.types["catalog/processing/screenshot_thumbnails/bbb.png"])
	assert.Equal(t, "catalog/index.html", bucket.order[len(bucket.order)-1], "page must be uploaded last")
}

func TestPublishStopsOnError(t *testing.T) {
	page, thumbs := setupFiles(t)
	bucket := newBucket()
	bucket.failOn = "catalog/thumbs/aaa.png"
	p := NewS3PublisherWithClient(bucket, "site", "catalog", nil)

	_, err := p.Publish(context.Background(), page, thumbs, "thumbs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	_, pageUploaded := bucket.objects["catalog/index.html"]
	assert.False(t, pageUploaded)
}
