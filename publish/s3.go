package publish

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"catalog-builder/utils"
)

// ObjectPutter is the slice of the S3 client the publisher needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher uploads the rendered page and its thumbnails to a bucket.
type S3Publisher struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *utils.Logger
}

// NewS3Publisher loads the default AWS credential chain for region.
func NewS3Publisher(ctx context.Context, region, bucket, prefix string, logger *utils.Logger) (*S3Publisher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("publish: load aws config: %w", err)
	}
	return NewS3PublisherWithClient(s3.NewFromConfig(cfg), bucket, prefix, logger), nil
}

// NewS3PublisherWithClient wraps an existing client.
func NewS3PublisherWithClient(client ObjectPutter, bucket, prefix string, logger *utils.Logger) *S3Publisher {
	if logger == nil {
		logger = utils.Discard()
	}
	return &S3Publisher{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// Publish uploads pagePath as <prefix>/index.html and every PNG in thumbDir
// under <prefix>/<thumbKeyDir>/. It returns the number of objects written.
func (p *S3Publisher) Publish(ctx context.Context, pagePath, thumbDir, thumbKeyDir string) (int, error) {
	thumbs, err := filepath.Glob(filepath.Join(thumbDir, "*.png"))
	if err != nil {
		return 0, fmt.Errorf("publish: scan %q: %w", thumbDir, err)
	}

	uploaded := 0
	for _, thumb := range thumbs {
		key := p.key(thumbKeyDir, filepath.Base(thumb))
		if err := p.putFile(ctx, thumb, key, "image/png"); err != nil {
			return uploaded, err
		}
		uploaded++
	}

	// Page last, so it never references thumbnails that are not up yet.
	if err := p.putFile(ctx, pagePath, p.key("", "index.html"), "text/html; charset=utf-8"); err != nil {
		return uploaded, err
	}
	uploaded++

	p.logger.Info("[publish] Uploaded %d objects to s3://%s/%s", uploaded, p.bucket, p.prefix)
	return uploaded, nil
}

func (p *S3Publisher) key(dir, name string) string {
	return path.Join(p.prefix, filepath.ToSlash(dir), name)
}

func (p *S3Publisher) putFile(ctx context.Context, src, key, contentType string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("publish: open %q: %w", src, err)
	}
	defer f.Close()

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("publish: upload %s: %w", key, err)
	}
	p.logger.Debug("[publish] s3://%s/%s", p.bucket, key)
	return nil
}
