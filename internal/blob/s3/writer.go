package s3blob

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/emmatheo/polyscop/internal/domain"
)

const (
	// multipartThreshold switches archive uploads to the multipart manager.
	multipartThreshold int64 = 8 * 1024 * 1024
	// partSize is the multipart chunk; S3 rejects parts under 5 MiB.
	partSize int64 = 5 * 1024 * 1024
)

// Writer uploads archive objects to the bucket.
type Writer struct {
	client   *s3.Client
	bucket   string
	uploader *manager.Uploader
}

// NewWriter creates a Writer for the client's bucket.
func NewWriter(c *Client) *Writer {
	return &Writer{
		client: c.S3(),
		bucket: c.Bucket(),
		uploader: manager.NewUploader(c.S3(), func(u *manager.Uploader) {
			u.PartSize = partSize
		}),
	}
}

// Put uploads obj with a single PutObject, or through the multipart manager
// once obj.Size reaches multipartThreshold. Unknown sizes go multipart.
func (w *Writer) Put(ctx context.Context, obj domain.BlobObject) error {
	input := putInput(w.bucket, obj)
	if obj.Size > 0 && obj.Size < multipartThreshold {
		input.ContentLength = aws.Int64(obj.Size)
		if _, err := w.client.PutObject(ctx, input); err != nil {
			return fmt.Errorf("s3blob: put object %s: %w", obj.Path, err)
		}
		return nil
	}
	if _, err := w.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", obj.Path, err)
	}
	return nil
}

func putInput(bucket string, obj domain.BlobObject) *s3.PutObjectInput {
	in := &s3.PutObjectInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(obj.Path),
		Body:     obj.Body,
		Metadata: obj.Metadata,
	}
	if obj.ContentType != "" {
		in.ContentType = aws.String(obj.ContentType)
	}
	return in
}

var _ domain.BlobWriter = (*Writer)(nil)
