package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/OFFIS-RIT/castnet/pkg/loader"
	"github.com/OFFIS-RIT/castnet/pkg/loader/epub"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the part of *s3.Client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3BookLoader loads books stored in an S3 bucket. Keys ending in .epub
// are unpacked; everything else is read as plain text.
type S3BookLoader struct {
	bucket string
	client ObjectGetter
	cache  *loader.Cache
}

// NewS3BookLoaderWithClient creates a loader around an existing client,
// usually one made by storage.NewS3Client.
func NewS3BookLoaderWithClient(bucket string, client ObjectGetter) *S3BookLoader {
	return &S3BookLoader{
		bucket: bucket,
		client: client,
		cache:  loader.NewCache(),
	}
}

// GetText downloads file.Path from the bucket. Results are cached.
func (l *S3BookLoader) GetText(ctx context.Context, file loader.BookFile) (string, error) {
	return l.cache.Load(loader.CacheKey(file), func() (string, error) {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(file.Path),
		})
		if err != nil {
			return "", fmt.Errorf("failed to get book from S3: %w", err)
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return "", fmt.Errorf("failed to read book contents: %w", err)
		}

		if strings.EqualFold(path.Ext(file.Path), ".epub") {
			return epub.TextFromBytes(ctx, buf.Bytes())
		}
		return buf.String(), nil
	})
}
