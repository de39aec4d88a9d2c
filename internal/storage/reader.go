package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectReader returns the full contents of one stored object.
type ObjectReader interface {
	Read(ctx context.Context, bucket, key string) ([]byte, error)
}

// S3API is the slice of the S3 client used here.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Reader reads objects from S3.
type S3Reader struct {
	client S3API
}

func NewS3Reader(client S3API) *S3Reader {
	return &S3Reader{client: client}
}

func (r *S3Reader) Read(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("S3 GetObject: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// LocalReader serves keys from a directory. The bucket becomes a subdirectory
// when set; an empty root reads keys as plain paths.
type LocalReader struct {
	Root string
}

func (r LocalReader) Read(_ context.Context, bucket, key string) ([]byte, error) {
	path, err := r.resolve(bucket, key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (r LocalReader) resolve(bucket, key string) (string, error) {
	if r.Root == "" {
		return filepath.Clean(key), nil
	}
	base := filepath.Join(r.Root, bucket)
	path := filepath.Join(base, filepath.FromSlash(key))
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes storage root", key)
	}
	return path, nil
}
