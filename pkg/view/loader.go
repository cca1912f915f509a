package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Ext is the file extension of view sources.
const Ext = ".html"

// ErrNotFound is returned by loaders when a view has no source.
var ErrNotFound = errors.New("view: not found")

// Loader fetches the source of a named view ("auth/signin").
type Loader interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, name string) ([]byte, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, name string) ([]byte, error) {
	return f(ctx, name)
}

// cleanName rejects names that would escape the view root.
func cleanName(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return "", fmt.Errorf("view: invalid name %q", name)
	}
	clean := path.Clean(name)
	if clean != name || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", fmt.Errorf("view: invalid name %q", name)
	}
	return clean, nil
}

// FSLoader reads views from a filesystem, one "<name>.html" file per view.
type FSLoader struct {
	fsys fs.FS
}

// NewFSLoader returns a loader over fsys.
func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys}
}

// Load reads the view source.
func (l *FSLoader) Load(ctx context.Context, name string) ([]byte, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(l.fsys, clean+Ext)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, err
}

// GetObjectAPI is the subset of the S3 client used by S3Loader.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Loader reads views from an S3 bucket, one "<prefix><name>.html" object
// per view.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	loader := view.NewS3Loader(s3.NewFromConfig(cfg), "my-bucket", "views/")
type S3Loader struct {
	client  GetObjectAPI
	bucket  string
	prefix  string
	maxSize int64
}

// DefaultMaxViewSize bounds a view object read from S3.
const DefaultMaxViewSize = 1 << 20

// NewS3Loader returns a loader reading bucket objects under prefix.
func NewS3Loader(client GetObjectAPI, bucket, prefix string) *S3Loader {
	return &S3Loader{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		maxSize: DefaultMaxViewSize,
	}
}

// WithMaxSize sets the largest object accepted, in bytes.
func (l *S3Loader) WithMaxSize(n int64) *S3Loader {
	if n > 0 {
		l.maxSize = n
	}
	return l
}

// Load fetches the view object.
func (l *S3Loader) Load(ctx context.Context, name string) ([]byte, error) {
	clean, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	key := l.prefix + clean + Ext
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("view: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, l.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("view: s3 read %s: %w", key, err)
	}
	if int64(len(data)) > l.maxSize {
		return nil, fmt.Errorf("view: %s exceeds %d bytes", key, l.maxSize)
	}
	return data, nil
}
