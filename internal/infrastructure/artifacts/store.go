// Package artifacts stores rendered certificate documents.
package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
)

// Store persists an artifact under key and returns a reference to it.
type Store interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// FileStore keeps artifacts under Dir on an afero filesystem.
type FileStore struct {
	Fs  afero.Fs
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Fs: afero.NewOsFs(), Dir: dir}
}

func (s *FileStore) Save(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.Dir, filepath.FromSlash(ref))
	if err := s.Fs.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("artifacts: mkdir: %w", err)
	}
	if err := afero.WriteFile(s.Fs, full, data, 0o644); err != nil {
		return "", fmt.Errorf("artifacts: write %s: %w", ref, err)
	}
	return "file://" + ref, nil
}

func (s *FileStore) Delete(_ context.Context, ref string) error {
	key, err := cleanKey(strings.TrimPrefix(ref, "file://"))
	if err != nil {
		return err
	}
	err = s.Fs.Remove(filepath.Join(s.Dir, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("artifacts: delete %s: %w", key, err)
	}
	return nil
}

// Open reads back a stored artifact.
func (s *FileStore) Open(ref string) ([]byte, error) {
	key, err := cleanKey(strings.TrimPrefix(ref, "file://"))
	if err != nil {
		return nil, err
	}
	return afero.ReadFile(s.Fs, filepath.Join(s.Dir, filepath.FromSlash(key)))
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store writes artifacts to a bucket. References are s3://bucket/key.
type S3Store struct {
	Client s3API
	Bucket string
}

func NewS3Store(ctx context.Context, bucket, region string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Store{Client: s3.NewFromConfig(cfg), Bucket: bucket}, nil
}

func (s *S3Store) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	_, err = s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(k),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.Bucket, k), nil
}

func (s *S3Store) Delete(ctx context.Context, ref string) error {
	k := strings.TrimPrefix(ref, fmt.Sprintf("s3://%s/", s.Bucket))
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." {
		return "", fmt.Errorf("artifacts: empty key")
	}
	return k, nil
}
