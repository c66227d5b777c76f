package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/studio-b12/gowebdav"
)

// Target stores archives remotely.
type Target interface {
	Name() string
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// WebDAVClient is the subset of *gowebdav.Client used here.
type WebDAVClient interface {
	MkdirAll(path string, mode os.FileMode) error
	Write(path string, data []byte, mode os.FileMode) error
	Read(path string) ([]byte, error)
	ReadDir(path string) ([]os.FileInfo, error)
	Remove(path string) error
}

type WebDAV struct {
	client WebDAVClient
	dir    string
}

// NewWebDAV connects to a WebDAV server; archives go under dir.
func NewWebDAV(url, user, password, dir string) *WebDAV {
	return NewWebDAVClient(gowebdav.NewClient(url, user, password), dir)
}

func NewWebDAVClient(client WebDAVClient, dir string) *WebDAV {
	if dir == "" {
		dir = "/"
	}
	return &WebDAV{client: client, dir: dir}
}

func (w *WebDAV) Name() string { return "webdav" }

func (w *WebDAV) Put(_ context.Context, name string, data []byte) error {
	if err := w.client.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("webdav mkdir %s: %w", w.dir, err)
	}
	if err := w.client.Write(path.Join(w.dir, name), data, 0644); err != nil {
		return fmt.Errorf("webdav upload failed: %w", err)
	}
	return nil
}

func (w *WebDAV) Get(_ context.Context, name string) ([]byte, error) {
	data, err := w.client.Read(path.Join(w.dir, name))
	if err != nil {
		return nil, fmt.Errorf("webdav download failed: %w", err)
	}
	return data, nil
}

func (w *WebDAV) List(_ context.Context) ([]string, error) {
	infos, err := w.client.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("webdav list failed: %w", err)
	}
	var names []string
	for _, fi := range infos {
		if !fi.IsDir() && isArchiveName(fi.Name()) {
			names = append(names, fi.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (w *WebDAV) Delete(_ context.Context, name string) error {
	return w.client.Remove(path.Join(w.dir, name))
}

// S3Client is the subset of the S3 client used here.
type S3Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type S3 struct {
	client S3Client
	bucket string
	prefix string
}

func NewS3(client S3Client, bucket, prefix string) *S3 {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

func (t *S3) Name() string { return "s3" }

func (t *S3) Put(ctx context.Context, name string, data []byte) error {
	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(t.prefix + name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/gzip"),
	})
	if err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}

func (t *S3) Get(ctx context.Context, name string) ([]byte, error) {
	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.prefix + name),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 download failed: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (t *S3) List(ctx context.Context) ([]string, error) {
	var names []string
	p := s3.NewListObjectsV2Paginator(t.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(t.bucket),
		Prefix: aws.String(t.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list failed: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), t.prefix)
			if isArchiveName(name) {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func (t *S3) Delete(ctx context.Context, name string) error {
	_, err := t.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.prefix + name),
	})
	return err
}
