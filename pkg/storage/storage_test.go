package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFullPath(t *testing.T) {
	assert.Equal(t, "a/b.txt", getFullPath("", "/a/b.txt"))
	assert.Equal(t, "runs/a/b.txt", getFullPath("/runs/", "a/b.txt"))
}

func TestSplitEndpoint(t *testing.T) {
	host, secure := splitEndpoint("https://minio.acme.io", false)
	assert.Equal(t, "minio.acme.io", host)
	assert.True(t, secure)

	host, secure = splitEndpoint("localhost:9000", false)
	assert.Equal(t, "localhost:9000", host)
	assert.False(t, secure)
}

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	p, err := ProvideStorage(Storage{Dir: t.TempDir(), BasePath: "artifacts"})
	require.NoError(t, err)

	key, err := p.PutObject(ctx, "run-1/build/report.txt", strings.NewReader("ok"), 2, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "artifacts/run-1/build/report.txt", key)

	data, err := p.GetObject(ctx, "run-1/build/report.txt")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))

	require.NoError(t, p.Delete(ctx, "run-1/build/report.txt"))
	require.NoError(t, p.Delete(ctx, "run-1/build/report.txt"))
	_, err = p.GetObject(ctx, "run-1/build/report.txt")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = p.PutObject(ctx, "../../escape", strings.NewReader("x"), 1, "")
	assert.Error(t, err)
}

func TestUploadFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "coverage.out")
	require.NoError(t, os.WriteFile(src, []byte("mode: set"), 0o644))

	p, err := NewStorage(&Storage{Provider: StorageLocal, Dir: filepath.Join(dir, "store")})
	require.NoError(t, err)

	key, err := UploadFile(context.Background(), p, "r/test/coverage.out", src, "")
	require.NoError(t, err)
	assert.Equal(t, "r/test/coverage.out", key)

	_, err = UploadFile(context.Background(), p, "r/dir", dir, "")
	assert.Error(t, err)
}

func TestNewStorage(t *testing.T) {
	_, err := NewStorage(&Storage{Provider: "ftp"})
	assert.ErrorContains(t, err, "unsupported storage provider")

	_, err = NewStorage(&Storage{Provider: StorageS3})
	assert.Error(t, err)

	m, err := NewStorage(&Storage{Provider: StorageMinio, Endpoint: "http://localhost:9000", Bucket: "artifacts", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.IsType(t, &MinioStorage{}, m)

	s3, err := NewStorage(&Storage{Provider: StorageS3, Endpoint: "http://localhost:9000", Bucket: "artifacts", Region: "us-east-1", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, s3)

	_, err = NewStorage(&Storage{Provider: StorageOSS})
	assert.Error(t, err)

	o, err := NewStorage(&Storage{Provider: StorageOSS, Endpoint: "https://oss-cn-hangzhou.aliyuncs.com", Bucket: "artifacts", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.IsType(t, &OSSStorage{}, o)

	c, err := NewStorage(&Storage{Provider: StorageCOS, Endpoint: "cos.ap-guangzhou.myqcloud.com", Bucket: "artifacts-1250000000", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	require.IsType(t, &COSStorage{}, c)
	assert.Equal(t, "artifacts-1250000000.cos.ap-guangzhou.myqcloud.com", c.(*COSStorage).Client.BaseURL.BucketURL.Host)

	_, err = NewStorage(&Storage{Provider: StorageGCS})
	assert.ErrorContains(t, err, "requires a bucket")
}
