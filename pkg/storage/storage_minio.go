package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStorage struct {
	Client *minio.Client
	s      *Storage
}

func newMinio(s *Storage) (*MinioStorage, error) {
	if s.Bucket == "" {
		return nil, errors.New("minio storage requires a bucket")
	}
	endpoint, secure := splitEndpoint(s.Endpoint, s.UseTLS)
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s.AccessKey, s.SecretKey, ""),
		Secure: secure,
		Region: s.Region,
	})
	if err != nil {
		return nil, err
	}

	return &MinioStorage{
		Client: client,
		s:      s,
	}, nil
}

func (m *MinioStorage) GetObject(ctx context.Context, objectName string) ([]byte, error) {
	fullPath := getFullPath(m.s.BasePath, objectName)
	obj, err := m.Client.GetObject(ctx, m.s.Bucket, fullPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(obj); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *MinioStorage) PutObject(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error) {
	fullPath := getFullPath(m.s.BasePath, objectName)
	_, err := m.Client.PutObject(ctx, m.s.Bucket, fullPath, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return fullPath, nil
}

func (m *MinioStorage) Delete(ctx context.Context, objectName string) error {
	fullPath := getFullPath(m.s.BasePath, objectName)
	return m.Client.RemoveObject(ctx, m.s.Bucket, fullPath, minio.RemoveObjectOptions{})
}
