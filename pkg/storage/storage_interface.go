package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("object not found")

type StorageProvider interface {
	PutObject(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error)
	GetObject(ctx context.Context, objectName string) ([]byte, error)
	Delete(ctx context.Context, objectName string) error
}
