package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type LocalStorage struct {
	root string
	s    *Storage
}

func newLocal(s *Storage) (*LocalStorage, error) {
	root, err := filepath.Abs(s.Dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &LocalStorage{root: root, s: s}, nil
}

// resolve 将对象路径映射到 root 之下的文件
func (l *LocalStorage) resolve(objectName string) (string, string, error) {
	fullPath := getFullPath(l.s.BasePath, objectName)
	file := filepath.Join(l.root, filepath.FromSlash(fullPath))
	if file != l.root && !strings.HasPrefix(file, l.root+string(filepath.Separator)) {
		return "", "", fmt.Errorf("object %q escapes the artifact dir", objectName)
	}
	return fullPath, file, nil
}

func (l *LocalStorage) PutObject(ctx context.Context, objectName string, r io.Reader, _ int64, _ string) (string, error) {
	fullPath, file, err := l.resolve(objectName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(file), ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, readerWithContext(ctx, r)); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), file); err != nil {
		return "", err
	}
	return fullPath, nil
}

func (l *LocalStorage) GetObject(_ context.Context, objectName string) ([]byte, error) {
	_, file, err := l.resolve(objectName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
	}
	return data, err
}

func (l *LocalStorage) Delete(_ context.Context, objectName string) error {
	_, file, err := l.resolve(objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
