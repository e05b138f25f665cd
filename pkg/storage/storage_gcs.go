// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSStorage struct {
	Client *storage.Client
	Bucket *storage.BucketHandle
	s      *Storage
}

func newGCS(s *Storage) (*GCSStorage, error) {
	if s.Bucket == "" {
		return nil, errors.New("gcs storage requires a bucket")
	}
	var opts []option.ClientOption
	// AccessKey 为 credentials JSON 文件路径
	if s.AccessKey != "" {
		opts = append(opts, option.WithCredentialsFile(s.AccessKey))
	}
	if s.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.Endpoint))
	}
	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	return &GCSStorage{Client: client, Bucket: client.Bucket(s.Bucket), s: s}, nil
}

func (g *GCSStorage) GetObject(ctx context.Context, objectName string) ([]byte, error) {
	reader, err := g.Bucket.Object(getFullPath(g.s.BasePath, objectName)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
		}
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (g *GCSStorage) PutObject(ctx context.Context, objectName string, r io.Reader, _ int64, contentType string) (string, error) {
	fullPath := getFullPath(g.s.BasePath, objectName)
	writer := g.Bucket.Object(fullPath).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}
	return fullPath, nil
}

func (g *GCSStorage) Delete(ctx context.Context, objectName string) error {
	err := g.Bucket.Object(getFullPath(g.s.BasePath, objectName)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}
