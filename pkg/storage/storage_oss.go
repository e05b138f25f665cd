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

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

type OSSStorage struct {
	Client *oss.Client
	Bucket *oss.Bucket
	s      *Storage
}

func newOSS(s *Storage) (*OSSStorage, error) {
	if s.Endpoint == "" || s.Bucket == "" {
		return nil, errors.New("oss storage requires an endpoint and a bucket")
	}
	client, err := oss.New(s.Endpoint, s.AccessKey, s.SecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(s.Bucket)
	if err != nil {
		return nil, err
	}
	return &OSSStorage{Client: client, Bucket: bucket, s: s}, nil
}

func (o *OSSStorage) GetObject(ctx context.Context, objectName string) ([]byte, error) {
	body, err := o.Bucket.GetObject(getFullPath(o.s.BasePath, objectName), oss.WithContext(ctx))
	if err != nil {
		var se oss.ServiceError
		if errors.As(err, &se) && se.StatusCode == 404 {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
		}
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (o *OSSStorage) PutObject(ctx context.Context, objectName string, r io.Reader, _ int64, contentType string) (string, error) {
	fullPath := getFullPath(o.s.BasePath, objectName)
	opts := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	if err := o.Bucket.PutObject(fullPath, r, opts...); err != nil {
		return "", err
	}
	return fullPath, nil
}

func (o *OSSStorage) Delete(ctx context.Context, objectName string) error {
	return o.Bucket.DeleteObject(getFullPath(o.s.BasePath, objectName), oss.WithContext(ctx))
}
