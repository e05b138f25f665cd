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
	"net/http"
	"net/url"

	"github.com/tencentyun/cos-go-sdk-v5"
)

type COSStorage struct {
	Client *cos.Client
	s      *Storage
}

func newCOS(s *Storage) (*COSStorage, error) {
	if s.Endpoint == "" {
		return nil, errors.New("cos storage requires an endpoint")
	}
	u, err := url.Parse(s.Endpoint)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" {
		u, err = url.Parse("https://" + s.Endpoint)
		if err != nil {
			return nil, err
		}
	}
	// COS 需要 bucket 域名
	if s.Bucket != "" {
		u = &url.URL{Scheme: u.Scheme, Host: s.Bucket + "." + u.Host}
	}
	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  s.AccessKey,
			SecretKey: s.SecretKey,
		},
	})
	return &COSStorage{Client: client, s: s}, nil
}

func (c *COSStorage) GetObject(ctx context.Context, objectName string) ([]byte, error) {
	resp, err := c.Client.Object.Get(ctx, getFullPath(c.s.BasePath, objectName), nil)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
		}
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *COSStorage) PutObject(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error) {
	fullPath := getFullPath(c.s.BasePath, objectName)
	opt := &cos.ObjectPutOptions{ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: contentType}}
	if size >= 0 {
		opt.ObjectPutHeaderOptions.ContentLength = size
	}
	if _, err := c.Client.Object.Put(ctx, fullPath, r, opt); err != nil {
		return "", err
	}
	return fullPath, nil
}

func (c *COSStorage) Delete(ctx context.Context, objectName string) error {
	_, err := c.Client.Object.Delete(ctx, getFullPath(c.s.BasePath, objectName))
	return err
}
