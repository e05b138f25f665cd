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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Storage struct {
	Client *s3.Client
	s      *Storage
}

func newS3(s *Storage) (*S3Storage, error) {
	if s.Bucket == "" {
		return nil, errors.New("s3 storage requires a bucket")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.Region)}
	if s.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     s.AccessKey,
				SecretAccessKey: s.SecretKey,
			},
		}))
	}
	if s.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(s.Endpoint))
	}
	cfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// S3 compatible endpoints rarely support virtual hosted buckets
		o.UsePathStyle = s.Endpoint != ""
	})
	return &S3Storage{Client: client, s: s}, nil
}

func (s *S3Storage) GetObject(ctx context.Context, objectName string) ([]byte, error) {
	fullPath := getFullPath(s.s.BasePath, objectName)
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.s.Bucket),
		Key:    aws.String(fullPath),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectName)
		}
		return nil, err
	}
	defer out.Body.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *S3Storage) PutObject(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error) {
	fullPath := getFullPath(s.s.BasePath, objectName)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.s.Bucket),
		Key:         aws.String(fullPath),
		Body:        r,
		ContentType: aws.String(contentType),
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	_, err := s.Client.PutObject(ctx, input)
	return fullPath, err
}

func (s *S3Storage) Delete(ctx context.Context, objectName string) error {
	fullPath := getFullPath(s.s.BasePath, objectName)
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.s.Bucket),
		Key:    aws.String(fullPath),
	})
	return err
}
