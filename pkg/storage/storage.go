package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/google/wire"
)

// ProviderSet 提供存储相关的依赖
var ProviderSet = wire.NewSet(ProvideStorage)

// 存储类型常量
const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageS3    = "s3"
	StorageGCS   = "gcs"
	StorageOSS   = "oss"
	StorageCOS   = "cos"
)

// Storage 存储配置结构
type Storage struct {
	Provider  string `mapstructure:"provider"`
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseTLS    bool   `mapstructure:"useTLS"`
	BasePath  string `mapstructure:"basePath"`
	// Dir is the root directory of the local provider
	Dir string `mapstructure:"dir"`
}

func (s *Storage) SetDefaults() {
	if s.Provider == "" {
		s.Provider = StorageLocal
	}
	if s.Provider == StorageLocal && s.Dir == "" {
		s.Dir = "data/artifacts"
	}
	if s.Region == "" {
		s.Region = "us-east-1"
	}
}

// ProvideStorage 根据配置提供存储实例
func ProvideStorage(s Storage) (StorageProvider, error) {
	s.SetDefaults()
	return NewStorage(&s)
}

// NewStorage 根据配置创建存储提供者实例
func NewStorage(s *Storage) (StorageProvider, error) {
	switch s.Provider {
	case StorageLocal:
		return newLocal(s)
	case StorageMinio:
		return newMinio(s)
	case StorageS3:
		return newS3(s)
	case StorageGCS:
		return newGCS(s)
	case StorageOSS:
		return newOSS(s)
	case StorageCOS:
		return newCOS(s)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", s.Provider)
	}
}

// UploadFile 上传本地文件，返回对象路径
func UploadFile(ctx context.Context, p StorageProvider, objectName, filePath, contentType string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", filePath)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return p.PutObject(ctx, objectName, f, info.Size(), contentType)
}

// getFullPath 组合 BasePath 和 objectName，返回完整的对象路径
func getFullPath(basePath, objectName string) string {
	objectName = strings.TrimPrefix(objectName, "/")
	if basePath == "" {
		return objectName
	}
	// 清理路径，避免双斜杠
	basePath = strings.Trim(basePath, "/")
	return path.Join(basePath, objectName)
}

// splitEndpoint 去掉 endpoint 中的 scheme，并据此推断是否启用 TLS
func splitEndpoint(endpoint string, useTLS bool) (string, bool) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint, useTLS
	}
	return u.Host, u.Scheme == "https"
}
