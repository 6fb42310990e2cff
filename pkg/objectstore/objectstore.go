// Package objectstore 封装 S3 协议对象存储的预签名操作
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kimjiwon0450/Back-HRHub-sub000/pkg/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrForeignURL 存储地址不属于配置的存储前缀
var ErrForeignURL = errors.New("storage url is outside the configured base url")

// Presigner 生成短时有效的访问链接
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration, contentDisposition string) (string, error)
	PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Client minio 实现
type Client struct {
	client *minio.Client
	bucket string
}

// New 创建对象存储客户端，预签名在本地完成不会访问存储服务
func New(cfg *config.StorageConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Client{client: mc, bucket: cfg.Bucket}, nil
}

// PresignGet 生成下载/预览链接，contentDisposition 写入 response-content-disposition
func (c *Client) PresignGet(ctx context.Context, key string, ttl time.Duration, contentDisposition string) (string, error) {
	params := url.Values{}
	if contentDisposition != "" {
		params.Set("response-content-disposition", contentDisposition)
	}
	u, err := c.client.PresignedGetObject(ctx, c.bucket, key, ttl, params)
	if err != nil {
		return "", fmt.Errorf("failed to presign get %s: %w", key, err)
	}
	return u.String(), nil
}

// PresignPut 生成上传链接
func (c *Client) PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := c.client.PresignedPutObject(ctx, c.bucket, key, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign put %s: %w", key, err)
	}
	return u.String(), nil
}

// KeyFromURL 去掉存储前缀并按路径解码得到对象 key
func KeyFromURL(baseURL, storageURL string) (string, error) {
	base := strings.TrimRight(baseURL, "/")
	if base == "" || !strings.HasPrefix(storageURL, base+"/") {
		return "", ErrForeignURL
	}
	key, err := url.PathUnescape(strings.TrimPrefix(storageURL, base+"/"))
	if err != nil || key == "" {
		return "", ErrForeignURL
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return "", ErrForeignURL
		}
	}
	return key, nil
}

// URLForKey 对象 key 对应的存储地址，每一段按路径编码
func URLForKey(baseURL, key string) string {
	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.Join(segments, "/")
}

// ContentDisposition 生成 inline/attachment 头，文件名按 RFC 5987 编码
func ContentDisposition(download bool, fileName string) string {
	kind := "inline"
	if download {
		kind = "attachment"
	}
	if fileName == "" {
		return kind
	}
	escaped := url.PathEscape(fileName)
	return fmt.Sprintf(`%s; filename="%s"; filename*=UTF-8''%s`, kind, asciiFallback(fileName), escaped)
}

func asciiFallback(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			b.WriteRune('_')
		case r < 0x20 || r > 0x7e:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
