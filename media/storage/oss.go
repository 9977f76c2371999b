package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSProvider keeps texture assets in an Aliyun OSS bucket under a key prefix.
type OSSProvider struct {
	client     *oss.Client
	bucket     *oss.Bucket
	endpoint   string
	bucketName string
	domain     string // Custom domain or CDN domain
	prefix     string
}

// NewOSSProvider creates a new OSS storage provider
// Endpoint: oss-cn-hangzhou.aliyuncs.com
func NewOSSProvider(endpoint, accessKeyID, accessKeySecret, bucketName, domain, prefix string) (*OSSProvider, error) {
	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", bucketName, err)
	}

	return &OSSProvider{
		client:     client,
		bucket:     bucket,
		endpoint:   endpoint,
		bucketName: bucketName,
		domain:     publicDomain(endpoint, bucketName, domain),
		prefix:     strings.Trim(prefix, "/"),
	}, nil
}

// publicDomain falls back to the bucket domain when no custom domain is set.
func publicDomain(endpoint, bucketName, domain string) string {
	if domain == "" {
		return fmt.Sprintf("https://%s.%s", bucketName, endpoint)
	}
	if !strings.HasPrefix(domain, "http") {
		domain = "https://" + domain
	}
	return strings.TrimSuffix(domain, "/")
}

// objectKey maps an asset name to its key under the configured prefix.
func (p *OSSProvider) objectKey(name string) (string, error) {
	cleaned, err := CleanName(name)
	if err != nil {
		return "", err
	}
	if p.prefix == "" {
		return cleaned, nil
	}
	return path.Join(p.prefix, cleaned), nil
}

// assetName is the inverse of objectKey.
func (p *OSSProvider) assetName(key string) string {
	if p.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, p.prefix+"/")
}

// Open streams an object. The SDK has no context support, ctx is only
// checked before the request is sent.
func (p *OSSProvider) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := p.objectKey(name)
	if err != nil {
		return nil, err
	}
	body, err := p.bucket.GetObject(key)
	if err != nil {
		var svcErr oss.ServiceError
		if errors.As(err, &svcErr) && svcErr.StatusCode == 404 {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
		}
		return nil, fmt.Errorf("failed to read from OSS: %w", err)
	}
	return body, nil
}

// Upload saves a file to OSS and returns its public URL.
func (p *OSSProvider) Upload(ctx context.Context, file io.Reader, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := p.objectKey(name)
	if err != nil {
		return "", err
	}
	if err := p.bucket.PutObject(key, file); err != nil {
		return "", fmt.Errorf("failed to upload to OSS: %w", err)
	}
	return fmt.Sprintf("%s/%s", p.domain, key), nil
}

// Exists checks if an object exists in OSS.
func (p *OSSProvider) Exists(ctx context.Context, name string) (bool, error) {
	key, err := p.objectKey(name)
	if err != nil {
		return false, err
	}
	return p.bucket.IsObjectExist(key)
}

// List pages through the bucket listing below prefix.
func (p *OSSProvider) List(ctx context.Context, prefix string) ([]FileInfo, error) {
	keyPrefix := prefix
	if p.prefix != "" {
		keyPrefix = p.prefix + "/" + prefix
	}

	var files []FileInfo
	marker := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := p.bucket.ListObjects(oss.Prefix(keyPrefix), oss.Marker(marker), oss.MaxKeys(1000))
		if err != nil {
			return nil, fmt.Errorf("failed to list OSS objects: %w", err)
		}
		for _, obj := range result.Objects {
			if strings.HasSuffix(obj.Key, "/") {
				continue
			}
			files = append(files, FileInfo{
				Name:      p.assetName(obj.Key),
				Size:      obj.Size,
				UpdatedAt: obj.LastModified,
			})
		}
		if !result.IsTruncated {
			break
		}
		marker = result.NextMarker
	}
	return files, nil
}

// Delete removes an object from OSS
func (p *OSSProvider) Delete(ctx context.Context, name string) error {
	key, err := p.objectKey(name)
	if err != nil {
		return err
	}
	if err := p.bucket.DeleteObject(key); err != nil {
		return fmt.Errorf("failed to delete from OSS: %w", err)
	}
	return nil
}

func (p *OSSProvider) Name() string {
	return "oss"
}

var _ Provider = (*OSSProvider)(nil)
