package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Client struct {
	client *minio.Client
}

func NewMinioClient(endpoint, accessKey, secretKey string) (*Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Client{client: client}, nil
}

// Object is one stored file, in listing order
type Object struct {
	Key  string
	Data []byte
}

// SplitURL turns http://host/bucket/folder into its bucket and folder
func SplitURL(fileURL string) (string, string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", "", err
	}

	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("url %q must be of the form /<bucket>/<folder>", fileURL)
	}
	return parts[0], parts[1], nil
}

// DownloadFilesFromURL reads every object under the folder addressed by
// fileURL, ordered by the numeric part of the file name when there is one
// so that frame 10 follows frame 9.
func (c *Client) DownloadFilesFromURL(ctx context.Context, fileURL string) ([]Object, error) {
	bucket, folder, err := SplitURL(fileURL)
	if err != nil {
		return nil, err
	}

	objectCh := c.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    folder,
		Recursive: true,
	})

	var keys []string
	for object := range objectCh {
		if object.Err != nil {
			return nil, object.Err
		}

		// Пропускаем саму папку (если она есть в списке)
		if strings.HasSuffix(object.Key, "/") {
			continue
		}
		keys = append(keys, object.Key)
	}
	SortKeys(keys)

	files := make([]Object, 0, len(keys))
	for _, key := range keys {
		obj, err := c.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}

		buf := new(bytes.Buffer)
		_, err = io.Copy(buf, obj)
		obj.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}

		files = append(files, Object{Key: key, Data: buf.Bytes()})
	}

	return files, nil
}

// UploadFile stores r under bucket/objectName, creating the bucket if needed
func (c *Client) UploadFile(ctx context.Context, bucket, objectName string, r io.Reader, size int64, contentType string) error {
	exists, err := c.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := c.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	_, err = c.client.PutObject(ctx, bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3: %w", objectName, err)
	}

	return nil
}

// SortKeys orders object keys by the trailing number in their base name
// (frame_0002.jpg, 10.json), falling back to lexical order.
func SortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		ni, okI := keyIndex(keys[i])
		nj, okJ := keyIndex(keys[j])
		if okI && okJ && ni != nj {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
}

func keyIndex(key string) (int, bool) {
	base := strings.TrimSuffix(path.Base(key), path.Ext(key))
	end := len(base)
	start := end
	for start > 0 && base[start-1] >= '0' && base[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(base[start:end])
	return n, err == nil
}
