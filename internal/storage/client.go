// Package storage is the gateway to the S3-compatible object store holding
// mesh files. Objects are grouped under a per-product folder prefix; the key
// of each object carries a random component so same-named uploads never
// collide, and the original filename for diagnostics.
package storage

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	storagego "github.com/supabase-community/storage-go"

	"printforge-backend/internal/apperr"
	"printforge-backend/internal/models"
)

// listPageSize is the single page fetched for prefix listings. Folders larger
// than one page would leak objects on delete; product folders hold a handful
// of mesh files in practice.
const listPageSize = 1000

type Client struct {
	client *storagego.Client
	bucket string
}

func NewClient(storageURL, serviceKey, bucket string) *Client {
	baseURL := strings.TrimRight(storageURL, "/")
	return &Client{
		client: storagego.NewClient(baseURL+"/storage/v1", serviceKey, nil),
		bucket: bucket,
	}
}

// UploadResult maps the stored object key back to the client's filename.
type UploadResult struct {
	Key          string `json:"key"`
	OriginalName string `json:"original_name"`
}

// Put uploads one file under folder and returns the stored key,
// {folder}/{uuid}-{sanitized original name}.
func (c *Client) Put(folder string, file models.UploadedFile) (string, error) {
	name := strings.ReplaceAll(file.OriginalName, " ", "-")
	key := fmt.Sprintf("%s/%s-%s", folder, uuid.New().String(), name)

	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.client.UploadFile(c.bucket, key, bytes.NewReader(file.Buffer), storagego.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return "", apperr.Wrap(apperr.External, "failed to upload "+file.OriginalName+" to storage", err)
	}

	log.Printf("[storage] uploaded %s as %s", file.OriginalName, key)
	return key, nil
}

// PutAll uploads every file under folder, aborting on the first failure.
// Files already uploaded in the batch are left in place; callers own the
// orphan-reconciliation policy.
func (c *Client) PutAll(folder string, files []models.UploadedFile) ([]UploadResult, error) {
	results := make([]UploadResult, 0, len(files))
	for _, file := range files {
		key, err := c.Put(folder, file)
		if err != nil {
			return nil, err
		}
		results = append(results, UploadResult{Key: key, OriginalName: file.OriginalName})
	}
	return results, nil
}

// ListFolder returns the object keys under prefix, at most one page. The
// list endpoint reports names relative to the searched prefix, so the prefix
// is joined back on to produce keys the delete endpoint accepts.
func (c *Client) ListFolder(prefix string) ([]string, error) {
	folder := strings.TrimRight(prefix, "/")
	objects, err := c.client.ListFiles(c.bucket, folder+"/", storagego.FileSearchOptions{
		Limit: listPageSize,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.External, "failed to list storage folder "+prefix, err)
	}

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, folder+"/"+obj.Name)
	}
	return keys, nil
}

// DeleteMany removes the given keys and returns how many were requested.
func (c *Client) DeleteMany(keys []string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	if _, err := c.client.RemoveFile(c.bucket, keys); err != nil {
		return 0, apperr.Wrap(apperr.External, "failed to delete storage objects", err)
	}
	return len(keys), nil
}

// DeleteFolder lists prefix then bulk-deletes. A prefix with no objects is a
// no-op success so deletes stay idempotent; a failed delete surfaces to the
// caller, since orphaned blobs beat silently reporting success.
func (c *Client) DeleteFolder(prefix string) error {
	keys, err := c.ListFolder(prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		log.Printf("[storage] folder %s already empty, nothing to delete", prefix)
		return nil
	}

	deleted, err := c.DeleteMany(keys)
	if err != nil {
		return err
	}
	log.Printf("[storage] deleted %d objects under %s", deleted, prefix)
	return nil
}
