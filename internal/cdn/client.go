// Package cdn is the gateway to the image CDN. Product photos live under the
// same folder prefix the blob store uses for the product's mesh files.
package cdn

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"printforge-backend/internal/apperr"
)

type Client struct {
	cld *cloudinary.Cloudinary
}

func NewClient(cloudinaryURL string) (*Client, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}
	return &Client{cld: cld}, nil
}

// Upload is the stored asset: a stable HTTPS URL plus the opaque id the CDN
// uses for deletion.
type Upload struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// FolderDeleteError marks a failed CDN folder deletion distinctly from
// blob-store errors so orphan-cleanup tooling can target it.
type FolderDeleteError struct {
	Folder string
	Err    error
}

func (e *FolderDeleteError) Error() string {
	return fmt.Sprintf("cdn folder deletion failed for %s: %v", e.Folder, e.Err)
}

func (e *FolderDeleteError) Unwrap() error {
	return e.Err
}

// UploadStream sends one image buffer into the given folder.
func (c *Client) UploadStream(ctx context.Context, buf []byte, folder string) (Upload, error) {
	result, err := c.cld.Upload.Upload(ctx, bytes.NewReader(buf), uploader.UploadParams{
		Folder: folder,
	})
	if err != nil {
		return Upload{}, apperr.Wrap(apperr.External, "image upload to CDN failed", err)
	}
	if result.Error.Message != "" {
		return Upload{}, apperr.New(apperr.External, "image upload to CDN failed: "+result.Error.Message)
	}

	log.Printf("[cdn] uploaded image to %s as %s", folder, result.PublicID)
	return Upload{URL: result.SecureURL, PublicID: result.PublicID}, nil
}

// DeleteFolder removes every asset under the prefix, then the now-empty
// folder object itself. Failures propagate as FolderDeleteError, never
// swallowed.
func (c *Client) DeleteFolder(ctx context.Context, folder string) error {
	_, err := c.cld.Admin.DeleteAssetsByPrefix(ctx, admin.DeleteAssetsByPrefixParams{
		Prefix: api.CldAPIArray{folder},
	})
	if err != nil {
		return &FolderDeleteError{Folder: folder, Err: apperr.Wrap(apperr.External, "failed to delete CDN assets", err)}
	}

	_, err = c.cld.Admin.DeleteFolder(ctx, admin.DeleteFolderParams{Folder: folder})
	if err != nil {
		return &FolderDeleteError{Folder: folder, Err: apperr.Wrap(apperr.External, "failed to delete CDN folder", err)}
	}

	log.Printf("[cdn] deleted folder %s", folder)
	return nil
}
