package launchpad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"github.com/nfnt/resize"
	"github.com/patentx-lab/backend/internal/entity"
	"github.com/patentx-lab/backend/pkg/ethutil"
	"github.com/patentx-lab/backend/pkg/storage"
	"github.com/patentx-lab/backend/pkg/xcontext"
)

const thumbnailSize = 512

type metadataAttribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

type tokenMetadata struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Image       string              `json:"image"`
	Attributes  []metadataAttribute `json:"attributes"`
}

// MetadataBuilder prepares everything a mint needs that lives off chain: the
// square thumbnail stored on s3 and the metadata document addressed by its
// ipfs content id.
type MetadataBuilder struct {
	fileStorage storage.Storage
}

func NewMetadataBuilder(fileStorage storage.Storage) *MetadataBuilder {
	return &MetadataBuilder{fileStorage: fileStorage}
}

// Build returns the token uri for the given application. It is safe to call
// again for the same application; the content id only changes if the
// application content changed.
func (b *MetadataBuilder) Build(ctx context.Context, application *entity.Application) (string, error) {
	thumbnailUrl, err := b.uploadThumbnail(ctx, application)
	if err != nil {
		return "", err
	}

	attributes := []metadataAttribute{
		{TraitType: "filed", Value: fmt.Sprint(application.IsFiled)},
	}
	for _, tag := range application.Tags {
		attributes = append(attributes, metadataAttribute{TraitType: "tag", Value: tag})
	}

	metadata, err := json.Marshal(tokenMetadata{
		Name:        application.Title,
		Description: application.Description,
		Image:       thumbnailUrl,
		Attributes:  attributes,
	})
	if err != nil {
		return "", err
	}

	uri, err := ethutil.ContentURI(metadata)
	if err != nil {
		return "", err
	}

	if _, err := b.fileStorage.Upload(ctx, &storage.UploadObject{
		Bucket:   xcontext.Configs(ctx).Launch.MetadataBucket,
		Prefix:   "metadata",
		FileName: application.ID + ".json",
		Mime:     "application/json",
		Data:     metadata,
	}); err != nil {
		return "", err
	}

	return uri, nil
}

func (b *MetadataBuilder) uploadThumbnail(ctx context.Context, application *entity.Application) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, application.ImageUrl, nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cannot download image %s: status %d",
			application.ImageUrl, resp.StatusCode)
	}

	mime := resp.Header.Get("Content-Type")
	img, err := decodeImg(mime, resp.Body)
	if err != nil {
		return "", err
	}

	thumbnail := resize.Thumbnail(thumbnailSize, thumbnailSize, img, resize.Lanczos2)
	data, err := encodeImg(mime, thumbnail)
	if err != nil {
		return "", err
	}

	uploaded, err := b.fileStorage.Upload(ctx, &storage.UploadObject{
		Bucket:   xcontext.Configs(ctx).Launch.MetadataBucket,
		Prefix:   "thumbnails",
		FileName: application.ID,
		Mime:     mime,
		Data:     data,
	})
	if err != nil {
		return "", err
	}

	return uploaded.Url, nil
}

func decodeImg(mime string, data io.Reader) (img image.Image, err error) {
	switch mime {
	case "image/jpeg":
		img, err = jpeg.Decode(data)
	case "image/png", "application/octet-stream":
		img, err = png.Decode(data)
	case "image/gif":
		img, err = gif.Decode(data)
	default:
		return nil, fmt.Errorf("unsupported image type %s", mime)
	}
	return img, err
}

func encodeImg(mime string, img image.Image) (b []byte, err error) {
	buf := new(bytes.Buffer)

	switch mime {
	case "image/jpeg":
		err = jpeg.Encode(buf, img, nil)
	case "image/png", "application/octet-stream":
		err = png.Encode(buf, img)
	case "image/gif":
		err = gif.Encode(buf, img, nil)
	default:
		return nil, fmt.Errorf("unsupported image type %s", mime)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), err
}
