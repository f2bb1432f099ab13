package services

import (
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type CloudinaryHost struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryHost(cloudName, apiKey, apiSecret, folder string) (*CloudinaryHost, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}

	return &CloudinaryHost{
		cld:    cld,
		folder: folder,
	}, nil
}

func (h *CloudinaryHost) Upload(ctx context.Context, file FileUpload) (string, error) {
	uploadResult, err := h.cld.Upload.Upload(ctx, file.Reader(), uploader.UploadParams{
		Folder:       h.folder,
		ResourceType: "auto", // Automatically detect image, video, or raw
	})
	if err != nil {
		return "", &UpstreamError{Service: "cloudinary upload", Err: err}
	}
	if uploadResult.Error.Message != "" {
		return "", &UpstreamError{Service: "cloudinary upload", Detail: uploadResult.Error.Message}
	}
	if uploadResult.SecureURL == "" {
		return "", &UpstreamError{Service: "cloudinary upload", Detail: "empty secure url"}
	}

	return uploadResult.SecureURL, nil
}
