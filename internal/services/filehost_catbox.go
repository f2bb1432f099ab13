package services

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DefaultCatboxEndpoint is the public catbox.moe upload API.
const DefaultCatboxEndpoint = "https://catbox.moe/user/api.php"

// CatboxHost uploads anonymously to a catbox-compatible endpoint, which answers
// with the retrieval URL as plain text.
type CatboxHost struct {
	endpoint string
	client   *http.Client
}

func NewCatboxHost(endpoint string, timeout time.Duration) *CatboxHost {
	if endpoint == "" {
		endpoint = DefaultCatboxEndpoint
	}
	return &CatboxHost{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Upload streams the multipart body; only the part headers and trailer are buffered.
func (h *CatboxHost) Upload(ctx context.Context, file FileUpload) (string, error) {
	var head bytes.Buffer
	mw := multipart.NewWriter(&head)

	if err := mw.WriteField("reqtype", "fileupload"); err != nil {
		return "", err
	}
	if _, err := mw.CreateFormFile("fileToUpload", file.Name); err != nil {
		return "", err
	}
	prefix := append([]byte(nil), head.Bytes()...)
	head.Reset()
	if err := mw.Close(); err != nil {
		return "", err
	}
	trailer := head.Bytes()

	body := io.MultiReader(bytes.NewReader(prefix), file.Reader(), bytes.NewReader(trailer))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, body)
	if err != nil {
		return "", err
	}
	req.ContentLength = int64(len(prefix)) + file.Size() + int64(len(trailer))
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		return "", &UpstreamError{Service: "catbox upload", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", &UpstreamError{Service: "catbox upload", StatusCode: resp.StatusCode, Err: err}
	}
	text := strings.TrimSpace(string(raw))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{Service: "catbox upload", StatusCode: resp.StatusCode, Detail: text}
	}
	if !strings.HasPrefix(text, "http") {
		return "", &UpstreamError{Service: "catbox upload", StatusCode: resp.StatusCode, Detail: "unexpected response: " + text}
	}

	return text, nil
}
