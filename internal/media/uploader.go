// Package media normalises pet photos and pushes them to the external image host.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"whereismypet/internal/models"
	"whereismypet/internal/observability"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMaxUploadSizeMB = 10
	MaxDimension           = 1600
	WebPQuality            = 82

	maxResponseBytes = 1 << 20
)

// Config describes the image host endpoint.
type Config struct {
	UploadURL string
	Preset    string
	MaxBytes  int64
	Timeout   time.Duration
}

// Uploader re-encodes images to WebP and uploads them. It is safe for
// concurrent use.
type Uploader struct {
	uploadURL string
	preset    string
	maxBytes  int64
	client    *http.Client
}

func NewUploader(cfg Config, client *http.Client) *Uploader {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxUploadSizeMB * 1024 * 1024
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Uploader{
		uploadURL: cfg.UploadURL,
		preset:    cfg.Preset,
		maxBytes:  cfg.MaxBytes,
		client:    client,
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
}

// Upload reads r, normalises the image and returns the host's public URL.
// Bad input is a ValidationError; anything the host does wrong is an
// UploadError.
func (u *Uploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	ctx, span := observability.GetTraceLayer().TraceHTTPClient(ctx, "image_host", "upload")
	defer span.End()

	encoded, err := u.normalise(r)
	if err != nil {
		observability.ImageUploads.WithLabelValues("rejected").Inc()
		return "", err
	}

	secureURL, err := u.post(ctx, webpName(filename), encoded)
	if err != nil {
		observability.RecordSpanError(span, err)
		observability.ImageUploads.WithLabelValues("failed").Inc()
		observability.GlobalLogger.WarnContext(ctx, "image upload failed", "filename", filename, "error", err)
		return "", models.NewUploadError(err)
	}
	observability.ImageUploads.WithLabelValues("ok").Inc()
	return secureURL, nil
}

func (u *Uploader) normalise(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return nil, models.NewValidationError("could not read image")
	}
	if len(raw) == 0 {
		return nil, models.NewValidationError("image is empty")
	}
	if int64(len(raw)) > u.maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("image too large (max %dMB)", u.maxBytes/(1024*1024)))
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, models.NewValidationError("unsupported or corrupt image")
	}

	fitted := imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, fitted, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, models.NewValidationError("could not encode image")
	}
	return buf.Bytes(), nil
}

func (u *Uploader) post(ctx context.Context, filename string, data []byte) (string, error) {
	if u.uploadURL == "" {
		return "", fmt.Errorf("image host is not configured")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := w.WriteField("upload_preset", u.preset); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.uploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("image host returned %d", resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode image host response: %w", err)
	}
	if strings.TrimSpace(out.SecureURL) == "" {
		return "", fmt.Errorf("image host response has no secure_url")
	}
	return out.SecureURL, nil
}

func webpName(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "image"
	}
	return base + ".webp"
}
