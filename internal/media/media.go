// Package media validates uploaded files against per-kind allow-lists and
// stores them in an object store.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"mime"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/farmerhub/marketplace-api/internal/metrics"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// ReducedWidth is the maximum width of images stored through UploadReduced
const ReducedWidth = 800

// MaxPixels bounds the declared dimensions of an image UploadReduced will decode
const MaxPixels = 40_000_000

var (
	ErrUnknownKind     = errors.New("unknown media kind")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("file is empty")
	ErrUndecodable     = errors.New("file is not a decodable image")
)

var allowed = map[Kind]map[string]bool{
	KindImage: {".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true},
	KindVideo: {".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true},
	KindAudio: {".mp3": true, ".wav": true, ".ogg": true, ".m4a": true, ".aac": true},
}

// ParseKind maps a route segment to a Kind
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(s))
	if _, ok := allowed[k]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, s)
	}
	return k, nil
}

// Allowed reports whether filename has an extension permitted for kind
func Allowed(kind Kind, filename string) bool {
	return allowed[kind][strings.ToLower(filepath.Ext(filename))]
}

// ObjectStore persists an object and returns its public URL
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// Result describes a stored upload
type Result struct {
	URL  string `json:"url"`
	Kind Kind   `json:"kind"`
	Size int64  `json:"size"`
}

type Uploader struct {
	store   ObjectStore
	metrics *metrics.AppMetrics
}

func NewUploader(store ObjectStore, m *metrics.AppMetrics) *Uploader {
	return &Uploader{store: store, metrics: m}
}

// Upload validates the extension and stores the bytes unchanged under
// <kind>/<uuid><ext>.
func (u *Uploader) Upload(ctx context.Context, kind Kind, filename string, r io.Reader) (*Result, error) {
	if _, ok := allowed[kind]; !ok {
		return nil, ErrUnknownKind
	}
	if !Allowed(kind, filename) {
		return nil, fmt.Errorf("%w: %s not allowed for %s", ErrUnsupportedType, filepath.Ext(filename), kind)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	ext := strings.ToLower(filepath.Ext(filename))
	return u.put(ctx, kind, "original", ext, data)
}

// UploadReduced decodes an image, scales it down to ReducedWidth when wider
// and stores it re-encoded as JPEG.
func (u *Uploader) UploadReduced(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	if !Allowed(KindImage, filename) {
		return nil, fmt.Errorf("%w: %s not allowed for image", ErrUnsupportedType, filepath.Ext(filename))
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUndecodable, cfg.Width, cfg.Height, MaxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if img.Bounds().Dx() > ReducedWidth {
		img = imaging.Resize(img, ReducedWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return u.put(ctx, KindImage, "reduced", ".jpg", buf.Bytes())
}

func (u *Uploader) put(ctx context.Context, kind Kind, mode, ext string, data []byte) (*Result, error) {
	key := fmt.Sprintf("%s/%s%s", kind, uuid.NewString(), ext)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := u.store.Put(ctx, key, contentType, data)
	status := "success"
	if err != nil {
		status = "error"
	}
	u.metrics.Inc(ctx, u.metrics.UploadsTotal,
		attribute.String("kind", string(kind)), attribute.String("mode", mode), attribute.String("status", status))
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	log.Printf("[UPLOAD] Stored %s (%d bytes) at %s", key, len(data), url)
	return &Result{URL: url, Kind: kind, Size: int64(len(data))}, nil
}
