package storage

import (
	"fmt"
	"net/url"

	"github.com/xiebiao/pubflow/internal/infrastructure/config"
)

// Thumbnailer derives a thumbnail URL for a stored image. Generation is best
// effort: callers log the error and continue without a thumbnail.
type Thumbnailer interface {
	Thumbnail(key, fileURL string) (string, error)
}

// ProxyThumbnailer points at an on-the-fly image resizing proxy
// (imgproxy-style): <base>/unsafe/rs:fit:<width>/plain/<escaped source url>.
type ProxyThumbnailer struct {
	baseURL string
	width   int
}

// NewThumbnailer returns nil when no proxy is configured.
func NewThumbnailer(cfg config.ThumbnailConfig) Thumbnailer {
	if cfg.BaseURL == "" {
		return nil
	}
	width := cfg.Width
	if width <= 0 {
		width = 300
	}
	return &ProxyThumbnailer{baseURL: cfg.BaseURL, width: width}
}

func (p *ProxyThumbnailer) Thumbnail(key, fileURL string) (string, error) {
	if fileURL == "" {
		return "", fmt.Errorf("thumbnail %s: empty source url", key)
	}
	if _, err := url.ParseRequestURI(fileURL); err != nil {
		return "", fmt.Errorf("thumbnail %s: %w", key, err)
	}
	return objectURL(p.baseURL, fmt.Sprintf("unsafe/rs:fit:%d/plain/%s", p.width, url.PathEscape(fileURL))), nil
}
