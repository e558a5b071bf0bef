package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrContentTooLarge is returned by ReadContent when the input exceeds the limit.
var ErrContentTooLarge = errors.New("content exceeds size limit")

// Content is an upload buffered in memory and typed by its bytes rather
// than by what the client claimed.
type Content struct {
	Data     []byte
	MimeType string
	mime     *mimetype.MIME
}

// ReadContent reads at most limit bytes from r.
func ReadContent(r io.Reader, limit int64) (*Content, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrContentTooLarge
	}
	m := mimetype.Detect(data)
	base, _, _ := strings.Cut(m.String(), ";")
	return &Content{Data: data, MimeType: strings.TrimSpace(base), mime: m}, nil
}

func (c *Content) Size() int64 {
	return int64(len(c.Data))
}

func (c *Content) Reader() io.Reader {
	return bytes.NewReader(c.Data)
}

// Matches reports whether the declared content type agrees with the
// sniffed one. An empty or generic declaration defers to sniffing.
func (c *Content) Matches(declared string) bool {
	declared, _, _ = strings.Cut(strings.ToLower(declared), ";")
	declared = strings.TrimSpace(declared)
	if declared == "" || declared == "application/octet-stream" {
		return true
	}
	return c.mime.Is(declared)
}

// Checksum is the hex SHA-256 of the content.
func (c *Content) Checksum() string {
	sum := sha256.Sum256(c.Data)
	return hex.EncodeToString(sum[:])
}

// Dimensions decodes the image header of JPEG and PNG content; other
// formats report 0x0.
func (c *Content) Dimensions() (width, height int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(c.Data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
