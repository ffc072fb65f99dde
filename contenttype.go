package storage

import (
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// DefaultContentType is the default content type used when content type detection fails
	DefaultContentType = "application/octet-stream"

	sniffLen = 3072
)

// detectContentType determines the content type using mimetype where possible,
// falling back to extension-based lookup when the file cannot be read.
func (c *Client) detectContentType(path string) string {
	file, err := c.fs.Open(path)
	if err != nil {
		return detectContentTypeFromExtension(path)
	}
	defer file.Close()

	buf := make([]byte, sniffLen)
	n, _ := io.ReadFull(file, buf)
	if n == 0 {
		return detectContentTypeFromExtension(path)
	}

	mt := mimetype.Detect(buf[:n])
	// A known extension beats the generic fallbacks.
	if mt.Is(DefaultContentType) || mt.Is("text/plain") {
		if byExt := detectContentTypeFromExtension(path); byExt != DefaultContentType {
			return byExt
		}
	}
	return mt.String()
}

// detectContentTypeFromExtension detects content type from file extension
func detectContentTypeFromExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}

	return DefaultContentType
}
