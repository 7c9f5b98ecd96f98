package imageio

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jeevankumar-m/sustainedaway/internal/domain"
)

// MaxImageBytes bounds the size of an image accepted for analysis
const MaxImageBytes = 8 << 20

// LoadFile reads an image from disk and detects its type from the content
func LoadFile(path string) (*domain.Image, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: image path is empty", domain.ErrInvalidInput)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageUnavailable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrImageUnavailable, path)
	}
	if info.Size() > MaxImageBytes {
		return nil, fmt.Errorf("%w: %s is larger than %d bytes", domain.ErrImageUnavailable, path, MaxImageBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageUnavailable, err)
	}
	return FromBytes(data)
}

// DecodeBase64 decodes an uploaded image. A "data:image/...;base64," prefix is accepted.
func DecodeBase64(encoded string) (*domain.Image, error) {
	encoded = strings.TrimSpace(encoded)
	if strings.HasPrefix(encoded, "data:") {
		if idx := strings.Index(encoded, ","); idx >= 0 {
			encoded = encoded[idx+1:]
		}
	}
	if encoded == "" {
		return nil, fmt.Errorf("%w: image is empty", domain.ErrInvalidInput)
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > MaxImageBytes+3 {
		return nil, fmt.Errorf("%w: image is larger than %d bytes", domain.ErrImageUnavailable, MaxImageBytes)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// some clients strip padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", domain.ErrImageUnavailable, err)
	}
	return FromBytes(data)
}

// FromBytes wraps raw image content, rejecting anything that is not an image
func FromBytes(data []byte) (*domain.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image is empty", domain.ErrInvalidInput)
	}
	mimeType := DetectMIMEType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: unsupported content type %s", domain.ErrImageUnavailable, mimeType)
	}
	return &domain.Image{Data: data, MIMEType: mimeType}, nil
}

// DetectMIMEType sniffs the media type, without parameters
func DetectMIMEType(data []byte) string {
	mimeType := mimetype.Detect(data).String()
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return strings.TrimSpace(mimeType)
}
