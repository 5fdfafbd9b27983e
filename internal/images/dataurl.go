package images

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrUnsupportedMIME is returned for replacement images that are not PNG or JPEG.
	ErrUnsupportedMIME = errors.New("only PNG and JPEG images are supported")
	// ErrInvalidDataURL is returned for replacement strings that are not base64 data URLs.
	ErrInvalidDataURL = errors.New("invalid data URL")
)

var (
	imageDataURLRe = regexp.MustCompile(`(?is)^data:(image/(?:png|jpeg|jpg));base64,(.+)$`)
	anyDataURLRe   = regexp.MustCompile(`(?is)^data:([^;,]+);base64,(.*)$`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// decoded is the result of reading an image data URL found in a document.
type decoded struct {
	mime   string
	format string
	data   []byte
}

// decodeDataURL recognizes PNG/JPEG data URLs. ok is false for any other
// source; a payload that fails to decode yields empty data, not an error.
func decodeDataURL(src string) (decoded, bool) {
	m := imageDataURLRe.FindStringSubmatch(src)
	if m == nil {
		return decoded{}, false
	}
	mt := strings.ToLower(m[1])
	data, err := base64.StdEncoding.DecodeString(spaceRe.ReplaceAllString(m[2], ""))
	if err != nil {
		data = nil
	}
	return decoded{mime: mt, format: formatFor(mt), data: data}, true
}

func formatFor(mimeType string) string {
	if strings.Contains(mimeType, "jpeg") || strings.Contains(mimeType, "jpg") {
		return "jpg"
	}
	return "png"
}

// ValidateDataURL checks that s is a base64 data URL carrying image/png or
// image/jpeg with a decodable payload.
func ValidateDataURL(s string) error {
	m := anyDataURLRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ErrInvalidDataURL
	}
	switch strings.ToLower(m[1]) {
	case "image/png", "image/jpeg":
	default:
		return fmt.Errorf("%w: got %s", ErrUnsupportedMIME, m[1])
	}
	payload := spaceRe.ReplaceAllString(m[2], "")
	if payload == "" {
		return fmt.Errorf("%w: empty payload", ErrInvalidDataURL)
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return nil
}

// EncodeDataURL builds a data URL for raw image bytes of the given MIME type.
func EncodeDataURL(mimeType string, data []byte) (string, error) {
	switch mimeType {
	case "image/png", "image/jpeg":
	default:
		return "", fmt.Errorf("%w: got %s", ErrUnsupportedMIME, mimeType)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DetectMIME picks image/png or image/jpeg for a file from its extension,
// falling back to content sniffing. It returns "" for anything else.
func DetectMIME(path string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	if t := mime.TypeByExtension(ext); t == "image/png" || t == "image/jpeg" {
		return t
	}
	switch t := http.DetectContentType(data); t {
	case "image/png", "image/jpeg":
		return t
	}
	return ""
}

// DataURLFromFile reads an image file and returns it as a data URL together
// with the raw bytes. Files that are not PNG or JPEG are rejected.
func DataURLFromFile(path string) (string, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read image: %w", err)
	}
	mt := DetectMIME(path, data)
	if mt == "" {
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedMIME, filepath.Base(path))
	}
	u, err := EncodeDataURL(mt, data)
	if err != nil {
		return "", nil, err
	}
	return u, data, nil
}
