package herostore

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// MaxImageSize is the largest accepted image upload, in bytes (5 MiB).
const MaxImageSize = 5 << 20

// allowedImageTypes maps each accepted MIME type to its canonical extension.
var allowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// IsAllowedImageType reports whether mimeType is on the image allow-list.
func IsAllowedImageType(mimeType string) bool {
	_, ok := allowedImageTypes[mimeType]
	return ok
}

// DetectImageType sniffs the actual content type from the leading bytes of
// data and checks it against the allow-list. The declared type from the
// client is ignored here: sniffing is the authority, which guards against
// mislabeled uploads. Returns the detected MIME type and its canonical
// extension, or ErrUnsupportedImage.
func DetectImageType(data []byte) (mimeType, ext string, err error) {
	detected := http.DetectContentType(data)
	ext, ok := allowedImageTypes[detected]
	if !ok {
		return "", "", fmt.Errorf("%w: detected %s", ErrUnsupportedImage, detected)
	}
	return detected, ext, nil
}

// SanitizeFilename strips any path components from name, replaces its
// extension with ext (the canonical extension of the detected content type),
// and falls back to "upload" when the base name is empty.
func SanitizeFilename(name, ext string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		base = "upload"
	}
	return base + "." + ext
}
