package assets

import (
	"encoding/base64"
	"os"
	"strings"
)

var mimeTypes = map[string]string{
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".avif":  "image/avif",
	".ico":   "image/x-icon",
	".pdf":   "application/pdf",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".eot":   "application/vnd.ms-fontobject",
}

// MIMEType returns the media type for an extension, falling back to
// application/octet-stream.
func MIMEType(ext string) string {
	if t, ok := mimeTypes[strings.ToLower(ext)]; ok {
		return t
	}
	return "application/octet-stream"
}

// DataURL reads path and encodes it as a data URL.
func DataURL(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return EncodeDataURL(Asset{Path: path}.Ext(), content), nil
}

// EncodeDataURL encodes content as a base64 data URL.
func EncodeDataURL(ext string, content []byte) string {
	return "data:" + MIMEType(ext) + ";base64," + base64.StdEncoding.EncodeToString(content)
}
