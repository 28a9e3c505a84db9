package codec

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format names a document encoding.
type Format string

const (
	JSON    Format = "json"
	YAML    Format = "yaml"
	Msgpack Format = "msgpack"
)

// ErrUnknownFormat is returned for format names and file extensions the
// codec does not handle.
var ErrUnknownFormat = errors.New("unknown format")

// Formats lists every supported format.
func Formats() []Format {
	return []Format{JSON, YAML, Msgpack}
}

// ParseFormat resolves a case-insensitive format name. "yml" and "mp" are
// accepted as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "msgpack", "mp":
		return Msgpack, nil
	}
	return "", fmt.Errorf("%w: '%s'", ErrUnknownFormat, name)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: '%s' has no extension", ErrUnknownFormat, path)
	}
	return ParseFormat(ext)
}
