package packfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

// DescriptorName is the fixed-name entry every package archive must carry
const DescriptorName = "manifest.json"

// Validation failure kinds. Callers match with errors.Is; the returned
// errors wrap these sentinels with detail.
var (
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrNotAContainer          = errors.New("not a valid ZIP archive")
	ErrMissingDescriptor      = errors.New("archive does not contain a manifest.json file")
	ErrMalformedDescriptor    = errors.New("manifest.json is not valid JSON")
)

// allowedContentTypes is the declared content-type allow-list checked
// before any bytes are touched.
var allowedContentTypes = map[string]bool{
	"application/octet-stream": true,
	"application/zip":          true,
}

// SupportedContentType reports whether uploads may declare this content type
func SupportedContentType(contentType string) bool {
	return allowedContentTypes[contentType]
}

// Descriptor is the parsed manifest.json mapping
type Descriptor map[string]interface{}

// String returns the value for key if it is a string, otherwise ""
func (d Descriptor) String(key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

// Validate checks that raw is a well-formed package archive: a ZIP
// container holding a parseable manifest.json. It reads entirely in memory
// and has no side effects. On success it returns the parsed descriptor; it
// performs no semantic validation of the descriptor's contents.
func Validate(raw []byte, contentType string) (Descriptor, error) {
	if !SupportedContentType(contentType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAContainer, err)
	}

	entry, err := reader.Open(DescriptorName)
	if err != nil {
		return nil, ErrMissingDescriptor
	}
	defer entry.Close()

	manifest, err := io.ReadAll(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAContainer, err)
	}

	var descriptor Descriptor
	if err := json.Unmarshal(manifest, &descriptor); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDescriptor, err)
	}

	return descriptor, nil
}
