// Package dataurl encodes binary payloads as self-describing "data:" strings
// of the form data:<media type>;base64,<payload>.
package dataurl

import (
	"encoding/base64"
	"errors"
	"strings"
)

const (
	scheme       = "data:"
	base64Marker = ";base64"
)

var ErrMalformed = errors.New("malformed data url")

func Encode(mediaType string, data []byte) string {
	var sb strings.Builder
	sb.Grow(len(scheme) + len(mediaType) + len(base64Marker) + 1 + base64.StdEncoding.EncodedLen(len(data)))
	sb.WriteString(scheme)
	sb.WriteString(mediaType)
	sb.WriteString(base64Marker)
	sb.WriteByte(',')
	sb.WriteString(base64.StdEncoding.EncodeToString(data))
	return sb.String()
}

// Decode returns the media type and payload of a base64 data url. Media type
// parameters other than the base64 marker are dropped.
func Decode(s string) (string, []byte, error) {
	if !strings.HasPrefix(s, scheme) {
		return "", nil, ErrMalformed
	}
	header, payload, ok := strings.Cut(s[len(scheme):], ",")
	if !ok {
		return "", nil, ErrMalformed
	}
	if !strings.HasSuffix(header, base64Marker) {
		return "", nil, ErrMalformed
	}
	mediaType := strings.TrimSuffix(header, base64Marker)
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Join(ErrMalformed, err)
	}
	return mediaType, data, nil
}
