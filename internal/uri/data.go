package uri

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

const defaultDataMediaType = "text/plain;charset=US-ASCII"

// ParseData decodes a data: URI into its media type (with parameters) and
// payload.
func ParseData(s string) (string, []byte, error) {
	if Scheme(s) != "data" {
		return "", nil, fmt.Errorf("parse data uri: not a data uri")
	}
	rest := s[len("data:"):]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", nil, fmt.Errorf("parse data uri: missing comma")
	}
	meta, payload := rest[:comma], rest[comma+1:]

	isBase64 := false
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		isBase64 = true
		meta = meta[:len(meta)-len(";base64")]
	}
	if meta == "" {
		meta = defaultDataMediaType
	} else if strings.HasPrefix(meta, ";") {
		meta = "text/plain" + meta
	}

	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("parse data uri: %w", err)
	}
	if !isBase64 {
		return meta, []byte(unescaped), nil
	}
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, unescaped)
	data, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(compact, "="))
		if err != nil {
			return "", nil, fmt.Errorf("parse data uri: %w", err)
		}
	}
	return meta, data, nil
}
