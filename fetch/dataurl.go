package fetch

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// decodeDataURL handles data:[<mediatype>][;base64],<data>
func decodeDataURL(raw string) (*response, error) {
	rest := raw[len("data:"):]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return nil, errors.Errorf("Malformed data url")
	}
	header, payload := rest[:comma], rest[comma+1:]

	isBase64 := false
	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		isBase64 = true
		header = header[:len(header)-len(";base64")]
	}

	var data []byte
	if isBase64 {
		var err error
		payload = strings.NewReplacer(" ", "", "\n", "", "\r", "", "\t", "").Replace(payload)
		if data, err = base64.StdEncoding.DecodeString(payload); err != nil {
			if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
				return nil, errors.Wrapf(err, "Malformed base64 in data url")
			}
		}
	} else {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "Malformed data url")
		}
		data = []byte(s)
	}

	if header == "" {
		header = "text/plain;charset=US-ASCII"
	}
	return &response{data: data, contentType: header}, nil
}
