package utils

import (
	"bytes"

	"github.com/mogaika/scene_browser/config"

	"github.com/pkg/errors"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// DecodeText converts document bytes to a string using the configured legacy encoding.
// UTF-8 input is passed through with its byte order mark stripped.
func DecodeText(bs []byte) (string, error) {
	cm := config.GetEncoding()
	if cm == nil {
		return string(bytes.TrimPrefix(bs, utf8BOM)), nil
	}

	s, _, err := transform.Bytes(cm.NewDecoder(), bs)
	if err != nil {
		return "", errors.Wrapf(err, "Failed to decode text as %v", cm)
	}
	return string(s), nil
}
