package utils

import (
	"bytes"
	"strings"

	"github.com/mogaika/scenedoc/config"

	"golang.org/x/text/transform"
)

// BytesToString decodes a NUL-terminated 8-bit string using the configured charmap.
// Plain ascii is returned without a decode pass.
func BytesToString(bs []byte) string {
	n := bytes.IndexByte(bs, 0)
	if n < 0 {
		n = len(bs)
	}
	bs = bs[:n]

	ascii := true
	for _, b := range bs {
		if b >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(bs)
	}

	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs)
	if err != nil {
		return string(bs)
	}
	return string(s)
}

func StringToBytes(s string, nilTerminate bool) []byte {
	bs, _, err := transform.Bytes(config.GetEncoding().NewEncoder(), []byte(s))
	if err != nil {
		bs = []byte(s)
	}
	if nilTerminate {
		bs = append(bs, 0)
	}
	return bs
}

// SplitFBXName splits "name\x00\x01Class" object names.
func SplitFBXName(s string) (name, class string) {
	if i := strings.Index(s, "\x00\x01"); i >= 0 {
		return s[:i], s[i+2:]
	}
	return s, ""
}
