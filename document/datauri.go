package document

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/mogaika/scenedoc/errs"
)

func isDataURI(uri string) bool {
	return strings.HasPrefix(uri, "data:")
}

// decodeDataURI splits "data:<mime>[;base64],<payload>" into its MIME type
// and decoded payload.
func decodeDataURI(uri string) (mime string, data []byte, err error) {
	comma := strings.IndexByte(uri, ',')
	if !isDataURI(uri) || comma < 0 {
		return "", nil, errs.Malformed("bad data uri %.32q", uri)
	}
	header, payload := uri[len("data:"):comma], uri[comma+1:]
	encoded := strings.HasSuffix(header, ";base64")
	mime = strings.TrimSuffix(header, ";base64")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}

	if encoded {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return "", nil, errs.Malformed("data uri: %v", err)
		}
		return mime, data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, errs.Malformed("data uri: %v", err)
	}
	return mime, []byte(text), nil
}
