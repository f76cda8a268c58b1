package config

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

// Codepage of 8-bit names in FBX files.
var (
	encodingLock sync.RWMutex
	encoding     = charmap.Windows1252
)

func charmaps() []*charmap.Charmap {
	list := make([]*charmap.Charmap, 0, len(charmap.All))
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm)
		}
	}
	return list
}

// SetEncoding selects the codepage by its display name, case insensitive.
func SetEncoding(name string) error {
	for _, cm := range charmaps() {
		if strings.EqualFold(cm.String(), name) {
			encodingLock.Lock()
			encoding = cm
			encodingLock.Unlock()
			return nil
		}
	}
	return errors.Errorf("unknown encoding %q", name)
}

func ListEncodings() []string {
	cms := charmaps()
	list := make([]string, 0, len(cms))
	for _, cm := range cms {
		list = append(list, cm.String())
	}
	sort.Strings(list)
	return list
}

func GetEncoding() *charmap.Charmap {
	encodingLock.RLock()
	defer encodingLock.RUnlock()
	return encoding
}
