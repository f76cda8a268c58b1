package utils

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap/zapcore"

	"github.com/mogaika/scenedoc/utils/logger"
)

// Stable output: no addresses or capacities, sorted map keys.
var spewConfig = &spew.ConfigState{
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// DumpToOneLineString escapes non printable bytes as \xNN.
func DumpToOneLineString(buf []byte) string {
	var out strings.Builder
	for _, b := range buf {
		if b >= 0x20 && b < 0x7f {
			out.WriteByte(b)
		} else {
			fmt.Fprintf(&out, "\\x%.2x", b)
		}
	}
	return out.String()
}

func SDump(a ...interface{}) string {
	return spewConfig.Sdump(a...)
}

// LogDump writes a spew dump of a at debug level.
func LogDump(msg string, a ...interface{}) {
	if logger.L().Core().Enabled(zapcore.DebugLevel) {
		logger.S().Debugw(msg, "dump", spewConfig.Sdump(a...))
	}
}
