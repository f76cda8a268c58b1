package document

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils"
)

type Format int

const (
	FormatGLB Format = iota
	FormatGLTF
	FormatFBX
	FormatFBXZip
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "glb", "":
		return FormatGLB, nil
	case "gltf", "json":
		return FormatGLTF, nil
	case "fbx":
		return FormatFBX, nil
	case "zip", "fbxzip":
		return FormatFBXZip, nil
	}
	return FormatGLB, errors.Errorf("unknown output format %q", s)
}

func (f Format) Extension() string {
	switch f {
	case FormatGLTF:
		return ".gltf"
	case FormatFBX:
		return ".fbx"
	case FormatFBXZip:
		return ".zip"
	default:
		return ".glb"
	}
}

func (f Format) MimeType() string {
	switch f {
	case FormatGLTF:
		return "model/gltf+json"
	case FormatGLB:
		return "model/gltf-binary"
	case FormatFBXZip:
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

// Write serializes st in format f.
func (d *Document) Write(w io.Writer, st *state.State, f Format) error {
	switch f {
	case FormatGLTF:
		return d.WriteJSON(w, st)
	case FormatFBX:
		return d.WriteFBX(w, st)
	case FormatFBXZip:
		return d.WriteFBXZip(w, st)
	default:
		return d.WriteGLB(w, st)
	}
}

// Roundtrip generates the host scene of st and converts it back, the way an
// editor import followed by an export would.
func (d *Document) Roundtrip(st *state.State, flags ImportFlags, opts Options) (*state.State, error) {
	root, err := d.GenerateScene(st, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "generate scene")
	}
	out, err := d.AppendFromScene(root, flags)
	if err != nil {
		return nil, errors.Wrapf(err, "convert scene")
	}
	out.Filename = st.Filename
	d.log().Debug("roundtrip done", zap.String("stage", "convert"), zap.Int("nodes in", len(st.Nodes)), zap.Int("nodes out", len(out.Nodes)))
	utils.LogDump("roundtrip skeletons", out.Skeletons)
	return out, nil
}
