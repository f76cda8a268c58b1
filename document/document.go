// Package document runs the conversion pipeline: parsing a document into
// state, generating a host scene from it, converting a host scene back and
// writing the result.
package document

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/config"
	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/extension"
	"github.com/mogaika/scenedoc/fbx"
	"github.com/mogaika/scenedoc/glb"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils/logger"
	"github.com/mogaika/scenedoc/vfs"
)

type ImportFlags struct {
	NamedSkinBinds            bool
	DiscardMeshesAndMaterials bool
	CreateAnimations          bool
}

func FlagsFromConfig(c config.ImportConfig) ImportFlags {
	return ImportFlags{
		NamedSkinBinds:            c.NamedSkinBinds,
		DiscardMeshesAndMaterials: c.DiscardMeshesAndMaterials,
		CreateAnimations:          c.CreateAnimations,
	}
}

func (f ImportFlags) apply(st *state.State) {
	st.UseNamedSkinBinds = f.NamedSkinBinds
	st.DiscardMeshesAndMaterials = f.DiscardMeshesAndMaterials
	st.CreateAnimations = f.CreateAnimations
}

// Options control scene generation.
type Options struct {
	BakeFPS               float32
	Trimming              bool
	RemoveImmutableTracks bool
}

func OptionsFromConfig(c config.ImportConfig) Options {
	return Options{
		BakeFPS:               c.BakeFPS,
		Trimming:              c.Trimming,
		RemoveImmutableTracks: c.RemoveImmutableTracks,
	}
}

type Document struct {
	Extensions *extension.Registry
	// nil means the global logger
	Log *zap.Logger
	// key rate used when export has to bake curves
	BakeFPS float32
}

func New() *Document {
	return &Document{Extensions: extension.Default, BakeFPS: 30}
}

func (d *Document) log() *zap.Logger {
	if d.Log != nil {
		return d.Log
	}
	return logger.L()
}

// active extensions of a state, kept in st.Additional between stages
const activeExtensionsKey = "document.extensions"

func (d *Document) setActive(st *state.State, exts []extension.Extension) {
	st.Additional[activeExtensionsKey] = exts
}

func (d *Document) active(st *state.State) []extension.Extension {
	if exts, ok := st.Additional[activeExtensionsKey].([]extension.Extension); ok {
		return exts
	}
	if d.Extensions == nil {
		return nil
	}
	return d.Extensions.List()
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// AppendFromBuffer parses a document held in memory. External buffers and
// images are read from loader, which may be nil for self contained input.
// Binary FBX input is recognised by its magic and goes through the FBX
// pre-pass instead.
func (d *Document) AppendFromBuffer(data []byte, basePath string, flags ImportFlags, loader vfs.Directory) (*state.State, error) {
	st := state.New()
	flags.apply(st)
	st.BasePath = basePath
	st.Filename = "scene"
	return st, d.appendTo(st, data, loader)
}

// AppendFromFile parses the document at path, resolving external resources
// relative to its directory.
func (d *Document) AppendFromFile(path string, flags ImportFlags) (*state.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.Unavailable, "can't read %q: %v", path, err)
	}
	st := state.New()
	flags.apply(st)
	st.Filename = baseName(path)
	st.BasePath = filepath.Dir(path)
	return st, d.appendTo(st, data, vfs.NewDirectoryDriver(st.BasePath))
}

func (d *Document) appendTo(st *state.State, data []byte, loader vfs.Directory) error {
	switch {
	case fbx.IsBinary(data):
		return d.ParseFBX(st, data)
	case glb.IsBinary(data):
		js, bin, err := glb.Read(data)
		if err != nil {
			return err
		}
		st.JSON, st.GLBData = js, bin
	default:
		st.JSON = data
	}
	if err := d.parse(st, loader); err != nil {
		return err
	}
	return d.postParse(st)
}

// ParseFBX reads a binary FBX file into st as nodes and triangle meshes.
func (d *Document) ParseFBX(st *state.State, data []byte) error {
	root, version, err := fbx.Read(bytes.NewReader(data))
	if err != nil {
		return errs.New(errs.Unavailable, "fbx: %v", err)
	}
	d.log().Debug("read fbx", zap.String("stage", "fbx"), zap.Uint32("version", version))

	scan, err := fbx.Scan(root)
	if err != nil {
		return errs.New(errs.Unavailable, "fbx: %v", err)
	}
	d.setActive(st, d.active(st))
	st.UniqueNames[state.SkeletonNodeName] = struct{}{}
	st.SceneName = st.GenUniqueName(st.Filename)
	if err := scan.ToState(st); err != nil {
		return errors.Wrapf(err, "fbx")
	}
	if err := st.BuildParentHierarchy(); err != nil {
		return err
	}
	if err := st.ComputeNodeHeights(); err != nil {
		return err
	}
	assignNodeNames(st)
	return d.postParse(st)
}

func (d *Document) postParse(st *state.State) error {
	for _, ext := range d.active(st) {
		if err := ext.ImportPostParse(st); err != nil {
			return errors.Wrapf(err, "extension %s post parse", ext.Name())
		}
	}
	d.log().Info("parsed document", zap.String("stage", "parse"), zap.String("scene", st.SceneName),
		zap.Int("nodes", len(st.Nodes)), zap.Int("meshes", len(st.Meshes)),
		zap.Int("skins", len(st.Skins)), zap.Int("skeletons", len(st.Skeletons)),
		zap.Int("animations", len(st.Animations)))
	return nil
}
