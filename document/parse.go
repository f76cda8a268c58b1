package document

import (
	"encoding/json"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/animation"
	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/extension"
	"github.com/mogaika/scenedoc/mesh"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/skeleton"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils"
	"github.com/mogaika/scenedoc/vfs"

	// registers the KHR_lights_punctual unmarshaler
	_ "github.com/qmuntal/gltf/ext/lightspuntual"
)

type stage struct {
	name string
	fn   func() error
}

func (d *Document) parse(st *state.State, loader vfs.Directory) error {
	doc := new(gltf.Document)
	if err := json.Unmarshal(st.JSON, doc); err != nil {
		return errs.Malformed("document json: %v", err)
	}
	st.Doc = doc

	stages := []stage{
		{"extensions", func() error { return d.parseExtensions(st, doc) }},
		{"scenes", func() error { return parseScenes(st, doc) }},
		{"nodes", func() error { return d.parseNodes(st, doc) }},
		{"buffers", func() error { return d.parseBuffers(st, doc, loader) }},
		{"buffer views", func() error { return parseBufferViews(st, doc) }},
		{"accessors", func() error { return parseAccessors(st, doc) }},
	}
	if !st.DiscardMeshesAndMaterials {
		stages = append(stages, []stage{
			{"images", func() error { return d.parseImages(st, doc, loader) }},
			{"samplers", func() error { return parseSamplers(st, doc) }},
			{"textures", func() error { return d.parseTextures(st, doc) }},
			{"materials", func() error { return d.parseMaterials(st, doc) }},
		}...)
	}
	stages = append(stages, []stage{
		{"skins", func() error { return skeleton.ParseSkins(st, doc) }},
		{"skeletons", func() error { return skeleton.Resolve(st) }},
		{"meshes", func() error { return mesh.ParseMeshes(st, doc) }},
		{"cameras", func() error { return parseCameras(st, doc) }},
		{"animations", func() error { return animation.ParseAnimations(st, doc) }},
	}...)

	for _, s := range stages {
		if err := s.fn(); err != nil {
			return errors.Wrapf(err, "parse %s", s.name)
		}
		d.log().Debug("parsed", zap.String("stage", s.name))
	}
	assignNodeNames(st)
	return nil
}

// parseExtensions keeps the extensions whose preflight accepts the document
// and fails when a required extension has no handler.
func (d *Document) parseExtensions(st *state.State, doc *gltf.Document) error {
	var all []extension.Extension
	if d.Extensions != nil {
		all = d.Extensions.List()
	}
	active := make([]extension.Extension, 0, len(all))
	for _, ext := range all {
		if err := ext.ImportPreflight(st, doc.ExtensionsUsed); err != nil {
			d.log().Warn("extension skipped", zap.String("stage", "extensions"), zap.String("extension", ext.Name()), zap.Error(err))
			utils.StatusWarnf("extension %s skipped: %v", ext.Name(), err)
			continue
		}
		active = append(active, ext)
	}
	d.setActive(st, active)

	for _, required := range doc.ExtensionsRequired {
		supported := false
		for _, ext := range active {
			for _, name := range ext.SupportedExtensions() {
				if name == required {
					supported = true
				}
			}
		}
		if !supported {
			return errs.New(errs.UnsupportedExtension, "required extension %q is not supported", required)
		}
	}
	return nil
}

func parseScenes(st *state.State, doc *gltf.Document) error {
	st.UniqueNames[state.SkeletonNodeName] = struct{}{}
	if len(doc.Scenes) == 0 {
		st.SceneName = st.GenUniqueName(st.Filename)
		return nil
	}

	index := 0
	if doc.Scene != nil {
		index = int(*doc.Scene)
	} else {
		utils.StatusWarnf("document has no default scene, using scene 0")
	}
	if index >= len(doc.Scenes) {
		return errs.Malformed("scene %d out of range [0,%d)", index, len(doc.Scenes))
	}
	sc := doc.Scenes[index]
	for _, n := range sc.Nodes {
		st.RootNodes = append(st.RootNodes, int(n))
	}

	name := sc.Name
	if name == "" || strings.HasPrefix(name, "Scene") {
		name = st.Filename
	}
	st.SceneName = st.GenUniqueName(name)
	return nil
}

var emptyMatrix [16]float32

func nodeRotation(r [4]float32) mgl32.Quat {
	if r == [4]float32{} {
		return mgl32.QuatIdent()
	}
	return mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
}

func nodeScale(s [3]float32) mgl32.Vec3 {
	if s == [3]float32{} {
		return mgl32.Vec3{1, 1, 1}
	}
	return mgl32.Vec3(s)
}

func (d *Document) parseNodes(st *state.State, doc *gltf.Document) error {
	exts := d.active(st)
	for i, gn := range doc.Nodes {
		n := state.NewNode()
		n.Name = gn.Name
		if gn.Camera != nil {
			n.Camera = int(*gn.Camera)
		}
		if gn.Mesh != nil {
			n.Mesh = int(*gn.Mesh)
		}
		if gn.Skin != nil {
			n.Skin = int(*gn.Skin)
		}

		if m := mgl32.Mat4(gn.Matrix); gn.Matrix != emptyMatrix && m != mgl32.Ident4() {
			n.SetXform(m)
		} else {
			n.SetTRS(mgl32.Vec3(gn.Translation), nodeRotation(gn.Rotation), nodeScale(gn.Scale))
		}

		for _, c := range gn.Children {
			n.Children = append(n.Children, int(c))
		}
		if len(gn.Weights) > 0 {
			n.Weights = append([]float32(nil), gn.Weights...)
		}
		if len(gn.Extensions) > 0 {
			n.Extensions = make(map[string]interface{}, len(gn.Extensions))
			for k, v := range gn.Extensions {
				n.Extensions[k] = v
			}
			for _, ext := range exts {
				if err := ext.ParseNodeExtensions(st, n, gn.Extensions); err != nil {
					return errors.Wrapf(err, "node %d extension %s", i, ext.Name())
				}
			}
		}
		st.Nodes = append(st.Nodes, n)
	}

	if err := st.BuildParentHierarchy(); err != nil {
		return err
	}
	return st.ComputeNodeHeights()
}

func (d *Document) parseBuffers(st *state.State, doc *gltf.Document, loader vfs.Directory) error {
	st.Store.Buffers = make([][]byte, 0, len(doc.Buffers))
	for i, b := range doc.Buffers {
		var data []byte
		switch {
		case i == 0 && b.URI == "" && st.GLBData != nil:
			data = st.GLBData
		case isDataURI(b.URI):
			mime, payload, err := decodeDataURI(b.URI)
			if err != nil {
				return errors.Wrapf(err, "buffer %d", i)
			}
			if mime != "application/octet-stream" && mime != "application/gltf-buffer" {
				d.log().Warn("unexpected buffer mime type", zap.String("stage", "buffers"), zap.Int("buffer", i), zap.String("mime", mime))
				utils.StatusWarnf("buffer %d has mime type %q", i, mime)
			}
			data = payload
		case b.URI != "":
			if loader == nil {
				return errs.New(errs.Unavailable, "buffer %d: no base path to load %q from", i, b.URI)
			}
			payload, err := vfs.ReadURI(loader, b.URI)
			if err != nil {
				return errs.New(errs.Unavailable, "buffer %d: can't load %q: %v", i, b.URI, err)
			}
			data = payload
		default:
			data = b.Data
		}
		if int(b.ByteLength) > len(data) {
			return errs.Malformed("buffer %d declares %d bytes but holds %d", i, b.ByteLength, len(data))
		}
		st.Store.Buffers = append(st.Store.Buffers, data)
	}
	return nil
}

func parseBufferViews(st *state.State, doc *gltf.Document) error {
	for i, v := range doc.BufferViews {
		if int(v.Buffer) >= len(st.Store.Buffers) {
			return errs.Malformed("buffer view %d references buffer %d out of range [0,%d)", i, v.Buffer, len(st.Store.Buffers))
		}
		if end := uint64(v.ByteOffset) + uint64(v.ByteLength); end > uint64(len(st.Store.Buffers[v.Buffer])) {
			return errs.Range("buffer view %d ends at %d past buffer %d size %d", i, end, v.Buffer, len(st.Store.Buffers[v.Buffer]))
		}
	}
	st.Store.Views = doc.BufferViews
	return nil
}

func parseAccessors(st *state.State, doc *gltf.Document) error {
	for i, a := range doc.Accessors {
		if a.BufferView != nil && int(*a.BufferView) >= len(st.Store.Views) {
			return errs.Malformed("accessor %d references buffer view %d out of range [0,%d)", i, *a.BufferView, len(st.Store.Views))
		}
		if a.Count == 0 {
			return errs.Malformed("accessor %d has zero count", i)
		}
	}
	st.Store.Accessors = doc.Accessors
	return nil
}

func parseSamplers(st *state.State, doc *gltf.Document) error {
	st.Samplers = append(st.Samplers[:0], doc.Samplers...)
	return nil
}

func (d *Document) parseTextures(st *state.State, doc *gltf.Document) error {
	exts := d.active(st)
	for i, gt := range doc.Textures {
		t := &state.Texture{Source: -1, Sampler: -1}
		handled := false
		for _, ext := range exts {
			ok, err := ext.ParseTextureJSON(st, gt, t)
			if err != nil {
				d.log().Warn("texture extension failed", zap.String("stage", "textures"), zap.Int("texture", i), zap.String("extension", ext.Name()), zap.Error(err))
				continue
			}
			if ok {
				handled = true
				break
			}
		}
		if !handled {
			if gt.Source == nil {
				return errs.Malformed("texture %d has no source", i)
			}
			t.Source = int(*gt.Source)
		}
		if t.Source < 0 || t.Source >= len(st.Images) {
			return errs.Malformed("texture %d source %d out of range [0,%d)", i, t.Source, len(st.Images))
		}
		if gt.Sampler != nil {
			if int(*gt.Sampler) >= len(st.Samplers) {
				return errs.Malformed("texture %d sampler %d out of range [0,%d)", i, *gt.Sampler, len(st.Samplers))
			}
			t.Sampler = int(*gt.Sampler)
		}
		st.Textures = append(st.Textures, t)
	}
	return nil
}

func parseCameras(st *state.State, doc *gltf.Document) error {
	for i, gc := range doc.Cameras {
		c := &scene.Camera{Near: 0.05, Far: 4000}
		switch {
		case gc.Perspective != nil:
			c.Projection = scene.ProjectionPerspective
			c.FovY = gc.Perspective.Yfov
			c.Near = gc.Perspective.Znear
			if gc.Perspective.Zfar != nil {
				c.Far = *gc.Perspective.Zfar
			}
		case gc.Orthographic != nil:
			c.Projection = scene.ProjectionOrthogonal
			c.Size = gc.Orthographic.Ymag
			c.Near = gc.Orthographic.Znear
			c.Far = gc.Orthographic.Zfar
		default:
			return errs.Malformed("camera %d has neither perspective nor orthographic data", i)
		}
		st.Cameras = append(st.Cameras, c)
	}
	return nil
}

// assignNodeNames gives every non bone node a scene unique name. Bones got
// skeleton unique names when their skeleton was created.
func assignNodeNames(st *state.State) {
	for _, n := range st.Nodes {
		if n.Skeleton >= 0 {
			continue
		}
		if n.Name == "" {
			switch {
			case n.Mesh >= 0:
				n.Name = "Mesh"
			case n.Camera >= 0:
				n.Name = "Camera3D"
			default:
				n.Name = "Node"
			}
		}
		n.Name = st.GenUniqueName(n.Name)
	}
}
