package document

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/accessor"
	"github.com/mogaika/scenedoc/animation"
	"github.com/mogaika/scenedoc/mesh"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils/fbxbuilder"
	"github.com/mogaika/scenedoc/utils/gltfutils"
)

// Serialize writes st into a new document. Accessor data is encoded into a
// fresh store, so a state read from a file can be written back.
func (d *Document) Serialize(st *state.State) (*gltf.Document, error) {
	doc := gltfutils.NewDocument()
	st.Store = accessor.NewStore()

	serializeNodes(st, doc)
	if err := serializeSkins(st, doc); err != nil {
		return nil, errors.Wrapf(err, "serialize skins")
	}
	if err := mesh.SerializeMeshes(st, doc); err != nil {
		return nil, errors.Wrapf(err, "serialize meshes")
	}
	if err := animation.SerializeAnimations(st, doc); err != nil {
		return nil, errors.Wrapf(err, "serialize animations")
	}

	if len(st.Store.Buffers) > 0 && len(st.Store.Buffers[0]) > 0 {
		data := st.Store.Buffers[0]
		doc.Buffers = []*gltf.Buffer{{ByteLength: uint32(len(data)), Data: data}}
		doc.BufferViews = st.Store.Views
		doc.Accessors = st.Store.Accessors
	}

	mw := &materialWriter{doc: doc, textures: make(map[*scene.Texture]uint32)}
	for _, m := range st.Materials {
		gm, err := mw.material(m)
		if err != nil {
			return nil, errors.Wrapf(err, "serialize material %q", m.Name)
		}
		doc.Materials = append(doc.Materials, gm)
	}
	serializeCameras(st, doc)

	for _, ext := range d.active(st) {
		if err := ext.ExportPost(st, doc); err != nil {
			return nil, errors.Wrapf(err, "extension %s export", ext.Name())
		}
	}
	doc.ExtensionsUsed = append([]string(nil), st.ExtensionsUsed...)
	doc.ExtensionsRequired = append([]string(nil), st.ExtensionsRequired...)

	d.log().Info("serialized document", zap.String("stage", "serialize"),
		zap.Int("nodes", len(doc.Nodes)), zap.Int("meshes", len(doc.Meshes)),
		zap.Int("accessors", len(doc.Accessors)), zap.Int("images", len(doc.Images)))
	return doc, nil
}

// WriteGLB serializes st as a binary container.
func (d *Document) WriteGLB(w io.Writer, st *state.State) error {
	doc, err := d.Serialize(st)
	if err != nil {
		return err
	}
	return gltfutils.Export(w, doc, true)
}

// WriteJSON serializes st as JSON with the buffer embedded as a data URI.
func (d *Document) WriteJSON(w io.Writer, st *state.State) error {
	doc, err := d.Serialize(st)
	if err != nil {
		return err
	}
	return gltfutils.Export(w, doc, false)
}

// WriteFBX writes the node hierarchy and triangle meshes of st as binary FBX.
func (d *Document) WriteFBX(w io.Writer, st *state.State) error {
	if err := fbxbuilder.FromState(st, st.Filename+".fbx").Write(w); err != nil {
		return errors.Wrapf(err, "fbx export")
	}
	return nil
}

// WriteFBXZip is WriteFBX packed into a zip together with the albedo images
// of the materials.
func (d *Document) WriteFBXZip(w io.Writer, st *state.State) error {
	return fbxbuilder.FromState(st, st.Filename+".fbx").WriteZip(w, st.Filename+".fbx")
}

func index(i int) *uint32 {
	if i < 0 {
		return nil
	}
	return gltf.Index(uint32(i))
}

func serializeNodes(st *state.State, doc *gltf.Document) {
	for _, n := range st.Nodes {
		gn := &gltf.Node{
			Name:        n.Name,
			Camera:      index(n.Camera),
			Mesh:        index(n.Mesh),
			Skin:        index(n.Skin),
			Matrix:      gltf.DefaultMatrix,
			Translation: [3]float32(n.Translation),
			Rotation:    [4]float32{n.Rotation.V[0], n.Rotation.V[1], n.Rotation.V[2], n.Rotation.W},
			Scale:       [3]float32(n.Scale),
		}
		for _, c := range n.Children {
			gn.Children = append(gn.Children, uint32(c))
		}
		if len(n.Weights) > 0 {
			gn.Weights = append([]float32(nil), n.Weights...)
		}
		doc.Nodes = append(doc.Nodes, gn)
	}

	sc := &gltf.Scene{Name: st.SceneName}
	for _, r := range st.RootNodes {
		sc.Nodes = append(sc.Nodes, uint32(r))
	}
	doc.Scenes = []*gltf.Scene{sc}
	doc.Scene = gltf.Index(0)
}

func serializeSkins(st *state.State, doc *gltf.Document) error {
	for _, s := range st.Skins {
		gs := &gltf.Skin{Name: s.Name, Skeleton: index(s.SkinRoot)}
		for _, j := range s.JointsOriginal {
			gs.Joints = append(gs.Joints, uint32(j))
		}
		ibm, err := st.Store.EncodeXforms(s.InverseBinds, false)
		if err != nil {
			return err
		}
		gs.InverseBindMatrices = index(ibm)
		doc.Skins = append(doc.Skins, gs)
	}
	return nil
}

func serializeCameras(st *state.State, doc *gltf.Document) {
	for _, c := range st.Cameras {
		gc := &gltf.Camera{}
		if c.Projection == scene.ProjectionOrthogonal {
			gc.Orthographic = &gltf.Orthographic{Xmag: c.Size, Ymag: c.Size, Znear: c.Near, Zfar: c.Far}
		} else {
			far := c.Far
			gc.Perspective = &gltf.Perspective{Yfov: c.FovY, Znear: c.Near, Zfar: &far}
		}
		doc.Cameras = append(doc.Cameras, gc)
	}
}

// materialWriter emits images, samplers and textures on demand. A host
// texture shared between materials is written once; identical samplers
// collapse into one.
type materialWriter struct {
	doc      *gltf.Document
	textures map[*scene.Texture]uint32
}

func (w *materialWriter) sampler(t *scene.Texture) uint32 {
	s := &gltf.Sampler{
		MagFilter: gltf.MagFilter(t.MagFilter),
		MinFilter: gltf.MinFilter(t.MinFilter),
		WrapS:     gltf.WrappingMode(t.WrapS),
		WrapT:     gltf.WrappingMode(t.WrapT),
	}
	for i, e := range w.doc.Samplers {
		if e.MagFilter == s.MagFilter && e.MinFilter == s.MinFilter && e.WrapS == s.WrapS && e.WrapT == s.WrapT {
			return uint32(i)
		}
	}
	w.doc.Samplers = append(w.doc.Samplers, s)
	return uint32(len(w.doc.Samplers) - 1)
}

func (w *materialWriter) texture(t *scene.Texture) (*uint32, error) {
	if t == nil || len(t.Data) == 0 {
		return nil, nil
	}
	if i, ok := w.textures[t]; ok {
		return gltf.Index(i), nil
	}

	img := -1
	for i, gi := range w.doc.Images {
		if gi.Name == t.Name && gi.MimeType == t.MimeType && gi.BufferView != nil {
			if bytes.Equal(w.viewBytes(*gi.BufferView), t.Data) {
				img = i
				break
			}
		}
	}
	if img < 0 {
		i, err := modeler.WriteImage(w.doc, t.Name, t.MimeType, bytes.NewReader(t.Data))
		if err != nil {
			return nil, err
		}
		img = int(i)
	}

	w.doc.Textures = append(w.doc.Textures, &gltf.Texture{Source: index(img), Sampler: gltf.Index(w.sampler(t))})
	i := uint32(len(w.doc.Textures) - 1)
	w.textures[t] = i
	return gltf.Index(i), nil
}

func (w *materialWriter) viewBytes(v uint32) []byte {
	bv := w.doc.BufferViews[v]
	return w.doc.Buffers[bv.Buffer].Data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]
}

func (w *materialWriter) textureInfo(t *scene.Texture) (*gltf.TextureInfo, error) {
	i, err := w.texture(t)
	if err != nil || i == nil {
		return nil, err
	}
	return &gltf.TextureInfo{Index: *i}, nil
}

func (w *materialWriter) material(m *scene.Material) (*gltf.Material, error) {
	albedo := [4]float32(m.AlbedoColor)
	metallic, roughness := m.Metallic, m.Roughness
	gm := &gltf.Material{
		Name:        m.Name,
		DoubleSided: m.DoubleSided,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &albedo,
			MetallicFactor:  &metallic,
			RoughnessFactor: &roughness,
		},
	}
	if m.EmissionEnergy > 0 {
		gm.EmissiveFactor = [3]float32(m.Emission)
	}

	var err error
	if gm.PBRMetallicRoughness.BaseColorTexture, err = w.textureInfo(m.AlbedoTexture); err != nil {
		return nil, err
	}
	if gm.EmissiveTexture, err = w.textureInfo(m.EmissionTexture); err != nil {
		return nil, err
	}
	if i, err := w.texture(m.NormalTexture); err != nil {
		return nil, err
	} else if i != nil {
		scale := m.NormalScale
		gm.NormalTexture = &gltf.NormalTexture{Index: i, Scale: &scale}
	}
	if i, err := w.texture(m.OcclusionTexture); err != nil {
		return nil, err
	} else if i != nil {
		gm.OcclusionTexture = &gltf.OcclusionTexture{Index: i}
	}

	switch m.AlphaMode {
	case scene.AlphaBlend:
		gm.AlphaMode = gltf.AlphaBlend
	case scene.AlphaMask:
		gm.AlphaMode = gltf.AlphaMask
		cutoff := m.AlphaCutoff
		gm.AlphaCutoff = &cutoff
	}
	return gm, nil
}
