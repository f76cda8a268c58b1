package document

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/h2non/filetype"
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils"
	"github.com/mogaika/scenedoc/vfs"
)

const (
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
)

func imageName(uri string, index int) string {
	if uri == "" || isDataURI(uri) {
		return fmt.Sprint(index)
	}
	base := path.Base(strings.ReplaceAll(uri, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

func mimeFromExtension(uri string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(uri), "."))
	switch ext {
	case "":
		return ""
	case "jpg":
		return mimeJPEG
	}
	return "image/" + ext
}

// sniffImage recognises PNG or JPEG payloads regardless of the declared type.
func sniffImage(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil {
		return ""
	}
	switch kind.MIME.Value {
	case mimePNG, mimeJPEG:
		return kind.MIME.Value
	}
	return ""
}

// parseImages loads every image payload. Images that can not be loaded or
// decoded stay in the list as placeholders so texture indices keep working.
func (d *Document) parseImages(st *state.State, doc *gltf.Document, loader vfs.Directory) error {
	used := make(map[string]struct{})

	for i, gi := range doc.Images {
		name := gi.Name
		if name == "" {
			name = imageName(gi.URI, i)
		}
		if _, dup := used[name]; dup {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		used[name] = struct{}{}
		img := &state.Image{Name: name, MimeType: gi.MimeType}
		st.Images = append(st.Images, img)

		warn := func(msg string, fields ...zap.Field) {
			d.log().Warn(msg, append([]zap.Field{zap.String("stage", "images"), zap.Int("image", i), zap.String("name", name)}, fields...)...)
			utils.StatusWarnf("image %d (%s): %s", i, name, msg)
		}

		var data []byte
		switch {
		case isDataURI(gi.URI):
			mime, payload, err := decodeDataURI(gi.URI)
			if err != nil {
				warn("bad data uri", zap.Error(err))
				continue
			}
			if img.MimeType == "" {
				img.MimeType = mime
			}
			data = payload
		case gi.URI != "":
			if loader == nil {
				warn("no base path to load image from", zap.String("uri", gi.URI))
				continue
			}
			payload, err := vfs.ReadURI(loader, gi.URI)
			if err != nil {
				warn("can't load image", zap.String("uri", gi.URI), zap.Error(err))
				continue
			}
			if img.MimeType == "" {
				img.MimeType = mimeFromExtension(gi.URI)
			}
			data = payload
		case gi.BufferView != nil:
			if gi.MimeType == "" {
				return errs.Malformed("image %d is stored in buffer view %d without a mime type", i, *gi.BufferView)
			}
			payload, err := st.Store.ViewBytes(int(*gi.BufferView))
			if err != nil {
				return err
			}
			data = payload
		default:
			warn("image has neither uri nor buffer view")
			continue
		}
		if len(data) == 0 {
			warn("image is empty")
			continue
		}

		if handled := d.imageFromExtensions(st, img, data, warn); handled {
			continue
		}

		mime := img.MimeType
		if mime != mimePNG && mime != mimeJPEG {
			mime = sniffImage(data)
		}
		if mime == "" {
			warn("unsupported image type", zap.String("mime", img.MimeType))
			continue
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			warn("can't decode image", zap.String("mime", mime), zap.Error(err))
			continue
		}
		img.MimeType = mime
		img.Data = data
		img.Extension = strings.TrimPrefix(mime, "image/")
		img.Width, img.Height = cfg.Width, cfg.Height
	}
	return nil
}

func (d *Document) imageFromExtensions(st *state.State, img *state.Image, data []byte, warn func(string, ...zap.Field)) bool {
	for _, ext := range d.active(st) {
		parsed, err := ext.ParseImageData(st, data, img.MimeType)
		if err != nil {
			warn("extension failed to parse image", zap.String("extension", ext.Name()), zap.Error(err))
			continue
		}
		if parsed == nil {
			continue
		}
		if parsed.Name == "" {
			parsed.Name = img.Name
		}
		if parsed.Extension == "" {
			parsed.Extension = ext.ImageFileExtension()
		}
		*img = *parsed
		return true
	}
	return false
}

// hostTexture resolves a document texture index into a material texture.
// Placeholder images give nil.
func hostTexture(st *state.State, index uint32) *scene.Texture {
	if int(index) >= len(st.Textures) {
		utils.StatusWarnf("texture %d out of range", index)
		return nil
	}
	t := st.Textures[index]
	img := st.Images[t.Source]
	if img.Empty() {
		return nil
	}
	ht := &scene.Texture{Name: img.Name, MimeType: img.MimeType, Data: img.Data}
	if t.Sampler >= 0 {
		s := st.Samplers[t.Sampler]
		ht.MagFilter, ht.MinFilter = int(s.MagFilter), int(s.MinFilter)
		ht.WrapS, ht.WrapT = int(s.WrapS), int(s.WrapT)
	}
	return ht
}

func (d *Document) parseMaterials(st *state.State, doc *gltf.Document) error {
	for i, gm := range doc.Materials {
		m := scene.DefaultMaterial()
		m.Name = gm.Name
		if m.Name == "" {
			m.Name = fmt.Sprintf("material_%d", i)
		}
		m.Metallic = 1
		m.DoubleSided = gm.DoubleSided

		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				m.AlbedoColor = mgl32.Vec4(*pbr.BaseColorFactor)
			}
			if pbr.BaseColorTexture != nil {
				m.AlbedoTexture = hostTexture(st, pbr.BaseColorTexture.Index)
			}
			if pbr.MetallicFactor != nil {
				m.Metallic = *pbr.MetallicFactor
			}
			if pbr.RoughnessFactor != nil {
				m.Roughness = *pbr.RoughnessFactor
			}
		}
		if nt := gm.NormalTexture; nt != nil && nt.Index != nil {
			m.NormalTexture = hostTexture(st, *nt.Index)
			if nt.Scale != nil {
				m.NormalScale = *nt.Scale
			}
		}
		if ot := gm.OcclusionTexture; ot != nil && ot.Index != nil {
			m.OcclusionTexture = hostTexture(st, *ot.Index)
		}
		if et := gm.EmissiveTexture; et != nil {
			m.EmissionTexture = hostTexture(st, et.Index)
		}
		m.Emission = mgl32.Vec3(gm.EmissiveFactor)
		if m.Emission != (mgl32.Vec3{}) || m.EmissionTexture != nil {
			m.EmissionEnergy = 1
		}

		switch gm.AlphaMode {
		case gltf.AlphaBlend:
			m.AlphaMode = scene.AlphaBlend
		case gltf.AlphaMask:
			m.AlphaMode = scene.AlphaMask
			if gm.AlphaCutoff != nil {
				m.AlphaCutoff = *gm.AlphaCutoff
			}
		}
		st.Materials = append(st.Materials, m)
	}
	d.log().Debug("parsed materials", zap.String("stage", "materials"), zap.Int("count", len(st.Materials)))
	return nil
}
