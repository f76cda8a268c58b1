package scene

import "github.com/go-gl/mathgl/mgl32"

type PrimitiveType int

const (
	PrimitivePoints PrimitiveType = iota
	PrimitiveLines
	PrimitiveLineStrip
	PrimitiveTriangles
	PrimitiveTriangleStrip
)

type BlendShapeMode int

const (
	BlendShapeNormalized BlendShapeMode = iota
	BlendShapeRelative
)

// Custom channel formats
const (
	CustomNone = 0
	CustomRG   = 2
	CustomRGBA = 4
)

type BlendShapeArrays struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Tangents  []mgl32.Vec4
}

type Surface struct {
	Name      string
	Primitive PrimitiveType

	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Tangents  []mgl32.Vec4
	UV        []mgl32.Vec2
	UV2       []mgl32.Vec2
	Colors    []mgl32.Vec4

	// Up to three extra channels of 2 or 4 floats per vertex
	Custom       [3][]float32
	CustomFormat [3]int

	// Bones and Weights hold BoneCount (4 or 8) entries per vertex
	Bones     []int
	Weights   []float32
	BoneCount int

	Indices []int

	// Absolute arrays, one per mesh blend shape
	BlendShapes []BlendShapeArrays

	Material *Material
}

func (s *Surface) VertexCount() int { return len(s.Positions) }

type ImporterMesh struct {
	Name           string
	BlendShapes    []string
	BlendShapeMode BlendShapeMode
	Surfaces       []*Surface
}

func (m *ImporterMesh) AddBlendShape(name string) {
	m.BlendShapes = append(m.BlendShapes, name)
}

func (m *ImporterMesh) AddSurface(s *Surface) {
	m.Surfaces = append(m.Surfaces, s)
}

type AlphaMode int

const (
	AlphaOpaque AlphaMode = iota
	AlphaMask
	AlphaBlend
)

// Texture is an image bound to a material slot together with the sampler
// values of the document it came from.
type Texture struct {
	Name     string
	MimeType string
	Data     []byte

	MagFilter int
	MinFilter int
	WrapS     int
	WrapT     int
}

type Material struct {
	Name                   string
	DoubleSided            bool
	Unshaded               bool
	VertexColorUseAsAlbedo bool
	AlbedoColor            mgl32.Vec4
	AlbedoTexture          *Texture
	Metallic               float32
	Roughness              float32
	Emission               mgl32.Vec3
	EmissionEnergy         float32

	NormalTexture    *Texture
	NormalScale      float32
	OcclusionTexture *Texture
	EmissionTexture  *Texture

	AlphaMode   AlphaMode
	AlphaCutoff float32
}

func DefaultMaterial() *Material {
	return &Material{
		Name:        "default",
		AlbedoColor: mgl32.Vec4{1, 1, 1, 1},
		Roughness:   1,
		NormalScale: 1,
		AlphaCutoff: 0.5,
	}
}
