// Package fbx reads binary FBX files far enough to bring their node
// hierarchy and polygon meshes into a document state.
package fbx

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Property70 struct {
	Name    string
	Type    string
	Purpose string
	Flags   string
	Value   []interface{}
}

type Properties70 struct {
	P []*Property70
}

func (p Properties70) Get(name string) *Property70 {
	for _, prop := range p.P {
		if prop.Name == name {
			return prop
		}
	}
	return nil
}

// Vec3 reads a three component property, def when absent or short.
func (p Properties70) Vec3(name string, def mgl32.Vec3) mgl32.Vec3 {
	prop := p.Get(name)
	if prop == nil || len(prop.Value) < 3 {
		return def
	}
	return mgl32.Vec3{float32(number(prop.Value[0])), float32(number(prop.Value[1])), float32(number(prop.Value[2]))}
}

func (p Properties70) Number(name string, def float64) float64 {
	prop := p.Get(name)
	if prop == nil || len(prop.Value) == 0 {
		return def
	}
	return number(prop.Value[0])
}

type HeaderExtension struct {
	FBXHeaderVersion int
	FBXVersion       int
	Creator          string
}

type LayerElement struct {
	Index int

	Name                     string
	MappingInformationType   string
	ReferenceInformationType string

	Normals      []float64
	NormalsIndex []int32
	UV           []float64
	UVIndex      []int32
	Materials    []int32
}

type Geometry struct {
	Id      int64
	Name    string
	Element string

	Properties70 Properties70

	Vertices           []float64
	PolygonVertexIndex []int32
	GeometryVersion    int

	LayerElementNormal   []*LayerElement
	LayerElementUV       []*LayerElement
	LayerElementMaterial *LayerElement
}

// FaceCount counts polygons; each ends with a negative (bit inverted) index.
func (g *Geometry) FaceCount() int {
	n := 0
	for _, i := range g.PolygonVertexIndex {
		if i < 0 {
			n++
		}
	}
	return n
}

type Model struct {
	Id           int64
	Name         string
	Element      string
	Version      int
	Properties70 Properties70
	Shading      bool
	Culling      string
}

type Material struct {
	Id           int64
	Name         string
	Element      string
	Version      int
	Properties70 Properties70
	ShadingModel string
	MultiLayer   int
}

type Connection struct {
	Type     string
	Child    int64
	Parent   int64
	Property string
}

type Connections struct {
	C []Connection
}

type Objects struct {
	Geometry []*Geometry
	Material []*Material
	Model    []*Model
}

// Scene is the typed view of the records the importer understands.
type Scene struct {
	Version            uint32
	FBXHeaderExtension HeaderExtension
	Objects            Objects
	Connections        Connections
}
