package scene

import "github.com/go-gl/mathgl/mgl32"

type Projection int

const (
	ProjectionPerspective Projection = iota
	ProjectionOrthogonal
)

type Camera struct {
	Projection Projection
	// vertical field of view in radians
	FovY float32
	// orthographic half height
	Size float32
	Near float32
	Far  float32
}

type LightType int

const (
	LightDirectional LightType = iota
	LightPoint
	LightSpot
)

type Light struct {
	Type       LightType
	Color      mgl32.Vec3
	Intensity  float32
	Range      float32
	InnerAngle float32
	OuterAngle float32
}
