package state

import "github.com/mogaika/scenedoc/scene"

type Mesh struct {
	Host *scene.ImporterMesh
	// default morph weights, one per blend shape
	BlendWeights []float32
}

type Image struct {
	Name      string
	MimeType  string
	Data      []byte
	Extension string
	Width     int
	Height    int
}

// Empty marks placeholder images kept to preserve indices.
func (i *Image) Empty() bool { return i == nil || len(i.Data) == 0 }

type Texture struct {
	Source  int
	Sampler int
}
