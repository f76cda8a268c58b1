package gltfutils

import (
	"encoding/base64"
	"io"

	"github.com/qmuntal/gltf"
)

const DataURIPrefix = "data:application/octet-stream;base64,"

const Generator = "scenedoc"

// NewDocument returns an empty document without the default scene and
// buffer qmuntal adds, callers fill both.
func NewDocument() *gltf.Document {
	return &gltf.Document{Asset: gltf.Asset{Generator: Generator, Version: "2.0"}}
}

// EmbedBuffers turns every buffer into a base64 data URI so a JSON document
// carries its own payload.
func EmbedBuffers(doc *gltf.Document) {
	for _, b := range doc.Buffers {
		if b.URI == "" || b.IsEmbeddedResource() {
			b.URI = DataURIPrefix + base64.StdEncoding.EncodeToString(b.Data)
		}
	}
}

// Export writes doc as a binary container or as JSON with embedded buffers.
func Export(w io.Writer, doc *gltf.Document, binary bool) error {
	if !binary {
		EmbedBuffers(doc)
	}
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = binary
	return encoder.Encode(doc)
}
