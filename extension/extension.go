// Package extension holds the document extension hooks called at fixed
// points of import and export.
package extension

import (
	"sync"

	"github.com/qmuntal/gltf"

	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
)

// Extension is implemented by document extension handlers. Hooks returning
// a nil result mean the handler did not take the call.
type Extension interface {
	Name() string
	SupportedExtensions() []string

	ImportPreflight(st *state.State, extensions []string) error
	ParseNodeExtensions(st *state.State, node *state.Node, ext gltf.Extensions) error
	ParseImageData(st *state.State, data []byte, mimeType string) (*state.Image, error)
	ParseTextureJSON(st *state.State, tex *gltf.Texture, out *state.Texture) (bool, error)
	ImageFileExtension() string
	ImportPostParse(st *state.State) error

	GenerateSceneNode(st *state.State, node *state.Node, parent *scene.Node) (*scene.Node, error)
	ImportNode(st *state.State, node *state.Node, host *scene.Node) error
	ImportPost(st *state.State, root *scene.Node) error

	ExportPreflight(st *state.State, root *scene.Node) error
	ConvertSceneNode(st *state.State, node *state.Node, host *scene.Node) error
	ExportPost(st *state.State, doc *gltf.Document) error
}

// Base implements every hook as a no-op, embed it and override what is needed.
type Base struct{}

func (Base) SupportedExtensions() []string                                 { return nil }
func (Base) ImportPreflight(*state.State, []string) error                   { return nil }
func (Base) ParseNodeExtensions(*state.State, *state.Node, gltf.Extensions) error { return nil }
func (Base) ParseImageData(*state.State, []byte, string) (*state.Image, error) {
	return nil, nil
}
func (Base) ParseTextureJSON(*state.State, *gltf.Texture, *state.Texture) (bool, error) {
	return false, nil
}
func (Base) ImageFileExtension() string        { return "" }
func (Base) ImportPostParse(*state.State) error { return nil }
func (Base) GenerateSceneNode(*state.State, *state.Node, *scene.Node) (*scene.Node, error) {
	return nil, nil
}
func (Base) ImportNode(*state.State, *state.Node, *scene.Node) error   { return nil }
func (Base) ImportPost(*state.State, *scene.Node) error                 { return nil }
func (Base) ExportPreflight(*state.State, *scene.Node) error            { return nil }
func (Base) ConvertSceneNode(*state.State, *state.Node, *scene.Node) error { return nil }
func (Base) ExportPost(*state.State, *gltf.Document) error              { return nil }

// Registry is an ordered extension list; earlier entries are asked first.
type Registry struct {
	mu   sync.RWMutex
	list []Extension
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Default holds the built-in extensions and anything registered at init.
var Default = NewRegistry()

// Register adds ext to the front or back of the list. Registering the same
// extension twice is a no-op.
func (r *Registry) Register(ext Extension, firstPriority bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.list {
		if e == ext {
			return
		}
	}
	if firstPriority {
		r.list = append([]Extension{ext}, r.list...)
	} else {
		r.list = append(r.list, ext)
	}
}

func (r *Registry) Unregister(ext Extension) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.list {
		if e == ext {
			r.list = append(r.list[:i], r.list[i+1:]...)
			return
		}
	}
}

func (r *Registry) UnregisterAll() {
	r.mu.Lock()
	r.list = nil
	r.mu.Unlock()
}

// List returns a snapshot in priority order.
func (r *Registry) List() []Extension {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Extension(nil), r.list...)
}

// Supports reports whether any registered extension handles name.
func (r *Registry) Supports(name string) bool {
	for _, e := range r.List() {
		for _, s := range e.SupportedExtensions() {
			if s == name {
				return true
			}
		}
	}
	return false
}
