package document

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/animation"
	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
	"github.com/mogaika/scenedoc/utils"
)

// addChild attaches c under parent, renaming it when a sibling already
// carries its name.
func addChild(parent, c *scene.Node) {
	if parent.Child(c.Name) != nil {
		base := c.Name
		for i := 2; ; i++ {
			c.Name = base + strconv.Itoa(i)
			if parent.Child(c.Name) == nil {
				break
			}
		}
	}
	parent.AddChild(c)
}

type generator struct {
	d    *Document
	st   *state.State
	root *scene.Node
}

// GenerateScene builds the host scene of a parsed state: skeletons with
// their bone attachments, mesh instances, cameras, extension nodes and an
// animation player holding every document animation.
func (d *Document) GenerateScene(st *state.State, opts Options) (*scene.Node, error) {
	name := st.SceneName
	if name == "" {
		name = "Scene"
	}
	g := &generator{d: d, st: st, root: scene.NewNode(name, scene.KindSpatial)}

	for _, ri := range st.RootNodes {
		if err := g.node(ri, g.root); err != nil {
			return nil, err
		}
	}
	g.processMeshInstances()

	if st.CreateAnimations && len(st.Animations) > 0 {
		ap := scene.NewNode(st.GenUniqueName("AnimationPlayer"), scene.KindAnimationPlayer)
		ap.Player = scene.NewAnimationPlayer()
		addChild(g.root, ap)
		ao := animation.ImportOptions{BakeFPS: opts.BakeFPS, Trimming: opts.Trimming, RemoveImmutableTracks: opts.RemoveImmutableTracks}
		for i := range st.Animations {
			if _, err := animation.ImportAnimation(st, i, ap, ao); err != nil {
				return nil, errors.Wrapf(err, "import animation %d", i)
			}
		}
	}

	exts := d.active(st)
	indices := make([]int, 0, len(st.SceneNodes))
	for ni := range st.SceneNodes {
		indices = append(indices, ni)
	}
	sort.Ints(indices)
	for _, ni := range indices {
		for _, ext := range exts {
			if err := ext.ImportNode(st, st.Nodes[ni], st.SceneNodes[ni]); err != nil {
				d.log().Warn("extension import node failed", zap.String("stage", "generate"), zap.String("extension", ext.Name()), zap.Int("node", ni), zap.Error(err))
			}
		}
	}
	for _, ext := range exts {
		if err := ext.ImportPost(st, g.root); err != nil {
			d.log().Warn("extension import post failed", zap.String("stage", "generate"), zap.String("extension", ext.Name()), zap.Error(err))
		}
	}
	return g.root, nil
}

func (g *generator) boneAttachment(name string, bone int) *scene.Node {
	ba := scene.NewNode(name, scene.KindBoneAttachment)
	if bone >= 0 && g.st.Nodes[bone].Joint {
		ba.BoneName = g.st.Nodes[bone].Name
	} else {
		g.d.log().Warn("bone attachment target is not a joint", zap.String("stage", "generate"), zap.String("name", name), zap.Int("node", bone))
	}
	return ba
}

// extensionNode lets extensions replace the default node for ni.
func (g *generator) extensionNode(ni int, parent *scene.Node) *scene.Node {
	for _, ext := range g.d.active(g.st) {
		n, err := ext.GenerateSceneNode(g.st, g.st.Nodes[ni], parent)
		if err != nil {
			g.d.log().Warn("extension generate node failed", zap.String("stage", "generate"), zap.String("extension", ext.Name()), zap.Error(err))
			continue
		}
		if n != nil {
			return n
		}
	}
	return nil
}

func (g *generator) meshInstance(ni int) (*scene.Node, error) {
	node := g.st.Nodes[ni]
	if node.Mesh >= len(g.st.Meshes) {
		return nil, errs.Malformed("node %d mesh %d out of range [0,%d)", ni, node.Mesh, len(g.st.Meshes))
	}
	mi := scene.NewNode(node.Name, scene.KindMeshInstance)
	mi.Mesh = g.st.Meshes[node.Mesh].Host
	g.st.MeshInstances[ni] = mi
	return mi, nil
}

func (g *generator) camera(ni int) (*scene.Node, error) {
	node := g.st.Nodes[ni]
	if node.Camera >= len(g.st.Cameras) {
		return nil, errs.Malformed("node %d camera %d out of range [0,%d)", ni, node.Camera, len(g.st.Cameras))
	}
	c := scene.NewNode(node.Name, scene.KindCamera)
	cam := *g.st.Cameras[node.Camera]
	c.Camera = &cam
	return c, nil
}

// defaultNode creates the node kind a document node maps to when no
// extension claims it.
func (g *generator) defaultNode(ni int) (*scene.Node, error) {
	node := g.st.Nodes[ni]
	switch {
	case node.Mesh >= 0:
		return g.meshInstance(ni)
	case node.Camera >= 0:
		return g.camera(ni)
	}
	return scene.NewNode(node.Name, scene.KindSpatial), nil
}

func (g *generator) register(ni int, n *scene.Node) {
	g.st.SceneNodes[ni] = n
	g.st.HostNodeIndex[n] = ni
}

func (g *generator) node(ni int, parent *scene.Node) error {
	node := g.st.Nodes[ni]
	if node.Skeleton >= 0 {
		return g.boneNode(ni, parent)
	}

	// non bone child of a bone, skinned meshes are never attached
	if parent.Kind == scene.KindSkeleton && node.Skin < 0 {
		ba := g.boneAttachment(node.Name, node.Parent)
		addChild(parent, ba)
		parent = ba
	}

	current := g.extensionNode(ni, parent)
	if current == nil {
		var err error
		if node.Skin >= 0 && node.Mesh >= 0 && len(node.Children) > 0 {
			current = scene.NewNode(node.Name, scene.KindSpatial)
			mi, err := g.meshInstance(ni)
			if err != nil {
				return err
			}
			addChild(current, mi)
		} else if current, err = g.defaultNode(ni); err != nil {
			return err
		}
	}
	current.Name = node.Name
	current.Transform = scene.Transform{Translation: node.Translation, Rotation: node.Rotation, Scale: node.Scale}
	addChild(parent, current)
	g.register(ni, current)

	for _, c := range node.Children {
		if err := g.node(c, current); err != nil {
			return err
		}
	}
	return nil
}

// boneNode places the skeleton of a bone node in the tree the first time
// one of its bones is reached. Bone nodes carrying a mesh or camera get an
// extra node, attached to the bone unless it is a skinned mesh.
func (g *generator) boneNode(ni int, parent *scene.Node) error {
	node := g.st.Nodes[ni]
	if node.Skeleton >= len(g.st.Skeletons) {
		return errs.Topo("node %d skeleton %d out of range", ni, node.Skeleton)
	}
	skel := g.st.Skeletons[node.Skeleton].HostSkeleton

	if parent != skel {
		if parent.Kind == scene.KindSkeleton {
			g.d.log().Warn("skeleton parented directly to another skeleton", zap.String("stage", "generate"), zap.Int("node", ni))
			ba := g.boneAttachment(g.st.GenUniqueName("BoneAttachment3D"), node.Parent)
			addChild(parent, ba)
			parent = ba
		}
		if skel.Parent == nil {
			addChild(parent, skel)
		}
	}

	current := skel
	if node.Mesh >= 0 || node.Camera >= 0 {
		if !(node.Skin >= 0 && node.Mesh >= 0) {
			ba := g.boneAttachment(node.Name, ni)
			addChild(skel, ba)
			parent = ba
		}
		current = g.extensionNode(ni, parent)
		if current == nil {
			var err error
			if current, err = g.defaultNode(ni); err != nil {
				return err
			}
		}
		// the bone carries the transform
		current.Name = node.Name
		addChild(parent, current)
		g.st.HostNodeIndex[current] = ni
	}
	g.st.SceneNodes[ni] = current

	for _, c := range node.Children {
		if err := g.node(c, skel); err != nil {
			return err
		}
	}
	return nil
}

// processMeshInstances moves skinned mesh instances under their skeleton
// and binds the skin.
func (g *generator) processMeshInstances() {
	for ni, node := range g.st.Nodes {
		if node.Skin < 0 || node.Mesh < 0 {
			continue
		}
		mi := g.st.MeshInstances[ni]
		if mi == nil {
			g.d.log().Warn("skinned node has no mesh instance", zap.String("stage", "generate"), zap.Int("node", ni))
			continue
		}
		if node.Skin >= len(g.st.Skins) {
			utils.StatusWarnf("node %d skin %d out of range", ni, node.Skin)
			continue
		}
		skin := g.st.Skins[node.Skin]
		if skin.Skeleton < 0 || skin.Skeleton >= len(g.st.Skeletons) {
			utils.StatusWarnf("skin %d has no skeleton", node.Skin)
			continue
		}
		skel := g.st.Skeletons[skin.Skeleton].HostSkeleton
		if skel.Parent == nil {
			addChild(g.root, skel)
		}
		if mi.Parent != nil {
			mi.Parent.RemoveChild(mi)
		}
		addChild(skel, mi)
		mi.Skin = skin.HostSkin
		mi.Skeleton = skel
		mi.Transform = scene.IdentityTransform()
	}
}
