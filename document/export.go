package document

import (
	"go.uber.org/zap"

	"github.com/mogaika/scenedoc/animation"
	"github.com/mogaika/scenedoc/errs"
	"github.com/mogaika/scenedoc/extension"
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
)

type converter struct {
	d    *Document
	st   *state.State
	exts []extension.Extension

	meshes  map[*scene.ImporterMesh]int
	skinned []skinnedInstance
	players []*scene.Node
}

type skinnedInstance struct {
	node int
	host *scene.Node
}

// AppendFromScene converts a host scene into document state. root becomes
// the single root node. Skeletons turn into joint node chains, their bone
// attachments parent children to the joint, and animation players are
// converted once every node is known.
func (d *Document) AppendFromScene(root *scene.Node, flags ImportFlags) (*state.State, error) {
	st := state.New()
	flags.apply(st)
	st.SceneName = root.Name
	st.Filename = root.Name

	c := &converter{d: d, st: st, meshes: make(map[*scene.ImporterMesh]int)}
	if d.Extensions != nil {
		for _, ext := range d.Extensions.List() {
			if err := ext.ExportPreflight(st, root); err != nil {
				d.log().Debug("extension skipped for export", zap.String("stage", "export"), zap.String("extension", ext.Name()), zap.Error(err))
				continue
			}
			c.exts = append(c.exts, ext)
		}
	}
	d.setActive(st, c.exts)

	if err := c.node(root, -1); err != nil {
		return nil, err
	}
	if err := st.ComputeNodeHeights(); err != nil {
		return nil, err
	}
	if err := c.skins(); err != nil {
		return nil, err
	}

	fps := d.BakeFPS
	for _, p := range c.players {
		base := p.Parent
		if base == nil {
			base = p
		}
		for _, lib := range p.Player.LibraryNames() {
			l := p.Player.Libraries[lib]
			for _, name := range l.Names() {
				if animation.ConvertAnimation(st, base, l.Get(name), fps) == nil {
					d.log().Debug("animation has no convertible tracks", zap.String("stage", "export"), zap.String("animation", name))
				}
			}
		}
	}

	d.log().Info("converted scene", zap.String("stage", "export"), zap.String("scene", st.SceneName),
		zap.Int("nodes", len(st.Nodes)), zap.Int("meshes", len(st.Meshes)),
		zap.Int("skins", len(st.Skins)), zap.Int("animations", len(st.Animations)))
	return st, nil
}

func (c *converter) mesh(m *scene.ImporterMesh) int {
	if i, ok := c.meshes[m]; ok {
		return i
	}
	i := len(c.st.Meshes)
	c.st.Meshes = append(c.st.Meshes, &state.Mesh{Host: m, BlendWeights: make([]float32, len(m.BlendShapes))})
	c.meshes[m] = i
	return i
}

func (c *converter) node(host *scene.Node, parent int) error {
	switch host.Kind {
	case scene.KindSkeleton:
		return c.skeleton(host, parent)
	case scene.KindBoneAttachment:
		return c.boneAttachment(host, parent)
	case scene.KindAnimationPlayer:
		if host.Player != nil {
			c.players = append(c.players, host)
		}
		return nil
	}

	st := c.st
	n := state.NewNode()
	n.Name = st.GenUniqueName(host.Name)
	n.SetTRS(host.Transform.Translation, host.Transform.Rotation, host.Transform.Scale)

	switch host.Kind {
	case scene.KindMeshInstance:
		if host.Mesh != nil {
			n.Mesh = c.mesh(host.Mesh)
		}
	case scene.KindCamera:
		if host.Camera != nil {
			cam := *host.Camera
			n.Camera = len(st.Cameras)
			st.Cameras = append(st.Cameras, &cam)
		}
	}
	for _, ext := range c.exts {
		if err := ext.ConvertSceneNode(st, n, host); err != nil {
			c.d.log().Warn("extension convert node failed", zap.String("stage", "export"), zap.String("extension", ext.Name()), zap.Error(err))
		}
	}

	ni := st.AddNode(n, parent)
	st.SceneNodes[ni] = host
	st.HostNodeIndex[host] = ni
	if host.Kind == scene.KindMeshInstance && host.Skin != nil && host.Skeleton != nil {
		c.skinned = append(c.skinned, skinnedInstance{node: ni, host: host})
	}

	for _, child := range host.Children {
		if err := c.node(child, ni); err != nil {
			return err
		}
	}
	return nil
}

// skeleton emits one joint node per bone. The skeleton node itself has no
// document counterpart, its children attach to the skeleton's parent.
func (c *converter) skeleton(host *scene.Node, parent int) error {
	st := c.st
	sk := state.NewSkeleton()
	sk.HostSkeleton = host
	skelI := len(st.Skeletons)
	st.Skeletons = append(st.Skeletons, sk)

	for bi, b := range host.Bones.Bones {
		jn := state.NewNode()
		jn.Name = st.GenUniqueName(b.Name)
		jn.SetTRS(b.Pose.Translation, b.Pose.Rotation, b.Pose.Scale)
		jn.Joint = true
		jn.Skeleton = skelI
		ni := len(st.Nodes)
		st.Nodes = append(st.Nodes, jn)
		st.SceneNodes[ni] = host

		sk.Joints = append(sk.Joints, ni)
		if b.Parent < 0 {
			sk.Roots = append(sk.Roots, ni)
		}
		sk.BoneNode[bi] = ni
	}
	for bi, b := range host.Bones.Bones {
		ni := sk.BoneNode[bi]
		p := parent
		if b.Parent >= 0 {
			if b.Parent >= len(host.Bones.Bones) {
				return errs.Topo("bone %q parent %d out of range", b.Name, b.Parent)
			}
			p = sk.BoneNode[b.Parent]
		}
		st.Nodes[ni].Parent = p
		if p >= 0 && !st.Nodes[p].HasChild(ni) {
			st.Nodes[p].Children = append(st.Nodes[p].Children, ni)
		}
	}

	for _, child := range host.Children {
		if err := c.node(child, parent); err != nil {
			return err
		}
	}
	return nil
}

func (c *converter) skeletonIndex(host *scene.Node) int {
	for i, sk := range c.st.Skeletons {
		if sk.HostSkeleton == host {
			return i
		}
	}
	return -1
}

// boneAttachment parents its children to the joint node of its bone.
func (c *converter) boneAttachment(host *scene.Node, parent int) error {
	target := parent
	if skel := host.Parent; skel != nil && skel.Kind == scene.KindSkeleton {
		if si := c.skeletonIndex(skel); si >= 0 {
			if bone := skel.Bones.FindBone(host.BoneName); bone >= 0 {
				target = c.st.Skeletons[si].BoneNode[bone]
			}
		}
	}
	for _, child := range host.Children {
		if err := c.node(child, target); err != nil {
			return err
		}
	}
	return nil
}

// skins creates one document skin per distinct host skin and skeleton pair
// used by a mesh instance.
func (c *converter) skins() error {
	type key struct {
		skin *scene.Skin
		skel *scene.Node
	}
	made := make(map[key]int)
	st := c.st

	for _, si := range c.skinned {
		k := key{si.host.Skin, si.host.Skeleton}
		if idx, ok := made[k]; ok {
			st.Nodes[si.node].Skin = idx
			continue
		}
		skelI := c.skeletonIndex(si.host.Skeleton)
		if skelI < 0 {
			c.d.log().Warn("skinned mesh skeleton is not part of the scene", zap.String("stage", "export"), zap.String("node", st.Nodes[si.node].Name))
			continue
		}
		sk := st.Skeletons[skelI]
		bones := si.host.Skin.Resolve(si.host.Skeleton.Bones)

		skin := state.NewSkin()
		skin.Name = si.host.Skin.Name
		skin.Skeleton = skelI
		for i, b := range bones {
			ni, ok := sk.BoneNode[b]
			if !ok {
				return errs.Topo("skin %q bind %d references missing bone %d", skin.Name, i, b)
			}
			skin.JointsOriginal = append(skin.JointsOriginal, ni)
			skin.Joints = append(skin.Joints, ni)
			skin.InverseBinds = append(skin.InverseBinds, si.host.Skin.Binds[i].Pose)
			skin.JointIToBoneI[i] = b
			skin.JointIToName[i] = st.Nodes[ni].Name
		}
		skin.Roots = append(skin.Roots, sk.Roots...)
		if len(sk.Roots) == 1 {
			skin.SkinRoot = sk.Roots[0]
		}
		skin.HostSkin = si.host.Skin

		idx := len(st.Skins)
		st.Skins = append(st.Skins, skin)
		made[k] = idx
		st.Nodes[si.node].Skin = idx
	}
	if len(st.Skins) > 0 {
		c.d.log().Debug("converted skins", zap.String("stage", "export"), zap.Int("count", len(st.Skins)))
	}
	return nil
}
