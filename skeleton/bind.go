package skeleton

import (
	"github.com/mogaika/scenedoc/scene"
	"github.com/mogaika/scenedoc/state"
)

// CreateSkins builds a host skin per skin in original joint order. Binds
// are named when st.UseNamedSkinBinds is set, bone indexed otherwise.
// Skins without inverse bind matrices bind with identity.
func CreateSkins(st *state.State) error {
	for _, skin := range st.Skins {
		host := &scene.Skin{}
		binds := skin.InverseBinds
		if len(binds) == 0 {
			binds = identityBinds(len(skin.JointsOriginal))
		}

		for jointI, ni := range skin.JointsOriginal {
			if st.UseNamedSkinBinds {
				host.AddNamedBind(st.Nodes[ni].Name, binds[jointI])
			} else {
				host.AddBind(skin.JointIToBoneI[jointI], binds[jointI])
			}
		}
		skin.HostSkin = host
	}

	removeDuplicateSkins(st)

	for _, skin := range st.Skins {
		if skin.HostSkin.Name == "" {
			skin.HostSkin.Name = st.GenUniqueName("Skin")
		}
	}
	return nil
}

func skinsAreSame(a, b *scene.Skin) bool {
	if len(a.Binds) != len(b.Binds) {
		return false
	}
	for i := range a.Binds {
		ba, bb := a.Binds[i], b.Binds[i]
		if ba.Bone != bb.Bone || ba.Name != bb.Name || ba.Pose != bb.Pose {
			return false
		}
	}
	return true
}

// removeDuplicateSkins points skins with equal binds at one host skin.
func removeDuplicateSkins(st *state.State) {
	for i := range st.Skins {
		for j := i + 1; j < len(st.Skins); j++ {
			if skinsAreSame(st.Skins[i].HostSkin, st.Skins[j].HostSkin) {
				st.Skins[j].HostSkin = st.Skins[i].HostSkin
			}
		}
	}
}

// Resolve runs the whole skin pipeline on a parsed node hierarchy.
func Resolve(st *state.State) error {
	if len(st.Skins) == 0 {
		return nil
	}
	if err := DetermineSkeletons(st); err != nil {
		return err
	}
	if err := CreateSkeletons(st); err != nil {
		return err
	}
	return CreateSkins(st)
}
