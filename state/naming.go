package state

import (
	"strconv"
	"strings"
)

var nodeNameReplacer = strings.NewReplacer(".", "_", ":", "_", "@", "_", "/", "_", "\"", "_", "%", "_")

func SanitizeNodeName(name string) string {
	return nodeNameReplacer.Replace(name)
}

func SanitizeBoneName(name string) string {
	return strings.NewReplacer(":", "_", "/", "_").Replace(name)
}

func SanitizeAnimationName(name string) string {
	return strings.NewReplacer(",", "", "[", "").Replace(SanitizeNodeName(name))
}

func uniqueIn(set map[string]struct{}, base, sep string) string {
	name := base
	for index := 2; ; index++ {
		if _, taken := set[name]; !taken {
			break
		}
		name = base + sep + strconv.Itoa(index)
	}
	set[name] = struct{}{}
	return name
}

// GenUniqueName returns a scene wide unique node name; repeats get 2, 3, ... appended.
func (st *State) GenUniqueName(name string) string {
	return uniqueIn(st.UniqueNames, SanitizeNodeName(name), "")
}

func (st *State) GenUniqueAnimationName(name string) string {
	return uniqueIn(st.UniqueAnimationNames, SanitizeAnimationName(name), "")
}

// GenUniqueBoneName is unique only within the given skeleton; repeats get _2, _3, ...
func (st *State) GenUniqueBoneName(skeleton int, name string) string {
	s := SanitizeBoneName(name)
	if s == "" {
		s = "bone"
	}
	sk := st.Skeletons[skeleton]
	if sk.UniqueNames == nil {
		sk.UniqueNames = make(map[string]struct{})
	}
	return uniqueIn(sk.UniqueNames, s, "_")
}
