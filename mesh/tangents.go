package mesh

import "github.com/go-gl/mathgl/mgl32"

// GenerateTangents accumulates per triangle UV tangents, orthonormalizes
// them against the vertex normal and stores handedness in W.
func GenerateTangents(positions, normals []mgl32.Vec3, uvs []mgl32.Vec2, indices []int) []mgl32.Vec4 {
	n := len(positions)
	tan := make([]mgl32.Vec3, n)
	btan := make([]mgl32.Vec3, n)

	for i := 0; i+2 < len(indices); i += 3 {
		i0, i1, i2 := indices[i], indices[i+1], indices[i+2]
		if i0 >= n || i1 >= n || i2 >= n || i0 >= len(uvs) || i1 >= len(uvs) || i2 >= len(uvs) {
			continue
		}

		edge1 := positions[i1].Sub(positions[i0])
		edge2 := positions[i2].Sub(positions[i0])
		duv1 := uvs[i1].Sub(uvs[i0])
		duv2 := uvs[i2].Sub(uvs[i0])

		det := duv1[0]*duv2[1] - duv1[1]*duv2[0]
		if det == 0 {
			continue
		}
		inv := 1 / det

		t := edge1.Mul(duv2[1]).Sub(edge2.Mul(duv1[1])).Mul(inv)
		b := edge2.Mul(duv1[0]).Sub(edge1.Mul(duv2[0])).Mul(inv)
		for _, idx := range [3]int{i0, i1, i2} {
			tan[idx] = tan[idx].Add(t)
			btan[idx] = btan[idx].Add(b)
		}
	}

	out := make([]mgl32.Vec4, n)
	for i := range out {
		var normal mgl32.Vec3
		if i < len(normals) {
			normal = normals[i]
		}
		ortho := tan[i].Sub(normal.Mul(normal.Dot(tan[i])))
		if ortho.Len() < 1e-6 {
			out[i] = mgl32.Vec4{1, 0, 0, 1}
			continue
		}
		ortho = ortho.Normalize()

		w := float32(1)
		if normal.Cross(ortho).Dot(btan[i]) < 0 {
			w = -1
		}
		out[i] = ortho.Vec4(w)
	}
	return out
}
