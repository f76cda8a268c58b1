// Package mesh assembles host surfaces from document primitives and back.
package mesh

// Joint and weight channels come in groups of four per vertex
const JointGroupSize = 4

// FlipWinding swaps the second and third index of every full triangle in
// place. Applying it twice restores the input.
func FlipWinding(indices []int) {
	for k := 0; k+2 < len(indices); k += 3 {
		indices[k+1], indices[k+2] = indices[k+2], indices[k+1]
	}
}

// SequentialIndices returns 0..n-1 for the full triangles of n vertices,
// already in flipped winding.
func SequentialIndices(n int) []int {
	n -= n % 3
	indices := make([]int, n)
	for k := 0; k < n; k += 3 {
		indices[k] = k
		indices[k+1] = k + 2
		indices[k+2] = k + 1
	}
	return indices
}

// NormalizeWeights rescales every group of size weights to sum to one.
// Groups summing to zero or less are left untouched.
func NormalizeWeights(w []float32, size int) {
	for k := 0; k+size <= len(w); k += size {
		var total float32
		for _, v := range w[k : k+size] {
			total += v
		}
		if total > 0 {
			for i := k; i < k+size; i++ {
				w[i] /= total
			}
		}
	}
}

// MergeGroups interleaves two 4 wide channels into one 8 wide channel:
// per vertex the four values of a followed by the four values of b.
func MergeGroups[T any](a, b []T, vertexCount int) []T {
	const g = JointGroupSize
	out := make([]T, vertexCount*g*2)
	for v := 0; v < vertexCount; v++ {
		if (v+1)*g <= len(a) {
			copy(out[v*g*2:], a[v*g:(v+1)*g])
		}
		if (v+1)*g <= len(b) {
			copy(out[v*g*2+g:], b[v*g:(v+1)*g])
		}
	}
	return out
}

// SplitGroups is the inverse of MergeGroups.
func SplitGroups[T any](merged []T) (a, b []T) {
	const g = JointGroupSize
	vertexCount := len(merged) / (g * 2)
	a = make([]T, vertexCount*g)
	b = make([]T, vertexCount*g)
	for v := 0; v < vertexCount; v++ {
		copy(a[v*g:(v+1)*g], merged[v*g*2:])
		copy(b[v*g:(v+1)*g], merged[v*g*2+g:])
	}
	return a, b
}
