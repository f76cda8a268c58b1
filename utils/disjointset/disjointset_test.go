package disjointset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnionFind(t *testing.T) {
	s := New()
	for i := 0; i < 8; i++ {
		s.Insert(i)
	}
	s.Union(5, 1)
	s.Union(1, 3)
	s.Union(7, 6)

	assert.Equal(t, s.Find(5), s.Find(3))
	assert.NotEqual(t, s.Find(5), s.Find(6))
	assert.Equal(t, []int{1, 3, 5}, s.Members(3))
	assert.Equal(t, [][]int{{0}, {1, 3, 5}, {2}, {4}, {6, 7}}, s.Groups())
	assert.Len(t, s.Representatives(), 5)
}

func TestFindInserts(t *testing.T) {
	s := New()
	assert.False(t, s.Has(42))
	assert.Equal(t, 42, s.Find(42))
	assert.True(t, s.Has(42))
	assert.Equal(t, 1, s.Len())
}

func TestLongChainCompresses(t *testing.T) {
	s := New()
	for i := 1; i < 1000; i++ {
		s.Union(i-1, i)
	}
	r := s.Find(999)
	for i := 0; i < 1000; i++ {
		assert.Equal(t, r, s.Find(i))
	}
	assert.Len(t, s.Groups(), 1)
}
