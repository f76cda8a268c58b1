// Package disjointset is an index keyed union-find with path compression.
package disjointset

import "sort"

type Set struct {
	parent map[int]int
	rank   map[int]int
}

func New() *Set {
	return &Set{
		parent: make(map[int]int),
		rank:   make(map[int]int),
	}
}

func (s *Set) Insert(x int) {
	if _, ok := s.parent[x]; !ok {
		s.parent[x] = x
		s.rank[x] = 0
	}
}

func (s *Set) Has(x int) bool {
	_, ok := s.parent[x]
	return ok
}

// Find returns the representative of x, inserting x when absent.
func (s *Set) Find(x int) int {
	s.Insert(x)
	root := x
	for s.parent[root] != root {
		root = s.parent[root]
	}
	for x != root {
		next := s.parent[x]
		s.parent[x] = root
		x = next
	}
	return root
}

func (s *Set) Union(a, b int) {
	ra, rb := s.Find(a), s.Find(b)
	if ra == rb {
		return
	}
	switch {
	case s.rank[ra] < s.rank[rb]:
		s.parent[ra] = rb
	case s.rank[ra] > s.rank[rb]:
		s.parent[rb] = ra
	default:
		s.parent[rb] = ra
		s.rank[ra]++
	}
}

// Representatives lists one element per group, ordered by the smallest
// member of the group.
func (s *Set) Representatives() []int {
	groups := s.groups()
	reps := make([]int, len(groups))
	for i, g := range groups {
		reps[i] = s.Find(g[0])
	}
	return reps
}

// Members returns the sorted members of the group containing x.
func (s *Set) Members(x int) []int {
	r := s.Find(x)
	members := make([]int, 0)
	for e := range s.parent {
		if s.Find(e) == r {
			members = append(members, e)
		}
	}
	sort.Ints(members)
	return members
}

// Groups returns all groups, each sorted, ordered by their smallest member.
func (s *Set) Groups() [][]int {
	return s.groups()
}

func (s *Set) groups() [][]int {
	elems := make([]int, 0, len(s.parent))
	for e := range s.parent {
		elems = append(elems, e)
	}
	sort.Ints(elems)

	index := make(map[int]int)
	result := make([][]int, 0)
	for _, e := range elems {
		r := s.Find(e)
		i, ok := index[r]
		if !ok {
			i = len(result)
			index[r] = i
			result = append(result, nil)
		}
		result[i] = append(result[i], e)
	}
	return result
}

func (s *Set) Len() int { return len(s.parent) }
