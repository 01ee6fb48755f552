package grid

import "sort"

// key identifies a line or face by its sorted global vertex indices; unused
// slots hold -1
type key [4]int

func makeKey(ids ...int) key {
	k := key{-1, -1, -1, -1}
	copy(k[:], ids)
	sort.Ints(k[:len(ids)])
	return k
}

// Len is the number of vertices in the key
func (k key) Len() (n int) {
	for _, id := range k {
		if id >= 0 {
			n++
		}
	}
	return
}

// Vertices returns the vertex indices of the key
func (k key) Vertices() []int {
	return append([]int(nil), k[:k.Len()]...)
}
