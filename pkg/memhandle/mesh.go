package memhandle

import "github.com/mtcl-go/collectives/pkg/collective"

// Mesh wires every pair of n participants with a Handle pair, giving each
// participant an in-process full-mesh view of the others. Callers slice it
// into the root/non-root participant views pkg/collective's strategies
// expect.
type Mesh struct {
	n       int
	handles [][]*Handle // handles[i][j] is i's end of the i<->j connection; nil on the diagonal.
}

// NewMesh builds a full mesh of n participants, one Handle pair per
// unordered pair.
func NewMesh(n int) *Mesh {
	h := make([][]*Handle, n)
	for i := range h {
		h[i] = make([]*Handle, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := NewPair()
			h[i][j] = a
			h[j][i] = b
		}
	}
	return &Mesh{n: n, handles: h}
}

// RootParticipants returns root's view: one Handle per non-root peer, in
// peer-rank order, as pkg/collective's root-view convention requires.
func (m *Mesh) RootParticipants(root int) []collective.Handle {
	out := make([]collective.Handle, 0, m.n-1)
	for rank := 0; rank < m.n; rank++ {
		if rank == root {
			continue
		}
		out = append(out, m.handles[root][rank])
	}
	return out
}

// PeerParticipants returns a non-root rank's view: exactly one Handle, to
// root.
func (m *Mesh) PeerParticipants(rank, root int) []collective.Handle {
	return []collective.Handle{m.handles[rank][root]}
}
