package collective

import "fmt"

// chunkSizes computes the per-rank partitioning of a buffer of total bytes
// split into n shares of datasize-sized elements.
//
// count = total / datasize (total must be divisible by datasize).
// base = (count / n) * datasize; remainder = count % n (an element count).
// The first `remainder` ranks each get one extra element; rank r therefore
// gets base + datasize if r < remainder, else base.
type chunkSizes struct {
	base      int
	remainder int
	datasize  int
}

func newChunkSizes(total, datasize, n int) (chunkSizes, error) {
	if datasize <= 0 {
		return chunkSizes{}, fmt.Errorf("%w: datasize must be positive, got %d", ErrInvalidArgument, datasize)
	}
	if n <= 0 {
		return chunkSizes{}, fmt.Errorf("%w: nparticipants must be positive, got %d", ErrInvalidArgument, n)
	}
	if total%datasize != 0 {
		return chunkSizes{}, fmt.Errorf("%w: total %d not divisible by datasize %d", ErrInvalidArgument, total, datasize)
	}
	count := total / datasize
	return chunkSizes{
		base:      (count / n) * datasize,
		remainder: count % n,
		datasize:  datasize,
	}, nil
}

// chunk returns the byte count owned by rank r.
func (c chunkSizes) chunk(r int) int {
	if r < c.remainder {
		return c.base + c.datasize
	}
	return c.base
}

// displacement returns the byte offset of rank r's share within the packed
// buffer, i.e. sum_{i<r} chunk(i).
func (c chunkSizes) displacement(r int) int {
	d := 0
	for i := 0; i < r; i++ {
		d += c.chunk(i)
	}
	return d
}
