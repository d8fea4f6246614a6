// Package index provides a flat (brute-force) vector index over squared
// Euclidean distance. The index is immutable once built; a corpus change
// always produces a fresh index rather than an in-place update.
package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Hit is one nearest-neighbor result. Index refers to the vector's
// position in build order; Distance is squared L2, lower is better.
type Hit struct {
	Index    int
	Distance float64
}

// Flat stores vectors in insertion order and searches them exhaustively.
type Flat struct {
	vecs [][]float32
	dim  int
}

// Build constructs an index from the given vectors. All vectors must share
// one dimensionality; it stays constant for the life of the index.
func Build(vectors [][]float32) (*Flat, error) {
	f := &Flat{}
	if len(vectors) == 0 {
		return f, nil
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, errors.New("index: zero-dimension vector")
	}
	for i := range vectors {
		if len(vectors[i]) != dim {
			return nil, fmt.Errorf("index: inconsistent vector dims %d vs %d at position %d", len(vectors[i]), dim, i)
		}
	}

	f.vecs = append([][]float32(nil), vectors...)
	f.dim = dim
	return f, nil
}

// Count returns the number of indexed vectors.
func (f *Flat) Count() int {
	return len(f.vecs)
}

// Dimension returns the vector dimensionality, or 0 for an empty index.
func (f *Flat) Dimension() int {
	return f.dim
}

// Search returns up to k nearest neighbors of query, ascending by squared
// L2 distance. An empty index yields an empty result, not an error.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(f.vecs) == 0 {
		return nil, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("index: query dim %d != index dim %d", len(query), f.dim)
	}

	hits := make([]Hit, len(f.vecs))
	for i, vec := range f.vecs {
		hits[i] = Hit{Index: i, Distance: l2Squared(query, vec)}
	}

	sort.Slice(hits, func(a, b int) bool { return hits[a].Distance < hits[b].Distance })

	if k <= 0 || k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func l2Squared(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// MarshalBinary stores: dim(uint32), n(uint32), then n*dim float32 values,
// all little-endian.
func (f *Flat) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 8+4*f.dim*len(f.vecs))

	var scratch [4]byte
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:], v)
		out = append(out, scratch[:]...)
	}

	putU32(uint32(f.dim))
	putU32(uint32(len(f.vecs)))
	for _, vec := range f.vecs {
		for _, v := range vec {
			putU32(math.Float32bits(v))
		}
	}
	return out, nil
}

// UnmarshalBinary restores the index from bytes. Truncated or malformed
// input returns an explicit format error; callers treat it as "rebuild
// required", never as an empty index.
func (f *Flat) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return errors.New("index: invalid data")
	}

	dim := int(binary.LittleEndian.Uint32(data[0:4]))
	n := int(binary.LittleEndian.Uint32(data[4:8]))

	if n > 0 && dim == 0 {
		return errors.New("index: zero dimension with nonzero count")
	}
	want := 8 + 4*dim*n
	if len(data) != want {
		return fmt.Errorf("index: expected %d bytes for %d vectors of dim %d, got %d", want, n, dim, len(data))
	}

	vecs := make([][]float32, n)
	off := 8
	for i := 0; i < n; i++ {
		vec := make([]float32, dim)
		for j := 0; j < dim; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		vecs[i] = vec
	}

	f.vecs = vecs
	if n == 0 {
		f.dim = 0
	} else {
		f.dim = dim
	}
	return nil
}
