package minhash

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Pair is a candidate pair of snippet ordinals, A < B.
type Pair struct {
	A int
	B int
}

// Index is the in-memory banded LSH index for one run. It is
// single-owner: built during an index stage and discarded with it.
type Index struct {
	ctx     *Context
	buckets map[uint64][]int
	order   []uint64 // bucket keys in first-insertion order
	size    int
}

// NewIndex returns an empty index over the given context's banding.
func NewIndex(ctx *Context) *Index {
	return &Index{ctx: ctx, buckets: make(map[uint64][]int)}
}

// Len returns the number of signatures added.
func (ix *Index) Len() int { return ix.size }

// bucketKey hashes one band slice of a signature, salted with the band
// index so identical row values in different bands never collide.
func bucketKey(band int, rows []uint32) uint64 {
	buf := make([]byte, 8+4*len(rows))
	binary.LittleEndian.PutUint64(buf, uint64(band))
	for i, v := range rows {
		binary.LittleEndian.PutUint32(buf[8+4*i:], v)
	}
	sum := blake3.Sum256(buf)
	return binary.LittleEndian.Uint64(sum[:8])
}

// Add inserts a signature under the given ordinal, bucketing each of
// its bands.
func (ix *Index) Add(ordinal int, sig []uint32) {
	for band := 0; band < ix.ctx.bands; band++ {
		start := band * ix.ctx.rows
		key := bucketKey(band, sig[start:start+ix.ctx.rows])
		if _, ok := ix.buckets[key]; !ok {
			ix.order = append(ix.order, key)
		}
		ix.buckets[key] = append(ix.buckets[key], ordinal)
	}
	ix.size++
}

// Candidates returns the ordinals sharing at least one bucket with the
// given signature, without inserting it. Used by the de-dup pass.
func (ix *Index) Candidates(sig []uint32) []int {
	seen := make(map[int]struct{})
	var out []int
	for band := 0; band < ix.ctx.bands; band++ {
		start := band * ix.ctx.rows
		key := bucketKey(band, sig[start:start+ix.ctx.rows])
		for _, ordinal := range ix.buckets[key] {
			if _, dup := seen[ordinal]; dup {
				continue
			}
			seen[ordinal] = struct{}{}
			out = append(out, ordinal)
		}
	}
	return out
}

// CandidatePairs emits every distinct pair drawn from a bucket with at
// least two members. Emission order is bucket insertion order, then
// pair order within the bucket, which fixes downstream cluster
// labelling.
func (ix *Index) CandidatePairs() []Pair {
	seen := make(map[Pair]struct{})
	var pairs []Pair
	for _, key := range ix.order {
		bucket := ix.buckets[key]
		if len(bucket) < 2 {
			continue
		}
		for i := 0; i < len(bucket); i++ {
			for j := i + 1; j < len(bucket); j++ {
				a, b := bucket[i], bucket[j]
				if a == b {
					continue
				}
				if a > b {
					a, b = b, a
				}
				p := Pair{A: a, B: b}
				if _, dup := seen[p]; dup {
					continue
				}
				seen[p] = struct{}{}
				pairs = append(pairs, p)
			}
		}
	}
	return pairs
}
