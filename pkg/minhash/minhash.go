// Package minhash estimates Jaccard similarity between token sets in
// sub-linear time: fixed-length signatures whose positionwise agreement
// is an unbiased estimator of shingle-set Jaccard, and a banded LSH
// index that collides near-duplicates into shared buckets.
package minhash

import (
	"math"
	"math/rand"
	"strings"
)

// mersennePrime is the modulus of the hash family, 2^31 - 1.
const mersennePrime uint64 = (1 << 31) - 1

// EmptySentinel fills every signature position when a fragment yields
// no shingles (window larger than the token count).
const EmptySentinel uint32 = math.MaxUint32

// Context carries the seeded hash family. Signatures are comparable
// only under the Context that produced them, so one Context is built
// per run and its seed persisted alongside the dataset. It is passed
// explicitly to every component that computes signatures; nothing is
// stashed in package state.
type Context struct {
	bands       int
	rows        int
	shingleSize int
	a           []uint64
	b           []uint64
}

// NewContext draws bands×rows hash functions h(s) = (a·poly31(s) + b)
// mod 2^31-1 from a deterministic source, so equal seeds reproduce
// equal signatures.
func NewContext(bands, rows, shingleSize int, seed int64) *Context {
	k := bands * rows
	rng := rand.New(rand.NewSource(seed))
	ctx := &Context{
		bands:       bands,
		rows:        rows,
		shingleSize: shingleSize,
		a:           make([]uint64, k),
		b:           make([]uint64, k),
	}
	for i := 0; i < k; i++ {
		// a must be non-zero or the function collapses to a constant.
		ctx.a[i] = uint64(rng.Int63n(int64(mersennePrime-1))) + 1
		ctx.b[i] = uint64(rng.Int63n(int64(mersennePrime)))
	}
	return ctx
}

// Bands returns the band count.
func (c *Context) Bands() int { return c.bands }

// Rows returns the rows per band.
func (c *Context) Rows() int { return c.rows }

// SignatureLength returns bands × rows.
func (c *Context) SignatureLength() int { return c.bands * c.rows }

// poly31 is the polynomial rolling hash of a shingle's characters with
// base 31, reduced mod 2^31-1.
func poly31(s string) uint64 {
	var h uint64
	for i := 0; i < len(s); i++ {
		h = (h*31 + uint64(s[i])) % mersennePrime
	}
	return h
}

// Shingles forms the set of contiguous shingleSize-token windows,
// space-joined. Order within a shingle is preserved; the set discards
// duplicates. A token slice shorter than the window yields none.
func (c *Context) Shingles(tokens []string) map[string]struct{} {
	if len(tokens) < c.shingleSize {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for i := 0; i+c.shingleSize <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+c.shingleSize], " ")] = struct{}{}
	}
	return set
}

// Signature computes the MinHash signature of a token sequence: for
// each hash function, the minimum value over the shingle set. An empty
// shingle set produces the sentinel at every position rather than an
// error.
func (c *Context) Signature(tokens []string) []uint32 {
	k := c.SignatureLength()
	sig := make([]uint32, k)

	shingles := c.Shingles(tokens)
	if len(shingles) == 0 {
		for i := range sig {
			sig[i] = EmptySentinel
		}
		return sig
	}

	mins := make([]uint64, k)
	for i := range mins {
		mins[i] = math.MaxUint64
	}
	for shingle := range shingles {
		v := poly31(shingle)
		for i := 0; i < k; i++ {
			h := (c.a[i]*v + c.b[i]) % mersennePrime
			if h < mins[i] {
				mins[i] = h
			}
		}
	}
	for i := range sig {
		sig[i] = uint32(mins[i])
	}
	return sig
}

// Estimate returns the fraction of positions two signatures agree on —
// the Jaccard estimate over their shingle sets. Mismatched lengths
// estimate 0 rather than panic.
func (c *Context) Estimate(a, b []uint32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}
