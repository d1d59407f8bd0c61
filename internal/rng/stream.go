// Package rng provides explicit, splittable random-number streams.
//
// A Stream is identified by a 16-byte name-based key. Child streams are derived
// from the parent key and a label, so a stream never depends on hidden global
// state:
//
//	root := rng.New(0, "dropout")
//	step := root.Fork()          // advances root, returns the stream for this step
//	keep := step.Bernoulli(0.5)
//
// Two streams built from the same (seed, name) produce identical draws.
package rng

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/google/uuid"
)

// namespace roots every stream key.
var namespace = uuid.MustParse("5f0c6a3e-2b7d-4c1e-9a8f-3d6b1e4c7a90")

// Key identifies a stream. Equal keys yield identical sequences.
type Key = uuid.UUID

// Source is the draw interface consumed by tensor creation and initialization.
type Source interface {
	Float64() float64
	NormFloat64() float64
}

// Stream is a deterministic random stream with an explicit fork counter.
//
// A Stream is not safe for concurrent use.
type Stream struct {
	key     Key
	counter uint64
	rnd     *rand.Rand
}

// New creates the root stream for a seed and a caller-chosen name.
func New(seed uint64, name string) *Stream {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	root := uuid.NewSHA1(namespace, b[:])
	return FromKey(uuid.NewSHA1(root, []byte(name)))
}

// FromKey recreates a stream from a key, with a zero fork counter.
func FromKey(key Key) *Stream {
	hi := binary.LittleEndian.Uint64(key[:8])
	lo := binary.LittleEndian.Uint64(key[8:])
	return &Stream{
		key: key,
		rnd: rand.New(rand.NewPCG(hi, lo)), //nolint:gosec // G404: reproducible ML randomness, not security-critical
	}
}

// Key returns the stream key.
func (s *Stream) Key() Key {
	return s.key
}

// Counter returns how many times Fork has been called.
func (s *Stream) Counter() uint64 {
	return s.counter
}

// Seek sets the fork counter, so the next Fork returns the stream for step
// counter. A stream recreated with FromKey and seeked to a saved counter
// continues the saved sequence of forks.
func (s *Stream) Seek(counter uint64) {
	s.counter = counter
}

// Split derives an independent child stream for label.
// The parent is not advanced: Split(label) is a pure function of the key.
func (s *Stream) Split(label string) *Stream {
	return FromKey(uuid.NewSHA1(s.key, append([]byte("split:"), label...)))
}

// Fork advances the fork counter and returns the stream for that step.
// Successive forks never return the same stream.
func (s *Stream) Fork() *Stream {
	b := make([]byte, 0, 13)
	b = append(b, "fork:"...)
	b = binary.LittleEndian.AppendUint64(b, s.counter)
	s.counter++
	return FromKey(uuid.NewSHA1(s.key, b))
}

// Float64 returns a uniform draw in [0, 1).
func (s *Stream) Float64() float64 {
	return s.rnd.Float64()
}

// NormFloat64 returns a standard normal draw.
func (s *Stream) NormFloat64() float64 {
	return s.rnd.NormFloat64()
}

// Bernoulli returns true with probability keep.
func (s *Stream) Bernoulli(keep float64) bool {
	return s.rnd.Float64() < keep
}
