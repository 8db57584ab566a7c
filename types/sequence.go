package types

import (
	"sync"
	"time"
)

// Sequence is a monotone non-decreasing 64-bit ordinal assigned per
// (index, stream) for reliable resume and deduplication.
type Sequence uint64

// Increment returns the next sequence after s, used to continue a paged
// historical query from the last delivered item.
func (s Sequence) Increment() Sequence { return s + 1 }

// SequenceLast is the sentinel upper bound meaning "no upper bound".
const SequenceLast Sequence = ^Sequence(0)

// Sequencer assigns the next sequence to each published value for one
// (index, stream) pair. Every call hands out a strictly greater sequence,
// including calls at identical timestamps; the last timestamp seen is
// recorded but does not affect the sequence.
type Sequencer struct {
	mu            sync.Mutex
	next          Sequence
	lastTimestamp time.Time
}

// NewSequencer constructs a Sequencer that will hand out `next` as its next
// sequence value - the registry seeds this from its InitialSequenceLoader's
// LoadInitialSequences result.
func NewSequencer(next Sequence) *Sequencer {
	return &Sequencer{next: next}
}

// IncrementNextSequence assigns and returns the next sequence for the given
// timestamp. Ties at identical timestamps still increment the ordinal,
// matching the source sequencer's behavior.
func (s *Sequencer) IncrementNextSequence(timestamp time.Time) Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.next
	s.next++
	s.lastTimestamp = timestamp
	return seq
}

// SequencedValue pairs a value with the sequence assigned to it at
// publication and the security it was published for.
type SequencedValue[T any] struct {
	Value    T
	Sequence Sequence
	Security Security
}

// MakeSequencedValue stamps a value with the next sequence from the
// sequencer.
func MakeSequencedValue[T any](seq *Sequencer, value T, security Security, timestamp time.Time) SequencedValue[T] {
	return SequencedValue[T]{
		Value:    value,
		Sequence: seq.IncrementNextSequence(timestamp),
		Security: security,
	}
}
