package subscription

import (
	"sync"

	"github.com/mktplane/tradecore/types"
)

// RangeFilter reports whether a sequence falls inside a query's requested
// range.
type RangeFilter func(sequence types.Sequence) bool

// Predicate is an arbitrary caller-supplied filter-expression evaluated
// against a value before it is delivered.
type Predicate[T any] func(value T) bool

type bufferedValue[T any] struct {
	value    T
	sequence types.Sequence
}

// subscription is one (client, query) registration against a single index
// value.
type subscription[T any, Client comparable] struct {
	client      Client
	queryID     string
	rangeFilter RangeFilter
	predicate   Predicate[T]
	committed   bool
	buffer      []bufferedValue[T]
}

// IndexedSubscriptions maps an index (Security, MarketCode, ...) to the set
// of (client, query-id, range, predicate) subscriptions against it, with an
// initialize/commit seam that guarantees no duplicates and no gaps when a
// new subscriber's historical snapshot is spliced against the live stream.
type IndexedSubscriptions[T any, Index comparable, Client comparable] struct {
	mu      sync.Mutex
	entries map[Index][]*subscription[T, Client]
}

// NewIndexedSubscriptions constructs an empty table.
func NewIndexedSubscriptions[T any, Index comparable, Client comparable]() *IndexedSubscriptions[T, Index, Client] {
	return &IndexedSubscriptions[T, Index, Client]{entries: make(map[Index][]*subscription[T, Client])}
}

// Initialize reserves a query-id and registers a buffered subscription:
// real-time values published before Commit are queued rather than
// delivered, so the caller can load a historical snapshot and splice it
// against the buffer without losing or duplicating anything.
func (s *IndexedSubscriptions[T, Index, Client]) Initialize(index Index, client Client, queryID string, rangeFilter RangeFilter, predicate Predicate[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[index] = append(s.entries[index], &subscription[T, Client]{
		client:      client,
		queryID:     queryID,
		rangeFilter: rangeFilter,
		predicate:   predicate,
	})
}

// Commit replays a subscription's buffered values, filtered by range and
// predicate, through deliver, then marks it committed so future Publish
// calls deliver directly instead of buffering.
func (s *IndexedSubscriptions[T, Index, Client]) Commit(index Index, client Client, queryID string, deliver func(value T)) {
	s.mu.Lock()
	var buffered []bufferedValue[T]
	for _, entry := range s.entries[index] {
		if entry.client == client && entry.queryID == queryID {
			buffered = entry.buffer
			entry.buffer = nil
			entry.committed = true
			break
		}
	}
	s.mu.Unlock()

	for _, v := range buffered {
		deliver(v.value)
	}
}

// Publish forwards value (carrying the given index and sequence) to every
// matching subscription whose range covers its sequence and whose
// predicate, plus the caller-supplied entitlement gate, both pass. Entries
// not yet committed queue the value instead of delivering it. deliver is
// invoked once per call with every matching, committed client, and not at
// all when none match.
func (s *IndexedSubscriptions[T, Index, Client]) Publish(index Index, value T, sequence types.Sequence, entitled func(client Client) bool, deliver func(clients []Client)) {
	s.mu.Lock()
	var matched []Client
	for _, entry := range s.entries[index] {
		if entitled != nil && !entitled(entry.client) {
			continue
		}
		if entry.rangeFilter != nil && !entry.rangeFilter(sequence) {
			continue
		}
		if entry.predicate != nil && !entry.predicate(value) {
			continue
		}
		if !entry.committed {
			entry.buffer = append(entry.buffer, bufferedValue[T]{value: value, sequence: sequence})
			continue
		}
		matched = append(matched, entry.client)
	}
	s.mu.Unlock()

	if len(matched) > 0 {
		deliver(matched)
	}
}

// End removes one (client, query-id) subscription from an index.
func (s *IndexedSubscriptions[T, Index, Client]) End(index Index, client Client, queryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.entries[index]
	for i, entry := range list {
		if entry.client == client && entry.queryID == queryID {
			s.entries[index] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// RemoveAll removes every subscription belonging to client, across every
// index, on client disconnect.
func (s *IndexedSubscriptions[T, Index, Client]) RemoveAll(client Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for index, list := range s.entries {
		kept := list[:0]
		for _, entry := range list {
			if entry.client != client {
				kept = append(kept, entry)
			}
		}
		s.entries[index] = kept
	}
}
