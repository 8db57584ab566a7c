package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexedSubscriptionsBuffersBeforeCommit(t *testing.T) {
	subs := NewIndexedSubscriptions[int, string, string]()
	subs.Initialize("sym", "client-a", "q1", nil, nil)

	var delivered []int
	subs.Publish("sym", 1, 1, nil, func(clients []string) {
		delivered = append(delivered, 1)
	})
	assert.Empty(t, delivered, "values published before commit must buffer, not deliver")

	var replayed []int
	subs.Commit("sym", "client-a", "q1", func(v int) {
		replayed = append(replayed, v)
	})
	require.Len(t, replayed, 1)
	assert.Equal(t, 1, replayed[0])

	subs.Publish("sym", 2, 2, nil, func(clients []string) {
		delivered = append(delivered, 2)
	})
	assert.Equal(t, []int{2}, delivered)
}

func TestIndexedSubscriptionsPredicateFilters(t *testing.T) {
	subs := NewIndexedSubscriptions[int, string, string]()
	isEven := func(v int) bool { return v%2 == 0 }
	subs.Initialize("sym", "client-a", "q1", nil, isEven)
	subs.Commit("sym", "client-a", "q1", func(v int) {})

	var delivered []string
	subs.Publish("sym", 3, 1, nil, func(clients []string) { delivered = append(delivered, clients...) })
	assert.Empty(t, delivered)

	subs.Publish("sym", 4, 2, nil, func(clients []string) { delivered = append(delivered, clients...) })
	assert.Equal(t, []string{"client-a"}, delivered)
}

func TestIndexedSubscriptionsEntitlementGate(t *testing.T) {
	subs := NewIndexedSubscriptions[int, string, string]()
	subs.Initialize("sym", "client-a", "q1", nil, nil)
	subs.Commit("sym", "client-a", "q1", func(v int) {})

	var delivered []string
	entitled := func(client string) bool { return false }
	subs.Publish("sym", 5, 1, entitled, func(clients []string) { delivered = append(delivered, clients...) })
	assert.Empty(t, delivered)
}

func TestIndexedSubscriptionsRemoveAll(t *testing.T) {
	subs := NewIndexedSubscriptions[int, string, string]()
	subs.Initialize("sym1", "client-a", "q1", nil, nil)
	subs.Initialize("sym2", "client-a", "q2", nil, nil)
	subs.Commit("sym1", "client-a", "q1", func(v int) {})
	subs.Commit("sym2", "client-a", "q2", func(v int) {})

	subs.RemoveAll("client-a")

	var delivered []string
	subs.Publish("sym1", 1, 1, nil, func(clients []string) { delivered = append(delivered, clients...) })
	subs.Publish("sym2", 1, 1, nil, func(clients []string) { delivered = append(delivered, clients...) })
	assert.Empty(t, delivered)
}

func TestIndexedSubscriptionsEnd(t *testing.T) {
	subs := NewIndexedSubscriptions[int, string, string]()
	subs.Initialize("sym", "client-a", "q1", nil, nil)
	subs.Initialize("sym", "client-b", "q2", nil, nil)
	subs.Commit("sym", "client-a", "q1", func(v int) {})
	subs.Commit("sym", "client-b", "q2", func(v int) {})

	subs.End("sym", "client-a", "q1")

	var delivered []string
	subs.Publish("sym", 1, 1, nil, func(clients []string) { delivered = append(delivered, clients...) })
	assert.Equal(t, []string{"client-b"}, delivered)
}
