package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sufield/trz-gateway/internal/domain"
	"github.com/sufield/trz-gateway/internal/registry"
)

func TestPickReturnsErrNotRegisteredWhenEmpty(t *testing.T) {
	t.Parallel()

	r := registry.New()
	_, err := r.Pick("client-a")
	require.ErrorIs(t, err, domain.ErrNotRegistered)
}

// Invariant 3: the registry always dispatches to the connection with
// the fewest in-flight requests among a client's live connections.
func TestPickPrefersLeastLoadedConnection(t *testing.T) {
	t.Parallel()

	r := registry.New()
	id := domain.ClientID("client-a")

	connA := &registry.Connection{ID: r.NewConnectionID()}
	connB := &registry.Connection{ID: r.NewConnectionID()}
	r.Add(id, connA)
	r.Add(id, connB)

	doneA := connA.Begin()
	doneA2 := connA.Begin()
	defer doneA()
	defer doneA2()

	picked, err := r.Pick(id)
	require.NoError(t, err)
	assert.Equal(t, connB.ID, picked.ID)
}

// Ties are broken deterministically by the lowest ConnectionID, so
// repeated sequential picks against equally loaded connections all go
// to the same connection.
func TestPickBreaksTiesByLowestConnectionID(t *testing.T) {
	t.Parallel()

	r := registry.New()
	id := domain.ClientID("client-a")

	first := &registry.Connection{ID: r.NewConnectionID()}
	second := &registry.Connection{ID: r.NewConnectionID()}
	r.Add(id, first)
	r.Add(id, second)

	for i := 0; i < 5; i++ {
		picked, err := r.Pick(id)
		require.NoError(t, err)
		assert.Equal(t, first.ID, picked.ID)
	}
}

func TestRemoveLastConnectionDropsClientEntry(t *testing.T) {
	t.Parallel()

	r := registry.New()
	id := domain.ClientID("client-a")

	conn := &registry.Connection{ID: r.NewConnectionID()}
	r.Add(id, conn)
	require.Len(t, r.ConnectionsFor(id), 1)

	r.Remove(id, conn.ID)
	assert.Empty(t, r.ConnectionsFor(id))

	_, err := r.Pick(id)
	assert.ErrorIs(t, err, domain.ErrNotRegistered)
}

func TestBeginReturnedFuncDecrementsInflight(t *testing.T) {
	t.Parallel()

	conn := &registry.Connection{ID: 1}
	assert.EqualValues(t, 0, conn.Inflight())

	done := conn.Begin()
	assert.EqualValues(t, 1, conn.Inflight())

	done()
	assert.EqualValues(t, 0, conn.Inflight())
}
