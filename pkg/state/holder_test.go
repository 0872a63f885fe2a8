package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junbin-yang/go-realtime/pkg/enum"
	"github.com/junbin-yang/go-realtime/pkg/event"
)

var connStates = enum.MustNew("ConnectionState",
	"initializing", "connecting", "connected", "disconnected")

func TestInitialState(t *testing.T) {
	h := MustNew(connStates)
	assert.Equal(t, "initializing", h.State().Name())
	assert.True(t, h.Is("initializing"))
	assert.False(t, h.Is("connecting"))

	h2, err := New(connStates, WithInitial("connected"))
	require.NoError(t, err)
	assert.True(t, h2.Is("connected"))

	_, err = New(connStates, WithInitial("bogus"))
	assert.ErrorIs(t, err, ErrInvalidStateValue)
}

func TestSetStateIsExclusive(t *testing.T) {
	h := MustNew(connStates)
	for _, s := range connStates.Members() {
		require.NoError(t, h.SetState(s))
		for _, other := range connStates.Members() {
			assert.Equal(t, s.Equal(other), h.Is(other), "after %s checking %s", s, other)
		}
	}
}

func TestSetStateInvalidKeepsPrevious(t *testing.T) {
	h := MustNew(connStates)
	require.NoError(t, h.SetState("connecting"))

	changes := 0
	h.OnChange(func(Change) { changes++ })

	err := h.SetState("invalid")
	assert.ErrorIs(t, err, ErrInvalidStateValue)
	assert.True(t, h.Is("connecting"))
	assert.Equal(t, 0, changes)
	assert.False(t, h.Is("invalid"))
}

func TestSetStateEmitsChange(t *testing.T) {
	em := event.New()
	h := MustNew(connStates, WithEmitter(em))
	assert.Same(t, em, h.Emitter())

	var got []Change
	h.OnChange(func(c Change) { got = append(got, c) })

	named := 0
	em.On("connected", func(args ...interface{}) error {
		named++
		return nil
	})

	require.NoError(t, h.SetState("CONNECTING"))
	require.NoError(t, h.SetState(connStates.MustParse("connected")))

	require.Len(t, got, 2)
	assert.Equal(t, "initializing", got[0].Previous.Name())
	assert.Equal(t, "connecting", got[0].Current.Name())
	assert.Equal(t, "connecting", got[1].Previous.Name())
	assert.Equal(t, "connected", got[1].Current.Name())
	assert.Equal(t, 1, named)
}

func TestPredicates(t *testing.T) {
	h := MustNew(connStates)
	preds := h.Predicates()
	require.Len(t, preds, connStates.Len())

	isConnected, err := h.Predicate("connected")
	require.NoError(t, err)
	assert.False(t, isConnected())

	require.NoError(t, h.SetState("connected"))
	assert.True(t, isConnected())
	assert.True(t, preds["connected"]())
	assert.False(t, preds["initializing"]())

	_, err = h.Predicate("closed")
	assert.ErrorIs(t, err, ErrInvalidStateValue)
}

func TestPredicatesFollowDeclaration(t *testing.T) {
	extended := enum.MustNew("Extended", "initializing", "connecting", "suspended")
	h := MustNew(extended)

	isSuspended, err := h.Predicate("Suspended")
	require.NoError(t, err)
	require.NoError(t, h.SetState("suspended"))
	assert.True(t, isSuspended())
}
