package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkRecorder struct {
	events []string
	errs   []error
}

func (s *sinkRecorder) sink(name string, err error) {
	s.events = append(s.events, name)
	s.errs = append(s.errs, err)
}

func TestEmitOrder(t *testing.T) {
	e := New()
	var calls []string

	e.OnAny(func(name string, args ...interface{}) error {
		calls = append(calls, "any:"+name)
		return nil
	})
	e.On("attached", func(args ...interface{}) error {
		calls = append(calls, "first")
		return nil
	})
	e.On("attached", func(args ...interface{}) error {
		calls = append(calls, "second")
		return nil
	})
	e.On("detached", func(args ...interface{}) error {
		calls = append(calls, "other")
		return nil
	})

	e.Emit("attached")
	assert.Equal(t, []string{"first", "second", "any:attached"}, calls)
}

func TestEmitPassesArgs(t *testing.T) {
	e := New()
	var got []interface{}
	e.On("state changed", func(args ...interface{}) error {
		got = args
		return nil
	})

	e.Emit("state changed", "attaching", 42)
	assert.Equal(t, []interface{}{"attaching", 42}, got)
}

func TestEmitWithoutListenersIsNoop(t *testing.T) {
	rec := &sinkRecorder{}
	e := New(WithErrorSink(rec.sink))
	e.Emit("nothing", 1, 2)
	assert.Empty(t, rec.errs)
}

func TestListenerFaultIsolation(t *testing.T) {
	rec := &sinkRecorder{}
	e := New(WithErrorSink(rec.sink))
	boom := errors.New("boom")
	reached := 0

	e.On("failed", func(args ...interface{}) error { return boom })
	e.On("failed", func(args ...interface{}) error { panic("listener crashed") })
	e.On("failed", func(args ...interface{}) error {
		reached++
		return nil
	})
	e.OnAny(func(name string, args ...interface{}) error {
		reached++
		return nil
	})

	assert.NotPanics(t, func() { e.Emit("failed") })
	assert.Equal(t, 2, reached)
	require.Len(t, rec.errs, 2)
	assert.ErrorIs(t, rec.errs[0], boom)
	assert.Contains(t, rec.errs[1].Error(), "listener crashed")
	assert.Equal(t, []string{"failed", "failed"}, rec.events)
}

func TestOffAndOnce(t *testing.T) {
	e := New()
	count := 0
	inc := func(args ...interface{}) error {
		count++
		return nil
	}

	reg := e.On("attached", inc)
	e.Once("attached", inc)
	require.Equal(t, 2, e.ListenerCount("attached"))

	e.Emit("attached")
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, e.ListenerCount("attached"))

	e.Off(reg)
	e.Off(reg)
	e.Off(nil)
	e.Emit("attached")
	assert.Equal(t, 2, count)
	assert.Equal(t, 0, e.ListenerCount("attached"))
	assert.Equal(t, "attached", reg.Event())
}

func TestOffEventAndOffAll(t *testing.T) {
	e := New()
	count := 0
	inc := func(args ...interface{}) error {
		count++
		return nil
	}
	e.On("a", inc)
	e.On("b", inc)
	e.OnAny(func(name string, args ...interface{}) error {
		count++
		return nil
	})

	e.OffEvent("a")
	e.Emit("a")
	assert.Equal(t, 1, count)

	e.OffAll()
	e.Emit("a")
	e.Emit("b")
	assert.Equal(t, 1, count)
}

func TestReentrantRegistration(t *testing.T) {
	e := New()
	inner := 0
	e.On("outer", func(args ...interface{}) error {
		e.On("inner", func(args ...interface{}) error {
			inner++
			return nil
		})
		e.Emit("inner")
		return nil
	})

	e.Emit("outer")
	assert.Equal(t, 1, inner)
}
