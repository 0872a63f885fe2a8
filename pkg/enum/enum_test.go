package enum

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

var channelStates = MustNew("ChannelState",
	"initialized", "attaching", "attached", "detaching", "detached", "failed")

func TestNewRejectsBadDefinitions(t *testing.T) {
	_, err := New("Empty")
	require.ErrorIs(t, err, ErrInvalidDefinition)

	_, err = New("Dup", "a", "b", "A")
	require.ErrorIs(t, err, ErrInvalidDefinition)

	_, err = New("Blank", "a", " ")
	require.ErrorIs(t, err, ErrInvalidDefinition)

	assert.Panics(t, func() { MustNew("Empty") })
}

func TestMembersKeepDeclarationOrder(t *testing.T) {
	members := channelStates.Members()
	require.Len(t, members, 6)
	for i, m := range members {
		assert.Equal(t, i, m.Index())
	}
	assert.Equal(t, "initialized", channelStates.Initial().Name())
	assert.Equal(t, "failed", members[5].String())

	// 返回的切片是副本
	members[0] = members[1]
	assert.Equal(t, "initialized", channelStates.Members()[0].Name())
}

func TestCoerce(t *testing.T) {
	attached := channelStates.MustParse("attached")

	cases := []interface{}{"attached", "ATTACHED", "  Attached ", 2, attached, stringer("attached")}
	for _, in := range cases {
		v, err := channelStates.Coerce(in)
		require.NoError(t, err, "input %v", in)
		assert.True(t, v.Equal(attached), "input %v", in)
	}

	for _, in := range []interface{}{"attachedx", -1, 6, 2.0, nil, Value{}} {
		_, err := channelStates.Coerce(in)
		assert.ErrorIs(t, err, ErrInvalidValue, "input %v", in)
	}
}

func TestCoerceAcrossEnums(t *testing.T) {
	other := MustNew("Other", "failed", "closed")

	// 同名成员也不能跨枚举使用
	_, err := channelStates.Coerce(other.MustParse("failed"))
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = channelStates.Coerce(other.MustParse("closed"))
	assert.ErrorIs(t, err, ErrInvalidValue)

	v, err := channelStates.Coerce(other.MustParse("failed").Name())
	require.NoError(t, err)
	assert.Equal(t, channelStates, v.Enum())
}

func TestEqual(t *testing.T) {
	a := channelStates.MustParse("attached")
	assert.True(t, a.Equal(channelStates.MustParse("attached")))
	assert.False(t, a.Equal(channelStates.MustParse("attaching")))
	assert.False(t, Value{}.Equal(Value{}))
	assert.True(t, Value{}.IsZero())
	assert.True(t, channelStates.Contains("detached"))
	assert.False(t, channelStates.Contains("closed"))
}

func TestMarshal(t *testing.T) {
	type snapshot struct {
		State Value `json:"state" yaml:"state"`
	}
	s := snapshot{State: channelStates.MustParse("detaching")}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"detaching"}`, string(data))

	out, err := yaml.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, "state: detaching\n", string(out))

	text, err := s.State.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "detaching", string(text))

	_, err = Value{}.MarshalText()
	assert.Error(t, err)
}

type stringer string

func (s stringer) String() string { return string(s) }
