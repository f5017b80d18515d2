package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromString(t *testing.T) {
	n := FromString("12.5")
	assert.False(t, n.IsNull)
	assert.Equal(t, 12.5, n.V)

	n = FromString("not-a-number")
	assert.True(t, n.IsNull)
	assert.Equal(t, 0.0, n.V)
}

func TestNullPropagation(t *testing.T) {
	null := Nullable{IsNull: true}
	five := Of(5)

	assert.True(t, null.Add(null).IsNull)
	assert.False(t, null.Add(five).IsNull, "one non-null operand clears the flag")
	assert.Equal(t, 5.0, null.Add(five).V)

	assert.True(t, null.Abs().IsNull)
	assert.True(t, null.Round(2).IsNull)
	assert.True(t, null.Floor().IsNull)
}

func TestDivisionByZeroLeavesLeftUnchanged(t *testing.T) {
	n := Of(7)
	zero := Of(0)
	assert.Equal(t, 7.0, n.Div(zero).V)
}

func TestTruncate(t *testing.T) {
	n := Of(1.2599)
	assert.Equal(t, 1.26, n.Truncate(2).V)
}

func TestRound(t *testing.T) {
	n := Of(1.005)
	assert.InDelta(t, 1.0, n.Round(2).V, 0.001)
}
