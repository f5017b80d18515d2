package operand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WoolenSweater/rosstat-flc/value"
)

func TestElemArithmetic(t *testing.T) {
	a := NewElem("1", "1", "3", value.Of(10), false, false)
	b := NewElem("1", "1", "4", value.Of(4), false, false)

	sum := a.Add(b)
	assert.Equal(t, 14.0, sum.Val.V)
	assert.Contains(t, sum.Columns, "3")
	assert.Contains(t, sum.Columns, "4")
}

func TestElemRoundAndTruncate(t *testing.T) {
	e := NewElem("1", "1", "3", value.Of(1.2599), false, false)
	e.Round(2, false)
	assert.InDelta(t, 1.26, e.Val.V, 0.001)

	e2 := NewElem("1", "1", "3", value.Of(1.2599), false, false)
	e2.Round(2, true)
	assert.Equal(t, 1.26, e2.Val.V)
}

func TestElemFailRecordsDelta(t *testing.T) {
	l := NewElem("1", "1", "3", value.Of(10), false, false)
	r := NewElem("1", "1", "4", value.Of(7), false, false)
	r.Fail(l, "=")
	assert.False(t, r.Bool)
	assert.Len(t, r.Failures(), 1)
	assert.Equal(t, 3.0, r.Failures()[0].Delta)
}

func TestZipBroadcastReplicatesScalar(t *testing.T) {
	scalar := []*Elem{Scalar(5)}
	list := []*Elem{Scalar(1), Scalar(2), Scalar(3)}

	lp, rp := zipBroadcast(scalar, list)
	assert.Len(t, lp, 3)
	assert.Len(t, rp, 3)
	// each broadcast copy is independent
	lp[0].Val = value.Of(99)
	assert.NotEqual(t, lp[0].Val.V, lp[1].Val.V)
}

func TestElemLogicComparisonWithFault(t *testing.T) {
	left := Scalar(10.0)
	right := Scalar(10.04)
	logic := NewElemLogic(left, "=", right)

	params := &Params{Precision: 2, Fault: 0.05, IsRule: true}
	result := logic.Check(nil, params, nil)
	assert.Len(t, result, 1)
	assert.True(t, result[0].Bool)
}

func TestElemLogicComparisonFailsOutsideFault(t *testing.T) {
	left := Scalar(10.0)
	right := Scalar(10.5)
	logic := NewElemLogic(left, "=", right)

	params := &Params{Precision: 2, Fault: 0.05, IsRule: true}
	result := logic.Check(nil, params, nil)
	assert.False(t, result[0].Bool)
}

func TestBlankRowSuppressesConditionComparison(t *testing.T) {
	left := NewElem("1", "1", "3", value.Of(0), true, true)
	right := NewElem("1", "2", "3", value.Of(0), true, true)
	logic := NewElemLogic(left, "=", right)

	params := &Params{Precision: 2, Fault: 0, IsRule: false}
	result := logic.Check(nil, params, nil)
	assert.False(t, result[0].Bool, "blank rows under a condition never compare equal")
}

func TestApplySumCollapsesWhenBothSidesAreSumExpressions(t *testing.T) {
	el := &ElemList{
		section: "1",
		rows:    toSet([]string{"*"}),
		columns: toSet([]string{"1", "2", "3"}),
		elems: [][]*Elem{
			{Scalar(1), Scalar(2), Scalar(3)},
			{Scalar(4), Scalar(5), Scalar(6)},
		},
	}
	ctx := &ElemList{
		section: "1",
		rows:    toSet([]string{"*"}),
		columns: toSet([]string{"4", "5", "6"}),
		funcs:   []pendingFunc{{name: "sum"}},
	}

	el.applySum(ctx)

	requireLen1x1(t, el.elems)
	assert.Equal(t, 21.0, el.elems[0][0].Val.V)
}

func TestApplySumYieldsNullStubForEmptySection(t *testing.T) {
	el := &ElemList{
		section: "1",
		rows:    toSet([]string{"9"}),
		columns: toSet([]string{"3"}),
	}
	ctx := &ElemList{
		section: "1",
		rows:    toSet([]string{"1"}),
		columns: toSet([]string{"4"}),
	}

	el.applySum(ctx)

	requireLen1x1(t, el.elems)
	assert.True(t, el.elems[0][0].Val.IsNull)
}

func requireLen1x1(t *testing.T, elems [][]*Elem) {
	t.Helper()
	require.Len(t, elems, 1)
	require.Len(t, elems[0], 1)
}

func TestBlankRowAlwaysComparesUnderRule(t *testing.T) {
	left := NewElem("1", "1", "3", value.Of(0), true, true)
	right := NewElem("1", "2", "3", value.Of(0), true, true)
	logic := NewElemLogic(left, "=", right)

	params := &Params{Precision: 2, Fault: 0, IsRule: true}
	result := logic.Check(nil, params, nil)
	assert.True(t, result[0].Bool)
}
