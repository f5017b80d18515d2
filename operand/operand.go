// Package operand implements the runtime values the control-expression
// parser builds directly while parsing a formula, mirroring the way the
// original grammar's semantic actions construct Elem/ElemList/ElemLogic/
// ElemSelector objects with no separate AST pass in between.
package operand

import (
	"math"
	"strconv"
	"strings"

	"github.com/WoolenSweater/rosstat-flc/specific"
	"github.com/WoolenSweater/rosstat-flc/value"
)

// Row is one physical report row: a section/row-code occurrence that may
// be a genuine data row or a blank stand-in inserted where the report
// omits an expected row entirely.
type Row interface {
	Blank() bool
	Value(colCode string) (raw string, present bool)
}

// Section exposes the rows of one report section, pre-filtered by row code
// and by the specific axes (s1/s2/s3), in report document order.
type Section interface {
	// Rows returns one entry per matched row code, in the order the codes
	// were requested (or document order when codes is nil, meaning "*").
	// An entry's Rows is empty when the report has no occurrence of that
	// row code at all (the caller must synthesize a stub row).
	Rows(codes []string, specs [3]*specific.Specific) []RowGroup
}

// RowGroup is every occurrence of one row code (normally one, more than
// one only when the report legitimately repeats a row/specific combination).
type RowGroup struct {
	Code string
	Rows []Row
}

// Report is the minimal read surface ElemList needs from the report tree.
type Report interface {
	Section(code string) Section
}

// Formats answers "what catalog backs specific axis idx of this row,
// and what is its default", the way SchemaFormats.get_spec_params does.
type Formats interface {
	SpecParams(section, rowCode string, specIdx int) (dic string, def string, ok bool)
}

// Catalogs answers "what are the ordered term ids of catalog name".
type Catalogs interface {
	IDs(dic string) []string
}

// Params bundles everything an ElemList needs to read and evaluate itself
// beyond the report tree: the schema's format/catalog tables, the
// section's column dimension, and the control's own tuning knobs.
type Params struct {
	Formats   Formats
	Catalogs  Catalogs
	Dimension map[string][]string // section -> ordered column codes
	Precision int
	Fault     float64
	IsRule    bool
}

// Elem is one evaluated cell: a value plus the coordinates it was read
// from and the trail of control failures recorded against it.
type Elem struct {
	Section  map[string]struct{}
	Rows     map[string]struct{}
	Columns  map[string]struct{}
	BlankRow bool
	Stub     bool
	Bool     bool
	Val      value.Nullable

	failures []Failure
}

// Failure records one failed comparison for later message formatting.
type Failure struct {
	Left     float64
	Operator string
	Right    float64
	Delta    float64
}

// NewElem builds a single-cell Elem.
func NewElem(section, row, col string, v value.Nullable, stub, blankRow bool) *Elem {
	return &Elem{
		Section:  set(section),
		Rows:     set(row),
		Columns:  set(col),
		BlankRow: blankRow,
		Stub:     stub,
		Bool:     true,
		Val:      v,
	}
}

// Scalar builds a literal numeric Elem carrying no coordinates, used for
// number literals in formulas.
func Scalar(v float64) *Elem {
	return &Elem{Rows: map[string]struct{}{}, Columns: map[string]struct{}{}, Section: map[string]struct{}{}, Bool: true, Val: value.Of(v)}
}

func set(v string) map[string]struct{} { return map[string]struct{}{v: {}} }

func union(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func (e *Elem) Add(o *Elem) *Elem { return e.arith(o, e.Val.Add(o.Val)) }
func (e *Elem) Sub(o *Elem) *Elem { return e.arith(o, e.Val.Sub(o.Val)) }
func (e *Elem) Mul(o *Elem) *Elem { return e.arith(o, e.Val.Mul(o.Val)) }
func (e *Elem) Div(o *Elem) *Elem { return e.arith(o, e.Val.Div(o.Val)) }

func (e *Elem) arith(o *Elem, result value.Nullable) *Elem {
	e.Rows = union(e.Rows, o.Rows)
	e.Columns = union(e.Columns, o.Columns)
	e.Val = result
	return e
}

// Neg, Abs, Floor mutate and return the receiver, matching the original's
// in-place element mutation during function application.
func (e *Elem) Neg() *Elem   { e.Val = e.Val.Neg(); return e }
func (e *Elem) Abs() *Elem   { e.Val = e.Val.Abs(); return e }
func (e *Elem) Floor() *Elem { e.Val = e.Val.Floor(); return e }

// Round rounds to ndig digits, or applies value.Nullable.Truncate (a
// fixed ndig-digit formatting of the value) when trunc is true.
func (e *Elem) Round(ndig int, trunc bool) {
	if trunc {
		e.Val = e.Val.Truncate(ndig)
	} else {
		e.Val = e.Val.Round(ndig)
	}
}

// IsNull replaces a null or zero value with replace (a column the row
// omits is read as a non-null 0 stub) and clears the stub flag.
func (e *Elem) IsNull(replace float64) {
	if e.Val.IsNull || e.Val.V == 0 {
		e.Val = value.Of(replace)
	}
	e.Stub = false
}

// Fail records a failed comparison against l and flips Bool to false.
func (e *Elem) Fail(l *Elem, opName string) {
	e.Bool = false
	e.failures = append(e.failures, Failure{
		Left:     l.Val.V,
		Operator: opName,
		Right:    e.Val.V,
		Delta:    math.Round((l.Val.V-e.Val.V)*100) / 100,
	})
}

// Failures returns the accumulated comparison failures.
func (e *Elem) Failures() []Failure { return e.failures }

func (e *Elem) appendFailures(from *Elem) { e.failures = append(e.failures, from.failures...) }

// Checkable is implemented by every node the evaluator can resolve to a
// flat list of Elems: single cells, cell-slice lists, logical comparisons
// and selector functions all satisfy it.
type Checkable interface {
	Check(report Report, params *Params, ctx Checkable) []*Elem
	RowSet() map[string]struct{}
	ColSet() map[string]struct{}
}

// Check on a bare Elem returns itself; it is already resolved.
func (e *Elem) Check(_ Report, _ *Params, _ Checkable) []*Elem { return []*Elem{e} }
func (e *Elem) RowSet() map[string]struct{}                   { return e.Rows }
func (e *Elem) ColSet() map[string]struct{}                   { return e.Columns }

// pendingFunc queues a function application parsed after the cell-slice
// literal it modifies, applied in order once the slice is read from the
// report (mirrors ElemList.add_func / _apply_funcs).
type pendingFunc struct {
	name string
	args []Checkable
}

// ElemList is a still-unresolved cell-slice literal: a section/row/column
// coordinate plus zero or more specific filters and queued functions.
type ElemList struct {
	section string
	rows    map[string]struct{}
	columns map[string]struct{}
	specs   [3]*specific.Specific

	funcs []pendingFunc
	elems [][]*Elem
}

// NewElemList builds an unresolved cell-slice reference. rows/columns use
// the literal "*" entry to mean "every row/column in the section".
func NewElemList(section string, rows, columns []string, specs [3]*specific.Specific) *ElemList {
	return &ElemList{
		section: section,
		rows:    toSet(expandCodes(rows)),
		columns: toSet(expandCodes(columns)),
		specs:   specs,
	}
}

func toSet(vals []string) map[string]struct{} {
	out := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		out[v] = struct{}{}
	}
	return out
}

// expandCodes expands "a-b" range literals in a row or column code list
// into the inclusive run of integer codes between a and b; any other token
// (including the wildcard "*") passes through unchanged. Row and column
// codes are plain integers, so unlike specific.Specific.Expand this needs
// no catalog to index against (spec.md §4.3, §8 law 8).
func expandCodes(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		start, end, ok := splitCodeRange(v)
		if !ok {
			out = append(out, v)
			continue
		}
		si, serr := strconv.Atoi(start)
		ei, eerr := strconv.Atoi(end)
		if serr != nil || eerr != nil {
			out = append(out, v)
			continue
		}
		if si > ei {
			si, ei = ei, si
		}
		for i := si; i <= ei; i++ {
			out = append(out, strconv.Itoa(i))
		}
	}
	return out
}

// splitCodeRange splits "a-b" into its endpoints. A token containing a dot
// is never a range (it would collide with decimal-looking codes).
func splitCodeRange(tok string) (start, end string, ok bool) {
	if !strings.Contains(tok, "-") || strings.Contains(tok, ".") {
		return "", "", false
	}
	parts := strings.SplitN(tok, "-", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// AddFunc queues a function application, applied left-to-right against the
// resolved cells once Check reads them from the report.
func (el *ElemList) AddFunc(name string, args ...Checkable) {
	el.funcs = append(el.funcs, pendingFunc{name: name, args: args})
}

func (el *ElemList) RowSet() map[string]struct{} { return el.rows }
func (el *ElemList) ColSet() map[string]struct{} { return el.columns }

// Check resolves the slice against report, applies queued functions, and
// returns the flattened element list.
func (el *ElemList) Check(report Report, params *Params, ctx Checkable) []*Elem {
	el.prepareSpecs(params)
	el.readData(report, params.Dimension)
	el.applyFuncs(report, params, ctx)
	return el.flatten()
}

func (el *ElemList) prepareSpecs(params *Params) {
	rowCode := ""
	for r := range el.rows {
		rowCode = r
		break
	}
	for i := 0; i < 3; i++ {
		spec := el.specs[i]
		if spec == nil {
			el.specs[i] = specific.Any()
			continue
		}
		if !spec.NeedExpand() {
			continue
		}
		dic, def, ok := params.Formats.SpecParams(el.section, rowCode, i+1)
		if !ok {
			continue
		}
		spec.SetDefault(def)
		spec.Expand(params.Catalogs.IDs(dic))
	}
}

func (el *ElemList) readData(report Report, dimension map[string][]string) {
	sec := report.Section(el.section)
	codes := keysOrNil(el.rows)
	for _, group := range sec.Rows(codes, el.specs) {
		if len(group.Rows) == 0 {
			el.elems = append(el.elems, el.emptyRow(group.Code, dimension))
			continue
		}
		for _, raw := range group.Rows {
			el.elems = append(el.elems, el.readRow(raw, group.Code, dimension))
		}
	}
}

func keysOrNil(s map[string]struct{}) []string {
	if _, ok := s["*"]; ok || len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

func (el *ElemList) colCodes(dimension map[string][]string) []string {
	if _, ok := el.columns["*"]; ok || len(el.columns) == 0 {
		return dimension[el.section]
	}
	out := make([]string, 0, len(el.columns))
	for c := range el.columns {
		out = append(out, c)
	}
	return out
}

func (el *ElemList) readRow(raw Row, rowCode string, dimension map[string][]string) []*Elem {
	var row []*Elem
	for _, col := range el.colCodes(dimension) {
		raw_, present := raw.Value(col)
		v := value.FromString(raw_)
		stub := !present
		if !present {
			v = value.Of(0)
		}
		row = append(row, NewElem(el.section, rowCode, col, v, stub, raw.Blank()))
	}
	return row
}

func (el *ElemList) emptyRow(rowCode string, dimension map[string][]string) []*Elem {
	var row []*Elem
	for _, col := range el.colCodes(dimension) {
		row = append(row, NewElem(el.section, rowCode, col, value.Of(0), true, true))
	}
	return row
}

func (el *ElemList) applyFuncs(report Report, params *Params, ctx Checkable) {
	for _, f := range el.funcs {
		switch f.name {
		case "sum":
			el.applySum(ctx)
		case "abs", "floor", "neg":
			el.applyUnary(f.name)
		case "round", "isnull":
			el.applyBinary(report, params, f.name, f.args)
		default:
			el.applyMath(report, params, f.name, f.args[0])
		}
	}
}

// applySum implements the sum-routing rule: grand-total when the
// comparison is SUM against SUM, by-column when the slice shares columns
// with the comparison context, by-row when it shares rows, a null stub
// when the slice read no cells, grand-total otherwise (spec.md §4.4).
func (el *ElemList) applySum(ctx Checkable) {
	if ctxIsSumExpr(ctx) {
		el.grandTotal()
		return
	}
	if ctx != nil && sameSet(el.columns, ctx.ColSet()) {
		cols := transpose(el.elems)
		var out [][]*Elem
		for _, col := range cols {
			out = append(out, []*Elem{reduceAdd(col)})
		}
		el.elems = out
		return
	}
	if ctx != nil && sameSet(el.rows, ctx.RowSet()) {
		var out [][]*Elem
		for _, row := range el.elems {
			out = append(out, []*Elem{reduceAdd(row)})
		}
		el.elems = out
		return
	}
	if len(el.elems) == 0 {
		el.elems = [][]*Elem{{nullStub(el.section)}}
		return
	}
	el.grandTotal()
}

func (el *ElemList) grandTotal() {
	var all []*Elem
	for _, row := range el.elems {
		all = append(all, row...)
	}
	el.elems = [][]*Elem{{reduceAdd(all)}}
}

// ctxIsSumExpr reports whether ctx is itself a cell-slice with a queued
// sum function, i.e. both sides of the comparison are SUM expressions
// (the grammar's own example SUM{[1][*][1-3]} |=| SUM{[1][*][4-6]}).
func ctxIsSumExpr(ctx Checkable) bool {
	other, ok := ctx.(*ElemList)
	if !ok {
		return false
	}
	for _, f := range other.funcs {
		if f.name == "sum" {
			return true
		}
	}
	return false
}

// nullStub yields the single null-valued element produced when a sum
// slice reads no cells (an empty section).
func nullStub(section string) *Elem {
	e := Scalar(0)
	e.Section = set(section)
	e.Stub = true
	e.Val = value.Null(0)
	return e
}

func sameSet(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func transpose(rows [][]*Elem) [][]*Elem {
	if len(rows) == 0 {
		return nil
	}
	width := len(rows[0])
	cols := make([][]*Elem, width)
	for _, row := range rows {
		for i, e := range row {
			if i < width {
				cols[i] = append(cols[i], e)
			}
		}
	}
	return cols
}

func reduceAdd(elems []*Elem) *Elem {
	if len(elems) == 0 {
		return Scalar(0)
	}
	acc := elems[0]
	for _, e := range elems[1:] {
		acc = acc.Add(e)
	}
	return acc
}

func (el *ElemList) applyUnary(name string) {
	for _, row := range el.elems {
		for _, e := range row {
			switch name {
			case "abs":
				e.Abs()
			case "floor":
				e.Floor()
			case "neg":
				e.Neg()
			}
		}
	}
}

func (el *ElemList) applyBinary(report Report, params *Params, name string, args []Checkable) {
	intArgs := make([]int, 0, len(args))
	for _, a := range args {
		resolved := a.Check(report, params, el)
		if len(resolved) == 0 {
			intArgs = append(intArgs, 0)
			continue
		}
		intArgs = append(intArgs, int(resolved[0].Val.V))
	}
	for _, row := range el.elems {
		for _, e := range row {
			switch name {
			case "round":
				nd := 0
				trunc := false
				if len(intArgs) > 0 {
					nd = intArgs[0]
				}
				if len(intArgs) > 1 {
					trunc = intArgs[1] != 0
				}
				e.Round(nd, trunc)
			case "isnull":
				repl := 0
				if len(intArgs) > 0 {
					repl = intArgs[0]
				}
				e.IsNull(float64(repl))
			}
		}
	}
}

func (el *ElemList) applyMath(report Report, params *Params, name string, other Checkable) {
	left := el.flatten()
	right := other.Check(report, params, el)

	lp, rp := zipBroadcast(left, right)
	el.elems = nil
	for i := range lp {
		var result *Elem
		switch name {
		case "+":
			result = lp[i].Add(rp[i])
		case "-":
			result = lp[i].Sub(rp[i])
		case "*":
			result = lp[i].Mul(rp[i])
		case "/":
			result = lp[i].Div(rp[i])
		}
		el.elems = append(el.elems, []*Elem{result})
	}
}

// zipBroadcast pairs up left/right element lists. When the shorter list is
// exactly length 1, it is deep-copied to the longer length so every pair
// gets an independent Elem rather than aliasing the same one.
func zipBroadcast(left, right []*Elem) ([]*Elem, []*Elem) {
	if len(left) == len(right) {
		return left, right
	}
	if len(left) == 1 && len(right) > 1 {
		return broadcast(left[0], len(right)), right
	}
	if len(right) == 1 && len(left) > 1 {
		return left, broadcast(right[0], len(left))
	}
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	return left[:n], right[:n]
}

func broadcast(e *Elem, n int) []*Elem {
	out := make([]*Elem, n)
	for i := 0; i < n; i++ {
		cp := *e
		cp.failures = append([]Failure(nil), e.failures...)
		out[i] = &cp
	}
	return out
}

func (el *ElemList) flatten() []*Elem {
	var out []*Elem
	for _, row := range el.elems {
		out = append(out, row...)
	}
	return out
}

// ElemLogic is a comparison (|<|, |=|, ...) or logical and/or node joining
// two Checkable subtrees.
type ElemLogic struct {
	left, right Checkable
	opName      string
	opFunc      func(float64, float64) bool

	params *Params
	elems  []*Elem
}

var comparisonOps = map[string]func(float64, float64) bool{
	"<":  func(a, b float64) bool { return a < b },
	"<=": func(a, b float64) bool { return a <= b },
	"=":  func(a, b float64) bool { return a == b },
	">":  func(a, b float64) bool { return a > b },
	">=": func(a, b float64) bool { return a >= b },
	"<>": func(a, b float64) bool { return a != b },
	"and": func(a, b float64) bool { return a != 0 && b != 0 },
	"or":  func(a, b float64) bool { return a != 0 || b != 0 },
}

// NewElemLogic builds a comparison/logic node. opName is one of
// "<","<=","=",">=",">","<>","and","or".
func NewElemLogic(left Checkable, opName string, right Checkable) *ElemLogic {
	return &ElemLogic{left: left, right: right, opName: opName, opFunc: comparisonOps[opName]}
}

func (el *ElemLogic) RowSet() map[string]struct{} { return el.left.RowSet() }
func (el *ElemLogic) ColSet() map[string]struct{} { return el.left.ColSet() }

// Check evaluates both sides, pairs them up, and runs the comparison,
// returning the left-hand elements (now carrying pass/fail state and any
// accumulated failure trail), matching the original's left-biased result.
func (el *ElemLogic) Check(report Report, params *Params, _ Checkable) []*Elem {
	el.params = params
	lefts := el.left.Check(report, params, el.right)
	rights := el.right.Check(report, params, el.left)
	lp, rp := zipBroadcast(lefts, rights)

	el.elems = nil
	useBool := el.opName == "and" || el.opName == "or"
	for i := range lp {
		l, r := lp[i], rp[i]
		ok := el.canCompare(l, r) && el.compare(l, r, useBool)
		if !ok {
			r.Fail(l, el.opName)
			l.Bool = false
			l.appendFailures(r)
		} else if el.opName != "or" {
			l.appendFailures(r)
		}
		el.elems = append(el.elems, l)
	}
	return el.elems
}

// canCompare reports whether a pair may be compared at all: a rule always
// compares, but under condition evaluation a comparison (not and/or) with
// a blank row on either side is not compared and counts as a failure, so
// the condition does not hold.
func (el *ElemLogic) canCompare(l, r *Elem) bool {
	if el.params.IsRule {
		return true
	}
	if (l.BlankRow || r.BlankRow) && el.opName != "and" && el.opName != "or" {
		return false
	}
	return true
}

func (el *ElemLogic) compare(l, r *Elem, useBool bool) bool {
	l.Round(el.params.Precision, false)
	r.Round(el.params.Precision, false)

	var lv, rv float64
	if useBool {
		lv, rv = boolToFloat(l.Bool), boolToFloat(r.Bool)
	} else {
		lv, rv = l.Val.V, r.Val.V
	}
	if el.opFunc(lv, rv) {
		return true
	}
	return math.Abs(l.Val.V-r.Val.V) <= el.params.Fault
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ElemSelector resolves coalesce(...)/nullif(a,b) by picking or comparing
// among its operands rather than combining their values arithmetically.
type ElemSelector struct {
	action string
	elems  []Checkable
	funcs  []pendingFunc
	result [][]*Elem
}

// NewElemSelector builds a coalesce/nullif selector over elems.
func NewElemSelector(action string, elems ...Checkable) *ElemSelector {
	return &ElemSelector{action: action, elems: elems}
}

func (s *ElemSelector) RowSet() map[string]struct{} {
	if len(s.elems) == 0 {
		return map[string]struct{}{}
	}
	return s.elems[0].RowSet()
}

func (s *ElemSelector) ColSet() map[string]struct{} {
	if len(s.elems) == 0 {
		return map[string]struct{}{}
	}
	return s.elems[0].ColSet()
}

// AddFunc queues a post-selection function, same as ElemList.AddFunc.
func (s *ElemSelector) AddFunc(name string, args ...Checkable) {
	s.funcs = append(s.funcs, pendingFunc{name: name, args: args})
}

func (s *ElemSelector) Check(report Report, params *Params, ctx Checkable) []*Elem {
	lines := make([][]*Elem, len(s.elems))
	maxLen := 0
	for i, e := range s.elems {
		lines[i] = e.Check(report, params, ctx)
		if len(lines[i]) > maxLen {
			maxLen = len(lines[i])
		}
	}
	for i := range lines {
		if len(lines[i]) == 1 && maxLen > 1 {
			lines[i] = broadcast(lines[i][0], maxLen)
		}
	}

	s.result = nil
	switch s.action {
	case "nullif":
		s.applyNullif(lines)
	case "coalesce":
		s.applyCoalesce(lines)
	}

	for _, f := range s.funcs {
		s.applyFunc(report, params, f)
	}
	return s.flatten()
}

func (s *ElemSelector) applyNullif(lines [][]*Elem) {
	if len(lines) < 2 {
		return
	}
	l, r := lines[0], lines[1]
	n := len(l)
	if len(r) < n {
		n = len(r)
	}
	for i := 0; i < n; i++ {
		if l[i].Val.V == r[i].Val.V && l[i].Val.IsNull == r[i].Val.IsNull {
			s.result = append(s.result, []*Elem{NewElem("", "", "", value.Null(0), true, false)})
		} else {
			s.result = append(s.result, []*Elem{l[i]})
		}
	}
}

func (s *ElemSelector) applyCoalesce(lines [][]*Elem) {
	if len(lines) == 0 {
		return
	}
	n := len(lines[0])
	for i := 0; i < n; i++ {
		var pick *Elem
		for _, line := range lines {
			if i < len(line) && !line[i].Val.IsNull {
				pick = line[i]
				break
			}
		}
		if pick == nil && i < len(lines[0]) {
			pick = lines[0][i]
		}
		s.result = append(s.result, []*Elem{pick})
	}
}

func (s *ElemSelector) applyFunc(report Report, params *Params, f pendingFunc) {
	switch f.name {
	case "abs", "floor", "neg":
		for _, row := range s.result {
			for _, e := range row {
				switch f.name {
				case "abs":
					e.Abs()
				case "floor":
					e.Floor()
				case "neg":
					e.Neg()
				}
			}
		}
	case "round", "isnull":
		intArgs := make([]int, 0, len(f.args))
		for _, a := range f.args {
			resolved := a.Check(report, params, nil)
			if len(resolved) > 0 {
				intArgs = append(intArgs, int(resolved[0].Val.V))
			}
		}
		for _, row := range s.result {
			for _, e := range row {
				if f.name == "round" {
					nd := 0
					if len(intArgs) > 0 {
						nd = intArgs[0]
					}
					e.Round(nd, false)
				} else {
					repl := 0
					if len(intArgs) > 0 {
						repl = intArgs[0]
					}
					e.IsNull(float64(repl))
				}
			}
		}
	}
}

func (s *ElemSelector) flatten() []*Elem {
	var out []*Elem
	for _, row := range s.result {
		out = append(out, row...)
	}
	return out
}
