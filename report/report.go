// Package report implements the in-memory Report/Section/Row tree that
// the control evaluator reads cells from.
package report

import (
	"strconv"

	"github.com/WoolenSweater/rosstat-flc/operand"
	"github.com/WoolenSweater/rosstat-flc/specific"
)

// reportIgnoreSpec is the row-level specific value that always matches
// regardless of what the formula's specific filter asks for.
const reportIgnoreSpec = "XX"

// Row is one physical occurrence of a report row (a section/row-code
// instance, possibly one of several sharing the same code/specifics).
type Row struct {
	Code string
	S1   string
	S2   string
	S3   string

	cols  map[string]string
	blank bool
}

// NewRow builds an empty row. AddCol must be called to populate it, or it
// remains blank.
func NewRow(code, s1, s2, s3 string) *Row {
	return &Row{Code: code, S1: s1, S2: s2, S3: s3, cols: map[string]string{}, blank: true}
}

// AddCol records one column's cell value and clears the blank flag.
func (r *Row) AddCol(colCode, text string) {
	r.cols[colCode] = text
	r.blank = false
}

// Blank reports whether the report supplied no column values for this row.
func (r *Row) Blank() bool { return r.blank }

// Value returns the raw text of column colCode and whether it was present
// at all (present=false means the report omitted the column entirely,
// distinct from an empty string value).
func (r *Row) Value(colCode string) (string, bool) {
	v, ok := r.cols[colCode]
	return v, ok
}

func (r *Row) specs() [3]string { return [3]string{r.S1, r.S2, r.S3} }

// Section holds every row of one report section, in document order.
type Section struct {
	Code string

	rows     []*Row
	rowCodes []string
	seen     map[string]bool
	order    []string // unique row codes, first-seen order
}

// NewSection builds an empty section.
func NewSection(code string) *Section {
	return &Section{Code: code, seen: map[string]bool{}}
}

// AddRow appends one row occurrence under rowCode.
func (s *Section) AddRow(rowCode string, row *Row) {
	s.rows = append(s.rows, row)
	s.rowCodes = append(s.rowCodes, rowCode)
	if !s.seen[rowCode] {
		s.seen[rowCode] = true
		s.order = append(s.order, rowCode)
	}
}

// Rows implements operand.Section: for each requested row code (or every
// code in document order when codes is nil), it collects every occurrence
// whose specifics satisfy specs.
func (s *Section) Rows(codes []string, specs [3]*specific.Specific) []operand.RowGroup {
	if codes == nil {
		codes = s.order
	}
	groups := make([]operand.RowGroup, 0, len(codes))
	for _, code := range codes {
		var matched []operand.Row
		for i, rc := range s.rowCodes {
			if rc != code {
				continue
			}
			if matchesSpecs(s.rows[i].specs(), specs) {
				matched = append(matched, s.rows[i])
			}
		}
		groups = append(groups, operand.RowGroup{Code: code, Rows: matched})
	}
	return groups
}

func matchesSpecs(rowSpecs [3]string, want [3]*specific.Specific) bool {
	for i := 0; i < 3; i++ {
		if rowSpecs[i] == reportIgnoreSpec {
			continue
		}
		if want[i] == nil {
			continue
		}
		if !want[i].Match(rowSpecs[i]) {
			return false
		}
	}
	return true
}

// TitleItem is one (name, value) pair from the report's title header.
type TitleItem struct {
	Name  string
	Value string
}

// RowKey identifies a (row_code, s1, s2, s3) tuple for duplicate counting.
type RowKey struct {
	Code, S1, S2, S3 string
}

// Report is the whole parsed document: title, period/year metadata, and
// the section tree the evaluator reads from.
type Report struct {
	Title       []TitleItem
	Year        string
	PeriodRaw   string // raw @period attribute, as read from the XML
	PeriodType  string // empty when not yet resolved
	PeriodCode  string
	RowCounters map[RowKey]int

	sections map[string]*Section
	blank    bool
}

// New builds an empty Report; callers (normally internal/xmlio) populate
// it via AddSection/SetPeriod/etc. while parsing the source document.
func New() *Report {
	return &Report{sections: map[string]*Section{}, blank: true, RowCounters: map[RowKey]int{}}
}

// AddSection registers section under its code.
func (r *Report) AddSection(sec *Section) { r.sections[sec.Code] = sec }

// HasSection reports whether the report tree actually contains section
// code, distinct from Section's convenience of returning an empty
// placeholder for any code (used by the format stage to detect sections
// the schema declares but the report omits entirely).
func (r *Report) HasSection(code string) bool {
	_, ok := r.sections[code]
	return ok
}

// Section implements operand.Report.
func (r *Report) Section(code string) operand.Section {
	s, ok := r.sections[code]
	if !ok {
		return NewSection(code)
	}
	return s
}

// Blank reports whether no column value was read anywhere in the report.
func (r *Report) Blank() bool { return r.blank }

// MarkNonBlank clears the blank flag; called once per column value read
// while building the tree.
func (r *Report) MarkNonBlank() { r.blank = false }

// IncrementRowCounter records one more occurrence of the given row/specific
// combination, matching invariant (i)/(ii) of the report data model.
func (r *Report) IncrementRowCounter(code, s1, s2, s3 string) {
	r.RowCounters[RowKey{code, s1, s2, s3}]++
}

// SetPeriod decomposes a raw period attribute into period_type/period_code
// when it is a 4-character code, or leaves period_type unset and stores
// the raw value as period_code otherwise.
func (r *Report) SetPeriod(raw string) {
	r.PeriodRaw = raw
	if len(raw) == 4 {
		r.PeriodType = canonicalize(raw[:2])
		r.PeriodCode = canonicalize(raw[2:])
		return
	}
	r.PeriodCode = canonicalize(raw)
}

func canonicalize(s string) string {
	if n, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(n)
	}
	return s
}

// ErrPeriodRepair reports that SetPeriods could not reconcile the report's
// raw period against the schema's expected period type.
type ErrPeriodRepair struct{}

func (e *ErrPeriodRepair) Error() string { return "unable to repair report period" }

// SetPeriods repairs a report whose period_code is missing, deriving
// period_type/period_code from the raw period value against the
// admissible period set P (the schema's s_time or s_mes catalog ids) and
// the schema's expected period type idp.
//
// If raw is not a member of P, repair fails outright. Otherwise let
// M = max(P). If M <= idp, period_type/period_code are accepted as
// idp/raw. Otherwise d = gcd({M} ∪ P); if M <= idp*d, period_type is idp
// and period_code is raw/d (integer division). Any other case is
// unrepairable.
func (r *Report) SetPeriods(periodIDs []string, idp int, raw string) error {
	rawN, err := strconv.Atoi(raw)
	if err != nil {
		return &ErrPeriodRepair{}
	}

	p := make([]int, 0, len(periodIDs))
	for _, id := range periodIDs {
		n, err := strconv.Atoi(id)
		if err != nil {
			continue
		}
		p = append(p, n)
	}
	if len(p) == 0 {
		return &ErrPeriodRepair{}
	}
	if !containsInt(p, rawN) {
		return &ErrPeriodRepair{}
	}

	m := p[0]
	for _, v := range p[1:] {
		if v > m {
			m = v
		}
	}

	if m <= idp {
		r.PeriodType = strconv.Itoa(idp)
		r.PeriodCode = strconv.Itoa(rawN)
		return nil
	}

	d := gcdAll(append(append([]int{}, p...), m))
	if d > 0 && m <= idp*d {
		r.PeriodType = strconv.Itoa(idp)
		r.PeriodCode = strconv.Itoa(rawN / d)
		return nil
	}

	return &ErrPeriodRepair{}
}

func containsInt(vals []int, v int) bool {
	for _, n := range vals {
		if n == v {
			return true
		}
	}
	return false
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

func gcdAll(vals []int) int {
	if len(vals) == 0 {
		return 0
	}
	result := vals[0]
	for _, v := range vals[1:] {
		result = gcd(result, v)
	}
	return result
}
