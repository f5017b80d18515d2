// Package control implements the per-control formula checker: the
// period-applicability gate, the condition/rule evaluation sequence, and
// the failure message formatting for one control definition.
package control

import (
	"fmt"
	"strings"

	"github.com/WoolenSweater/rosstat-flc/operand"
	"github.com/WoolenSweater/rosstat-flc/parser"
	"github.com/WoolenSweater/rosstat-flc/period"
)

// Def is one control's declaration, as read from the schema's control
// element attributes.
type Def struct {
	ID           string
	Name         string
	Rule         string
	Condition    string
	PeriodClause string
	Fault        float64
	Precision    int
	Tip          bool
}

// ErrExpr reports a malformed rule or condition formula.
type ErrExpr struct {
	Kind    string // "condition" or "rule"
	Control string
	Inner   []string
}

func (e *ErrExpr) Error() string {
	return fmt.Sprintf("control %s: %s formula parse error: %v", e.Control, e.Kind, e.Inner)
}

// ErrPrevPeriod reports a formula that references the previous period
// ("{{...}}"), which this system never evaluates (spec Non-goal).
type ErrPrevPeriod struct {
	Control string
}

func (e *ErrPrevPeriod) Error() string {
	return fmt.Sprintf("control %s: previous-period comparison is not implemented", e.Control)
}

// Failure is one failed rule comparison, ready for message formatting.
type Failure struct {
	ControlID   string
	ControlName string
	Left        float64
	Operator    string
	Right       float64
	Delta       float64
	Tip         bool
}

// Message renders the failure using the fixed Russian template (spec.md
// §4.7): "<id> <name>; слева <L> <op> справа <R> разница <Δ>;
// обязательность <да|нет>".
func (f Failure) Message() string {
	tip := "нет"
	if f.Tip {
		tip = "да"
	}
	return fmt.Sprintf("%s %s; слева %g %s справа %g разница %g; обязательность %s",
		f.ControlID, f.ControlName, f.Left, f.Operator, f.Right, f.Delta, tip)
}

// MatchesPeriod reports whether this control applies to a report declaring
// periodCode, per its periodClause. A blank clause always applies.
func (d Def) MatchesPeriod(periodCode int) (bool, error) {
	clause, err := period.Parse(d.PeriodClause)
	if err != nil {
		return false, err
	}
	return clause.Match(periodCode), nil
}

// Checker runs one control's condition/rule formulas against a report.
type Checker struct {
	Formats   operand.Formats
	Catalogs  operand.Catalogs
	Dimension map[string][]string
	SkipWarns bool
}

// Check evaluates def against report, returning every failed rule
// comparison. An empty, nil-error result means the control's condition
// did not hold (so the rule was never evaluated) or the rule held fully.
func (c *Checker) Check(report operand.Report, def Def) ([]Failure, error) {
	if containsPrevPeriod(def.Condition) || containsPrevPeriod(def.Rule) {
		if c.SkipWarns {
			return nil, nil
		}
		return nil, &ErrPrevPeriod{Control: def.ID}
	}

	conditionHolds, err := c.checkCondition(report, def)
	if err != nil {
		return nil, err
	}
	if !conditionHolds {
		return nil, nil
	}
	return c.checkRule(report, def)
}

func containsPrevPeriod(formula string) bool {
	return strings.Contains(formula, "{{")
}

// checkCondition evaluates the condition formula, always with fault
// disabled (-1) regardless of the control's configured fault, and
// without the "is_rule" relaxation rule comparisons get. It holds when
// every comparison in the tree passed.
func (c *Checker) checkCondition(report operand.Report, def Def) (bool, error) {
	condition := strings.TrimSpace(def.Condition)
	if condition == "" {
		return true, nil
	}
	expr, perrs := parser.ParseExpr(condition)
	if len(perrs) != 0 || expr == nil {
		return false, &ErrExpr{Kind: "condition", Control: def.ID, Inner: perrs}
	}

	params := &operand.Params{
		Formats:   c.Formats,
		Catalogs:  c.Catalogs,
		Dimension: c.Dimension,
		Precision: def.Precision,
		Fault:     -1,
		IsRule:    false,
	}
	results := expr.Check(report, params, nil)
	return !hasFailures(results), nil
}

// checkRule evaluates the rule formula with the control's real fault, and
// returns every comparison failure collected across the tree.
func (c *Checker) checkRule(report operand.Report, def Def) ([]Failure, error) {
	rule := strings.TrimSpace(def.Rule)
	if rule == "" {
		return nil, nil
	}
	expr, perrs := parser.ParseExpr(rule)
	if len(perrs) != 0 || expr == nil {
		return nil, &ErrExpr{Kind: "rule", Control: def.ID, Inner: perrs}
	}

	params := &operand.Params{
		Formats:   c.Formats,
		Catalogs:  c.Catalogs,
		Dimension: c.Dimension,
		Precision: def.Precision,
		Fault:     def.Fault,
		IsRule:    true,
	}
	results := expr.Check(report, params, nil)

	var failures []Failure
	for _, r := range results {
		for _, fl := range r.Failures() {
			failures = append(failures, Failure{
				ControlID:   def.ID,
				ControlName: def.Name,
				Left:        fl.Left,
				Operator:    fl.Operator,
				Right:       fl.Right,
				Delta:       fl.Delta,
				Tip:         def.Tip,
			})
		}
	}
	return failures, nil
}

func hasFailures(elems []*operand.Elem) bool {
	for _, e := range elems {
		if len(e.Failures()) > 0 {
			return true
		}
	}
	return false
}
