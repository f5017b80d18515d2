package validate

import (
	"fmt"
	"strconv"

	"github.com/WoolenSweater/rosstat-flc/control"
	"github.com/WoolenSweater/rosstat-flc/report"
	"github.com/WoolenSweater/rosstat-flc/schema"
)

// checkControls mirrors ControlValidator._check_controls: skip entirely
// on a blank report, else run the period gate then the condition/rule
// sequence for every declared control, accumulating failures without
// short-circuiting the stage.
func checkControls(sch *schema.Schema, rep *report.Report) []subError {
	if rep.Blank() {
		return nil
	}

	periodCode, _ := strconv.Atoi(rep.PeriodCode)
	checker := &control.Checker{
		Formats:   sch,
		Catalogs:  sch,
		Dimension: sch.Dimension,
		SkipWarns: sch.SkipWarns,
	}

	var errs []subError
	for _, def := range sch.Controls {
		matches, err := def.MatchesPeriod(periodCode)
		if err != nil {
			errs = append(errs, controlError(def, err.Error()))
			continue
		}
		if !matches {
			continue
		}

		failures, err := checker.Check(rep, def)
		if err != nil {
			errs = append(errs, controlError(def, err.Error()))
			continue
		}
		for _, f := range failures {
			errs = append(errs, subError{
				Code:    def.ID,
				Message: f.Message(),
				Tip:     boolPtr(def.Tip),
			})
		}
	}
	return errs
}

// controlError wraps a period/parse/previous-period error as one
// validator error, coded with the control's own id the way
// ControlValidator.__check_control always does (self.error(message,
// inspector.id, tip=inspector.tip)).
func controlError(def control.Def, message string) subError {
	return subError{Code: def.ID, Message: fmt.Sprintf("%s %s; %s", def.ID, def.Name, message), Tip: boolPtr(def.Tip)}
}

func boolPtr(v bool) *bool { return &v }
