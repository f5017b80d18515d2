package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/WoolenSweater/rosstat-flc/control"
	"github.com/WoolenSweater/rosstat-flc/report"
	"github.com/WoolenSweater/rosstat-flc/schema"
)

func newSchema(idp, obj string) *schema.Schema {
	sch := schema.New()
	sch.IDP = idp
	sch.Obj = obj
	sch.AddTitleField(obj, "ОКПО организации")
	return sch
}

func newReport(year, periodRaw string) *report.Report {
	rep := report.New()
	rep.Year = year
	rep.SetPeriod(periodRaw)
	return rep
}

// S1: a well-formed year/period passes AttrValidator.
func TestS1AttrPasses(t *testing.T) {
	sch := newSchema("4", "okpo")
	rep := newReport("2020", "0401")
	errs := checkAttr(sch, rep)
	assert.Empty(t, errs)
}

// S2: an invalid year yields exactly one error coded "1".
func TestS2InvalidYear(t *testing.T) {
	sch := newSchema("4", "okpo")
	rep := newReport("1799", "0401")
	errs := checkAttr(sch, rep)
	assert.Len(t, errs, 1)
	assert.Equal(t, "1", errs[0].Code)
}

// S3/S4: a control comparing SUM of section 1 col 3 against row 9's
// value, with and without fault tolerance.
func buildSumReport(row9Val string) *report.Report {
	rep := report.New()
	rep.Year = "2020"
	rep.SetPeriod("0401")
	rep.MarkNonBlank()

	sec := report.NewSection("1")
	r1 := report.NewRow("1", "", "", "")
	r1.AddCol("3", "10")
	sec.AddRow("1", r1)
	rep.IncrementRowCounter("1", "", "", "")

	r2 := report.NewRow("2", "", "", "")
	r2.AddCol("3", "20")
	sec.AddRow("2", r2)
	rep.IncrementRowCounter("2", "", "", "")

	r9 := report.NewRow("9", "", "", "")
	r9.AddCol("3", row9Val)
	sec.AddRow("9", r9)
	rep.IncrementRowCounter("9", "", "", "")

	rep.AddSection(sec)
	return rep
}

func schemaWithSumControl(fault float64) *schema.Schema {
	sch := schema.New()
	sch.IDP = "4"
	sch.Obj = "okpo"
	sch.Dimension["1"] = []string{"3"}
	sch.Controls = []control.Def{
		{ID: "1.1", Name: "sum check", Rule: "SUM{[1][1-2][3]} |=| {[1][9][3]}", Precision: 0, Fault: fault},
	}
	return sch
}

func TestS3SumControlPasses(t *testing.T) {
	sch := schemaWithSumControl(0)
	rep := buildSumReport("30")
	errs := checkControls(sch, rep)
	assert.Empty(t, errs)
}

func TestS3SumControlFailsByFive(t *testing.T) {
	sch := schemaWithSumControl(0)
	rep := buildSumReport("35")
	errs := checkControls(sch, rep)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "разница -5")
}

func TestS4FaultToleranceAbsorbsSmallDifference(t *testing.T) {
	sch := schemaWithSumControl(10)
	rep := buildSumReport("37") // sum=30, row9=37, diff=7 <= fault 10
	errs := checkControls(sch, rep)
	assert.Empty(t, errs)
}

func TestS4FaultToleranceStillFailsBeyondTolerance(t *testing.T) {
	sch := schemaWithSumControl(10)
	rep := buildSumReport("41") // diff=11 > fault 10
	errs := checkControls(sch, rep)
	assert.Len(t, errs, 1)
}

// S5: a failing condition gates off the rule entirely.
func TestS5ConditionGatesRule(t *testing.T) {
	sch := schema.New()
	sch.IDP = "4"
	sch.Controls = []control.Def{
		{ID: "2.1", Name: "gated", Condition: "1 |=| 2", Rule: "5 |=| 10"},
	}
	rep := report.New()
	rep.MarkNonBlank()

	errs := checkControls(sch, rep)
	assert.Empty(t, errs)
}

// S6: a previous-period rule is skipped under SkipWarns and raises a
// single warning otherwise.
func TestS6PrevPeriodSkipWarns(t *testing.T) {
	sch := schema.New()
	sch.IDP = "4"
	sch.SkipWarns = true
	sch.Controls = []control.Def{{ID: "3.1", Name: "prev", Rule: "{{[1][1][1]}} |=| 5"}}
	rep := report.New()
	rep.MarkNonBlank()

	errs := checkControls(sch, rep)
	assert.Empty(t, errs)
}

func TestS6PrevPeriodWarnsWithoutSkip(t *testing.T) {
	sch := schema.New()
	sch.IDP = "4"
	sch.SkipWarns = false
	sch.Controls = []control.Def{{ID: "3.1", Name: "prev", Rule: "{{[1][1][1]}} |=| 5"}}
	rep := report.New()
	rep.MarkNonBlank()

	errs := checkControls(sch, rep)
	assert.Len(t, errs, 1)
}

// S7: a duplicated title field yields a title-stage error and the
// control stage never runs (enforced by Run's short-circuit, tested via
// Run directly).
func TestS7DuplicateTitleStopsPipeline(t *testing.T) {
	sch := newSchema("4", "okpo")
	sch.Controls = []control.Def{{ID: "9.9", Name: "unreachable", Rule: "1 |=| 2"}}

	rep := newReport("2020", "0401")
	rep.Title = []report.TitleItem{
		{Name: "okpo", Value: "12345678"},
		{Name: "okpo", Value: "12345678"},
	}

	errs := Run(sch, rep)
	assert.NotEmpty(t, errs)
	for _, e := range errs {
		assert.Equal(t, StageTitle, e.Code[:1])
	}
}

func TestTitleMissingOKPOField(t *testing.T) {
	sch := newSchema("4", "okpo")
	rep := newReport("2020", "0401")

	errs := checkTitle(sch, rep)
	assert.NotEmpty(t, errs)
	hasMissingKey := false
	for _, e := range errs {
		if e.Code == "5" {
			hasMissingKey = true
		}
	}
	assert.True(t, hasMissingKey)
}

func TestTitleValidOKPOPasses(t *testing.T) {
	sch := newSchema("4", "okpo")
	rep := newReport("2020", "0401")
	rep.Title = []report.TitleItem{{Name: "okpo", Value: "12345678"}}

	errs := checkTitle(sch, rep)
	assert.Empty(t, errs)
}
