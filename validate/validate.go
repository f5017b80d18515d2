// Package validate implements the ordered, short-circuiting validator
// pipeline (Attr, Title, Format, Control) that is this system's top-level
// entry point: schema + report in, a structured error list out.
package validate

import (
	"fmt"

	"github.com/WoolenSweater/rosstat-flc/internal/obslog"
	"github.com/WoolenSweater/rosstat-flc/report"
	"github.com/WoolenSweater/rosstat-flc/schema"
)

// Stage codes and names mirror schema.py's four AbstractValidator
// subclasses exactly (code, name), so composite error codes and stage
// logging read the same as the original.
const (
	StageAttr    = "1"
	StageTitle   = "2"
	StageFormat  = "3"
	StageControl = "4"

	NameAttr    = "Проверка аттрибутов"
	NameTitle   = "Проверка полей заголовка"
	NameFormat  = "Проверка формата"
	NameControl = "Проверка контролей"
)

// Error is one emitted validator error: a composite "<stage>.<sub>" code,
// the stage's display name, a human message, and — for control rule
// failures only — whether the control is mandatory.
type Error struct {
	Code    string
	Name    string
	Message string
	Tip     *bool
}

type subError struct {
	Code    string
	Message string
	Tip     *bool
}

func compose(stageCode, name string, subs []subError) []Error {
	out := make([]Error, 0, len(subs))
	for _, s := range subs {
		out = append(out, Error{
			Code:    fmt.Sprintf("%s.%s", stageCode, s.Code),
			Name:    name,
			Message: s.Message,
			Tip:     s.Tip,
		})
	}
	return out
}

// unexpectedError is the structured replacement for schema.py's generic
// '0.0' exception fallback, emitted when a stage panics.
func unexpectedError() Error {
	return Error{Code: "0.0", Name: "Непредвиденная ошибка", Message: "Не удалось выполнить проверку"}
}

// Run executes the four validator stages in order against report, using
// sch as the parsed template. It stops at the first stage that produces
// any error, matching the short-circuit law of spec.md §7/§8.6.
func Run(sch *schema.Schema, rep *report.Report) []Error {
	stages := []struct {
		code string
		name string
		run  func() []subError
	}{
		{StageAttr, NameAttr, func() []subError { return checkAttr(sch, rep) }},
		{StageTitle, NameTitle, func() []subError { return checkTitle(sch, rep) }},
		{StageFormat, NameFormat, func() []subError { return checkFormat(sch, rep) }},
		{StageControl, NameControl, func() []subError { return checkControls(sch, rep) }},
	}

	for _, st := range stages {
		obslog.StageEntered(st.code, st.name)

		errs, panicked := runStage(st.code, st.run)
		if panicked {
			return []Error{unexpectedError()}
		}
		if len(errs) > 0 {
			obslog.StageFailed(st.code, st.name, len(errs))
			return compose(st.code, st.name, errs)
		}
	}
	return nil
}

// runStage recovers a panic at the stage boundary, the Go equivalent of
// schema.py's try/except Exception wrapped around the whole validate loop.
func runStage(stageCode string, fn func() []subError) (errs []subError, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			obslog.Recovered(stageCode, r)
			panicked = true
		}
	}()
	return fn(), false
}
