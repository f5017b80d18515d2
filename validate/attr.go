package validate

import (
	"regexp"
	"strconv"

	"github.com/WoolenSweater/rosstat-flc/report"
	"github.com/WoolenSweater/rosstat-flc/schema"
)

// yearPattern matches a plausible 4-digit year, mirroring attr.py's
// year_pattern (18../19../20..).
var yearPattern = regexp.MustCompile(`^(18|19|20)\d{2}$`)

// periodCatalogs is the pair of catalog ids schema.py's period repair may
// draw its admissible period set from; s_time is preferred, s_mes is the
// historical fallback name.
var periodCatalogs = []string{"s_time", "s_mes"}

func checkAttr(sch *schema.Schema, rep *report.Report) []subError {
	var errs []subError

	if !yearPattern.MatchString(rep.Year) {
		errs = append(errs, subError{Code: "1", Message: "Указан недопустимый год"})
	}

	if rep.PeriodType != "" && rep.PeriodType != sch.IDP {
		errs = append(errs, subError{Code: "2",
			Message: "Тип периодичности отчёта не соответствует типу периодичности шаблона"})
	}

	if rep.PeriodCode == "" {
		if err := repairPeriod(sch, rep); err != nil {
			errs = append(errs, subError{Code: "3", Message: "Неверное значение периода отчёта"})
		}
	}

	return errs
}

func repairPeriod(sch *schema.Schema, rep *report.Report) error {
	idp, err := strconv.Atoi(sch.IDP)
	if err != nil {
		return &report.ErrPeriodRepair{}
	}

	var ids []string
	for _, dic := range periodCatalogs {
		if found := sch.IDs(dic); len(found) > 0 {
			ids = found
			break
		}
	}
	if len(ids) == 0 {
		return &report.ErrPeriodRepair{}
	}

	return rep.SetPeriods(ids, idp, rep.PeriodRaw)
}
