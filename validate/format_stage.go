package validate

import (
	"fmt"

	"github.com/WoolenSweater/rosstat-flc/format"
	"github.com/WoolenSweater/rosstat-flc/report"
	"github.com/WoolenSweater/rosstat-flc/schema"
	"github.com/WoolenSweater/rosstat-flc/specific"
)

func anySpecs() [3]*specific.Specific {
	return [3]*specific.Specific{specific.Any(), specific.Any(), specific.Any()}
}

func checkFormat(sch *schema.Schema, rep *report.Report) []subError {
	if errs := checkSectionsPresent(sch, rep); len(errs) > 0 {
		return errs
	}
	if errs := checkDuplicates(rep); len(errs) > 0 {
		return errs
	}
	if errs := checkRequired(sch, rep); len(errs) > 0 {
		return errs
	}
	return checkCellFormats(sch, rep)
}

// checkSectionsPresent mirrors FormatValidator._check_sections: every
// section the schema declares a column dimension for must exist in the
// report.
func checkSectionsPresent(sch *schema.Schema, rep *report.Report) []subError {
	var errs []subError
	for sec := range sch.Dimension {
		if !rep.HasSection(sec) {
			errs = append(errs, subError{Code: "1", Message: fmt.Sprintf("Раздел %s отсутствует в отчёте", sec)})
		}
	}
	return errs
}

func checkDuplicates(rep *report.Report) []subError {
	var errs []subError
	for key, count := range rep.RowCounters {
		if count > 1 {
			label := key.Code
			if key.S1 != "" || key.S2 != "" || key.S3 != "" {
				label = fmt.Sprintf("%s %s", key.Code, formatSpecs(key))
			}
			errs = append(errs, subError{Code: "2", Message: fmt.Sprintf("Строка %s повторяется %d раз(а)", label, count)})
		}
	}
	return errs
}

func formatSpecs(key report.RowKey) string {
	out := ""
	for i, s := range []string{key.S1, key.S2, key.S3} {
		if s == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("s%d=%s", i+1, s)
	}
	return out
}

func checkRequired(sch *schema.Schema, rep *report.Report) []subError {
	var errs []subError
	for _, cell := range sch.Required {
		sec := rep.Section(cell.Section)
		groups := sec.Rows([]string{cell.Row}, anySpecs())
		if len(groups) == 0 || len(groups[0].Rows) == 0 {
			errs = append(errs, subError{Code: "3",
				Message: fmt.Sprintf("Раздел %s, строка %s не может быть пустой", cell.Section, cell.Row)})
			continue
		}
		for _, row := range groups[0].Rows {
			v, ok := row.Value(cell.Column)
			if !ok || v == "" {
				errs = append(errs, subError{Code: "4",
					Message: fmt.Sprintf("Раздел %s, строка %s, графа %s не может быть пустой", cell.Section, cell.Row, cell.Column)})
			}
		}
	}
	return errs
}

func checkCellFormats(sch *schema.Schema, rep *report.Report) []subError {
	var errs []subError
	for sec := range sch.Dimension {
		specsMap := sch.SpecColumns(sec)
		section := rep.Section(sec)
		groups := section.Rows(nil, anySpecs())
		for _, g := range groups {
			for _, row := range g.Rows {
				r, ok := row.(*report.Row)
				if !ok {
					continue
				}
				errs = append(errs, checkRowSpecs(sch, sec, g.Code, r, specsMap)...)
				errs = append(errs, checkRowCells(sch, sec, g.Code, r)...)
			}
		}
	}
	return errs
}

func checkRowSpecs(sch *schema.Schema, sec, rowCode string, row *report.Row, specsMap map[string]string) []subError {
	if !sch.HasSection(sec) {
		return []subError{{Code: "5", Message: fmt.Sprintf("Раздел %s не описан в шаблоне", sec)}}
	}
	var errs []subError
	for col, key := range specsMap {
		rule, ok := sch.Rule(sec, rowCode, col)
		if !ok {
			errs = append(errs, subError{Code: "6",
				Message: fmt.Sprintf("Раздел %s, строка %s, графа %s. В шаблоне отсутствует правило для проверки этого поля", sec, rowCode, col)})
			continue
		}
		specValue := format.SpecValue(row, key)
		if err := format.CheckSpec(rule, sch, specValue, specsMap, func(k string) string { return format.SpecValue(row, k) }); err != nil {
			fe := err.(*format.Error)
			errs = append(errs, subError{Code: fe.Code,
				Message: fmt.Sprintf("Раздел %s, строка %s, специфика %s. %s", sec, rowCode, key, fe.Message)})
		}
	}
	return errs
}

func checkRowCells(sch *schema.Schema, sec, rowCode string, row *report.Row) []subError {
	var errs []subError
	for _, col := range sch.Dimension[sec] {
		value, present := row.Value(col)
		if !present {
			continue
		}
		rule, ok := sch.Rule(sec, rowCode, col)
		if !ok {
			errs = append(errs, subError{Code: "6",
				Message: fmt.Sprintf("Раздел %s, строка %s, графа %s. В шаблоне отсутствует правило для проверки этого поля", sec, rowCode, col)})
			continue
		}
		if err := format.CheckValue(rule, sch, value); err != nil {
			fe := err.(*format.Error)
			errs = append(errs, subError{Code: fe.Code,
				Message: fmt.Sprintf("Раздел %s, строка %s, графа %s. %s", sec, rowCode, col, fe.Message)})
		}
	}
	return errs
}
