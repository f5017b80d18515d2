package validate

import (
	"fmt"
	"strconv"

	"github.com/WoolenSweater/rosstat-flc/report"
	"github.com/WoolenSweater/rosstat-flc/schema"
)

func checkTitle(sch *schema.Schema, rep *report.Report) []subError {
	var errs []subError
	seen := map[string]bool{}

	formatField := func(id string) string {
		name, ok := sch.TitleFieldName(id)
		if !ok {
			name = id
		}
		return fmt.Sprintf("%q [%s]", name, id)
	}

	for _, item := range rep.Title {
		if _, declared := sch.TitleFieldName(item.Name); !declared {
			errs = append(errs, subError{Code: "1", Message: fmt.Sprintf("Лишнее поле [%s]", item.Name)})
		}
		if seen[item.Name] {
			errs = append(errs, subError{Code: "2", Message: fmt.Sprintf("Повтор поля %s", formatField(item.Name))})
		}
		if item.Value == "" {
			errs = append(errs, subError{Code: "3", Message: fmt.Sprintf("Отсутствует значение в поле %s", formatField(item.Name))})
		}
		if item.Name == sch.Obj && !isValidOKPO(item.Value) {
			errs = append(errs, subError{Code: "4", Message: "Код ОКПО должен быть длиной 8, 10 или 14 цифр"})
		}
		seen[item.Name] = true
	}

	if !seen[sch.Obj] {
		errs = append(errs, subError{Code: "5", Message: fmt.Sprintf("Отсутствует ключевое поле %s", formatField(sch.Obj))})
	}

	for _, field := range sch.TitleFields {
		if field.ID == sch.Obj {
			continue // already reported by the missing-key-field check above
		}
		if !seen[field.ID] {
			errs = append(errs, subError{Code: "6", Message: fmt.Sprintf("Отсутствует поле %s", formatField(field.ID))})
		}
	}

	return errs
}

// isValidOKPO reports whether value is a purely numeric OKPO code of
// length 8, 10, or 14 (spec.md §8 law 9).
func isValidOKPO(value string) bool {
	switch len(value) {
	case 8, 10, 14:
	default:
		return false
	}
	_, err := strconv.ParseUint(value, 10, 64)
	return err == nil
}
