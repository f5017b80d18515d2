// Package format implements the per-cell format and catalog-membership
// checks the format validation stage runs against every report value and
// row specific: the "format — value" and "format — spec" error families
// of the taxonomy.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/WoolenSweater/rosstat-flc/report"
	"github.com/WoolenSweater/rosstat-flc/schema"
)

// Error codes mirror exceptions.py's numbered error classes exactly, so
// the validate package can compose the stage's composite "<stage>.<code>"
// identifiers the same way schema.py's _errors_handle does.
const (
	CodeSpecNotInDict  = "7"
	CodeSpecValue      = "8"
	CodeValueNotNumber = "9"
	CodeValueBadFormat = "10"
	CodeValueTooLong   = "11"
	CodeValueNotInDict = "12"
	CodeValueNotInList = "13" // range
	CodeValueNotInSet  = "14" // explicit list
)

// Error is one format or spec failure, carrying the code the taxonomy
// assigns it and a human message.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newErr(code, message string) *Error { return &Error{Code: code, Message: message} }

// CheckValue validates one cell's raw text against its format rule: the
// "N(i,f)"/"C(n)" shape check first, then the catalog/range/list check
// selected by the rule's vldType (1/2/3). vldType 4/5 are specific-axis
// checks and never reach this function (see CheckSpec).
func CheckValue(rule schema.FormatRule, sch *schema.Schema, value string) error {
	if err := checkShape(rule.Format, value); err != nil {
		return err
	}
	switch rule.VldType {
	case "1":
		return checkValueCatalog(sch, rule.Dic, value)
	case "2":
		return checkValueRange(rule.Vld, value)
	case "3":
		return checkValueList(rule.Vld, value)
	}
	return nil
}

// checkShape parses the "N(i,f)"/"C(n)" format string and checks value
// against it, mirroring ValueInspector.__check_format/_is_num/_is_chars.
func checkShape(formatStr, value string) error {
	alias, args, ok := splitFormatCall(formatStr)
	if !ok {
		return nil
	}
	switch alias {
	case "N":
		return checkNumberShape(args, value)
	case "C":
		return checkCharsShape(args, value)
	}
	return nil
}

func splitFormatCall(formatStr string) (alias, args string, ok bool) {
	s := strings.TrimRight(strings.TrimSpace(formatStr), " )")
	i := strings.Index(s, "(")
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

func checkNumberShape(limits, value string) error {
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return newErr(CodeValueNotNumber, "Значение не является числом")
	}

	parts := strings.SplitN(value, ".", 2)
	iLen := len(parts[0])
	fLen := 0
	if len(parts) == 2 {
		fLen = len(parts[1])
	}

	lims := strings.SplitN(limits, ",", 2)
	if len(lims) != 2 {
		return nil
	}
	iLim, errI := strconv.Atoi(strings.TrimSpace(lims[0]))
	fLim, errF := strconv.Atoi(strings.TrimSpace(lims[1]))
	if errI != nil || errF != nil {
		return nil
	}

	if !(iLen <= iLim && fLen <= fLim) {
		return newErr(CodeValueBadFormat, "Число не соответствует формату")
	}
	return nil
}

func checkCharsShape(limit, value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil {
		return nil
	}
	if len(value) > n {
		return newErr(CodeValueTooLong, "Длина строки больше допустимого")
	}
	return nil
}

func checkValueCatalog(sch *schema.Schema, dic, value string) error {
	for _, id := range sch.IDs(dic) {
		if id == value {
			return nil
		}
	}
	return newErr(CodeValueNotInDict, "Значение отсутствует в справочнике")
}

func checkValueRange(vldParam, value string) error {
	bounds := strings.SplitN(vldParam, "-", 2)
	if len(bounds) != 2 {
		return nil
	}
	start, errS := strconv.Atoi(strings.TrimSpace(bounds[0]))
	end, errE := strconv.Atoi(strings.TrimSpace(bounds[1]))
	v, errV := strconv.ParseFloat(value, 64)
	if errS != nil || errE != nil || errV != nil {
		return nil
	}
	if v < float64(start) || v > float64(end) {
		return newErr(CodeValueNotInList, "Значение не входит в диапазон допустимых")
	}
	return nil
}

func checkValueList(vldParam, value string) error {
	for _, item := range strings.Split(vldParam, ",") {
		if item == value {
			return nil
		}
	}
	return newErr(CodeValueNotInSet, "Значение не входит в список допустимых")
}

// CheckSpec validates one row's specific-axis value against its format
// rule: vldType="4" is plain catalog membership, vldType="5" additionally
// checks the value is compatible with a linked specific axis elsewhere on
// the same row (the coord-linked form, spec.md §9 Open Question (a)).
// specsMap is the section's col_code -> spec-key ("s1"/"s2"/"s3") table;
// specValueByKey resolves a row's value for one such key.
func CheckSpec(rule schema.FormatRule, sch *schema.Schema, specValue string, specsMap map[string]string, specValueByKey func(key string) string) error {
	switch rule.VldType {
	case "4":
		return checkSpecCatalog(sch, rule.Vld, specValue)
	case "5":
		return checkSpecCoord(rule, sch, specValue, specsMap, specValueByKey)
	}
	return nil
}

func checkSpecCatalog(sch *schema.Schema, dic, specValue string) error {
	for _, id := range sch.IDs(dic) {
		if id == specValue {
			return nil
		}
	}
	return newErr(CodeSpecNotInDict, "Специфика отсутствует в справочнике")
}

// checkSpecCoord implements the vld="catalog=#s,r,c" coord-linked form:
// split on "=#", take the trailing comma-separated component as the
// linked specific column, and check that the row's value for that column
// is a recorded attribute of the row's own spec value in rule.Dic.
func checkSpecCoord(rule schema.FormatRule, sch *schema.Schema, specValue string, specsMap map[string]string, specValueByKey func(key string) string) error {
	catalogName, coords, ok := splitOnce(rule.Vld, "=#")
	if !ok {
		return newErr(CodeSpecValue, "Недопустмое значение")
	}
	colCode := lastField(coords, ",")

	linkedKey, ok := specsMap[colCode]
	if !ok {
		return newErr(CodeSpecValue, "Недопустмое значение")
	}
	linkedValue := specValueByKey(linkedKey)

	if !sch.CatalogAttrHas(rule.Dic, specValue, catalogName, linkedValue) {
		return newErr(CodeSpecValue, "Недопустмое значение")
	}
	return nil
}

func splitOnce(s, sep string) (before, after string, ok bool) {
	i := strings.Index(s, sep)
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+len(sep):], true
}

func lastField(s, sep string) string {
	parts := strings.Split(s, sep)
	return parts[len(parts)-1]
}

// SpecValue resolves a report.Row's value for one spec key ("s1"/"s2"/
// "s3"), the small lookup CheckSpec's specValueByKey callback normally
// wraps.
func SpecValue(row *report.Row, key string) string {
	switch key {
	case "s1":
		return row.S1
	case "s2":
		return row.S2
	case "s3":
		return row.S3
	default:
		return ""
	}
}

// DescribeCoords formats a (section, row, column) triple the way the
// taxonomy's structural error messages do, for callers building their own
// wrapped error text around an *Error.
func DescribeCoords(sec, row, col string) string {
	return fmt.Sprintf("Раздел %s, строка %s, графа %s", sec, row, col)
}
