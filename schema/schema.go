// Package schema implements the in-memory Schema tree: the parsed
// template a report is validated against — formats table, catalogs,
// controls, title fields, required cells, and section dimensions.
package schema

import (
	"github.com/WoolenSweater/rosstat-flc/control"
)

// specKey identifies which of a row's three specific axes a schema
// "type=S" column stands for, derived from the last character of its
// @fld attribute (spec.md §6, schema XML shape).
const (
	SpecKeyS1 = "s1"
	SpecKeyS2 = "s2"
	SpecKeyS3 = "s3"
)

// FormatRule is one cell's format/catalog-membership rule, built directly
// from a schema <cell> element's attributes.
type FormatRule struct {
	Format    string // e.g. "N(8,2)" or "C(80)"
	VldType   string // "1".."5"
	Vld       string
	Dic       string
	InputType string
	Mandatory bool // inputType=="1" and the owning row's type != "M"
}

// sectionFormat is one section's format table: the specs sub-mapping
// (col_code -> spec key) plus the per-row/per-column cell rules.
type sectionFormat struct {
	specs map[string]string
	rows  map[string]map[string]FormatRule
}

func newSectionFormat() *sectionFormat {
	return &sectionFormat{specs: map[string]string{}, rows: map[string]map[string]FormatRule{}}
}

// RequiredCell names one (section, row, column) triple that must be
// present and non-empty in any conforming report.
type RequiredCell struct {
	Section, Row, Column string
}

// TitleField is one schema-declared title item: its field id and the
// display name used in validator messages.
type TitleField struct {
	ID, Name string
}

// Catalog is one reference dictionary: an ordered list of term ids plus,
// per term, the set of values recorded against each of its attributes
// (the coord-linked vldType="5" spec check walks this nested form).
type Catalog struct {
	IDs  []string
	Full map[string]map[string]map[string]struct{} // term id -> attr -> set of values
}

// Schema is the whole parsed template.
type Schema struct {
	IDP string
	Obj string

	TitleFields []TitleField
	titleByID   map[string]string

	Required  []RequiredCell
	Dimension map[string][]string // section -> ordered column codes (type=Z columns)

	Controls []control.Def

	SkipWarns bool

	formats  map[string]*sectionFormat
	catalogs map[string]*Catalog
}

// New builds an empty Schema; callers (normally internal/xmlio) populate
// it via the Add* methods while parsing the metaForm XML tree.
func New() *Schema {
	return &Schema{
		titleByID: map[string]string{},
		Dimension: map[string][]string{},
		formats:   map[string]*sectionFormat{},
		catalogs:  map[string]*Catalog{},
	}
}

// AddTitleField registers one schema-declared title item.
func (s *Schema) AddTitleField(id, name string) {
	s.TitleFields = append(s.TitleFields, TitleField{ID: id, Name: name})
	s.titleByID[id] = name
}

// TitleFieldName returns the display name of a schema-declared title
// field id, mirroring TitleValidator's _schema_fields lookup.
func (s *Schema) TitleFieldName(id string) (string, bool) {
	name, ok := s.titleByID[id]
	return name, ok
}

func (s *Schema) section(code string) *sectionFormat {
	sf, ok := s.formats[code]
	if !ok {
		sf = newSectionFormat()
		s.formats[code] = sf
	}
	return sf
}

// AddDataColumn registers a section's "type=Z" column in its column
// dimension, in document order.
func (s *Schema) AddDataColumn(sec, colCode string) {
	s.section(sec) // ensure the section has a format table even if empty
	s.Dimension[sec] = append(s.Dimension[sec], colCode)
}

// AddSpecColumn records a section's "type=S" column as the catalog-backed
// axis identified by specKey ("s1"/"s2"/"s3"), derived by the caller from
// the column's @fld attribute.
func (s *Schema) AddSpecColumn(sec, colCode, specKey string) {
	s.section(sec).specs[colCode] = specKey
}

// AddFormatRule records the format rule for one (section, row, column)
// cell, and appends it to Required when the cell is mandatory.
func (s *Schema) AddFormatRule(sec, row, col string, rule FormatRule) {
	sf := s.section(sec)
	cols, ok := sf.rows[row]
	if !ok {
		cols = map[string]FormatRule{}
		sf.rows[row] = cols
	}
	cols[col] = rule
	if rule.Mandatory {
		s.Required = append(s.Required, RequiredCell{Section: sec, Row: row, Column: col})
	}
}

// HasSection reports whether the schema declares a format table for sec,
// mirroring FormatValidator's "no section template" check.
func (s *Schema) HasSection(sec string) bool {
	_, ok := s.formats[sec]
	return ok
}

// SpecKeyCode returns the column code of section sec's specKey axis
// ("s1"/"s2"/"s3"), mirroring SchemaFormats._get_spec_code.
func (s *Schema) SpecKeyCode(sec, specKey string) (string, bool) {
	sf, ok := s.formats[sec]
	if !ok {
		return "", false
	}
	for col, key := range sf.specs {
		if key == specKey {
			return col, true
		}
	}
	return "", false
}

// SpecColumns returns section sec's col_code -> spec_key mapping, used by
// the format stage to iterate every declared specific axis of a row.
func (s *Schema) SpecColumns(sec string) map[string]string {
	sf, ok := s.formats[sec]
	if !ok {
		return nil
	}
	return sf.specs
}

// Rule returns the format rule declared for (sec, row, col), mirroring
// FormatValidator.__get_format.
func (s *Schema) Rule(sec, row, col string) (FormatRule, bool) {
	sf, ok := s.formats[sec]
	if !ok {
		return FormatRule{}, false
	}
	cols, ok := sf.rows[row]
	if !ok {
		return FormatRule{}, false
	}
	rule, ok := cols[col]
	return rule, ok
}

// SpecParams implements operand.Formats: it resolves which catalog (and,
// if ever set, default value) backs the specIdx-th axis of (section,
// rowCode), by first mapping the axis to its spec column then looking up
// that column's format rule.
func (s *Schema) SpecParams(section, rowCode string, specIdx int) (dic, def string, ok bool) {
	var key string
	switch specIdx {
	case 1:
		key = SpecKeyS1
	case 2:
		key = SpecKeyS2
	case 3:
		key = SpecKeyS3
	default:
		return "", "", false
	}
	col, found := s.SpecKeyCode(section, key)
	if !found {
		return "", "", false
	}
	rule, found := s.Rule(section, rowCode, col)
	if !found {
		return "", "", false
	}
	return rule.Dic, "", true
}

// AddCatalogTerm registers one <term> of a <dic>: dicID is the catalog
// id, termID its own id attribute, and attrs the remaining attribute/value
// pairs recorded against it (a term may repeat; values accumulate into a
// set per attribute, mirroring schema.py's _get_dics defaultdict(set)).
func (s *Schema) AddCatalogTerm(dicID, termID string, attrs map[string]string) {
	cat, ok := s.catalogs[dicID]
	if !ok {
		cat = &Catalog{Full: map[string]map[string]map[string]struct{}{}}
		s.catalogs[dicID] = cat
	}
	term, seen := cat.Full[termID]
	if !seen {
		term = map[string]map[string]struct{}{}
		cat.Full[termID] = term
		cat.IDs = append(cat.IDs, termID)
	}
	for attr, val := range attrs {
		if term[attr] == nil {
			term[attr] = map[string]struct{}{}
		}
		term[attr][val] = struct{}{}
	}
}

// IDs implements operand.Catalogs: the ordered term id list of dic.
func (s *Schema) IDs(dic string) []string {
	cat, ok := s.catalogs[dic]
	if !ok {
		return nil
	}
	return cat.IDs
}

// CatalogAttrHas reports whether value was recorded against termID's attr
// attribute in catalog dic (the coord-linked vldType="5" spec check).
func (s *Schema) CatalogAttrHas(dic, termID, attr, value string) bool {
	cat, ok := s.catalogs[dic]
	if !ok {
		return false
	}
	term, ok := cat.Full[termID]
	if !ok {
		return false
	}
	_, ok = term[attr][value]
	return ok
}
