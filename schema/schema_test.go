package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddDataColumnBuildsDimension(t *testing.T) {
	s := New()
	s.AddDataColumn("1", "3")
	s.AddDataColumn("1", "4")
	assert.Equal(t, []string{"3", "4"}, s.Dimension["1"])
	assert.True(t, s.HasSection("1"))
}

func TestAddFormatRuleMarksRequired(t *testing.T) {
	s := New()
	s.AddFormatRule("1", "1", "3", FormatRule{Format: "N(8,2)", Mandatory: true})
	s.AddFormatRule("1", "1", "4", FormatRule{Format: "C(10)"})

	assert.Equal(t, []RequiredCell{{Section: "1", Row: "1", Column: "3"}}, s.Required)

	rule, ok := s.Rule("1", "1", "3")
	assert.True(t, ok)
	assert.Equal(t, "N(8,2)", rule.Format)

	_, ok = s.Rule("1", "1", "9")
	assert.False(t, ok)
}

func TestSpecColumnLookup(t *testing.T) {
	s := New()
	s.AddSpecColumn("1", "2", SpecKeyS1)
	col, ok := s.SpecKeyCode("1", SpecKeyS1)
	assert.True(t, ok)
	assert.Equal(t, "2", col)

	_, ok = s.SpecKeyCode("1", SpecKeyS2)
	assert.False(t, ok)
}

func TestSpecParamsResolvesDic(t *testing.T) {
	s := New()
	s.AddSpecColumn("1", "2", SpecKeyS1)
	s.AddFormatRule("1", "1", "2", FormatRule{VldType: "4", Dic: "okved"})

	dic, _, ok := s.SpecParams("1", "1", 1)
	assert.True(t, ok)
	assert.Equal(t, "okved", dic)

	_, _, ok = s.SpecParams("1", "1", 2)
	assert.False(t, ok)
}

func TestCatalogTermAccumulatesAttrsAsSet(t *testing.T) {
	s := New()
	s.AddCatalogTerm("okved", "10", map[string]string{"name": "Agriculture"})
	s.AddCatalogTerm("okved", "20", map[string]string{"name": "Mining"})
	s.AddCatalogTerm("okved", "10", map[string]string{"name": "Agriculture (dup)"})

	assert.Equal(t, []string{"10", "20"}, s.IDs("okved"))
	assert.True(t, s.CatalogAttrHas("okved", "10", "name", "Agriculture"))
	assert.True(t, s.CatalogAttrHas("okved", "10", "name", "Agriculture (dup)"))
	assert.False(t, s.CatalogAttrHas("okved", "10", "name", "Mining"))
	assert.False(t, s.CatalogAttrHas("unknown", "10", "name", "Agriculture"))
}

func TestTitleFieldLookup(t *testing.T) {
	s := New()
	s.AddTitleField("okpo", "ОКПО организации")
	name, ok := s.TitleFieldName("okpo")
	assert.True(t, ok)
	assert.Equal(t, "ОКПО организации", name)

	_, ok = s.TitleFieldName("missing")
	assert.False(t, ok)
}
