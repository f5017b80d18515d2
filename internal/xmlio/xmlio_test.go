package xmlio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WoolenSweater/rosstat-flc/report"
)

const sampleSchema = `<?xml version="1.0" encoding="UTF-8"?>
<metaForm idp="4" obj="okpo">
  <title>
    <item field="okpo" name="ОКПО организации"/>
  </title>
  <sections>
    <section code="1">
      <columns>
        <column code="1" type="S" fld="s1"/>
        <column code="3" type="Z"/>
      </columns>
      <rows>
        <row code="1" type="D">
          <cell column="1" format="C(10)" vldType="4" dic="s_okved"/>
          <cell column="3" format="N(8,2)" vldType="0" inputType="1"/>
        </row>
        <row code="2" type="C">
          <cell column="3" format="N(8,2)" vldType="0"/>
        </row>
      </rows>
    </section>
  </sections>
  <controls>
    <control id="1.1" name="sum check" rule="1 |=| 2" condition="" fault="0" precision="2" tip="1"/>
  </controls>
  <dics>
    <dic id="s_okved">
      <term id="10" name="Первый" group="A"/>
      <term id="20" name="Второй" group="B"/>
    </dic>
  </dics>
</metaForm>`

const sampleReport = `<?xml version="1.0" encoding="UTF-8"?>
<report year="2020" period="0401">
  <title>
    <item name="okpo" value="12345678"/>
  </title>
  <sections>
    <section code="1">
      <row code="1" s1="10" s2="" s3="">
        <col code="3">42.5</col>
      </row>
      <row code="2" s1="20" s2="" s3="">
        <col code="3">7</col>
      </row>
    </section>
  </sections>
</report>`

func TestParseSchemaReadsTopLevelAttrsAndTitle(t *testing.T) {
	sch, err := ParseSchema([]byte(sampleSchema), false)
	require.NoError(t, err)
	assert.Equal(t, "4", sch.IDP)
	assert.Equal(t, "okpo", sch.Obj)

	name, ok := sch.TitleFieldName("okpo")
	require.True(t, ok)
	assert.Equal(t, "ОКПО организации", name)
}

func TestParseSchemaBuildsDimensionAndSkipsCommentRows(t *testing.T) {
	sch, err := ParseSchema([]byte(sampleSchema), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"3"}, sch.Dimension["1"])

	_, ok := sch.Rule("1", "2", "3")
	assert.False(t, ok, "type=C rows must not get format rules")

	rule, ok := sch.Rule("1", "1", "3")
	require.True(t, ok)
	assert.True(t, rule.Mandatory)
}

func TestParseSchemaReadsSpecColumnAndCatalog(t *testing.T) {
	sch, err := ParseSchema([]byte(sampleSchema), false)
	require.NoError(t, err)

	col, ok := sch.SpecKeyCode("1", "s1")
	require.True(t, ok)
	assert.Equal(t, "1", col)

	assert.Equal(t, []string{"10", "20"}, sch.IDs("s_okved"))
	assert.True(t, sch.CatalogAttrHas("s_okved", "10", "group", "A"))
}

func TestParseSchemaReadsControls(t *testing.T) {
	sch, err := ParseSchema([]byte(sampleSchema), false)
	require.NoError(t, err)

	require.Len(t, sch.Controls, 1)
	def := sch.Controls[0]
	assert.Equal(t, "1.1", def.ID)
	assert.Equal(t, "1 |=| 2", def.Rule)
	assert.Equal(t, float64(0), def.Fault)
	assert.Equal(t, 2, def.Precision)
	assert.True(t, def.Tip)
}

func TestParseReportReadsYearPeriodAndTitle(t *testing.T) {
	rep, err := ParseReport([]byte(sampleReport))
	require.NoError(t, err)

	assert.Equal(t, "2020", rep.Year)
	assert.Equal(t, "4", rep.PeriodType)
	assert.Equal(t, "1", rep.PeriodCode)
	require.Len(t, rep.Title, 1)
	assert.Equal(t, "okpo", rep.Title[0].Name)
	assert.Equal(t, "12345678", rep.Title[0].Value)
}

func TestParseReportBuildsSectionRowsAndCounters(t *testing.T) {
	rep, err := ParseReport([]byte(sampleReport))
	require.NoError(t, err)

	assert.True(t, rep.HasSection("1"))
	assert.False(t, rep.Blank())
	assert.Equal(t, 1, rep.RowCounters[report.RowKey{Code: "1", S1: "10"}])
}
