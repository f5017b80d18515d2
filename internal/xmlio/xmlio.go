// Package xmlio builds a schema.Schema or report.Report from its metaForm/
// report XML source. It mirrors flc.py's parse_report/parse_schema: a
// source can be a file path, raw bytes, or an already-open reader, and the
// XML tree is read once, up front, into the in-memory model the validators
// run against.
package xmlio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/agentflare-ai/go-xmldom"

	"github.com/WoolenSweater/rosstat-flc/control"
	"github.com/WoolenSweater/rosstat-flc/report"
	"github.com/WoolenSweater/rosstat-flc/schema"
)

// open decodes source into a Document, dispatching on its concrete type the
// way flc.py's _get_xml_etree does for str/bytes/file-like inputs.
func open(source interface{}) (xmldom.Document, error) {
	switch v := source.(type) {
	case string:
		f, err := os.Open(v)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return xmldom.Decode(f)
	case []byte:
		return xmldom.Decode(bytes.NewReader(v))
	case io.Reader:
		return xmldom.Decode(v)
	default:
		return nil, fmt.Errorf("xmlio: unsupported source type %T, expected file path, []byte, or io.Reader", source)
	}
}

// ParseReport decodes source as a report document and builds a
// report.Report from its /report/title, /report/sections tree.
func ParseReport(source interface{}) (*report.Report, error) {
	doc, err := open(source)
	if err != nil {
		return nil, err
	}
	root := doc.DocumentElement()
	if root == nil {
		return nil, fmt.Errorf("xmlio: report document has no root element")
	}

	rep := report.New()
	rep.Year = attr(root, "year")
	rep.SetPeriod(attr(root, "period"))

	if titleNode := firstChild(root, "title"); titleNode != nil {
		for _, item := range children(titleNode, "item") {
			rep.Title = append(rep.Title, report.TitleItem{
				Name:  attr(item, "name"),
				Value: strings.TrimSpace(attr(item, "value")),
			})
		}
	}

	if sectionsNode := firstChild(root, "sections"); sectionsNode != nil {
		for _, sectionNode := range children(sectionsNode, "section") {
			rep.AddSection(readReportSection(rep, sectionNode))
		}
	}

	return rep, nil
}

func readReportSection(rep *report.Report, sectionNode xmldom.Element) *report.Section {
	secCode := normalizeCode(attr(sectionNode, "code"))
	sec := report.NewSection(secCode)

	for _, rowNode := range children(sectionNode, "row") {
		rowCode := normalizeCode(attr(rowNode, "code"))
		s1, s2, s3 := attr(rowNode, "s1"), attr(rowNode, "s2"), attr(rowNode, "s3")
		row := report.NewRow(rowCode, s1, s2, s3)

		for _, colNode := range children(rowNode, "col") {
			colCode := normalizeCode(attr(colNode, "code"))
			row.AddCol(colCode, textContent(colNode))
			rep.MarkNonBlank()
		}

		sec.AddRow(rowCode, row)
		rep.IncrementRowCounter(rowCode, s1, s2, s3)
	}

	return sec
}

// ParseSchema decodes source as a metaForm document and builds a
// schema.Schema from its idp/obj attributes, title/sections/controls/dics
// trees (schema.py's _get_idp/_get_obj/_get_title/_get_format/
// _get_controls/_get_dics).
func ParseSchema(source interface{}, skipWarns bool) (*schema.Schema, error) {
	doc, err := open(source)
	if err != nil {
		return nil, err
	}
	root := doc.DocumentElement()
	if root == nil {
		return nil, fmt.Errorf("xmlio: schema document has no root element")
	}

	sch := schema.New()
	sch.SkipWarns = skipWarns
	sch.IDP = normalizeCode(attr(root, "idp"))
	sch.Obj = attr(root, "obj")

	if titleNode := firstChild(root, "title"); titleNode != nil {
		for _, item := range children(titleNode, "item") {
			sch.AddTitleField(attr(item, "field"), attr(item, "name"))
		}
	}

	if sectionsNode := firstChild(root, "sections"); sectionsNode != nil {
		for _, sectionNode := range children(sectionsNode, "section") {
			readSchemaSection(sch, sectionNode)
		}
	}

	if controlsNode := firstChild(root, "controls"); controlsNode != nil {
		for _, controlNode := range children(controlsNode, "control") {
			sch.Controls = append(sch.Controls, readControl(controlNode))
		}
	}

	if dicsNode := firstChild(root, "dics"); dicsNode != nil {
		for _, dicNode := range children(dicsNode, "dic") {
			readDic(sch, dicNode)
		}
	}

	return sch, nil
}

func readSchemaSection(sch *schema.Schema, sectionNode xmldom.Element) {
	secCode := normalizeCode(attr(sectionNode, "code"))

	if columnsNode := firstChild(sectionNode, "columns"); columnsNode != nil {
		for _, col := range children(columnsNode, "column") {
			colCode := normalizeCode(attr(col, "code"))
			switch attr(col, "type") {
			case "Z":
				sch.AddDataColumn(secCode, colCode)
			case "S":
				// The last character of fld is the index (1..3) of the
				// specific axis this column backs, per schema.py's
				// __get_default_formats.
				key := attr(col, "fld")
				if key != "" {
					key = "s" + key[len(key)-1:]
				}
				sch.AddSpecColumn(secCode, colCode, key)
			}
		}
	}

	rowsNode := firstChild(sectionNode, "rows")
	if rowsNode == nil {
		return
	}
	for _, rowNode := range children(rowsNode, "row") {
		rowType := attr(rowNode, "type")
		if rowType == "C" {
			// Comment rows carry no cell formats (schema.py's row[@type!="C"]).
			continue
		}
		rowCode := normalizeCode(attr(rowNode, "code"))
		for _, cellNode := range children(rowNode, "cell") {
			colCode := normalizeCode(attr(cellNode, "column"))
			sch.AddFormatRule(secCode, rowCode, colCode, readFormatRule(cellNode, rowType))
		}
	}
}

func readFormatRule(cellNode xmldom.Element, rowType string) schema.FormatRule {
	inputType := attr(cellNode, "inputType")
	return schema.FormatRule{
		Format:    attr(cellNode, "format"),
		VldType:   attr(cellNode, "vldType"),
		Vld:       attr(cellNode, "vld"),
		Dic:       attr(cellNode, "dic"),
		InputType: inputType,
		Mandatory: inputType == "1" && rowType != "M",
	}
}

func readControl(controlNode xmldom.Element) control.Def {
	return control.Def{
		ID:           attr(controlNode, "id"),
		Name:         attr(controlNode, "name"),
		Rule:         strings.TrimSpace(attr(controlNode, "rule")),
		Condition:    strings.TrimSpace(attr(controlNode, "condition")),
		PeriodClause: strings.TrimSpace(attr(controlNode, "periodClause")),
		Fault:        attrFloat(controlNode, "fault", -1),
		Precision:    attrInt(controlNode, "precision", 2),
		Tip:          attrOr(controlNode, "tip", "1") != "0",
	}
}

func readDic(sch *schema.Schema, dicNode xmldom.Element) {
	dicID := attr(dicNode, "id")
	for _, termNode := range children(dicNode, "term") {
		termID := attr(termNode, "id")
		sch.AddCatalogTerm(dicID, termID, otherAttrs(termNode, "id"))
	}
}

// normalizeCode mirrors str_int: a purely-numeric code is restringified
// through strconv to strip any leading zeros; anything else passes through
// unchanged.
func normalizeCode(v string) string {
	if v == "" {
		return v
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return v
		}
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return v
	}
	return strconv.Itoa(n)
}

func attrOr(elem xmldom.Element, name, def string) string {
	if elem.GetAttributeNode(xmldom.DOMString(name)) == nil {
		return def
	}
	return attr(elem, name)
}

func attrFloat(elem xmldom.Element, name string, def float64) float64 {
	raw := attrOr(elem, name, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func attrInt(elem xmldom.Element, name string, def int) int {
	raw := attrOr(elem, name, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func attr(elem xmldom.Element, name string) string {
	return string(elem.GetAttribute(xmldom.DOMString(name)))
}

func firstChild(elem xmldom.Element, name string) xmldom.Element {
	for _, c := range elem.Children() {
		if string(c.LocalName()) == name {
			return c
		}
	}
	return nil
}

func children(elem xmldom.Element, name string) []xmldom.Element {
	if elem == nil {
		return nil
	}
	var out []xmldom.Element
	for _, c := range elem.Children() {
		if string(c.LocalName()) == name {
			out = append(out, c)
		}
	}
	return out
}

// textContent concatenates every direct text-node child of elem, the way
// report.py reads a <col> element's text.
func textContent(elem xmldom.Element) string {
	var b strings.Builder
	nodes := elem.ChildNodes()
	for i := uint(0); i < nodes.Length(); i++ {
		node := nodes.Item(i)
		if node != nil && node.NodeType() == 3 { // TEXT_NODE
			b.WriteString(string(node.NodeValue()))
		}
	}
	return b.String()
}

// otherAttrs returns every attribute of elem except those named in
// exclude, keyed by local name (schema.py's term.attrib.items() after
// popping "id").
func otherAttrs(elem xmldom.Element, exclude ...string) map[string]string {
	skip := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		skip[e] = struct{}{}
	}

	out := map[string]string{}
	attrs := elem.Attributes()
	for i := uint(0); i < attrs.Length(); i++ {
		node := attrs.Item(i)
		if node == nil {
			continue
		}
		a, ok := node.(xmldom.Attr)
		if !ok {
			continue
		}
		name := string(a.LocalName())
		if _, skipped := skip[name]; skipped {
			continue
		}
		out[name] = string(a.NodeValue())
	}
	return out
}
