package paper

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"
)

//go:embed templates/paper.html
var paperTemplateSource string

var paperTemplate = template.Must(template.New("paper").Parse(paperTemplateSource))

// ExportOverrides replace stored draft values for one rendering. Nil fields
// keep the stored value.
type ExportOverrides struct {
	Title    *string            `json:"title"`
	Header   map[string]any     `json:"header"`
	COTable  *[]COEntry         `json:"co_table"`
	RBTTable *map[string]string `json:"rbt_table"`
}

func (o ExportOverrides) apply(d Draft) Draft {
	if o.Title != nil {
		d.Title = *o.Title
	}
	if o.Header != nil {
		d.Header = o.Header
	}
	if o.COTable != nil {
		d.COTable = *o.COTable
	}
	if o.RBTTable != nil {
		d.RBTTable = *o.RBTTable
	}
	return d
}

type exportRow struct {
	OR    bool
	QNo   int
	Parts []Part
	Marks string
	CO    string
	RBT   string
}

type rbtLevel struct {
	Level string
	Text  string
}

type exportView struct {
	Title      string
	Header     map[string]string
	Logo       template.URL
	Rows       []exportRow
	COTable    []COEntry
	RBTLevels  []rbtLevel
	PreparedBy string
	ApprovedBy string
	Principal  string
}

// RenderHTML renders d with the printable paper layout.
func RenderHTML(d Draft) ([]byte, error) {
	header := headerStrings(d.Header)

	view := exportView{
		Title:      d.Title,
		Header:     header,
		Logo:       logoURL(header["logoUrl"]),
		Rows:       exportRows(d.Rows),
		COTable:    d.COTable,
		RBTLevels:  rbtLevels(d.RBTTable),
		PreparedBy: header["preparedBy"],
		ApprovedBy: header["approvedBy"],
		Principal:  header["principal"],
	}
	if view.ApprovedBy == "" {
		view.ApprovedBy = "(HOD - " + header["dept"] + ")"
	}
	if view.Principal == "" {
		view.Principal = "PRINCIPAL"
	}

	var buf bytes.Buffer
	if err := paperTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render paper: %w", err)
	}
	return buf.Bytes(), nil
}

func headerStrings(h map[string]any) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		switch t := v.(type) {
		case nil:
		case string:
			out[k] = strings.TrimSpace(t)
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}

// logoURL accepts http(s) links and inline image data; anything else is
// dropped.
func logoURL(raw string) template.URL {
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "data:image/"):
		return template.URL(raw)
	default:
		return ""
	}
}

func exportRows(rows []Row) []exportRow {
	out := make([]exportRow, 0, len(rows))
	for _, r := range rows {
		if !r.IsQuestion() {
			out = append(out, exportRow{OR: true})
			continue
		}

		total, anyMarks := 0, false
		cos := make([]string, 0, len(r.Parts))
		rbts := make([]string, 0, len(r.Parts))
		for _, p := range r.Parts {
			if p.Marks != nil {
				total += *p.Marks
				anyMarks = true
			}
			if co := strings.Join(p.CO, ","); co != "" {
				cos = append(cos, co)
			}
			if p.RBT != nil && *p.RBT != "" {
				rbts = append(rbts, *p.RBT)
			}
		}

		row := exportRow{
			QNo:   r.QNo,
			Parts: r.Parts,
			CO:    strings.Join(cos, " | "),
			RBT:   strings.Join(rbts, " | "),
		}
		if anyMarks {
			row.Marks = strconv.Itoa(total)
		}
		out = append(out, row)
	}
	return out
}

func rbtLevels(table map[string]string) []rbtLevel {
	if len(table) == 0 {
		return nil
	}
	out := make([]rbtLevel, 0, len(table))
	for level, text := range table {
		out = append(out, rbtLevel{Level: level, Text: text})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}
