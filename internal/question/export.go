package question

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExportQuestionsExcel writes the filtered questions into a single-sheet
// workbook for offline review.
func (s *Service) ExportQuestionsExcel(ctx context.Context, f Filter) ([]byte, error) {
	items, err := s.ListQuestions(ctx, f)
	if err != nil {
		return nil, err
	}
	return questionsWorkbook(items)
}

func questionsWorkbook(items []Record) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	headers := []string{"id", "module", "text", "subparts", "marks", "co_tags", "rbt_level", "status", "parse_confidence", "source_file"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, it := range items {
		row := i + 2
		values := []any{
			it.ID,
			optionalInt(it.Module),
			it.Text,
			subpartsText(it),
			optionalInt(it.Marks),
			strings.Join(it.COTags, ", "),
			optionalString(it.RBTLevel),
			it.Status,
			it.ParseConfidence,
			it.SourceFile,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "B", 10)
	_ = f.SetColWidth(sheet, "C", "D", 60)
	_ = f.SetColWidth(sheet, "E", "J", 16)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func subpartsText(r Record) string {
	lines := make([]string, 0, len(r.Subparts))
	for _, sp := range r.Subparts {
		lines = append(lines, sp.Label+") "+sp.Text)
	}
	return strings.Join(lines, "\n")
}

func optionalInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
