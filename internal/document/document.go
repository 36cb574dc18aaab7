// Package document turns uploaded question-bank files into plain text.
package document

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrUnreadable      = errors.New("unreadable document")
)

// ExtractText reads the file at path and returns its text. PDF text is laid
// out one visual line per line and pages are joined with a newline; pages
// without a text layer contribute an empty line.
func ExtractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return pdfText(path)
	case ".txt":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		return Normalize(string(b)), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(path))
	}
}

// Normalize composes Unicode to NFC and unifies line endings so the bank
// scanner sees one form of every character.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return norm.NFC.String(s)
}

func pdfText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, pageLines(p.Content().Text))
	}
	return Normalize(strings.Join(pages, "\n")), nil
}

// pageLines rebuilds the visual lines of a page from positioned glyphs. A
// baseline change starts a new line; a horizontal gap wider than a fraction
// of the font size becomes a space.
func pageLines(glyphs []pdf.Text) string {
	var b strings.Builder
	for i, g := range glyphs {
		if i > 0 {
			prev := glyphs[i-1]
			switch {
			case math.Abs(g.Y-prev.Y) > lineTolerance(prev):
				b.WriteByte('\n')
			case g.X-(prev.X+prev.W) > 0.25*prev.FontSize && !endsWithSpace(prev.S) && g.S != " ":
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
	}
	return b.String()
}

func lineTolerance(g pdf.Text) float64 {
	if g.FontSize > 0 {
		return g.FontSize / 2
	}
	return 1
}

func endsWithSpace(s string) bool {
	return strings.HasSuffix(s, " ")
}
