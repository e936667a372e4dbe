package pdf

import (
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
)

const (
	pageMargin   = 10.0
	pageWidth    = 210.0 - 2*pageMargin
	pageBottom   = 297.0 - pageMargin
	lineHeight   = 5.0
	tableFont    = 8.0
	tableLine    = 4.0
	maxCellLines = 8
)

var headingSizes = map[int]float64{1: 14, 2: 12, 3: 11}

// renderer walks a goldmark AST and draws it onto an fpdf document.
type renderer struct {
	doc       *fpdf.Fpdf
	source    []byte
	bold      bool
	italic    bool
	listDepth int
}

func newRenderer(doc *fpdf.Fpdf, source []byte) *renderer {
	return &renderer{doc: doc, source: source}
}

func (r *renderer) render(root ast.Node) error {
	return ast.Walk(root, r.walk)
}

func (r *renderer) resetFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.doc.SetFont("Arial", style, baseFontSize)
}

func (r *renderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.doc.Ln(6)
			size, ok := headingSizes[node.Level]
			if !ok {
				size = 10
			}
			r.doc.SetFont("Arial", "B", size)
		} else {
			r.doc.Ln(6)
			r.resetFont()
		}

	case *ast.Paragraph:
		if !entering {
			r.doc.Ln(7)
		}

	case *ast.Text:
		if entering {
			r.doc.Write(lineHeight, string(node.Segment.Value(r.source)))
			if node.SoftLineBreak() {
				r.doc.Write(lineHeight, " ")
			}
		}

	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.resetFont()

	case *ast.CodeSpan:
		if entering {
			r.doc.SetFont("Courier", "", baseFontSize)
			r.doc.Write(lineHeight, plainText(node, r.source))
			r.resetFont()
		}
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			r.codeBlock(n)
		}
		return ast.WalkSkipChildren, nil

	case *ast.List:
		if entering {
			r.listDepth++
		} else {
			r.listDepth--
			if r.listDepth == 0 {
				r.doc.Ln(2)
			}
		}

	case *ast.ListItem:
		if entering {
			r.doc.Ln(lineHeight)
			r.doc.SetX(pageMargin + 5 + float64(r.listDepth)*5)
			r.doc.Write(lineHeight, "- ")
		}

	case *ast.ThematicBreak:
		if entering {
			r.doc.Ln(2)
			r.doc.Line(pageMargin, r.doc.GetY(), pageMargin+pageWidth, r.doc.GetY())
			r.doc.Ln(2)
		}

	case *extast.Table:
		if entering {
			r.table(r.tableRows(node))
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (r *renderer) codeBlock(n ast.Node) {
	lines := n.Lines()
	r.doc.Ln(2)
	r.doc.SetFont("Courier", "", baseFontSize)
	r.doc.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		r.doc.MultiCell(0, lineHeight, strings.TrimRight(string(seg.Value(r.source)), "\n"), "", "L", true)
	}
	r.doc.SetFillColor(255, 255, 255)
	r.resetFont()
	r.doc.Ln(2)
}

func (r *renderer) tableRows(t *extast.Table) [][]string {
	var rows [][]string
	for child := t.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.(type) {
		case *extast.TableHeader, *extast.TableRow:
			var row []string
			for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
				row = append(row, plainText(cell, r.source))
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// table draws rows as a bordered grid. The first row is the header.
func (r *renderer) table(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}
	cols := len(rows[0])
	widths := r.columnWidths(rows, cols)

	r.doc.Ln(2)
	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
		}
		r.doc.SetFont("Arial", style, tableFont)

		lines := 1
		for j := 0; j < cols && j < len(row); j++ {
			if n := len(r.wrap(row[j], widths[j]-2)); n > lines {
				lines = n
			}
		}
		if lines > maxCellLines {
			lines = maxCellLines
		}

		height := float64(lines)*tableLine + 2
		x0, y0 := r.doc.GetX(), r.doc.GetY()
		if y0+height > pageBottom {
			r.doc.AddPage()
			x0, y0 = r.doc.GetX(), r.doc.GetY()
		}

		x := x0
		for j := 0; j < cols; j++ {
			if i == 0 {
				r.doc.SetFillColor(230, 230, 230)
				r.doc.Rect(x, y0, widths[j], height, "FD")
			} else {
				r.doc.Rect(x, y0, widths[j], height, "D")
			}
			if j < len(row) {
				r.doc.SetXY(x+1, y0+1)
				r.cell(row[j], widths[j]-2, lines)
			}
			x += widths[j]
		}
		r.doc.SetXY(x0, y0+height)
	}
	r.doc.SetFillColor(255, 255, 255)
	r.doc.Ln(3)
	r.resetFont()
}

// columnWidths sizes columns to their widest cell, clamped to [12mm, page/3],
// then scaled to fit the page.
func (r *renderer) columnWidths(rows [][]string, cols int) []float64 {
	widths := make([]float64, cols)
	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
		}
		r.doc.SetFont("Arial", style, tableFont)
		for j := 0; j < cols && j < len(row); j++ {
			if w := r.doc.GetStringWidth(row[j]) + 4; w > widths[j] {
				widths[j] = w
			}
		}
	}

	total := 0.0
	for j := range widths {
		widths[j] = clamp(widths[j], 12, pageWidth/3)
		total += widths[j]
	}

	scale := 1.0
	switch {
	case total > pageWidth:
		scale = pageWidth / total
	case total < pageWidth*0.9:
		scale = clamp(pageWidth*0.95/total, 1, 1.5)
	}
	for j := range widths {
		widths[j] *= scale
	}
	return widths
}

func (r *renderer) wrap(s string, width float64) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if r.doc.GetStringWidth(line+" "+w) <= width {
			line += " " + w
			continue
		}
		lines = append(lines, line)
		line = w
	}
	return append(lines, line)
}

func (r *renderer) cell(s string, width float64, maxLines int) {
	lines := r.wrap(s, width)
	for i := 0; i < len(lines) && i < maxLines; i++ {
		line := lines[i]
		if i == maxLines-1 && len(lines) > maxLines {
			for len(line) > 3 && r.doc.GetStringWidth(line+"...") > width {
				line = line[:len(line)-1]
			}
			line += "..."
		}
		r.doc.CellFormat(width, tableLine, line, "", 2, "L", false, 0, "")
	}
}

// plainText concatenates the text segments below n.
func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); entering && ok {
			b.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
