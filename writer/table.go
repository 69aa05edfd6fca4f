package writer

import (
	"io"
	"strings"
	"unicode/utf8"
)

type align int

const (
	alignLeft align = iota
	alignRight
)

// table renders a header, a '=' rule and rows with per column alignment.
type table struct {
	headers []string
	aligns  []align
	rows    [][]string
}

func newTable(headers []string, aligns []align) *table {
	return &table{headers: headers, aligns: aligns}
}

func (t *table) add(row ...string) {
	t.rows = append(t.rows, row)
}

func (t *table) widths() []int {
	w := make([]int, len(t.headers))
	for i, h := range t.headers {
		w[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > w[i] {
				w[i] = n
			}
		}
	}
	return w
}

func (t *table) line(sb *strings.Builder, cells []string, widths []int) {
	for i, cell := range cells {
		if i > 0 {
			sb.WriteString("   ")
		}
		pad := strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell))
		if t.aligns[i] == alignRight {
			sb.WriteString(pad + cell)
		} else if i == len(cells)-1 {
			sb.WriteString(cell)
		} else {
			sb.WriteString(cell + pad)
		}
	}
	sb.WriteString("\n")
}

func (t *table) render(w io.Writer) error {
	widths := t.widths()
	total := 3 * (len(widths) - 1)
	for _, n := range widths {
		total += n
	}

	var sb strings.Builder
	t.line(&sb, t.headers, widths)
	sb.WriteString(strings.Repeat("=", total) + "\n")
	for _, row := range t.rows {
		t.line(&sb, row, widths)
	}
	_, err := io.WriteString(w, strings.TrimRight(sb.String(), "\n")+"\n")
	return err
}
