package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type checkLevel int

const (
	levelInfo checkLevel = iota
	levelOK
	levelWarn
	levelFail
)

var levelBadges = map[checkLevel]struct {
	label string
	color text.Colors
}{
	levelInfo: {"[--]", text.Colors{text.FgBlue}},
	levelOK:   {"[OK]", text.Colors{text.FgGreen}},
	levelWarn: {"[WARN]", text.Colors{text.FgYellow}},
	levelFail: {"[FAIL]", text.Colors{text.FgRed, text.Bold}},
}

// statusPrinter writes the sectioned readiness report shown by `capgate
// status`. Only the badges are coloured, and only on a terminal.
type statusPrinter struct {
	out   io.Writer
	color bool
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	p := &statusPrinter{out: out}
	if f, ok := out.(*os.File); ok {
		p.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return p
}

func (p *statusPrinter) section(title string) {
	heading := "== " + strings.TrimSpace(title) + " =="
	if p.color {
		heading = text.Colors{text.FgCyan}.Sprint(heading)
	}
	fmt.Fprintf(p.out, "\n%s\n", heading)
}

func (p *statusPrinter) item(level checkLevel, label, detail string) {
	badge := levelBadges[level]
	mark := fmt.Sprintf("%-6s", badge.label)
	if p.color {
		mark = badge.color.Sprint(mark)
	}
	fmt.Fprintf(p.out, "  %s %-18s %s\n", mark, label+":", detail)
}

// renderTable draws rows under headers; columns listed in numeric are
// right-aligned.
func renderTable(headers []string, rows [][]string, numeric ...int) string {
	if len(headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(numeric))
	for _, col := range numeric {
		configs = append(configs, table.ColumnConfig{Number: col + 1, Align: text.AlignRight, AlignHeader: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}
