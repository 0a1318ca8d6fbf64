package report

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type tableMode int

const (
	modeASCII tableMode = iota
	modeMarkdown
)

// tableBuilder is a thin wrapper over go-pretty rendering one table in one
// mode.
type tableBuilder struct {
	writer table.Writer
	mode   tableMode
}

func newTable(m tableMode) *tableBuilder {
	w := table.NewWriter()
	if m == modeASCII {
		w.SetStyle(table.StyleLight)
	}
	return &tableBuilder{writer: w, mode: m}
}

func (b *tableBuilder) header(cols ...string) *tableBuilder {
	row := make(table.Row, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	b.writer.AppendHeader(row)
	return b
}

func (b *tableBuilder) row(vals ...any) *tableBuilder {
	b.writer.AppendRow(table.Row(vals))
	return b
}

func (b *tableBuilder) footer(vals ...any) *tableBuilder {
	b.writer.AppendFooter(table.Row(vals))
	return b
}

func (b *tableBuilder) alignRight(cols ...int) *tableBuilder {
	cfgs := make([]table.ColumnConfig, 0, len(cols))
	for _, c := range cols {
		cfgs = append(cfgs, table.ColumnConfig{Number: c, Align: text.AlignRight})
	}
	b.writer.SetColumnConfigs(cfgs)
	return b
}

func (b *tableBuilder) maxWidth(col, width int) *tableBuilder {
	b.writer.SetColumnConfigs([]table.ColumnConfig{{Number: col, WidthMax: width}})
	return b
}

func (b *tableBuilder) String() string {
	if b.mode == modeMarkdown {
		return b.writer.RenderMarkdown()
	}
	return b.writer.Render()
}
