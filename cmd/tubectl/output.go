package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// printer handles formatted output to the terminal
type printer struct {
	out  io.Writer
	err  io.Writer
	warn *color.Color
	ok   *color.Color
	bold *color.Color
}

func newPrinter(out, err io.Writer, useColors bool) *printer {
	p := &printer{
		out:  out,
		err:  err,
		warn: color.New(color.FgYellow),
		ok:   color.New(color.FgGreen),
		bold: color.New(color.Bold),
	}
	if !useColors {
		p.warn.DisableColor()
		p.ok.DisableColor()
		p.bold.DisableColor()
	}
	return p
}

// Warn writes a highlighted warning to stderr
func (p *printer) Warn(format string, args ...interface{}) {
	p.warn.Fprintf(p.err, "warning: "+format+"\n", args...)
}

// Success writes a highlighted confirmation to stdout
func (p *printer) Success(format string, args ...interface{}) {
	p.ok.Fprintf(p.out, format+"\n", args...)
}

// Header writes a bold section title to stdout
func (p *printer) Header(title string) {
	p.bold.Fprintln(p.out, title)
}

// table buffers rows and renders them with tablewriter
type table struct {
	table  *tablewriter.Table
	header []string
	rows   [][]string
}

func newTable(w io.Writer, headers []string) *table {
	t := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	return &table{table: t, header: headers}
}

func (t *table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

func (t *table) Render() error {
	t.table.Header(t.header)
	if err := t.table.Bulk(t.rows); err != nil {
		return err
	}
	return t.table.Render()
}

// formatValue prints whole numbers without decimals
func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// truncate shortens s to n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
