// Package report aggregates estimates, assets and marketing metrics into
// period reports and encodes them as JSON, CSV or Excel.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/estimator/internal/model"
)

type Format string

const (
	JSON  Format = "json"
	CSV   Format = "csv"
	Excel Format = "excel"
)

// ParseFormat accepts json, csv and excel (or xlsx). Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "excel", "xlsx":
		return Excel, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv; charset=utf-8"
	case Excel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/json"
}

// Filename is the attachment name for a report generated at t.
func (f Format) Filename(name string, t time.Time) string {
	ext := string(f)
	if f == Excel {
		ext = "xlsx"
	}
	return fmt.Sprintf("%s_%s.%s", name, t.Format("20060102"), ext)
}

// Range is an inclusive date window. Zero bounds are open.
type Range struct {
	Start model.Date `json:"start_date"`
	End   model.Date `json:"end_date"`
}

// ParseRange parses optional YYYY-MM-DD bounds.
func ParseRange(start, end string) (Range, error) {
	var (
		r   Range
		err error
	)
	if start != "" {
		if r.Start, err = model.ParseDate(start); err != nil {
			return Range{}, fmt.Errorf("start_date: %w", err)
		}
	}
	if end != "" {
		if r.End, err = model.ParseDate(end); err != nil {
			return Range{}, fmt.Errorf("end_date: %w", err)
		}
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start.Time) {
		return Range{}, fmt.Errorf("end_date %s is before start_date %s", r.End, r.Start)
	}
	return r, nil
}

func (r Range) bounds() (from, to *model.Date) {
	if !r.Start.IsZero() {
		d := r.Start
		from = &d
	}
	if !r.End.IsZero() {
		d := r.End
		to = &d
	}
	return from, to
}

// Field is one labelled summary value.
type Field struct {
	Label string
	Value any
}

// Table is a titled block of rows.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]any
}

// Sheet is the tabular form of a report shared by the CSV and Excel encoders.
type Sheet struct {
	Title   string
	Summary []Field
	Tables  []Table
}

// Document is a report that can be rendered as a sheet. Its JSON encoding is
// the report payload.
type Document interface {
	Sheet() Sheet
}

// Write encodes doc to w in format f.
func Write(w io.Writer, f Format, doc Document) error {
	switch f {
	case CSV:
		return writeCSV(w, doc.Sheet())
	case Excel:
		return writeExcel(w, doc.Sheet())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// text renders a cell value for CSV.
func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case decimal.Decimal:
		return x.String()
	case model.Date:
		return x.String()
	case *model.Date:
		if x == nil {
			return ""
		}
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// cell converts a value for Excel, keeping numbers numeric.
func cell(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case float64, int, int64, bool:
		return x
	}
	return sanitize(text(v))
}

// sanitize keeps spreadsheet applications from evaluating text as a formula.
func sanitize(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

func writeCSV(w io.Writer, s Sheet) error {
	// Excel needs the BOM to read the file as UTF-8.
	if _, err := io.WriteString(w, "\uFEFF"); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	cw := csv.NewWriter(w)
	write := func(record ...string) {
		_ = cw.Write(record)
	}

	write(s.Title)
	write()
	if len(s.Summary) > 0 {
		write("Summary")
		for _, f := range s.Summary {
			write(f.Label, sanitize(text(f.Value)))
		}
		write()
	}
	for _, t := range s.Tables {
		if len(t.Rows) == 0 {
			continue
		}
		write(t.Title)
		write(t.Columns...)
		for _, row := range t.Rows {
			record := make([]string, len(row))
			for i, v := range row {
				record[i] = sanitize(text(v))
			}
			write(record...)
		}
		write()
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

const excelSheet = "Report"

func writeExcel(w io.Writer, s Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), excelSheet); err != nil {
		return fmt.Errorf("set sheet name: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("create title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#366092"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	widths := map[int]int{}
	set := func(col, row int, v any) error {
		name, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		if n := len(text(v)); n > widths[col] {
			widths[col] = n
		}
		return f.SetCellValue(excelSheet, name, cell(v))
	}
	style := func(row, cols, id int) error {
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(max(cols, 1), row)
		return f.SetCellStyle(excelSheet, first, last, id)
	}

	row := 1
	if err := set(1, row, s.Title); err != nil {
		return fmt.Errorf("write title: %w", err)
	}
	if err := style(row, 1, titleStyle); err != nil {
		return fmt.Errorf("style title: %w", err)
	}
	row += 2

	if len(s.Summary) > 0 {
		if err := set(1, row, "Summary"); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		if err := style(row, 2, headerStyle); err != nil {
			return fmt.Errorf("style summary: %w", err)
		}
		row++
		for _, fld := range s.Summary {
			if err := set(1, row, fld.Label); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if err := set(2, row, fld.Value); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			row++
		}
		row++
	}

	for _, t := range s.Tables {
		if len(t.Rows) == 0 {
			continue
		}
		if err := set(1, row, t.Title); err != nil {
			return fmt.Errorf("write %s: %w", t.Title, err)
		}
		if err := style(row, len(t.Columns), headerStyle); err != nil {
			return fmt.Errorf("style %s: %w", t.Title, err)
		}
		row++
		for i, c := range t.Columns {
			if err := set(i+1, row, c); err != nil {
				return fmt.Errorf("write %s: %w", t.Title, err)
			}
		}
		row++
		for _, values := range t.Rows {
			for i, v := range values {
				if err := set(i+1, row, v); err != nil {
					return fmt.Errorf("write %s: %w", t.Title, err)
				}
			}
			row++
		}
		row++
	}

	for col, n := range widths {
		name, _ := excelize.ColumnNumberToName(col)
		if err := f.SetColWidth(excelSheet, name, name, math.Min(float64(n+2)*1.2, 60)); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write excel: %w", err)
	}
	return nil
}
