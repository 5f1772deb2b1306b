// Package export writes ranked results to spreadsheet formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ZanzyTHEbar/tube-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/tube-o-meter/internal/types"
)

// Format is an export file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "xlsx" or "csv", defaulting to xlsx
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "xlsx", "excel":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileName returns a download name for a ranking export
func (f Format) FileName(base string) string {
	return fmt.Sprintf("%s.%s", base, f)
}

// TimestampLayout is how publish times are rendered in text exports
const TimestampLayout = "2006-01-02 15:04:05"

// Table is a header row plus data rows ready to be written
type Table struct {
	Headers []string
	Rows    [][]interface{}
}

// BuildTable flattens a ranking. Video rankings get the video columns
// (timestamps as WIB wall clock without zone); other pipelines get the label
// and raw values.
func BuildTable(r analysis.Ranking, videos []types.Video) Table {
	criteria := make([]string, len(r.Criteria))
	for i, c := range r.Criteria {
		criteria[i] = c.Name
	}

	byID := make(map[string]types.Video, len(videos))
	for _, v := range videos {
		byID[v.VideoID] = v
	}
	video := r.Pipeline == analysis.PipelineVideo

	t := Table{}
	if video {
		t.Headers = []string{"rank", "video_id", "title", "published_at", "view_count", "like_count", "comment_count", "engagement_rate"}
	} else {
		t.Headers = []string{"rank", "id", "label"}
		t.Headers = append(t.Headers, criteria...)
	}
	for _, name := range criteria {
		t.Headers = append(t.Headers, "norm_"+name)
	}
	t.Headers = append(t.Headers, "preference_score")

	for _, a := range r.Alternatives {
		row := []interface{}{a.Rank}
		if video {
			v := byID[a.ID]
			row = append(row, a.ID, a.Label, wallClock(v.PublishedAt), v.ViewCount, v.LikeCount, v.CommentCount, a.Raw[analysis.CriterionEngagementRate])
		} else {
			row = append(row, a.ID, a.Label)
			for _, name := range criteria {
				row = append(row, a.Raw[name])
			}
		}
		for _, name := range criteria {
			row = append(row, a.Normalized[name])
		}
		row = append(row, a.Score)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// wallClock drops the zone while keeping the WIB wall-clock reading
func wallClock(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	l := analysis.LocalTime(t)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), 0, time.UTC)
}

// WriteXLSX writes the table as a single-sheet workbook
func WriteXLSX(w io.Writer, t Table, sheet string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Ranking"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
	if err != nil {
		return fmt.Errorf("failed to resolve header range: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to resolve row %d: %w", i+1, err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteCSV writes the table as comma-separated values
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(TimestampLayout)
	default:
		return fmt.Sprint(x)
	}
}

// Write dispatches on format
func Write(w io.Writer, format Format, t Table) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, t)
	default:
		return WriteXLSX(w, t, "Ranking")
	}
}
