// Package export renders the task list as JSON, CSV or PDF.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/basket/tasklist/internal/tasks"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json, csv, pdf)", s)
	}
}

// Source is the collection being exported.
type Source interface {
	Tasks() []tasks.Task
}

// Options selects which tasks are written.
type Options struct {
	// IncludeDeleted writes soft-deleted rows too. JSON output with deleted
	// rows is a complete dump that `tasklist import` accepts.
	IncludeDeleted bool
	// Query filters active rows the same way the list view does. Paging is
	// ignored; every matching row is written.
	Query tasks.Query
}

type Exporter struct {
	src Source
	now func() time.Time
}

func NewExporter(src Source) *Exporter { return &Exporter{src: src, now: time.Now} }

// Rows returns the tasks an export with opts would contain, in list order.
func (e *Exporter) Rows(opts Options) []tasks.Task {
	all := e.src.Tasks()
	if opts.IncludeDeleted {
		return all
	}
	q := opts.Query
	q.Page = 1
	q.PageSize = max(len(all), 1)
	return tasks.ComputeActiveView(all, q).Items
}

func (e *Exporter) Export(w io.Writer, format Format, opts Options) error {
	rows := e.Rows(opts)
	switch format {
	case FormatJSON:
		return writeJSON(w, rows)
	case FormatCSV:
		return writeCSV(w, rows)
	case FormatPDF:
		return writePDF(w, rows, e.now())
	default:
		return fmt.Errorf("unknown format %s", format)
	}
}

func writeJSON(w io.Writer, rows []tasks.Task) error {
	if rows == nil {
		rows = []tasks.Task{}
	}
	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

func writeCSV(w io.Writer, rows []tasks.Task) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"sr_no", "id", "text", "created_at", "updated_at", "deleted_at"})
	for i, t := range rows {
		_ = cw.Write([]string{
			strconv.Itoa(i + 1),
			t.ID.String(),
			t.Text,
			t.CreatedAt.String(),
			dateOrEmpty(t.UpdatedAt),
			dateOrEmpty(t.DeletedAt),
		})
	}
	cw.Flush()
	return cw.Error()
}

func dateOrEmpty(d *tasks.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func dateOrDash(d *tasks.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

const (
	colSrNo    = 16.0
	colTask    = 104.0
	colCreated = 25.0
	colUpdated = 25.0
	rowHeight  = 7.0
)

func writePDF(w io.Writer, rows []tasks.Task, generated time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Task List", true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Task List")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s, %d tasks", generated.Format(tasks.DateLayout), len(rows)))
	pdf.Ln(8)

	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(colSrNo, rowHeight, "Sr. No.", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colTask, rowHeight, "Task", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colCreated, rowHeight, "Created", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colUpdated, rowHeight, "Updated", "1", 1, "C", true, 0, "")
		pdf.SetFont("Arial", "", 10)
	}
	header()

	if len(rows) == 0 {
		pdf.CellFormat(colSrNo+colTask+colCreated+colUpdated, rowHeight, "No tasks", "1", 1, "C", false, 0, "")
	}
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for i, t := range rows {
		text := tr(t.Text)
		if t.Deleted() {
			text += tr(" (deleted " + t.DeletedAt.String() + ")")
		}
		lines := pdf.SplitLines([]byte(text), colTask-2)
		h := rowHeight * float64(max(len(lines), 1))
		if pdf.GetY()+h > pageHeight-bottom-10 {
			pdf.AddPage()
			header()
		}

		x, y := pdf.GetXY()
		pdf.CellFormat(colSrNo, h, strconv.Itoa(i+1), "1", 0, "C", false, 0, "")
		pdf.MultiCell(colTask, rowHeight, text, "1", "L", false)
		pdf.SetXY(x+colSrNo+colTask, y)
		pdf.CellFormat(colCreated, h, t.CreatedAt.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colUpdated, h, dateOrDash(t.UpdatedAt), "1", 1, "C", false, 0, "")
	}
	return pdf.Output(w)
}
