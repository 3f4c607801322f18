// Package export writes tasks to backup and report formats and reads the
// backup formats back.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/tasktrack/pkg/model"
	"github.com/harrisonrobin/tasktrack/pkg/storage"
)

var ErrUnknownFormat = errors.New("unknown export format")

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

// Formats lists every format Write accepts.
var Formats = []string{FormatJSON, FormatYAML, FormatCSV, FormatPDF}

const yamlVersion = 1

type yamlDocument struct {
	Version int           `yaml:"version"`
	Tasks   []*model.Task `yaml:"tasks"`
}

// Write encodes tasks in format.
func Write(w io.Writer, format string, tasks []*model.Task) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return storage.WriteDocument(w, tasks)
	case FormatYAML:
		return writeYAML(w, tasks)
	case FormatCSV:
		return writeCSV(w, tasks)
	case FormatPDF:
		return writePDF(w, tasks, time.Now())
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Read decodes tasks written by Write. Only json and yaml can be read.
func Read(r io.Reader, format string) ([]*model.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", format, err)
	}

	switch strings.ToLower(format) {
	case FormatJSON:
		return storage.ReadDocument(data)
	case FormatYAML:
		var doc yamlDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		for i, t := range doc.Tasks {
			if err := t.Validate(); err != nil {
				return nil, fmt.Errorf("task %d: %w", i, err)
			}
		}
		return doc.Tasks, nil
	default:
		return nil, fmt.Errorf("%w: cannot read %q", ErrUnknownFormat, format)
	}
}

func writeYAML(w io.Writer, tasks []*model.Task) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlDocument{Version: yamlVersion, Tasks: tasks}); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

var csvHeader = []string{"id", "title", "status", "priority", "due", "tags", "completed_at"}

func writeCSV(w io.Writer, tasks []*model.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format(model.DateLayout)
		}
		completed := ""
		if t.CompletedAt != nil {
			completed = t.CompletedAt.Format(time.RFC3339)
		}
		record := []string{
			t.ID,
			t.Title,
			string(t.Status),
			strconv.Itoa(int(t.Priority)),
			due,
			strings.Join(t.Tags, ";"),
			completed,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writePDF(w io.Writer, tasks []*model.Task, now time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, "Task Report")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(40, 6, fmt.Sprintf("Generated %s, %d tasks", now.Format(model.DateLayout), len(tasks)))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	for _, t := range tasks {
		due := "no due date"
		if t.DueDate != nil {
			due = "due " + t.DueDate.Format(model.DateLayout)
		}
		marker := ""
		if t.IsOverdue(now) {
			marker = " OVERDUE"
		}
		line := fmt.Sprintf("[%s] %s (%s, %s)%s", t.Status, t.Title, t.Priority, due, marker)
		if len(t.Tags) > 0 {
			line += " tags: " + strings.Join(t.Tags, ", ")
		}
		pdf.MultiCell(0, 6, tr(line), "0", "L", false)
	}

	return pdf.Output(w)
}
