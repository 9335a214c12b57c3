// Package export writes course outlines as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/educonnect/internal/course"
)

// Sheet names, in workbook order.
const (
	SheetOutline   = "Outline"
	SheetQuestions = "Questions"
	SheetResources = "Resources"
)

var (
	outlineHeader   = []any{"Day", "Module", "Module description", "Topic", "Questions", "Resources"}
	questionsHeader = []any{"Day", "Module", "Topic", "#", "Question", "Answer"}
	resourcesHeader = []any{"Day", "Module", "Topic", "Type", "Title", "URL", "Description"}
)

// WriteWorkbook writes the course outline, its practice questions and its
// resources as an xlsx workbook with one sheet each.
func WriteWorkbook(w io.Writer, c *course.Course) error {
	if c == nil {
		return fmt.Errorf("export: course is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetOutline); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	for _, name := range []string{SheetQuestions, SheetResources} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("export: create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	outline := newSheetWriter(f, SheetOutline, bold, outlineHeader)
	questions := newSheetWriter(f, SheetQuestions, bold, questionsHeader)
	resources := newSheetWriter(f, SheetResources, bold, resourcesHeader)

	for _, m := range c.Modules {
		for _, t := range m.Topics {
			outline.row(m.Day, m.Title, m.Description, t.Title, len(t.PracticeQuestions), len(t.Resources))
			for i, q := range t.PracticeQuestions {
				questions.row(m.Day, m.Title, t.Title, i+1, q.Question, q.Answer)
			}
			for _, r := range t.Resources {
				cell := resources.row(m.Day, m.Title, t.Title, string(r.Type), r.Title, r.URL, r.Description)
				if r.URL != "" && resources.err == nil {
					link, _ := excelize.CoordinatesToCellName(6, cell)
					resources.err = f.SetCellHyperLink(SheetResources, link, r.URL, "External")
				}
			}
		}
	}

	for _, s := range []*sheetWriter{outline, questions, resources} {
		if s.err != nil {
			return fmt.Errorf("export: sheet %s: %w", s.name, s.err)
		}
		if err := s.finish(); err != nil {
			return fmt.Errorf("export: sheet %s: %w", s.name, err)
		}
	}

	f.SetActiveSheet(0)
	if err := f.SetDocProps(&excelize.DocProperties{Title: c.Title, Creator: "EduConnect"}); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

// sheetWriter appends rows to one sheet and keeps the first error.
type sheetWriter struct {
	f    *excelize.File
	name string
	cols int
	next int
	err  error
}

func newSheetWriter(f *excelize.File, name string, headerStyle int, header []any) *sheetWriter {
	s := &sheetWriter{f: f, name: name, cols: len(header), next: 1}
	s.row(header...)
	if s.err == nil {
		last, _ := excelize.CoordinatesToCellName(s.cols, 1)
		s.err = f.SetCellStyle(name, "A1", last, headerStyle)
	}
	return s
}

// row writes values to the next row and returns its 1-based number.
func (s *sheetWriter) row(values ...any) int {
	n := s.next
	if s.err != nil {
		return n
	}
	cell, _ := excelize.CoordinatesToCellName(1, n)
	s.err = s.f.SetSheetRow(s.name, cell, &values)
	s.next++
	return n
}

func (s *sheetWriter) finish() error {
	if err := s.f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(s.cols)
	return s.f.SetColWidth(s.name, "A", last, 22)
}
