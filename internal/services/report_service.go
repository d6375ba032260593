package services

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/acadarchive/archive-api/internal/models"
	"github.com/acadarchive/archive-api/internal/repository"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// ReportService produces downloadable exports of the archive: an XLSX
// listing of abstracts and a per-abstract PDF record sheet.
type ReportService struct {
	repo repository.AbstractRepository
}

// NewReportService creates a new report service
func NewReportService(repo repository.AbstractRepository) *ReportService {
	return &ReportService{repo: repo}
}

// AbstractsXLSX renders the abstracts matching the query as a spreadsheet
func (s *ReportService) AbstractsXLSX(ctx context.Context, query *repository.AbstractQuery) (*bytes.Buffer, error) {
	abstracts, _, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Abstracts"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ID", "Title", "Kind", "Program / Department", "Researchers", "Citation", "Has File", "Created"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err == nil {
		f.SetCellStyle(sheet, "A1", "H1", headerStyle)
	}

	for i := range abstracts {
		v := abstracts[i].ToView()
		row := i + 2
		hasFile := "No"
		if v.FileLocation != nil {
			hasFile = "Yes"
		}
		values := []any{
			v.ID,
			v.Title,
			v.Kind,
			v.RelatedName,
			v.Researchers,
			v.Citation,
			hasFile,
			abstracts[i].CreatedAt.Format("2006-01-02"),
		}
		for col, val := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, val)
		}
	}

	f.SetColWidth(sheet, "B", "B", 50)
	f.SetColWidth(sheet, "D", "F", 30)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	return &buf, nil
}

// RecordSheetPDF renders a one-page PDF summary of a single abstract
func (s *ReportService) RecordSheetPDF(ctx context.Context, view *models.AbstractView) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Abstract Record Sheet", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Generated "+time.Now().Format("January 2, 2006"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	writeField := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 7, value, "", "L", false)
	}

	writeField("Record ID", strconv.FormatUint(uint64(view.ID), 10))
	writeField("Title", view.Title)
	writeField("Kind", view.Kind)
	if view.Kind == models.KindThesis {
		writeField("Program", view.RelatedName)
	} else {
		writeField("Department", view.RelatedName)
	}
	writeField("Researchers", view.Researchers)
	writeField("Citation", view.Citation)

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, "Abstract", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, view.Description, "", "J", false)

	if view.FileName != nil {
		pdf.Ln(4)
		writeField("Attachment", *view.FileName)
		if view.FileSize != nil {
			writeField("File size", fmt.Sprintf("%d bytes", *view.FileSize))
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return &buf, nil
}
