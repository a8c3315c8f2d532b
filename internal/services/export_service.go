package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"spotfinder_go_backend/internal/models"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog/log"
)

var ErrExportUnavailable = errors.New("export is not available")

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ExportFilename builds SpotFinder-<title>-<date>.<ext>, with the title cut to
// 15 characters and everything outside [A-Za-z0-9] replaced by "_".
func ExportFilename(session *models.ChatSession, now time.Time, ext string) string {
	name := "Chat"
	if session != nil {
		runes := []rune(session.Title)
		if len(runes) > 15 {
			runes = runes[:15]
		}
		name = unsafeFilenameChars.ReplaceAllString(string(runes), "_")
	}
	return fmt.Sprintf("SpotFinder-%s-%s.%s", name, now.UTC().Format("2006-01-02"), ext)
}

type ExportService struct {
	store    *SessionStore
	exporter Exporter
	now      func() time.Time
}

// NewExportService accepts a nil exporter; exports then fail with
// ErrExportUnavailable.
func NewExportService(store *SessionStore, exporter Exporter) *ExportService {
	return &ExportService{
		store:    store,
		exporter: exporter,
		now:      time.Now,
	}
}

func (s *ExportService) ExportSession(sessionID string) (string, []byte, error) {
	if s.exporter == nil {
		log.Error().Msg("No exporter configured")
		return "", nil, ErrExportUnavailable
	}
	session, ok := s.store.Get(sessionID)
	if !ok {
		return "", nil, ErrSessionNotFound
	}

	var buf bytes.Buffer
	if err := s.exporter.Export(&session, &buf); err != nil {
		return "", nil, fmt.Errorf("failed to export session %s: %w", sessionID, err)
	}
	return ExportFilename(&session, s.now(), s.exporter.Extension()), buf.Bytes(), nil
}

// PDFExporter lays a session out as an A4 document.
type PDFExporter struct{}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

func (e *PDFExporter) Extension() string {
	return "pdf"
}

func (e *PDFExporter) Export(session *models.ChatSession, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(session.Title, true)
	pdf.SetCreator("SpotFinder", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, tr(session.Title), "", "L", false)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, session.UpdatedAt.UTC().Format(time.RFC1123), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, msg := range session.Messages {
		label := "You"
		if msg.Role == models.RoleModel {
			label = "SpotFinder"
		}
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 6, fmt.Sprintf("%s - %s", label, msg.Timestamp.UTC().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5, tr(strings.ReplaceAll(msg.Text, "**", "")), "", "L", false)

		if msg.ChartSpec != nil {
			writeChartTable(pdf, tr, msg.ChartSpec)
		}

		if len(msg.RelatedQuestions) > 0 {
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "I", 10)
			for _, q := range msg.RelatedQuestions {
				pdf.MultiCell(0, 5, tr("> "+q), "", "L", false)
			}
		}

		if sources := UniqueSources(msg.GroundingMetadata); len(sources) > 0 {
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "", 8)
			for _, src := range sources {
				pdf.MultiCell(0, 4, tr(fmt.Sprintf("[%s] %s - %s", src.Kind, src.Title, src.URI)), "", "L", false)
			}
		}
		pdf.Ln(4)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func writeChartTable(pdf *gofpdf.Fpdf, tr func(string) string, chart *models.ChartSpec) {
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s (%s)", chart.Title, chart.Type)), "", 1, "L", false, 0, "")

	xLabel, yLabel := chart.XLabel, chart.YLabel
	if xLabel == "" {
		xLabel = "Label"
	}
	if yLabel == "" {
		yLabel = "Value"
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(90, 5, tr(xLabel), "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 5, tr(yLabel), "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, point := range chart.Data {
		pdf.CellFormat(90, 5, tr(point.Label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 5, fmt.Sprintf("%g", point.Value), "1", 1, "R", false, 0, "")
	}
}
