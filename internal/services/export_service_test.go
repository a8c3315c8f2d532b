package services

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"spotfinder_go_backend/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportableSession() models.ChatSession {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.ChatSession{
		ID:        "s1",
		Title:     "Best tacos in the Mission?",
		UpdatedAt: at,
		Messages: []models.Message{
			{ID: "u1", Role: models.RoleUser, Text: "Best tacos in the Mission?", Timestamp: at},
			{
				ID: "m1", Role: models.RoleModel, Text: "Try **Farolito** on Mission Street.", Timestamp: at.Add(3 * time.Second),
				ChartSpec: &models.ChartSpec{
					Type: models.ChartBar, Title: "Ratings",
					Data: []models.ChartDataPoint{{Label: "Farolito", Value: 4.6}, {Label: "Taqueria", Value: 4.5}},
				},
				RelatedQuestions: []string{"Open late?"},
				GroundingMetadata: &models.GroundingMetadata{GroundingChunks: []models.GroundingChunk{
					{Web: &models.Source{URI: "https://www.yelp.com/a", Title: "Yelp"}},
					{Web: &models.Source{URI: "https://www.yelp.com/a", Title: "Yelp"}},
				}},
			},
		},
	}
}

func extractPDFText(t *testing.T, data []byte) string {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var content strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		require.NoError(t, err)
		content.WriteString(text)
	}
	return content.String()
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)
	session := models.ChatSession{Title: "Best tacos in the Mission?"}

	assert.Equal(t, "SpotFinder-Best_tacos_in_t-2025-03-01.pdf", ExportFilename(&session, now, "pdf"))
	assert.Equal(t, "SpotFinder-Chat-2025-03-01.pdf", ExportFilename(nil, now, "pdf"))

	short := models.ChatSession{Title: "café"}
	assert.Equal(t, "SpotFinder-caf_-2025-03-01.pdf", ExportFilename(&short, now, "pdf"))
}

func TestPDFExporter_ProducesValidDocument(t *testing.T) {
	session := exportableSession()
	var buf bytes.Buffer

	require.NoError(t, NewPDFExporter().Export(&session, &buf))

	model.ConfigPath = "disable"
	require.NoError(t, api.Validate(bytes.NewReader(buf.Bytes()), model.NewDefaultConfiguration()))

	text := extractPDFText(t, buf.Bytes())
	for _, want := range []string{"Farolito", "Ratings", "Yelp", "SpotFinder"} {
		assert.Contains(t, text, want)
	}
	assert.NotContains(t, text, "**")
}

func TestExportService_ExportSession(t *testing.T) {
	store := newTestStore(newMemoryKV())
	created, err := store.Create("Best tacos in the Mission?")
	require.NoError(t, err)

	svc := NewExportService(store, NewPDFExporter())
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }

	filename, data, err := svc.ExportSession(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "SpotFinder-Best_tacos_in_t-2025-03-01.pdf", filename)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	_, _, err = svc.ExportSession("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestExportService_NoExporter(t *testing.T) {
	svc := NewExportService(newTestStore(newMemoryKV()), nil)

	_, _, err := svc.ExportSession("any")

	assert.ErrorIs(t, err, ErrExportUnavailable)
}

type failingExporter struct{}

func (failingExporter) Export(*models.ChatSession, io.Writer) error { return errors.New("disk full") }
func (failingExporter) Extension() string                           { return "pdf" }

func TestExportService_ExporterFailureIsWrapped(t *testing.T) {
	store := newTestStore(newMemoryKV())
	created, err := store.Create("tacos")
	require.NoError(t, err)

	_, _, err = NewExportService(store, failingExporter{}).ExportSession(created.ID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
