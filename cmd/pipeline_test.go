package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docscan/internal/config"
	"docscan/internal/extract"
	"docscan/internal/ocr"
	"docscan/pkg/models"
)

func testPipeline(t *testing.T) *pipeline {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)

	p, err := newPipeline(context.Background(), cfg, ocr.EngineSpans, "invoice", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestPipeline_Process(t *testing.T) {
	p := testPipeline(t)
	path := writeFile(t, "scan.json", `[
		["Invoice No: RE-2024-017", 0.93, 0],
		["Date: 15.03.2024", 0.41, 1]
	]`)

	out, analysis, err := p.process(context.Background(), path, "req-1", true)
	require.NoError(t, err)

	assert.Equal(t, "scan.json", out.File)
	assert.Equal(t, "req-1", out.RequestID)
	assert.Equal(t, ocr.EngineSpans, out.Engine)
	assert.Equal(t, "invoice", out.RuleSet)

	v, ok := out.Record.Value("invoice_number")
	require.True(t, ok)
	assert.Equal(t, "RE-2024-017", v.String())

	require.NotEmpty(t, out.Report)
	assert.Equal(t, models.MissingRequiredField, out.Report[0].Kind)
	assert.Equal(t, "total_amount", out.Report[0].Field)
	require.NotNil(t, out.Quality)
	assert.Equal(t, analysis.Quality, *out.Quality)
	assert.NotEmpty(t, out.Review)
}

func TestPipeline_ProcessWithoutReport(t *testing.T) {
	p := testPipeline(t)
	path := writeFile(t, "scan.json", `[["Total: 99.50", 0.9, 0]]`)

	out, _, err := p.process(context.Background(), path, "req-2", false)
	require.NoError(t, err)
	assert.Nil(t, out.Quality)
	assert.Empty(t, out.Report)
	assert.Empty(t, out.Review)
}

func TestPipeline_ProcessErrors(t *testing.T) {
	p := testPipeline(t)

	_, _, err := p.process(context.Background(), writeFile(t, "empty.json", `[]`), "req", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, extract.ErrEmptyInput))
	assert.Contains(t, handleProcessingError(err).Error(), "no usable text")

	_, _, err = p.process(context.Background(), writeFile(t, "bad.json", `{"spans": 3}`), "req", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ocr.ErrUnsupportedFormat))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = p.process(ctx, writeFile(t, "scan.json", `[["a", 0.9, 0]]`), "req", false)
	require.Error(t, err)
	assert.Equal(t, "processing was canceled", handleProcessingError(err).Error())
}

func TestNewPipeline_Errors(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	_, err = newPipeline(context.Background(), cfg, ocr.EngineSpans, "nope", zerolog.Nop())
	assert.Error(t, err)

	_, err = newPipeline(context.Background(), cfg, "carrier-pigeon", "invoice", zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown OCR engine")
}
