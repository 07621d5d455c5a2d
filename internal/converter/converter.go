// Package converter shells out to LibreOffice to produce PDF previews of
// uploaded office documents. Conversion is best-effort: callers treat any
// failure as non-fatal and proceed without a PDF.
package converter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Converter wraps the external document converter binary.
type Converter struct {
	binary  string
	timeout time.Duration
	log     *zap.Logger
}

// New creates a Converter. binary is the LibreOffice executable name or path.
func New(binary string, timeout time.Duration, log *zap.Logger) *Converter {
	return &Converter{binary: binary, timeout: timeout, log: log}
}

// IsOfficeDocument reports whether the filename looks like an office
// document that should get a PDF preview.
func IsOfficeDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xls", ".xlsx", ".doc", ".docx":
		return true
	}
	return false
}

// exportFilter picks the LibreOffice export filter for the input, forcing
// landscape page orientation for spreadsheet and text documents.
func exportFilter(ext string) string {
	switch ext {
	case ".xls", ".xlsx":
		return `pdf:calc_pdf_Export:PageOrientation=2`
	case ".doc", ".docx":
		return `pdf:writer_pdf_Export:PageOrientation=2`
	}
	return "pdf"
}

// ConvertToPDF converts inputPath to a landscape PDF sibling in the same
// directory and returns the full path of the produced file. The call is
// bounded by the configured timeout.
func (c *Converter) ConvertToPDF(ctx context.Context, inputPath string) (string, error) {
	ext := strings.ToLower(filepath.Ext(inputPath))
	outputDir := filepath.Dir(inputPath)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary,
		"--headless",
		"--convert-to", exportFilter(ext),
		"--outdir", outputDir,
		inputPath,
	)

	start := time.Now()
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("converter failed: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}

	// LibreOffice names the output after the input with the extension
	// swapped for .pdf.
	base := strings.TrimSuffix(filepath.Base(inputPath), ext)
	pdfPath := filepath.Join(outputDir, base+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		// Some versions keep the original extension in the name.
		alt := filepath.Join(outputDir, filepath.Base(inputPath)+".pdf")
		if _, altErr := os.Stat(alt); altErr != nil {
			return "", fmt.Errorf("converter produced no output for %s", inputPath)
		}
		pdfPath = alt
	}

	c.log.Info("Converted document to PDF",
		zap.String("input", inputPath),
		zap.String("output", pdfPath),
		zap.Duration("duration", time.Since(start)))
	return pdfPath, nil
}
