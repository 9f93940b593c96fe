package extractor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const reportSuffix = "_extracted_info.json"

// DefaultOutputPath derives <outputDir>/<stem>_extracted_info.json from the
// input file name.
func (e *Extractor) DefaultOutputPath() string {
	return DefaultOutputPath(e.outputDir, e.pres.Path)
}

// DefaultOutputPath is the report path for input inside outputDir.
func DefaultOutputPath(outputDir, input string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return filepath.Join(outputDir, stem+reportSuffix)
}

// Save writes AllInformation as indented JSON to outputPath, or to
// DefaultOutputPath when outputPath is empty, and returns the path written.
func (e *Extractor) Save(outputPath string) (string, error) {
	if outputPath == "" {
		outputPath = e.DefaultOutputPath()
	}
	if err := WriteJSON(outputPath, e.AllInformation()); err != nil {
		return "", &WriteError{Path: outputPath, Err: err}
	}
	e.logger.Info().Str("path", outputPath).Msg("extracted information saved")
	return outputPath, nil
}

// WriteJSON writes v as UTF-8 JSON with two-space indentation. Non-ASCII
// and HTML characters are written as is.
func WriteJSON(path string, v any) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}
