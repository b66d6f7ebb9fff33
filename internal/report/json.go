package report

import (
	"encoding/json"
	"io"
)

// JSONGenerator writes manifests and datasets as JSON.
type JSONGenerator struct {
	Indent bool
}

// Generate writes the manifest to w.
func (g *JSONGenerator) Generate(r *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if g.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(r)
}

// GenerateDataset writes one dataset to w.
func (g *JSONGenerator) GenerateDataset(d *Dataset, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if g.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(d)
}

// Extension returns the file extension for generated files.
func (g *JSONGenerator) Extension() string {
	return "json"
}
