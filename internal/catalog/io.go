package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"bulliondeals/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

// Encode writes v as JSON, indented when pretty is set.
func Encode(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if pretty {
		enc.SetIndent("", "  ")
	}

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// Read decodes a catalog document. PricePerOz is recomputed for every product.
func Read(r io.Reader) (*models.Catalog, error) {
	var cat models.Catalog
	if err := json.NewDecoder(r).Decode(&cat); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	for i := range cat.Products {
		cat.Products[i].RecomputePricePerOz()
	}

	return &cat, nil
}

// ReadResults decodes a dump of raw adapter results.
func ReadResults(r io.Reader) ([]models.SourceResult, error) {
	var results []models.SourceResult
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, fmt.Errorf("failed to decode adapter results: %w", err)
	}

	return results, nil
}

// LoadFile reads a catalog from path.
func LoadFile(path string) (*models.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// WriteFile writes v as JSON to path, creating parent directories. "-" writes to stdout.
func WriteFile(path string, v any, pretty bool) error {
	if path == "-" || path == "" {
		return Encode(os.Stdout, v, pretty)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := Encode(f, v, pretty); err != nil {
		_ = f.Close()

		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	return nil
}
