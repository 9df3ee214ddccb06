package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"catalog-builder/models"
)

// Load reads the catalog file at path. The header row is skipped and products
// come back in file order.
func Load(path string) ([]*models.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", path, err)
	}
	defer f.Close()

	return LoadReader(f)
}

// LoadReader parses catalog rows from r using DefaultSchema.
func LoadReader(r io.Reader) ([]*models.Product, error) {
	return DefaultSchema.Load(r)
}

// Load parses catalog rows from r using this schema.
func (s Schema) Load(r io.Reader) ([]*models.Product, error) {
	reader := csv.NewReader(r)
	reader.Comma = ','
	// Row width is validated by the schema so short rows get a named error.
	reader.FieldsPerRecord = -1
	// Hand-edited descriptions carry stray quotes such as 27" screen.
	reader.LazyQuotes = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyCatalog
		}
		return nil, fmt.Errorf("catalog: read header: %w", err)
	}

	var products []*models.Product
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			row := 0
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				row = csvErr.StartLine
			}
			return nil, &ParseError{Row: row, Field: "record", Err: err}
		}

		// blank lines are skipped by the reader, so count lines, not records
		row, _ := reader.FieldPos(0)
		p, err := s.Parse(row, record)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	return products, nil
}

// URLs returns every product URL in file order. Duplicates are kept.
func URLs(products []*models.Product) []string {
	urls := make([]string, 0, len(products))
	for _, p := range products {
		urls = append(urls, p.URL)
	}
	return urls
}
