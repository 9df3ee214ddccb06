package catalog

import (
	"errors"
	"fmt"
	"strings"

	"catalog-builder/models"
)

// ListSeparator joins multiple categories or tags inside a single CSV cell.
const ListSeparator = "+"

var (
	// ErrMissingField is wrapped by ParseError when a row is shorter than the schema.
	ErrMissingField = errors.New("missing field")
	// ErrEmptyCatalog is returned when the file has no header row.
	ErrEmptyCatalog = errors.New("catalog: file is empty")
)

// ParseError names the offending row by its file line (1-based, header is
// line 1) and field.
type ParseError struct {
	Row   int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("catalog: row %d, field %q: %v", e.Row, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Field describes one positional column and how it is written into a Product.
type Field struct {
	Name     string
	Position int
	Apply    func(p *models.Product, raw string)
}

// Schema is the ordered column layout of a catalog file.
type Schema []Field

// DefaultSchema is name, url, categories, description, tags.
var DefaultSchema = Schema{
	{Name: "name", Position: 0, Apply: func(p *models.Product, raw string) { p.Name = raw }},
	{Name: "url", Position: 1, Apply: func(p *models.Product, raw string) { p.URL = raw }},
	{Name: "categories", Position: 2, Apply: func(p *models.Product, raw string) { p.Categories = ParseList(raw) }},
	{Name: "description", Position: 3, Apply: func(p *models.Product, raw string) { p.Description = raw }},
	{Name: "tags", Position: 4, Apply: func(p *models.Product, raw string) { p.Tags = ParseList(raw) }},
}

// Width is the minimum number of columns a row must carry.
func (s Schema) Width() int {
	width := 0
	for _, f := range s {
		if f.Position+1 > width {
			width = f.Position + 1
		}
	}
	return width
}

// Parse maps one record onto a Product. row is used only for error reporting.
func (s Schema) Parse(row int, record []string) (*models.Product, error) {
	p := &models.Product{}
	for _, f := range s {
		if f.Position >= len(record) {
			return nil, &ParseError{Row: row, Field: f.Name, Err: ErrMissingField}
		}
		f.Apply(p, record[f.Position])
	}
	return p, nil
}

// ParseList splits a "+"-joined cell and trims every item. Empty items are kept.
func ParseList(raw string) []string {
	parts := strings.Split(raw, ListSeparator)
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}
