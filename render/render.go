package render

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"catalog-builder/models"
	"catalog-builder/utils"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// PageData is the value the page template is executed with.
type PageData struct {
	Categories    map[string][]*models.Product
	CategoryKeys  []string
	ThumbnailDir  string
	ScreenshotDir string
	GeneratedAt   time.Time
}

// Renderer executes the page template and writes the result to OutputPath.
type Renderer struct {
	TemplatePath  string
	OutputPath    string
	ThumbnailDir  string
	ScreenshotDir string
	Logger        *utils.Logger
}

// Render writes the catalog page for idx.
func (r *Renderer) Render(idx *models.CategoryIndex) error {
	src, err := os.ReadFile(r.TemplatePath)
	if err != nil {
		return fmt.Errorf("render: read template: %w", err)
	}

	tmpl, err := template.New(filepath.Base(r.TemplatePath)).Funcs(Funcs()).Parse(string(src))
	if err != nil {
		return fmt.Errorf("render: parse template %q: %w", r.TemplatePath, err)
	}

	data := PageData{
		Categories:    idx.Categories,
		CategoryKeys:  idx.Keys,
		ThumbnailDir:  r.relative(r.ThumbnailDir),
		ScreenshotDir: r.relative(r.ScreenshotDir),
		GeneratedAt:   time.Now(),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render: execute template: %w", err)
	}

	if dir := filepath.Dir(r.OutputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("render: create output dir: %w", err)
		}
	}
	if err := utils.WriteFileAtomic(r.OutputPath, buf.Bytes()); err != nil {
		return fmt.Errorf("render: write %q: %w", r.OutputPath, err)
	}

	if r.Logger != nil {
		r.Logger.Info("[render] Wrote %s (%d categories, %d bytes)", r.OutputPath, len(idx.Keys), buf.Len())
	}
	return nil
}

// relative turns dir into a slash path relative to the output file, which is
// how the page refers to images.
func (r *Renderer) relative(dir string) string {
	if dir == "" {
		return ""
	}
	rel, err := filepath.Rel(filepath.Dir(r.OutputPath), dir)
	if err != nil {
		return filepath.ToSlash(dir)
	}
	return filepath.ToSlash(rel)
}

// Funcs are the helpers available to the page template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"join":     strings.Join,
		"slug":     Slug,
		"products": Products,
	}
}

// Products returns the products filed under key, or nil for an unknown key.
func Products(categories map[string][]*models.Product, key string) []*models.Product {
	return categories[key]
}

// Slug turns a category name into an anchor id.
func Slug(s string) string {
	s = nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "category"
	}
	return s
}
