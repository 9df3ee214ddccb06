package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-builder/catalog"
	"catalog-builder/models"
)

const pageTemplate = "../templates/index.htm"

func sampleIndex() *models.CategoryIndex {
	products := []*models.Product{
		{Name: "Widget", URL: "https://example.com/widget", Categories: []string{"Tools", "Hardware"}, Description: "A <small> widget", Tags: []string{"metal", "small"}},
		{Name: "Gadget", URL: "https://example.com/gadget", Categories: []string{"Tools"}, Description: "Useful", Tags: []string{"plastic"}},
	}
	return catalog.BuildIndex(products)
}

func renderTo(t *testing.T, idx *models.CategoryIndex) *goquery.Document {
	t.Helper()
	out := filepath.Join(t.TempDir(), "index.html")
	r := &Renderer{
		TemplatePath:  pageTemplate,
		OutputPath:    out,
		ThumbnailDir:  filepath.Join(filepath.Dir(out), "processing", "screenshot_thumbnails"),
		ScreenshotDir: filepath.Join(filepath.Dir(out), "processing", "screenshots"),
	}
	require.NoError(t, r.Render(idx))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func TestRenderSectionsInSortedOrder(t *testing.T) {
	doc := renderTo(t, sampleIndex())

	var headings []string
	doc.Find("section.category h2").Each(func(_ int, s *goquery.Selection) {
		headings = append(headings, s.Text())
	})
	assert.Equal(t, []string{"Hardware", "Tools"}, headings)

	assert.Equal(t, 1, doc.Find("section#hardware article.product").Length())
	assert.Equal(t, 2, doc.Find("section#tools article.product").Length())
}

func TestRenderProductOrderAndImages(t *testing.T) {
	doc := renderTo(t, sampleIndex())

	tools := doc.Find("section#tools article.product")
	assert.Equal(t, "Widget", tools.Eq(0).Find("h3").Text())
	assert.Equal(t, "Gadget", tools.Eq(1).Find("h3").Text())

	src, ok := tools.Eq(0).Find("img").Attr("src")
	require.True(t, ok)
	assert.Equal(t, "processing/screenshot_thumbnails/"+models.ImageFile("https://example.com/widget"), src)

	href, _ := tools.Eq(0).Find("h3 a").Attr("href")
	assert.Equal(t, "https://example.com/widget", href)
}

func TestRenderEscapesText(t *testing.T) {
	doc := renderTo(t, sampleIndex())

	desc := doc.Find("section#hardware p.description").Text()
	assert.Equal(t, "A <small> widget", desc)
	assert.Equal(t, 0, doc.Find("p.description small").Length())
}

func TestRenderTags(t *testing.T) {
	doc := renderTo(t, sampleIndex())

	var tags []string
	doc.Find("section#hardware ul.tags li").Each(func(_ int, s *goquery.Selection) {
		tags = append(tags, s.Text())
	})
	assert.Equal(t, []string{"metal", "small"}, tags)
}

func TestRenderNavLinks(t *testing.T) {
	doc := renderTo(t, sampleIndex())

	var anchors []string
	doc.Find("nav a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		anchors = append(anchors, href)
	})
	assert.Equal(t, []string{"#hardware", "#tools"}, anchors)
}

func TestRenderMissingTemplate(t *testing.T) {
	r := &Renderer{TemplatePath: filepath.Join(t.TempDir(), "missing.htm"), OutputPath: filepath.Join(t.TempDir(), "index.html")}
	err := r.Render(sampleIndex())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRenderBadTemplate(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "broken.htm")
	require.NoError(t, os.WriteFile(tmpl, []byte("{{range .CategoryKeys}"), 0644))

	r := &Renderer{TemplatePath: tmpl, OutputPath: filepath.Join(dir, "index.html")}
	assert.ErrorContains(t, r.Render(sampleIndex()), "parse template")
	assert.NoFileExists(t, filepath.Join(dir, "index.html"))
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Tools":          "tools",
		"Home & Garden":  "home-garden",
		"  Spaced Out  ": "spaced-out",
		"C++":            "c",
		"":               "category",
		"Über":           "ber",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), "Slug(%q)", in)
	}
}

func TestRenderProductCategories(t *testing.T) {
	doc := renderTo(t, sampleIndex())

	widget := doc.Find(`article.product[data-image="` + models.ImageName("https://example.com/widget") + `"]`).First()
	val, ok := widget.Attr("data-categories")
	require.True(t, ok)
	assert.Equal(t, "Tools + Hardware", val)
}

func TestProductsHelper(t *testing.T) {
	idx := sampleIndex()

	assert.Len(t, Products(idx.Categories, "Tools"), 2)
	assert.Equal(t, "Widget", Products(idx.Categories, "Hardware")[0].Name)
	assert.Nil(t, Products(idx.Categories, "Missing"))
}
