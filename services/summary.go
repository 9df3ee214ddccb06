package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"catalog-builder/models"
	"catalog-builder/utils"
)

type SummaryService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger, out: os.Stdout}
}

func (s *SummaryService) Generate(idx *models.CategoryIndex, products []*models.Product,
	results []*models.CaptureResult, thumbnails int, outputPath string) *models.CatalogSummary {

	summary := &models.CatalogSummary{
		TotalProducts:      len(products),
		ProductsByCategory: make(map[string]int),
		Thumbnails:         thumbnails,
		OutputPath:         outputPath,
	}

	if idx != nil {
		summary.TotalCategories = len(idx.Keys)
		for _, key := range idx.Keys {
			summary.ProductsByCategory[key] = len(idx.Categories[key])
		}
	}

	for _, r := range results {
		switch r.Status {
		case models.CaptureCaptured:
			summary.Captured++
		case models.CaptureCached:
			summary.Cached++
		case models.CaptureFailed:
			summary.Failed++
			summary.FailedURLs = append(summary.FailedURLs, r.URL)
		}
	}

	s.logger.Debug("[summary] %d products, %d categories, %d/%d/%d captured/cached/failed",
		summary.TotalProducts, summary.TotalCategories, summary.Captured, summary.Cached, summary.Failed)
	return summary
}

func (s *SummaryService) Print(r *models.CatalogSummary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)
	w := s.out

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  PRODUCT CATALOG BUILD\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Products   : \033[1m%d\033[0m\n", r.TotalProducts)
	fmt.Fprintf(w, "  Categories : \033[1m%d\033[0m\n", r.TotalCategories)
	fmt.Fprintf(w, "  Thumbnails : \033[1m%d\033[0m\n", r.Thumbnails)
	fmt.Fprintf(w, "  Page       : %s\n", r.OutputPath)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Screenshots\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Captured : \033[1;32m%d\033[0m\n", r.Captured)
	fmt.Fprintf(w, "  Cached   : \033[1;36m%d\033[0m\n", r.Cached)
	fmt.Fprintf(w, "  Failed   : \033[1;31m%d\033[0m\n", r.Failed)
	for _, url := range r.FailedURLs {
		fmt.Fprintf(w, "    - %s\n", truncate(url, 60))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Products by Category\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ProductsByCategory) == 0 {
		fmt.Fprintf(w, "  No categories\n")
	} else {
		type catCount struct {
			name  string
			count int
		}
		var cats []catCount
		for name, n := range r.ProductsByCategory {
			cats = append(cats, catCount{name, n})
		}
		// biggest first, then by name so the output is stable
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].count != cats[j].count {
				return cats[i].count > cats[j].count
			}
			return cats[i].name < cats[j].name
		})
		for _, c := range cats {
			bar := strings.Repeat("█", c.count)
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(c.name, 28), bar, c.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
