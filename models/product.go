package models

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// Product is one catalog row. It is built once at load time and never mutated.
type Product struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Categories  []string `json:"categories"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ImageName returns the hex SHA-1 of the product URL, used as a stable filename.
func (p *Product) ImageName() string {
	return ImageName(p.URL)
}

// ImageFile returns the screenshot/thumbnail filename for the product.
func (p *Product) ImageFile() string {
	return ImageFile(p.URL)
}

// ImageName hashes a URL into the name shared by its screenshot and thumbnail.
func ImageName(url string) string {
	sum := sha1.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// ImageFile is ImageName plus the .png extension.
func ImageFile(url string) string {
	return ImageName(url) + ".png"
}

// CategoryIndex groups products by category. Keys is sorted for display.
type CategoryIndex struct {
	Categories map[string][]*Product
	Keys       []string
}

type CaptureStatus string

const (
	CaptureCaptured CaptureStatus = "captured"
	CaptureCached   CaptureStatus = "cached"
	CaptureFailed   CaptureStatus = "failed"
)

// CaptureResult records what happened to a single URL during the screenshot stage.
type CaptureResult struct {
	URL       string
	ImageName string
	Status    CaptureStatus
	Err       error
	Duration  time.Duration
}

// CatalogSummary holds the computed figures for the end-of-run report.
type CatalogSummary struct {
	TotalProducts      int
	TotalCategories    int
	ProductsByCategory map[string]int
	Captured           int
	Cached             int
	Failed             int
	FailedURLs         []string
	Thumbnails         int
	OutputPath         string
}
