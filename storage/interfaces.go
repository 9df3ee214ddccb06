package storage

import "catalog-builder/models"

// ManifestWriter is the interface any capture-record backend must satisfy.
type ManifestWriter interface {
	WriteCaptures(products []*models.Product, results []*models.CaptureResult) error
	Close() error
}
