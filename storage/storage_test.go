package storage

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"

	"catalog-builder/models"
)

var (
	_ ManifestWriter = (*CSVWriter)(nil)
	_ ManifestWriter = (*PostgresWriter)(nil)
)

func sampleRun() ([]*models.Product, []*models.CaptureResult) {
	products := []*models.Product{
		{Name: "A", URL: "https://example.com/a", Categories: []string{"Tools"}, Tags: []string{"x"}},
		{Name: "B", URL: "https://example.com/b", Categories: []string{"Toys"}, Tags: []string{"y", "z"}},
		{Name: "C", URL: "https://example.com/c", Categories: []string{"Toys"}},
	}
	results := []*models.CaptureResult{
		{URL: "https://example.com/a", ImageName: models.ImageName("https://example.com/a"), Status: models.CaptureCaptured, Duration: 1500 * time.Millisecond},
		{URL: "https://example.com/b", ImageName: models.ImageName("https://example.com/b"), Status: models.CaptureFailed, Err: errors.New("timeout")},
	}
	return products, results
}

func TestCSVWriterManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "manifest.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	w.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	products, results := sampleRun()
	if err := w.WriteCaptures(products, results); err != nil {
		t.Fatalf("WriteCaptures: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open manifest: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	if len(rows) != 4 {
		t.Fatalf("rows: got %d, want 4 (header + 3)", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(manifestHeader, ",") {
		t.Errorf("header: got %v", rows[0])
	}

	tests := []struct {
		row      int
		status   string
		errText  string
		duration string
	}{
		{1, "captured", "", "1500"},
		{2, "failed", "timeout", "0"},
		{3, "skipped", "", "0"},
	}
	for _, tt := range tests {
		r := rows[tt.row]
		if r[3] != tt.status || r[4] != tt.errText || r[5] != tt.duration {
			t.Errorf("row %d: got status=%q err=%q duration=%q", tt.row, r[3], r[4], r[5])
		}
		if r[6] != "2024-01-02T03:04:05Z" {
			t.Errorf("row %d recorded_at: got %q", tt.row, r[6])
		}
	}
	if rows[1][2] != models.ImageName("https://example.com/a") {
		t.Errorf("image_name: got %q", rows[1][2])
	}
}

func TestCSVWriterKeepsManifestUntilFirstWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.csv")
	if err := os.WriteFile(path, []byte("previous run\n"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close without write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "previous run\n" {
		t.Errorf("manifest changed without a write: %q", data)
	}
}

func TestResultsByURLSkipsNil(t *testing.T) {
	_, results := sampleRun()
	byURL := resultsByURL(append([]*models.CaptureResult{nil}, results...))
	if len(byURL) != 2 {
		t.Errorf("got %d entries, want 2", len(byURL))
	}
}

func TestBuildProductInsert(t *testing.T) {
	products, _ := sampleRun()
	query, args := buildProductInsert(products[1:], 1)

	if !strings.Contains(query, "($1,$2,$3,$4,$5,$6,$7),($8,$9,$10,$11,$12,$13,$14)") {
		t.Errorf("placeholders not numbered per row: %s", query)
	}
	if len(args) != 14 {
		t.Fatalf("args: got %d, want 14", len(args))
	}
	if args[0] != 1 || args[7] != 2 {
		t.Errorf("positions: got %v and %v, want 1 and 2", args[0], args[7])
	}
	if _, ok := args[4].(*pq.StringArray); !ok {
		t.Errorf("categories arg: got %T, want pq array", args[4])
	}
}

func TestBuildCaptureUpsert(t *testing.T) {
	_, results := sampleRun()
	now := time.Now()
	query, args := buildCaptureUpsert(results, now)

	if !strings.Contains(query, "ON CONFLICT (image_name) DO UPDATE") {
		t.Errorf("missing upsert clause: %s", query)
	}
	if len(args) != 12 {
		t.Fatalf("args: got %d, want 12", len(args))
	}
	if args[5] != now {
		t.Errorf("captured row should carry captured_at, got %v", args[5])
	}
	if args[11] != nil {
		t.Errorf("failed row should leave captured_at NULL, got %v", args[11])
	}
	if args[9] != "timeout" {
		t.Errorf("error text: got %v", args[9])
	}
}

func TestUniqueResults(t *testing.T) {
	name := models.ImageName("https://example.com/a")
	results := []*models.CaptureResult{
		{URL: "https://example.com/a", ImageName: name, Status: models.CaptureCaptured},
		{URL: "https://example.com/a", ImageName: name, Status: models.CaptureCached},
	}
	got := uniqueResults(results)
	if len(got) != 1 || got[0].Status != models.CaptureCaptured {
		t.Errorf("uniqueResults: got %+v, want the first result only", got)
	}
}
