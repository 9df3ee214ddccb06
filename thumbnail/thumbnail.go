package thumbnail

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"catalog-builder/utils"
)

// Generator writes a downscaled copy of every PNG in SrcDir to DstDir under
// the same name. Existing thumbnails are always overwritten.
type Generator struct {
	SrcDir      string
	DstDir      string
	MaxWidth    int
	MaxHeight   int
	Concurrency int
	Logger      *utils.Logger
}

// Fit returns the largest size within maxW x maxH that keeps the w:h ratio.
// Images already inside the box keep their size. Neither side drops below 1.
func Fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}

	// Compare w/maxW against h/maxH without floating point.
	if w*maxH >= h*maxW {
		nh := (h*maxW + w/2) / w
		if nh < 1 {
			nh = 1
		}
		return maxW, nh
	}
	nw := (w*maxH + h/2) / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxH
}

// Run resizes every screenshot and returns the number of thumbnails written.
// The first failure stops the stage.
func (g *Generator) Run(ctx context.Context) (int, error) {
	if err := os.MkdirAll(g.DstDir, 0755); err != nil {
		return 0, fmt.Errorf("thumbnail: create output dir: %w", err)
	}

	sources, err := filepath.Glob(filepath.Join(g.SrcDir, "*.png"))
	if err != nil {
		return 0, fmt.Errorf("thumbnail: scan %q: %w", g.SrcDir, err)
	}
	sort.Strings(sources)

	limit := g.Concurrency
	if limit < 1 {
		limit = 1
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	for _, src := range sources {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dst := filepath.Join(g.DstDir, filepath.Base(src))
			return g.resizeFile(src, dst)
		})
	}

	if err := group.Wait(); err != nil {
		return 0, err
	}

	g.logger().Info("[thumbnail] Wrote %d thumbnails to %s", len(sources), g.DstDir)
	return len(sources), nil
}

func (g *Generator) resizeFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("thumbnail: open %q: %w", src, err)
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("thumbnail: decode %q: %w", src, err)
	}

	thumb := Resize(img, g.MaxWidth, g.MaxHeight)

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("thumbnail: create %q: %w", dst, err)
	}
	if err := png.Encode(out, thumb); err != nil {
		_ = out.Close()
		return fmt.Errorf("thumbnail: encode %q: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("thumbnail: close %q: %w", dst, err)
	}

	b := img.Bounds()
	tb := thumb.Bounds()
	g.logger().Debug("[thumbnail] %s %dx%d -> %dx%d", filepath.Base(src), b.Dx(), b.Dy(), tb.Dx(), tb.Dy())
	return nil
}

// Resize scales img to fit within maxW x maxH. Images that already fit are
// returned unchanged.
func Resize(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), maxW, maxH)
	if w == b.Dx() && h == b.Dy() {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func (g *Generator) logger() *utils.Logger {
	if g.Logger == nil {
		return utils.Discard()
	}
	return g.Logger
}
