package ocr

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// PdfiumRenderer rasterizes PDF pages through a pdfium webassembly instance.
// Operations run sequentially on one worker, matching the single-flight
// execution model; the instance is not safe for concurrent use.
type PdfiumRenderer struct {
	pool     pdfium.Pool
	instance pdfium.Pdfium
}

// NewPdfiumRenderer starts a single-instance pdfium pool.
func NewPdfiumRenderer() (*PdfiumRenderer, error) {
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("ocr: init pdfium: %w", err)
	}
	instance, err := pool.GetInstance(30 * time.Second)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ocr: pdfium instance: %w", err)
	}
	return &PdfiumRenderer{pool: pool, instance: instance}, nil
}

// RenderPage rasterizes one page (1-based) of the PDF at path.
func (r *PdfiumRenderer) RenderPage(ctx context.Context, path string, page, dpi int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, fmt.Errorf("ocr: page %d out of range", page)
	}

	doc, err := r.instance.OpenDocument(&requests.OpenDocument{FilePath: &path})
	if err != nil {
		return nil, fmt.Errorf("ocr: open %s: %w", path, err)
	}
	defer r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})

	rendered, err := r.instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: dpi,
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: doc.Document,
				Index:    page - 1,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ocr: render %s page %d: %w", path, page, err)
	}
	return rendered.Result.Image, nil
}

// Close releases the pdfium instance and its pool.
func (r *PdfiumRenderer) Close() error {
	if r.instance != nil {
		r.instance.Close()
	}
	if r.pool != nil {
		return r.pool.Close()
	}
	return nil
}
