package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// TesseractEngine recognizes text by invoking the tesseract binary. The
// image is handed over as a temporary PNG and the text read from stdout.
type TesseractEngine struct {
	// Binary is the tesseract executable. Empty means look it up in PATH.
	Binary string
	// Lang is the traineddata language (default "eng").
	Lang string
	// PSM is the page segmentation mode (default 6, uniform text block).
	PSM int
	// Logger for debug messages.
	Logger *slog.Logger
}

func (e *TesseractEngine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// resolveBinary finds the tesseract executable.
func (e *TesseractEngine) resolveBinary() (string, error) {
	if e.Binary != "" {
		if _, err := os.Stat(e.Binary); err != nil {
			return "", fmt.Errorf("ocr: tesseract binary %s: %w", e.Binary, err)
		}
		return e.Binary, nil
	}
	bin, err := exec.LookPath("tesseract")
	if err != nil {
		return "", fmt.Errorf("ocr: tesseract not found in PATH: %w", err)
	}
	return bin, nil
}

// args builds the tesseract invocation for an input image, reading the
// result from stdout.
func (e *TesseractEngine) args(input, whitelist string) []string {
	lang := e.Lang
	if lang == "" {
		lang = "eng"
	}
	psm := e.PSM
	if psm <= 0 {
		psm = 6
	}
	out := []string{input, "stdout", "-l", lang, "--psm", strconv.Itoa(psm)}
	if whitelist != "" {
		out = append(out, "-c", "tessedit_char_whitelist="+whitelist)
	}
	return out
}

// Recognize runs OCR over img restricted to the whitelist charset.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image, whitelist string) (string, error) {
	bin, err := e.resolveBinary()
	if err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp("", "qmanager-ocr-*")
	if err != nil {
		return "", fmt.Errorf("ocr: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "page.png")
	f, err := os.Create(input)
	if err != nil {
		return "", fmt.Errorf("ocr: write %s: %w", input, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("ocr: encode %s: %w", input, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("ocr: write %s: %w", input, err)
	}

	cmd := exec.CommandContext(ctx, bin, e.args(input, whitelist)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ocr: tesseract: %w (%s)", err, bytes.TrimSpace(stderr.Bytes()))
	}

	e.logger().Debug("tesseract done", "chars", stdout.Len())
	return stdout.String(), nil
}
