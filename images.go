package quill

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"

	"github.com/eringen/quill/content"
)

const (
	maxImageWidth = 1600
	jpegQuality   = 82
	maxUploadSize = 10 << 20 // 10MB
	maxPixels     = 40_000_000
	uploadsSubdir = "uploads"
)

// UploadedImage describes a stored upload.
type UploadedImage struct {
	URL    string `json:"url"`
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int    `json:"size"`
}

// processImage decodes an image, shrinks it to maxImageWidth when wider, and
// re-encodes it as JPEG.
func processImage(src io.Reader) ([]byte, int, int, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), w, h, nil
}

// uploadFilename turns a client file name into a slug-based .jpg name.
func uploadFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return content.SlugOrFallback(base) + ".jpg"
}

// uniqueFilename appends a counter while name already exists in dir.
func uniqueFilename(dir, name string) string {
	base := strings.TrimSuffix(name, ".jpg")
	candidate := name
	for counter := 2; ; counter++ {
		if _, err := os.Stat(filepath.Join(dir, candidate)); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, counter)
	}
}

func (a *App) handleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return apiError(c, badRequest("missing file"))
	}
	if file.Size > maxUploadSize {
		return apiError(c, badRequest("file too large (max 10MB)"))
	}

	src, err := file.Open()
	if err != nil {
		return apiError(c, err)
	}
	defer src.Close()

	// Check dimensions before decoding so a small file cannot claim a huge
	// canvas.
	ic, _, err := image.DecodeConfig(src)
	if err != nil {
		return apiError(c, badRequest("invalid image: %v", err))
	}
	if ic.Width*ic.Height > maxPixels {
		return apiError(c, badRequest("image too large (max %d pixels)", maxPixels))
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return apiError(c, err)
	}

	data, w, h, err := processImage(src)
	if err != nil {
		return apiError(c, badRequest("invalid image: %v", err))
	}

	dir := filepath.Join(a.Config.StaticDir, uploadsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apiError(c, fmt.Errorf("create uploads dir: %w", err))
	}
	name := uniqueFilename(dir, uploadFilename(file.Filename))
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return apiError(c, fmt.Errorf("write image: %w", err))
	}

	rel := path.Join(uploadsSubdir, name)
	return c.JSON(http.StatusOK, UploadedImage{
		URL:    "/public/" + rel,
		Path:   rel,
		Width:  w,
		Height: h,
		Size:   len(data),
	})
}
