// Package ingest validates uploaded images and decodes them into an opaque
// three channel representation ready for classification.
package ingest

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxFileSize is the upload ceiling in bytes.
const MaxFileSize = 16 * 1024 * 1024

// MaxPixels bounds width*height of a decoded image. A small compressed file
// can declare dimensions whose pixel buffer would not fit in memory.
const MaxPixels = 2 * 89478485

var allowedExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"gif":  {},
	"bmp":  {},
	"webp": {},
}

// SupportedFormats returns the allowed extensions in sorted order.
func SupportedFormats() []string {
	out := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		out = append(out, ext)
	}
	slices.Sort(out)
	return out
}

// MaxFileSizeLabel renders MaxFileSize the way /health reports it.
func MaxFileSizeLabel() string {
	return fmt.Sprintf("%dMB", MaxFileSize/(1024*1024))
}

// Extension returns the lowercased text after the last dot, or the whole
// lowercased name when there is no dot.
func Extension(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		filename = filename[i+1:]
	}
	return strings.ToLower(filename)
}

func CheckExtension(filename string) error {
	if _, ok := allowedExtensions[Extension(filename)]; !ok {
		return &Failure{
			Kind:   KindInvalidType,
			Detail: "Invalid file type. Allowed: " + strings.Join(SupportedFormats(), ", "),
		}
	}
	return nil
}

func CheckSize(n int64) error {
	if n > MaxFileSize {
		return TooLarge()
	}
	return nil
}

// Decode parses data with any registered decoder and drops the alpha channel.
// The declared extension plays no part here.
// Dimensions are checked against MaxPixels before any pixel is allocated.
func Decode(data []byte) (*image.NRGBA, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", corrupt(err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", corrupt(fmt.Errorf("image size (%dx%d) exceeds limit of %d pixels", cfg.Width, cfg.Height, MaxPixels))
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", corrupt(err)
	}
	return ToRGB(img), format, nil
}

func corrupt(err error) *Failure {
	return &Failure{
		Kind:   KindCorrupt,
		Detail: "Invalid image format or corrupted image",
		Err:    err,
	}
}

// ToRGB copies img into an NRGBA whose alpha is fully opaque, keeping the
// straight color values.
func ToRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// Validate runs the name and size checks followed by decoding, in that order.
func Validate(filename string, data []byte) (*image.NRGBA, string, error) {
	if err := CheckExtension(filename); err != nil {
		return nil, "", err
	}
	if err := CheckSize(int64(len(data))); err != nil {
		return nil, "", err
	}
	return Decode(data)
}
