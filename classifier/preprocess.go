package classifier

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const ImageSize = 224

var (
	ViTMean = [3]float32{0.5, 0.5, 0.5}
	ViTStd  = [3]float32{0.5, 0.5, 0.5}
)

// Preprocess resizes img to ImageSize square and returns a normalized CHW tensor.
func Preprocess(img image.Image) []float32 {
	resized := imaging.Resize(img, ImageSize, ImageSize, imaging.Linear)

	out := make([]float32, 3*ImageSize*ImageSize)
	rBase := 0
	gBase := ImageSize * ImageSize
	bBase := 2 * ImageSize * ImageSize

	for y := range ImageSize {
		for x := range ImageSize {
			c := resized.NRGBAAt(x, y)
			fr := float32(c.R) / 255.0
			fg := float32(c.G) / 255.0
			fb := float32(c.B) / 255.0

			out[rBase] = (fr - ViTMean[0]) / ViTStd[0]
			out[gBase] = (fg - ViTMean[1]) / ViTStd[1]
			out[bBase] = (fb - ViTMean[2]) / ViTStd[2]

			rBase++
			gBase++
			bBase++
		}
	}
	return out
}

func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		maxLogit = max(maxLogit, v)
	}
	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxLogit))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
