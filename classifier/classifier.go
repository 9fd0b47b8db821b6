// Package classifier wraps pretrained image classifiers behind a single
// image-to-ranked-labels contract.
package classifier

import (
	"context"
	"image"
	"sort"
)

// Classifier must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (Result, error)
}

type Prediction struct {
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

// Result is ordered by descending score.
type Result []Prediction

// Top returns the highest scoring prediction.
func (r Result) Top() (Prediction, bool) {
	if len(r) == 0 {
		return Prediction{}, false
	}
	return r[0], true
}

// Rank pairs labels with scores, sorts them by descending score and keeps at
// most topK entries. Ties keep label order.
func Rank(labels []string, scores []float32, topK int) Result {
	n := min(len(labels), len(scores))
	out := make(Result, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Prediction{Label: labels[i], Score: scores[i]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
