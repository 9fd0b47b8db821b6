package classifier

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// Vision classifies through Google Cloud Vision SafeSearch detection.
// Credentials come from the usual application default lookup.
type Vision struct {
	client *vision.ImageAnnotatorClient
	topK   int
}

func NewVision(ctx context.Context, topK int, opts ...option.ClientOption) (*Vision, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &Vision{client: client, topK: topK}, nil
}

func (v *Vision) Classify(ctx context.Context, img image.Image) (Result, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	annotation, err := v.client.DetectSafeSearch(ctx, &visionpb.Image{Content: buf.Bytes()}, nil)
	if err != nil {
		return nil, fmt.Errorf("safe search detection failed: %w", err)
	}
	return SafeSearchResult(annotation, v.topK), nil
}

func (v *Vision) Close() {
	if err := v.client.Close(); err != nil {
		slog.Error("Failed to close vision client", slog.String("error", err.Error()))
	}
}

// SafeSearchResult turns SafeSearch likelihoods into ranked scores, spacing
// VERY_UNLIKELY..VERY_LIKELY evenly over [0, 1]. UNKNOWN scores 0.
func SafeSearchResult(a *visionpb.SafeSearchAnnotation, topK int) Result {
	labels := []string{"adult", "racy", "violence", "medical", "spoof"}
	scores := []float32{
		likelihoodScore(a.GetAdult()),
		likelihoodScore(a.GetRacy()),
		likelihoodScore(a.GetViolence()),
		likelihoodScore(a.GetMedical()),
		likelihoodScore(a.GetSpoof()),
	}
	return Rank(labels, scores, topK)
}

func likelihoodScore(l visionpb.Likelihood) float32 {
	if l < visionpb.Likelihood_VERY_UNLIKELY {
		return 0
	}
	return float32(l-visionpb.Likelihood_VERY_UNLIKELY) / float32(visionpb.Likelihood_VERY_LIKELY-visionpb.Likelihood_VERY_UNLIKELY)
}
