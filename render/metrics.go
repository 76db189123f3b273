package render

import (
	"context"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	sceneKey = tag.MustNewKey("scene")

	pixelsRendered = stats.Int64("glint/render/pixels", "Pixels traced and stored", stats.UnitDimensionless)
	primarySamples = stats.Int64("glint/render/primary_samples", "Primary rays traced", stats.UnitDimensionless)

	pixelsRenderedView = &view.View{
		Name:        "glint/render/pixels",
		Description: "Sum of pixels that have been rendered",

		TagKeys: []tag.Key{sceneKey},

		Measure:     pixelsRendered,
		Aggregation: view.Sum(),
	}
	primarySamplesView = &view.View{
		Name:        "glint/render/primary_samples",
		Description: "Sum of primary rays that have been traced",

		TagKeys: []tag.Key{sceneKey},

		Measure:     primarySamples,
		Aggregation: view.Sum(),
	}
	bandsView = &view.View{
		Name:        "glint/render/bands",
		Description: "Counter of row bands that have finished",

		TagKeys: []tag.Key{sceneKey},

		Measure:     pixelsRendered,
		Aggregation: view.Count(),
	}
)

// RegisterViews makes the render metrics available to exporters.
func RegisterViews() error {
	return view.Register(pixelsRenderedView, primarySamplesView, bandsView)
}

func recordBand(ctx context.Context, sceneName string, pixels, samplesPerPixel int) {
	stats.RecordWithOptions(
		ctx,
		stats.WithTags(tag.Insert(sceneKey, sceneName)),
		stats.WithMeasurements(
			pixelsRendered.M(int64(pixels)),
			primarySamples.M(int64(pixels*samplesPerPixel)),
		),
	)
}
