// Package render drives a tracer over every pixel of an image, in parallel.
package render

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"

	"glint/builderr"
	"glint/camera"
	"glint/pixbuf"
	"glint/tracer"

	"github.com/golang/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultSamplesPerPixel = 1
	DefaultMaxDepth        = 10
	DefaultRowsPerBand     = 16
)

type Options struct {
	SamplesPerPixel int
	MaxDepth        int

	// Workers bounds how many bands render at once.  Zero means one per CPU.
	Workers int

	// RowsPerBand is the height of the unit of work.  Each band draws from
	// its own random source seeded from Seed and the band's index, so a
	// render is repeatable for a fixed Seed and RowsPerBand no matter how
	// many workers run.
	RowsPerBand int
	Seed        int64

	// SceneName tags recorded metrics.
	SceneName string
}

// WithDefaults returns a copy of o with unset fields filled in.
func (o Options) WithDefaults() Options {
	if o.SamplesPerPixel == 0 {
		o.SamplesPerPixel = DefaultSamplesPerPixel
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Workers == 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.RowsPerBand == 0 {
		o.RowsPerBand = DefaultRowsPerBand
	}
	return o
}

func (o Options) Validate() error {
	if o.SamplesPerPixel < 1 {
		return builderr.Newf(builderr.KindBadConfig, "samples per pixel must be at least 1, got %d", o.SamplesPerPixel)
	}
	if o.MaxDepth < 1 {
		return builderr.Newf(builderr.KindBadConfig, "max depth must be at least 1, got %d", o.MaxDepth)
	}
	if o.Workers < 1 {
		return builderr.Newf(builderr.KindBadConfig, "workers must be at least 1, got %d", o.Workers)
	}
	if o.RowsPerBand < 1 {
		return builderr.Newf(builderr.KindBadConfig, "rows per band must be at least 1, got %d", o.RowsPerBand)
	}
	return nil
}

// ProgressFunction receives the number of finished pixels and the total.
type ProgressFunction func(done, total int)

type bandWorker struct {
	band *pixbuf.Image
	rng  *rand.Rand

	tr  *tracer.Tracer
	cam camera.Camera

	samples  int
	maxDepth int

	// These are the dimensions of the overall image, not just the band.
	imgRows int
	imgCols int

	rowSrc int
	rowLim int

	progressFunction func(int)
}

func (w *bandWorker) render(ctx context.Context) error {
	for cr := w.rowSrc; cr < w.rowLim; cr++ {
		for cc := 0; cc < w.imgCols; cc++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := w.tr.SamplePixel(w.cam, cr, w.imgRows, cc, w.imgCols, w.samples, w.maxDepth, w.rng)
			if err := w.band.Set(cr-w.rowSrc, cc, c); err != nil {
				return fmt.Errorf("while storing pixel: %w", err)
			}
		}
		w.progressFunction(w.imgCols)
	}
	return nil
}

// RenderScene fills img by tracing every pixel.  The image is split into bands
// of rows that render concurrently into private buffers and are pasted into
// img when they finish, so img must not already hold written pixels.
//
// If ctx is cancelled the pixels finished so far are kept, the rest stay
// black, and the context's error is returned.
func RenderScene(ctx context.Context, tr *tracer.Tracer, cam camera.Camera, opts Options, img *pixbuf.Image, progressFunction ProgressFunction) error {
	otelTracer := otel.Tracer("glint/render")
	var span trace.Span
	ctx, span = otelTracer.Start(ctx, "RenderScene")
	defer span.End()

	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(
		attribute.Int64("rows", int64(img.RowSize)),
		attribute.Int64("cols", int64(img.ColSize)),
		attribute.Int64("samples_per_pixel", int64(opts.SamplesPerPixel)),
		attribute.Int64("max_depth", int64(opts.MaxDepth)),
	)

	total := img.RowSize * img.ColSize
	curProgress := 0

	// progressMutex locks curProgress and img.
	progressMutex := sync.Mutex{}

	if progressFunction == nil {
		progressFunction = func(int, int) {}
	}

	// Use errgroup and semaphore to limit concurrency.
	eg, egCtx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(opts.Workers))

	var acquireErr error
	for i, rowSrc := 0, 0; rowSrc < img.RowSize; i, rowSrc = i+1, rowSrc+opts.RowsPerBand {
		rowLim := rowSrc + opts.RowsPerBand
		if rowLim > img.RowSize {
			rowLim = img.RowSize
		}

		worker := &bandWorker{
			band:     pixbuf.New(rowLim-rowSrc, img.ColSize),
			rng:      rand.New(rand.NewSource(opts.Seed + int64(i))),
			tr:       tr,
			cam:      cam,
			samples:  opts.SamplesPerPixel,
			maxDepth: opts.MaxDepth,
			imgRows:  img.RowSize,
			imgCols:  img.ColSize,
			rowSrc:   rowSrc,
			rowLim:   rowLim,
			progressFunction: func(subProgress int) {
				progressMutex.Lock()
				defer progressMutex.Unlock()
				curProgress += subProgress
				progressFunction(curProgress, total)
			},
		}

		if err := sem.Acquire(egCtx, 1); err != nil {
			acquireErr = err
			break
		}

		eg.Go(func() error {
			defer sem.Release(1)

			bandCtx, bandSpan := otelTracer.Start(egCtx, "RenderScene.band")
			defer bandSpan.End()
			bandSpan.SetAttributes(attribute.Int64("row_src", int64(worker.rowSrc)), attribute.Int64("row_lim", int64(worker.rowLim)))

			glog.V(1).Infof("Rendering rows [%d, %d)", worker.rowSrc, worker.rowLim)
			renderErr := worker.render(bandCtx)

			recordBand(ctx, opts.SceneName, worker.band.WrittenCount(), opts.SamplesPerPixel)

			progressMutex.Lock()
			pasteErr := img.Paste(worker.band, worker.rowSrc, 0)
			progressMutex.Unlock()

			if renderErr != nil {
				bandSpan.RecordError(renderErr)
				bandSpan.SetStatus(codes.Error, renderErr.Error())
				return fmt.Errorf("while rendering rows [%d, %d): %w", worker.rowSrc, worker.rowLim, renderErr)
			}
			if pasteErr != nil {
				bandSpan.RecordError(pasteErr)
				bandSpan.SetStatus(codes.Error, pasteErr.Error())
				return fmt.Errorf("while pasting rows [%d, %d): %w", worker.rowSrc, worker.rowLim, pasteErr)
			}
			return nil
		})
	}

	err := eg.Wait()
	if err == nil && acquireErr != nil {
		err = fmt.Errorf("while acquiring concurrency limiter semaphore: %w", acquireErr)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
