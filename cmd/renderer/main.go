// renderer traces a scene of spheres and writes the image as PPM, PNG, or a
// lossless snapshot, to a local path or a Cloud Storage object.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	runtimepprof "runtime/pprof"
	"strings"
	"syscall"
	"time"

	"glint/pixbuf"
	"glint/ppm"
	"glint/render"
	"glint/rendercache"
	"glint/scenepack"
	"glint/sink"
	"glint/statusz"

	"cloud.google.com/go/profiler"
	"cloud.google.com/go/storage"
	"contrib.go.opencensus.io/exporter/stackdriver"
	cloudmetrics "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	cloudtrace "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"github.com/golang/glog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"
	googleopt "google.golang.org/api/option"
)

var (
	sceneName    = flag.String("scene", "default", "Built-in scene name, or path to a YAML/JSON scene file")
	listScenes   = flag.Bool("list-scenes", false, "List the built-in scenes and exit")
	output       = flag.String("output", "", "Output path or gs://bucket/object; the extension (.ppm, .png, .rgbf) picks the format")
	outputPrefix = flag.String("output-prefix", "render", "With no -output, write prefix0.ppm, prefix1.ppm, ... skipping existing files")
	ppmBinary    = flag.Bool("ppm-binary", false, "Write binary (P6) instead of plain (P3) PPM")

	width    = flag.Int("width", 0, "Override the scene's image width")
	height   = flag.Int("height", 0, "Override the scene's image height")
	samples  = flag.Int("samples", 0, "Override the scene's samples per pixel")
	maxDepth = flag.Int("max-depth", 0, "Override the scene's maximum bounce count")
	gamma    = flag.Float64("gamma", 0, "Override the scene's output gamma")
	seed     = flag.Int64("seed", 0, "Override the scene's random seed")
	workers  = flag.Int("workers", 0, "Concurrent render bands; 0 means one per CPU")

	cacheDir = flag.String("cache-dir", "", "Directory for the render cache; empty disables caching")

	progressInterval = flag.Duration("progress-interval", 5*time.Second, "Minimum time between progress log lines")
	debugListen      = flag.String("debug-listen", "", "Server address:port for debug endpoint; empty disables it")

	cpuprofile = flag.String("cpu-profile", "", "write cpu profile to `file`")
	memprofile = flag.String("mem-profile", "", "write memory profile to `file`")

	monitoring           = flag.Bool("monitoring", false, "Enable monitoring?")
	monitoringProject    = flag.String("monitoring-project", "", "Override project used for monitoring integration.  If not specified, the project associated with Application Default Credentials is used.")
	monitoringTraceRatio = flag.Float64("monitoring-trace-ratio", 0.01, "What ratio of traces should be exported?")
	enableMetrics        = flag.Bool("enable-metrics", false, "Export render metrics to Cloud Monitoring through OpenCensus")
	enableProfiling      = flag.Bool("enable-profiling", false, "Enable Cloud Profiler")
)

func main() {
	flag.Parse()

	glog.CopyStandardLogTo("INFO")
	defer glog.Flush()

	glog.Infof("flags:")
	flag.VisitAll(func(f *flag.Flag) {
		glog.Infof("%s: %q", f.Name, f.Value.String())
	})

	if *listScenes {
		for _, name := range scenepack.Names() {
			fmt.Println(name)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalCh
		glog.Infof("Got %v, cancelling render", sig)
		cancel()
	}()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			glog.Exitf("Could not create CPU profile: %v", err)
		}
		defer f.Close()
		if err := runtimepprof.StartCPUProfile(f); err != nil {
			glog.Exitf("Could not start CPU profile: %v", err)
		}
		defer runtimepprof.StopCPUProfile()
	}

	if *enableProfiling {
		if err := profiler.Start(profiler.Config{
			Service:        "glint-renderer",
			ServiceVersion: "0.0.1",
		}); err != nil {
			glog.Exitf("Error initializing profiler: %v", err)
		}
	}

	if *monitoring {
		metricsOpts := []cloudmetrics.Option{}
		traceOpts := []cloudtrace.Option{}
		if *monitoringProject != "" {
			metricsOpts = append(metricsOpts, cloudmetrics.WithProjectID(*monitoringProject))
			traceOpts = append(traceOpts, cloudtrace.WithProjectID(*monitoringProject))
		}

		_, traceShutdown, err := cloudtrace.InstallNewPipeline(traceOpts, sdktrace.WithSampler(sdktrace.TraceIDRatioBased(*monitoringTraceRatio)))
		if err != nil {
			glog.Exitf("Failed to install Cloud Trace OpenTelemetry trace pipeline: %v", err)
		}
		defer traceShutdown()

		pusher, err := cloudmetrics.InstallNewPipeline(metricsOpts)
		if err != nil {
			glog.Exitf("Failed to install Cloud Metrics OpenTelemetry meter pipeline: %v", err)
		}
		defer pusher.Stop(ctx)
	}

	if *enableMetrics {
		if err := render.RegisterViews(); err != nil {
			glog.Exitf("Error registering render metric views: %v", err)
		}

		exporter, err := stackdriver.NewExporter(stackdriver.Options{
			ProjectID:         *monitoringProject,
			MetricPrefix:      "glint",
			ReportingInterval: 60 * time.Second,
		})
		if err != nil {
			glog.Exitf("Error initializing metrics exporter: %v", err)
		}
		exporter.StartMetricsExporter()
		defer exporter.Flush()
		defer exporter.StopMetricsExporter()
	}

	progress := statusz.NewProgress(*sceneName)

	if *debugListen != "" {
		debugServeMux := http.NewServeMux()
		statusz.RegisterHandlers(debugServeMux, progress)
		debugServeMux.HandleFunc("/debug/pprof/", pprof.Index)
		debugServeMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		debugServeMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		debugServeMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		debugServeMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		debugServer := &http.Server{
			Addr:    *debugListen,
			Handler: debugServeMux,

			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		go func() {
			if err := debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				glog.Errorf("Debug server died: %v", err)
			}
		}()
		defer debugServer.Close()
	}

	if err := do(ctx, progress); err != nil {
		glog.Errorf("Error: %v", err)
		glog.Flush()
		os.Exit(1)
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			glog.Exitf("Could not create memory profile: %v", err)
		}
		defer f.Close()
		if err := runtimepprof.WriteHeapProfile(f); err != nil {
			glog.Exitf("Could not write memory profile: %v", err)
		}
	}
}

// loadScene resolves -scene to a document, trying the file system before the
// built-in scenes.
func loadScene(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("while reading scene file: %w", err)
	}
	return scenepack.Builtin(name)
}

// applyOverrides copies explicitly set flags onto the pack.
func applyOverrides(p *scenepack.Pack) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			p.Width = *width
		case "height":
			p.Height = *height
		case "samples":
			p.SamplesPerPixel = *samples
		case "max-depth":
			p.MaxDepth = *maxDepth
		case "gamma":
			p.Gamma = *gamma
		case "seed":
			p.Seed = *seed
		}
	})
}

func do(ctx context.Context, progress *statusz.Progress) error {
	sceneBytes, err := loadScene(*sceneName)
	if err != nil {
		return fmt.Errorf("while loading scene %q: %w", *sceneName, err)
	}

	pack, err := scenepack.Parse(sceneBytes)
	if err != nil {
		return fmt.Errorf("while parsing scene %q: %w", *sceneName, err)
	}
	applyOverrides(pack)

	built, err := pack.Build()
	if err != nil {
		return fmt.Errorf("while building scene %q: %w", *sceneName, err)
	}
	opts := built.Options
	opts.Workers = *workers
	opts.SceneName = *sceneName

	var cache *rendercache.Cache
	var cacheKey []byte
	if *cacheDir != "" {
		cache, err = rendercache.Open(*cacheDir)
		if err != nil {
			return fmt.Errorf("while opening render cache: %w", err)
		}
		defer cache.Close()
		cacheKey = rendercache.Key(sceneBytes, built.Rows, built.Cols, opts)
	}

	var img *pixbuf.Image
	if cache != nil {
		cached, ok, err := cache.Get(cacheKey)
		if err != nil {
			glog.Warningf("Ignoring render cache: %v", err)
		} else if ok {
			glog.Infof("Using cached render of %q", *sceneName)
			img = cached
		}
	}

	if img == nil {
		img = pixbuf.New(built.Rows, built.Cols)

		limiter := rate.NewLimiter(rate.Every(*progressInterval), 1)
		progressFunction := func(done, total int) {
			progress.Update(done, total)
			if limiter.Allow() || done == total {
				glog.Infof("Rendered %d/%d pixels (%.1f%%)", done, total, 100*float64(done)/float64(total))
			}
		}

		start := time.Now()
		glog.Infof("Rendering %q at %dx%d, %d samples per pixel, depth %d", *sceneName, built.Cols, built.Rows, opts.SamplesPerPixel, opts.MaxDepth)
		if err := render.RenderScene(ctx, built.Tracer, built.Camera, opts, img, progressFunction); err != nil {
			return fmt.Errorf("while rendering: %w", err)
		}
		glog.Infof("Render finished in %v", time.Since(start))

		if cache != nil {
			if err := cache.Put(cacheKey, img); err != nil {
				glog.Warningf("Failed to store render in cache: %v", err)
			}
		}
	}

	dest := *output
	if dest == "" {
		seq := &ppm.Sequence{Prefix: *outputPrefix}
		if err := seq.SkipExisting(); err != nil {
			return fmt.Errorf("while choosing output name: %w", err)
		}
		dest = seq.Next()
	}

	var gcs *storage.Client
	if sink.IsGCS(dest) {
		gcs, err = storage.NewClient(ctx, googleopt.WithGRPCConnectionPool(1))
		if err != nil {
			return fmt.Errorf("while creating GCS client: %w", err)
		}
		defer gcs.Close()
	}

	w, err := sink.New(gcs).Create(ctx, dest)
	if err != nil {
		return fmt.Errorf("while opening output: %w", err)
	}
	if err := writeImage(w, img, filepath.Ext(dest), built.Gamma); err != nil {
		w.Close()
		return fmt.Errorf("while writing %s: %w", dest, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("while closing %s: %w", dest, err)
	}

	glog.Infof("Wrote %s", dest)
	return nil
}

func writeImage(w io.Writer, img *pixbuf.Image, ext string, gamma float64) error {
	switch strings.ToLower(ext) {
	case ".ppm":
		return ppm.Encode(w, img, ppm.Options{Binary: *ppmBinary, Gamma: gamma})
	case ".png":
		return png.Encode(w, img.ToRGBA(gamma))
	case ".rgbf":
		return pixbuf.WriteImage(img, w)
	}
	return fmt.Errorf("unknown output format %q", ext)
}
