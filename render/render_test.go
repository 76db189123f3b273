package render

import (
	"context"
	"errors"
	"sync"
	"testing"

	"glint/builderr"
	"glint/camera"
	"glint/geometry"
	"glint/material"
	"glint/pixbuf"
	"glint/scene"
	"glint/tracer"
	"glint/vmath/vec3"

	"github.com/google/go-cmp/cmp"
)

var background = vec3.T{0.5, 0.25, 0.75}

func mustCamera(t *testing.T, cfg camera.Config) *camera.PinholeCamera {
	t.Helper()
	cam, err := camera.New(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return cam
}

func forwardCamera(t *testing.T) *camera.PinholeCamera {
	return mustCamera(t, camera.Config{
		Eye:         vec3.T{0, 0, 0},
		LookAt:      vec3.T{0, 0, -1},
		Up:          vec3.T{0, 1, 0},
		VFovDeg:     90,
		AspectRatio: 1,
	})
}

func singleSphere(t *testing.T, mtl material.Material, center vec3.T, radius float64) *scene.Scene {
	t.Helper()
	s := scene.New()
	idx, err := s.AddMaterial(mtl)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	sph, err := geometry.NewSphere(center, radius, idx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := s.AddSphere(sph); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return s
}

func TestEmptySceneRendersBackground(t *testing.T) {
	cameras := []camera.Config{
		{Eye: vec3.T{0, 0, 0}, LookAt: vec3.T{0, 0, -1}, Up: vec3.T{0, 1, 0}, VFovDeg: 90, AspectRatio: 1},
		{Eye: vec3.T{3, -2, 7}, LookAt: vec3.T{-1, 4, 0}, Up: vec3.T{0, 0, 1}, VFovDeg: 20, AspectRatio: 2},
		{Eye: vec3.T{0, 10, 0}, LookAt: vec3.T{0, 0, 0}, Up: vec3.T{1, 0, 0}, VFovDeg: 170, AspectRatio: 0.5},
	}
	tr := tracer.New(scene.New(), tracer.Constant{Color: background})

	for i, cfg := range cameras {
		for _, samples := range []int{1, 8} {
			img := pixbuf.New(5, 7)
			opts := Options{SamplesPerPixel: samples, MaxDepth: 3, Workers: 2, RowsPerBand: 2, Seed: 1}
			if err := RenderScene(context.Background(), tr, mustCamera(t, cfg), opts, img, nil); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !img.Complete() {
				t.Fatalf("Camera %d: only %d of %d pixels written", i, img.WrittenCount(), 35)
			}
			for r := 0; r < img.RowSize; r++ {
				for c := 0; c < img.ColSize; c++ {
					if diff := cmp.Diff(img.At(r, c), background); diff != "" {
						t.Fatalf("Camera %d samples %d pixel (%d, %d) diff (-got +want)\n%s", i, samples, r, c, diff)
					}
				}
			}
		}
	}
}

func TestDiffuseDepthOneIsBlack(t *testing.T) {
	s := singleSphere(t, &material.Diffuse{Color: vec3.T{0.9, 0.9, 0.9}}, vec3.T{0, 0, -2}, 0.5)
	tr := tracer.New(s, tracer.Constant{Color: background})
	img := pixbuf.New(3, 3)

	opts := Options{SamplesPerPixel: 1, MaxDepth: 1, Workers: 1, Seed: 1}
	if err := RenderScene(context.Background(), tr, forwardCamera(t), opts, img, nil); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			want := background
			if r == 1 && c == 1 {
				// Only the center pixel sees the sphere.
				want = vec3.T{}
			}
			if diff := cmp.Diff(img.At(r, c), want); diff != "" {
				t.Errorf("Pixel (%d, %d) diff (-got +want)\n%s", r, c, diff)
			}
		}
	}
}

func TestRenderIsRepeatableAcrossWorkerCounts(t *testing.T) {
	s := singleSphere(t, &material.Diffuse{Color: vec3.T{0.7, 0.5, 0.3}}, vec3.T{0, 0, -1.5}, 1)
	tr := tracer.New(s, tracer.Gradient{Top: vec3.T{0.5, 0.7, 1}, Bottom: vec3.T{1, 1, 1}})
	cam := forwardCamera(t)

	var images []*pixbuf.Image
	for _, workers := range []int{1, 3, 8} {
		img := pixbuf.New(9, 6)
		opts := Options{SamplesPerPixel: 4, MaxDepth: 5, Workers: workers, RowsPerBand: 2, Seed: 42}
		if err := RenderScene(context.Background(), tr, cam, opts, img, nil); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		images = append(images, img)
	}

	for i := 1; i < len(images); i++ {
		if diff := cmp.Diff(images[i], images[0]); diff != "" {
			t.Errorf("Render %d differs from render 0; diff (-got +want)\n%s", i, diff)
		}
	}
}

func TestRenderReportsProgress(t *testing.T) {
	tr := tracer.New(scene.New(), tracer.Constant{Color: background})
	img := pixbuf.New(10, 4)

	mu := sync.Mutex{}
	calls := 0
	lastDone, lastTotal := 0, 0
	progress := func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if done < lastDone {
			t.Errorf("Progress went backwards from %d to %d", lastDone, done)
		}
		lastDone, lastTotal = done, total
	}

	opts := Options{Workers: 4, RowsPerBand: 3}
	if err := RenderScene(context.Background(), tr, forwardCamera(t), opts, img, progress); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if calls != 10 {
		t.Errorf("Got %d progress calls, want one per row (10)", calls)
	}
	if lastDone != 40 || lastTotal != 40 {
		t.Errorf("Final progress = (%d, %d), want (40, 40)", lastDone, lastTotal)
	}
}

func TestRenderCancelled(t *testing.T) {
	tr := tracer.New(scene.New(), tracer.Constant{Color: background})
	img := pixbuf.New(8, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RenderScene(ctx, tr, forwardCamera(t), Options{Workers: 2}, img, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RenderScene error = %v, want context.Canceled", err)
	}
	if got := img.WrittenCount(); got != 0 {
		t.Errorf("Cancelled render wrote %d pixels", got)
	}
}

func TestRenderRejectsBadOptions(t *testing.T) {
	tr := tracer.New(scene.New(), tracer.Constant{Color: background})
	testCases := []struct {
		desc string
		opts Options
	}{
		{"negative samples", Options{SamplesPerPixel: -1}},
		{"negative depth", Options{MaxDepth: -2}},
		{"negative workers", Options{Workers: -1}},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			err := RenderScene(context.Background(), tr, forwardCamera(t), tc.opts, pixbuf.New(1, 1), nil)
			if !builderr.IsKind(err, builderr.KindBadConfig) {
				t.Errorf("RenderScene error = %v, want bad config", err)
			}
		})
	}
}

func TestRenderRefusesWrittenImage(t *testing.T) {
	tr := tracer.New(scene.New(), tracer.Constant{Color: background})
	img := pixbuf.New(2, 2)
	if err := img.Set(1, 1, vec3.T{1, 1, 1}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	err := RenderScene(context.Background(), tr, forwardCamera(t), Options{Workers: 1}, img, nil)
	if !errors.Is(err, pixbuf.ErrAlreadyWritten) {
		t.Errorf("RenderScene error = %v, want ErrAlreadyWritten", err)
	}
}
