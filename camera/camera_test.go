package camera

import (
	"math"
	"math/rand"
	"testing"

	"glint/builderr"
	"glint/vmath/vec3"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func defaultConfig() Config {
	return Config{
		Eye:         vec3.T{0, 0, 0},
		LookAt:      vec3.T{0, 0, -1},
		Up:          vec3.T{0, 1, 0},
		VFovDeg:     90,
		AspectRatio: 1,
	}
}

func TestNewRejectsDegenerate(t *testing.T) {
	testCases := []struct {
		desc   string
		mutate func(*Config)
	}{
		{"eye equals lookAt", func(c *Config) { c.LookAt = c.Eye }},
		{"up parallel to view", func(c *Config) { c.Up = vec3.T{0, 0, 2} }},
		{"zero up", func(c *Config) { c.Up = vec3.T{} }},
		{"zero fov", func(c *Config) { c.VFovDeg = 0 }},
		{"straight fov", func(c *Config) { c.VFovDeg = 180 }},
		{"negative aspect", func(c *Config) { c.AspectRatio = -1 }},
		{"nan eye", func(c *Config) { c.Eye = vec3.T{math.NaN(), 0, 0} }},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			if _, err := New(cfg); !builderr.IsKind(err, builderr.KindBadCamera) {
				t.Errorf("New error = %v, want bad camera", err)
			}
		})
	}
}

func TestBasis(t *testing.T) {
	cam, err := New(defaultConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if diff := cmp.Diff(cam.Right, vec3.T{1, 0, 0}, approx); diff != "" {
		t.Errorf("Wrong right vector; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(cam.Up, vec3.T{0, 1, 0}, approx); diff != "" {
		t.Errorf("Wrong up vector; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(cam.Back, vec3.T{0, 0, 1}, approx); diff != "" {
		t.Errorf("Wrong back vector; diff (-got +want)\n%s", diff)
	}
}

func TestRay(t *testing.T) {
	cam, err := New(defaultConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	testCases := []struct {
		desc                 string
		row, rows, col, cols int
		du, dv               float64
		want                 vec3.T
	}{
		{"center of single pixel", 0, 1, 0, 1, 0.5, 0.5, vec3.T{0, 0, -1}},
		{"upper left corner", 0, 2, 0, 2, 0, 0, vec3.Normalize(vec3.T{-1, 1, -1})},
		{"lower right corner", 1, 2, 1, 2, 1, 1, vec3.Normalize(vec3.T{1, -1, -1})},
		{"right edge middle", 1, 2, 1, 2, 1, 0, vec3.Normalize(vec3.T{1, 0, -1})},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			r := cam.Ray(tc.row, tc.rows, tc.col, tc.cols, tc.du, tc.dv)
			if diff := cmp.Diff(r.Origin, vec3.T{0, 0, 0}, approx); diff != "" {
				t.Errorf("Wrong origin; diff (-got +want)\n%s", diff)
			}
			if diff := cmp.Diff(r.Direction, tc.want, approx); diff != "" {
				t.Errorf("Wrong direction; diff (-got +want)\n%s", diff)
			}
		})
	}
}

func TestImageToRayStaysInPixel(t *testing.T) {
	cam, err := New(defaultConfig())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	rng := rand.New(rand.NewSource(3))

	// Pixel (0, 1) of a 2x2 image covers the upper right quadrant.
	for i := 0; i < 100; i++ {
		d := cam.ImageToRay(0, 2, 1, 2, rng).Direction
		if d[0] < 0 || d[1] < 0 || d[2] >= 0 {
			t.Fatalf("Jittered direction %v left the pixel", d)
		}
	}

	if diff := cmp.Diff(cam.ImageToRay(0, 1, 0, 1, nil).Direction, vec3.T{0, 0, -1}, approx); diff != "" {
		t.Errorf("Nil rng did not aim at the pixel center; diff (-got +want)\n%s", diff)
	}
}
