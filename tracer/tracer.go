// Package tracer computes the color seen along a ray by following it through
// the scene until it escapes or runs out of bounces.
package tracer

import (
	"math"
	"math/rand"

	"glint/camera"
	"glint/ray"
	"glint/scene"
	"glint/vmath/vec3"
)

// DefaultMinT keeps scattered rays from immediately re-hitting the surface
// they left.
const DefaultMinT = 0.001

// Background supplies the radiance of rays that escape the scene.
type Background interface {
	Radiance(r ray.Ray) vec3.T
}

type Constant struct {
	Color vec3.T
}

func (c Constant) Radiance(r ray.Ray) vec3.T {
	return c.Color
}

// Gradient blends from Bottom (looking straight down) to Top (straight up).
type Gradient struct {
	Top    vec3.T
	Bottom vec3.T
}

func (g Gradient) Radiance(r ray.Ray) vec3.T {
	t := 0.5 * (vec3.Normalize(r.Direction)[1] + 1)
	return vec3.Lerp(t, g.Bottom, g.Top)
}

type Tracer struct {
	Scene      *scene.Scene
	Background Background

	// MinT is the lower bound of every scene query.  Zero means DefaultMinT.
	MinT float64
}

func New(s *scene.Scene, bg Background) *Tracer {
	return &Tracer{
		Scene:      s,
		Background: bg,
		MinT:       DefaultMinT,
	}
}

func (t *Tracer) minT() float64 {
	if t.MinT > 0 {
		return t.MinT
	}
	return DefaultMinT
}

func (t *Tracer) background(r ray.Ray) vec3.T {
	if t.Background == nil {
		return vec3.T{}
	}
	return t.Background.Radiance(r)
}

// Trace returns the color carried back along r.  depth bounds the number of
// surface interactions; when it reaches zero the ray contributes black.
func (t *Tracer) Trace(r ray.Ray, depth int, rng *rand.Rand) vec3.T {
	if depth <= 0 {
		return vec3.T{}
	}

	hit, ok := t.Scene.ClosestHit(r, ray.Span{Lo: t.minT(), Hi: math.Inf(1)})
	if !ok {
		return t.background(r)
	}

	res := t.Scene.Material(hit.MaterialIndex).Reflect(r, hit, rng)
	return vec3.MulVV(res.Color, t.Trace(res.Ray, depth-1, rng))
}

// SamplePixel averages samples primary rays through the pixel.  A single
// sample goes through the pixel center.
func (t *Tracer) SamplePixel(cam camera.Camera, curRow, imgRows, curCol, imgCols, samples, depth int, rng *rand.Rand) vec3.T {
	if samples <= 1 {
		return t.Trace(cam.ImageToRay(curRow, imgRows, curCol, imgCols, nil), depth, rng)
	}

	accum := vec3.T{}
	for i := 0; i < samples; i++ {
		r := cam.ImageToRay(curRow, imgRows, curCol, imgCols, rng)
		accum = vec3.AddVV(accum, t.Trace(r, depth, rng))
	}
	return vec3.DivVS(accum, float64(samples))
}
