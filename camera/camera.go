package camera

import (
	"math"
	"math/rand"

	"glint/builderr"
	"glint/ray"
	"glint/vmath/vec3"
)

type Camera interface {
	ImageToRay(curRow, imgRows, curCol, imgCols int, rng *rand.Rand) ray.Ray
}

type Config struct {
	Eye    vec3.T
	LookAt vec3.T
	Up     vec3.T

	// VFovDeg is the vertical field of view, in degrees.
	VFovDeg float64

	// AspectRatio is viewport width over height.
	AspectRatio float64
}

// PinholeCamera projects through a single point onto a viewport one unit in
// front of it.  Row 0 is the top of the image and column 0 is the left.
type PinholeCamera struct {
	Center vec3.T

	// Orthonormal basis.  Back points from the scene toward the eye.
	Right, Up, Back vec3.T

	upperLeft  vec3.T
	horizontal vec3.T
	vertical   vec3.T
}

func New(cfg Config) (*PinholeCamera, error) {
	if !cfg.Eye.IsFinite() || !cfg.LookAt.IsFinite() || !cfg.Up.IsFinite() {
		return nil, builderr.Newf(builderr.KindBadCamera, "camera vectors must be finite (eye=%v lookAt=%v up=%v)", cfg.Eye, cfg.LookAt, cfg.Up)
	}
	if !(cfg.VFovDeg > 0 && cfg.VFovDeg < 180) {
		return nil, builderr.Newf(builderr.KindBadCamera, "vertical field of view %v is outside (0, 180)", cfg.VFovDeg)
	}
	if !(cfg.AspectRatio > 0) || math.IsInf(cfg.AspectRatio, 0) {
		return nil, builderr.Newf(builderr.KindBadCamera, "aspect ratio %v must be positive and finite", cfg.AspectRatio)
	}

	view := vec3.SubVV(cfg.Eye, cfg.LookAt)
	if view.IsZero() {
		return nil, builderr.Newf(builderr.KindBadCamera, "eye and lookAt coincide at %v", cfg.Eye)
	}
	back := vec3.Normalize(view)

	side := vec3.CProd(cfg.Up, back)
	if side.Norm() < 1e-12*cfg.Up.Norm() || cfg.Up.IsZero() {
		return nil, builderr.Newf(builderr.KindBadCamera, "up vector %v is zero or parallel to the view direction", cfg.Up)
	}
	right := vec3.Normalize(side)
	up := vec3.CProd(back, right)

	h := math.Tan(cfg.VFovDeg * math.Pi / 360)
	viewportHeight := 2 * h
	viewportWidth := cfg.AspectRatio * viewportHeight

	horizontal := vec3.MulVS(right, viewportWidth)
	vertical := vec3.MulVS(up, viewportHeight)

	upperLeft := vec3.SubVV(cfg.Eye, back)
	upperLeft = vec3.SubVV(upperLeft, vec3.MulVS(horizontal, 0.5))
	upperLeft = vec3.AddVV(upperLeft, vec3.MulVS(vertical, 0.5))

	return &PinholeCamera{
		Center:     cfg.Eye,
		Right:      right,
		Up:         up,
		Back:       back,
		upperLeft:  upperLeft,
		horizontal: horizontal,
		vertical:   vertical,
	}, nil
}

// Ray returns the primary ray through the point (curCol+du, curRow+dv) of an
// imgRows by imgCols image.  du and dv in [0, 1) pick a point inside the
// pixel; 0.5 is its center.
func (c *PinholeCamera) Ray(curRow, imgRows, curCol, imgCols int, du, dv float64) ray.Ray {
	s := (float64(curCol) + du) / float64(imgCols)
	t := (float64(curRow) + dv) / float64(imgRows)

	target := vec3.AddVV(c.upperLeft, vec3.MulVS(c.horizontal, s))
	target = vec3.SubVV(target, vec3.MulVS(c.vertical, t))

	return ray.Ray{
		Origin:    c.Center,
		Direction: vec3.Normalize(vec3.SubVV(target, c.Center)),
	}
}

// ImageToRay returns a primary ray through a uniformly jittered point of the
// pixel.  A nil rng aims at the pixel center.
func (c *PinholeCamera) ImageToRay(curRow, imgRows, curCol, imgCols int, rng *rand.Rand) ray.Ray {
	if rng == nil {
		return c.Ray(curRow, imgRows, curCol, imgCols, 0.5, 0.5)
	}
	return c.Ray(curRow, imgRows, curCol, imgCols, rng.Float64(), rng.Float64())
}
