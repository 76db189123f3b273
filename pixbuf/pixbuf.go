// Package pixbuf is the rendered image: a row-major grid of linear RGB colors
// in which every pixel is written at most once.
package pixbuf

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"glint/vmath/vec3"
)

var (
	ErrAlreadyWritten = errors.New("pixel already written")
	ErrOutOfBounds    = errors.New("pixel out of bounds")
)

type Image struct {
	RowSize, ColSize int

	// Pix holds three channels per pixel, row 0 first.
	Pix     []float64
	Written []bool
}

func New(rowSize, colSize int) *Image {
	im := &Image{}
	im.Resize(rowSize, colSize)
	return im
}

// Resize discards the contents and reallocates for the given dimensions.
func (im *Image) Resize(rowSize, colSize int) {
	im.RowSize = rowSize
	im.ColSize = colSize
	im.Pix = make([]float64, 3*rowSize*colSize)
	im.Written = make([]bool, rowSize*colSize)
}

func (im *Image) index(r, c int) (int, error) {
	if r < 0 || r >= im.RowSize || c < 0 || c >= im.ColSize {
		return 0, fmt.Errorf("(%d, %d) in %dx%d image: %w", r, c, im.RowSize, im.ColSize, ErrOutOfBounds)
	}
	return r*im.ColSize + c, nil
}

// Set stores the color of pixel (r, c).  Writing the same pixel twice is an
// error and leaves the first value in place.
func (im *Image) Set(r, c int, v vec3.T) error {
	idx, err := im.index(r, c)
	if err != nil {
		return err
	}
	if im.Written[idx] {
		return fmt.Errorf("(%d, %d): %w", r, c, ErrAlreadyWritten)
	}
	im.Written[idx] = true
	copy(im.Pix[3*idx:3*idx+3], v[:])
	return nil
}

// At returns the color of pixel (r, c).  Unwritten pixels are black.
func (im *Image) At(r, c int) vec3.T {
	idx := r*im.ColSize + c
	return vec3.T{im.Pix[3*idx], im.Pix[3*idx+1], im.Pix[3*idx+2]}
}

func (im *Image) IsWritten(r, c int) bool {
	return im.Written[r*im.ColSize+c]
}

// WrittenCount is the number of pixels that have been set.
func (im *Image) WrittenCount() int {
	n := 0
	for _, w := range im.Written {
		if w {
			n++
		}
	}
	return n
}

func (im *Image) Complete() bool {
	return im.WrittenCount() == len(im.Written)
}

// Cut copies the rectangle [rowSrc, rowLim) x [colSrc, colLim) into a new
// image, preserving which pixels have been written.
func (im *Image) Cut(rowSrc, rowLim, colSrc, colLim int) *Image {
	dst := New(rowLim-rowSrc, colLim-colSrc)

	dstIndex := 0
	for r := rowSrc; r < rowLim; r++ {
		for c := colSrc; c < colLim; c++ {
			srcIndex := r*im.ColSize + c
			copy(dst.Pix[3*dstIndex:3*dstIndex+3], im.Pix[3*srcIndex:3*srcIndex+3])
			dst.Written[dstIndex] = im.Written[srcIndex]
			dstIndex++
		}
	}

	return dst
}

// Paste copies the written pixels of src into im with src's upper left corner
// at (rowSrc, colSrc).  It fails without modifying im if src does not fit or
// if any pixel would be written twice.
func (im *Image) Paste(src *Image, rowSrc, colSrc int) error {
	rowLim := rowSrc + src.RowSize
	colLim := colSrc + src.ColSize
	if rowSrc < 0 || colSrc < 0 || rowLim > im.RowSize || colLim > im.ColSize {
		return fmt.Errorf("pasting %dx%d at (%d, %d) into %dx%d image: %w", src.RowSize, src.ColSize, rowSrc, colSrc, im.RowSize, im.ColSize, ErrOutOfBounds)
	}

	for r := rowSrc; r < rowLim; r++ {
		for c := colSrc; c < colLim; c++ {
			srcIndex := (r-rowSrc)*src.ColSize + (c - colSrc)
			if src.Written[srcIndex] && im.Written[r*im.ColSize+c] {
				return fmt.Errorf("pasting at (%d, %d): %w", r, c, ErrAlreadyWritten)
			}
		}
	}

	for r := rowSrc; r < rowLim; r++ {
		for c := colSrc; c < colLim; c++ {
			srcIndex := (r-rowSrc)*src.ColSize + (c - colSrc)
			if !src.Written[srcIndex] {
				continue
			}
			dstIndex := r*im.ColSize + c
			copy(im.Pix[3*dstIndex:3*dstIndex+3], src.Pix[3*srcIndex:3*srcIndex+3])
			im.Written[dstIndex] = true
		}
	}
	return nil
}

// Quantize maps a linear channel value to 8 bits.  The value is clamped to
// [0, 1] first, so out-of-range colors saturate instead of wrapping.  A gamma
// other than 0 or 1 applies x^(1/gamma) after clamping.
func Quantize(v, gamma float64) uint8 {
	switch {
	case v >= 1:
		v = 1
	case v > 0:
	default:
		v = 0
	}
	if gamma > 0 && gamma != 1 {
		v = math.Pow(v, 1/gamma)
	}
	q := math.Floor(256 * v)
	if q > 255 {
		q = 255
	}
	return uint8(q)
}

// Quantized returns 8-bit RGB triples, row 0 first.
func (im *Image) Quantized(gamma float64) []uint8 {
	out := make([]uint8, len(im.Pix))
	for i, v := range im.Pix {
		out[i] = Quantize(v, gamma)
	}
	return out
}

// ToRGBA converts to an opaque image.RGBA for the standard image encoders.
func (im *Image) ToRGBA(gamma float64) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, im.ColSize, im.RowSize))
	for r := 0; r < im.RowSize; r++ {
		for c := 0; c < im.ColSize; c++ {
			v := im.At(r, c)
			out.SetRGBA(c, r, color.RGBA{
				R: Quantize(v[0], gamma),
				G: Quantize(v[1], gamma),
				B: Quantize(v[2], gamma),
				A: 255,
			})
		}
	}
	return out
}
