// Package ppm writes images in the netpbm PPM formats.
package ppm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"glint/pixbuf"
)

type Options struct {
	// Binary selects P6 instead of the plain-text P3.
	Binary bool
	Gamma  float64
}

// Encode writes im, top row first.  In P3 output every image row is one text
// line.
func Encode(w io.Writer, im *pixbuf.Image, opts Options) error {
	bw := bufio.NewWriter(w)

	magic := "P3"
	if opts.Binary {
		magic = "P6"
	}
	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n255\n", magic, im.ColSize, im.RowSize); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	samples := im.Quantized(opts.Gamma)
	if opts.Binary {
		if _, err := bw.Write(samples); err != nil {
			return fmt.Errorf("while writing samples: %w", err)
		}
	} else {
		line := make([]byte, 0, 12*im.ColSize)
		rowLen := 3 * im.ColSize
		for r := 0; r < im.RowSize; r++ {
			line = line[:0]
			for i, s := range samples[r*rowLen : (r+1)*rowLen] {
				if i != 0 {
					line = append(line, ' ')
				}
				line = strconv.AppendUint(line, uint64(s), 10)
			}
			line = append(line, '\n')
			if _, err := bw.Write(line); err != nil {
				return fmt.Errorf("while writing row %d: %w", r, err)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("while flushing: %w", err)
	}
	return nil
}

// Sequence names successive output images prefix0.ppm, prefix1.ppm, ...  The
// counter belongs to the Sequence, so independent sequences don't interfere.
type Sequence struct {
	Dir    string
	Prefix string
	Ext    string

	next int
}

func (s *Sequence) name(i int) string {
	ext := s.Ext
	if ext == "" {
		ext = ".ppm"
	}
	return filepath.Join(s.Dir, fmt.Sprintf("%s%d%s", s.Prefix, i, ext))
}

// Next returns the next name and advances the counter.
func (s *Sequence) Next() string {
	n := s.name(s.next)
	s.next++
	return n
}

// SkipExisting advances the counter past names that already exist on disk, so
// that a restarted program doesn't overwrite earlier output.
func (s *Sequence) SkipExisting() error {
	for {
		_, err := os.Stat(s.name(s.next))
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("while checking %s: %w", s.name(s.next), err)
		}
		s.next++
	}
}
