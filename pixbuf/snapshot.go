package pixbuf

import (
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

const dataLayoutVersion = 1

// Header field numbers.
const (
	fieldRowSize           protowire.Number = 1
	fieldColSize           protowire.Number = 2
	fieldDataLayoutVersion protowire.Number = 3
)

type header struct {
	RowSize           uint64
	ColSize           uint64
	DataLayoutVersion uint64
}

func (h *header) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldRowSize, protowire.VarintType)
	b = protowire.AppendVarint(b, h.RowSize)
	b = protowire.AppendTag(b, fieldColSize, protowire.VarintType)
	b = protowire.AppendVarint(b, h.ColSize)
	b = protowire.AppendTag(b, fieldDataLayoutVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, h.DataLayoutVersion)
	return b
}

func (h *header) unmarshal(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("while reading field tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("while skipping field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return fmt.Errorf("while reading field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]

		switch num {
		case fieldRowSize:
			h.RowSize = v
		case fieldColSize:
			h.ColSize = v
		case fieldDataLayoutVersion:
			h.DataLayoutVersion = v
		}
	}
	return nil
}

// ReadImage decodes a snapshot written by WriteImage.
func ReadImage(in io.Reader) (*Image, error) {
	// Read header length.
	var headerLength uint64
	if err := binary.Read(in, binary.LittleEndian, &headerLength); err != nil {
		return nil, fmt.Errorf("while reading header length: %w", err)
	}
	if headerLength > 1<<16 {
		return nil, fmt.Errorf("implausible header length %d", headerLength)
	}

	headerBytes := make([]byte, int(headerLength))
	if _, err := io.ReadFull(in, headerBytes); err != nil {
		return nil, fmt.Errorf("while reading header bytes: %w", err)
	}

	hdr := &header{}
	if err := hdr.unmarshal(headerBytes); err != nil {
		return nil, fmt.Errorf("while unmarshaling header: %w", err)
	}

	if hdr.DataLayoutVersion != dataLayoutVersion {
		return nil, fmt.Errorf("bad data layout version: %v", hdr.DataLayoutVersion)
	}
	if hdr.RowSize > 1<<16 || hdr.ColSize > 1<<16 {
		return nil, fmt.Errorf("implausible image size %dx%d", hdr.RowSize, hdr.ColSize)
	}

	im := New(int(hdr.RowSize), int(hdr.ColSize))

	zipReader, err := zlib.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("while opening zip reader: %w", err)
	}
	defer zipReader.Close()

	if err := binary.Read(zipReader, binary.LittleEndian, im.Pix); err != nil {
		return nil, fmt.Errorf("while reading pixel data: %w", err)
	}

	if err := binary.Read(zipReader, binary.LittleEndian, im.Written); err != nil {
		return nil, fmt.Errorf("while reading written mask: %w", err)
	}

	return im, nil
}

func ReadImageFromFile(name string) (*Image, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("while opening file: %w", err)
	}
	defer f.Close()

	return ReadImage(f)
}

// WriteImage writes a lossless snapshot: an 8-byte little-endian header
// length, the header, then the zlib-compressed channels and written mask.
func WriteImage(im *Image, w io.Writer) error {
	hdr := &header{
		RowSize:           uint64(im.RowSize),
		ColSize:           uint64(im.ColSize),
		DataLayoutVersion: dataLayoutVersion,
	}
	hdrBytes := hdr.marshal()

	headerLengthBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(headerLengthBytes, uint64(len(hdrBytes)))
	if _, err := w.Write(headerLengthBytes); err != nil {
		return fmt.Errorf("while writing header length: %w", err)
	}

	if _, err := w.Write(hdrBytes); err != nil {
		return fmt.Errorf("while writing header: %w", err)
	}

	zipWriter := zlib.NewWriter(w)

	if err := binary.Write(zipWriter, binary.LittleEndian, im.Pix); err != nil {
		return fmt.Errorf("while writing pixel data: %w", err)
	}

	if err := binary.Write(zipWriter, binary.LittleEndian, im.Written); err != nil {
		return fmt.Errorf("while writing written mask: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("while closing zip writer: %w", err)
	}

	return nil
}
