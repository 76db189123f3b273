// Package rendercache keeps finished images on disk, keyed by everything that
// determines their pixels, so repeated renders of an unchanged scene are free.
package rendercache

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"glint/pixbuf"
	"glint/render"

	"github.com/dgraph-io/badger"
	"github.com/golang/glog"
	"golang.org/x/xerrors"
)

const keyPrefix = "img/v1/"

type Cache struct {
	DB *badger.DB
}

func Open(dataDir string) (*Cache, error) {
	db, err := badger.Open(badger.DefaultOptions(dataDir).WithLogger(glogLogger{}))
	if err != nil {
		return nil, xerrors.Errorf("while opening badger kv dir: %w", err)
	}
	return &Cache{DB: db}, nil
}

func (c *Cache) Close() error {
	if err := c.DB.Close(); err != nil {
		return xerrors.Errorf("while closing database: %w", err)
	}
	return nil
}

// Key digests the scene document together with the settings that affect the
// rendered pixels.  The worker count is left out since it does not change the
// result.
func Key(sceneBytes []byte, rows, cols int, opts render.Options) []byte {
	opts = opts.WithDefaults()

	h := sha256.New()
	h.Write(sceneBytes)

	params := []int64{
		int64(rows),
		int64(cols),
		int64(opts.SamplesPerPixel),
		int64(opts.MaxDepth),
		int64(opts.RowsPerBand),
		opts.Seed,
	}
	binary.Write(h, binary.LittleEndian, params)

	return append([]byte(keyPrefix), h.Sum(nil)...)
}

// Get returns the cached image for key.  The boolean is false on a miss.
func (c *Cache) Get(key []byte) (*pixbuf.Image, bool, error) {
	var value []byte
	err := c.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if xerrors.Is(err, badger.ErrKeyNotFound) {
		glog.V(1).Infof("Render cache miss for %x", key[len(keyPrefix):])
		return nil, false, nil
	}
	if err != nil {
		return nil, false, xerrors.Errorf("while looking up cached render: %w", err)
	}

	im, err := pixbuf.ReadImage(bytes.NewReader(value))
	if err != nil {
		return nil, false, xerrors.Errorf("while decoding cached render: %w", err)
	}
	glog.V(1).Infof("Render cache hit for %x", key[len(keyPrefix):])
	return im, true, nil
}

func (c *Cache) Put(key []byte, im *pixbuf.Image) error {
	buf := &bytes.Buffer{}
	if err := pixbuf.WriteImage(im, buf); err != nil {
		return xerrors.Errorf("while encoding render: %w", err)
	}

	err := c.DB.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf.Bytes())
	})
	if err != nil {
		return xerrors.Errorf("while storing render: %w", err)
	}
	return nil
}

// glogLogger routes badger's logging into glog.
type glogLogger struct{}

func (glogLogger) Errorf(format string, args ...interface{}) {
	glog.ErrorDepth(1, fmt.Sprintf(format, args...))
}

func (glogLogger) Warningf(format string, args ...interface{}) {
	glog.WarningDepth(1, fmt.Sprintf(format, args...))
}

func (glogLogger) Infof(format string, args ...interface{}) {
	glog.V(1).Infof(format, args...)
}

func (glogLogger) Debugf(format string, args ...interface{}) {
	glog.V(2).Infof(format, args...)
}
