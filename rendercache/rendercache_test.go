package rendercache

import (
	"bytes"
	"testing"

	"glint/pixbuf"
	"glint/render"
	"glint/vmath/vec3"

	"github.com/google/go-cmp/cmp"
)

func TestKey(t *testing.T) {
	scene := []byte("camera: {eye: [0,0,0], lookAt: [0,0,-1]}")
	opts := render.Options{SamplesPerPixel: 4, MaxDepth: 8, Seed: 3}

	base := Key(scene, 10, 20, opts)

	withWorkers := opts
	withWorkers.Workers = 17
	if !bytes.Equal(Key(scene, 10, 20, withWorkers), base) {
		t.Errorf("Worker count changed the key")
	}

	// Defaults are applied before hashing.
	if !bytes.Equal(Key(scene, 10, 20, render.Options{SamplesPerPixel: 4, MaxDepth: 8, Seed: 3, RowsPerBand: render.DefaultRowsPerBand}), base) {
		t.Errorf("Explicit default changed the key")
	}

	variants := map[string][]byte{
		"scene":   Key(append(scene, ' '), 10, 20, opts),
		"rows":    Key(scene, 11, 20, opts),
		"cols":    Key(scene, 10, 21, opts),
		"samples": Key(scene, 10, 20, render.Options{SamplesPerPixel: 5, MaxDepth: 8, Seed: 3}),
		"depth":   Key(scene, 10, 20, render.Options{SamplesPerPixel: 4, MaxDepth: 9, Seed: 3}),
		"seed":    Key(scene, 10, 20, render.Options{SamplesPerPixel: 4, MaxDepth: 8, Seed: 4}),
	}
	for desc, k := range variants {
		if bytes.Equal(k, base) {
			t.Errorf("Changing %s did not change the key", desc)
		}
	}
}

func TestPutGet(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer c.Close()

	key := Key([]byte("scene"), 2, 2, render.Options{})

	if _, ok, err := c.Get(key); err != nil || ok {
		t.Fatalf("Get on empty cache = (_, %v, %v), want miss", ok, err)
	}

	im := pixbuf.New(2, 2)
	if err := im.Set(0, 1, vec3.T{0.25, 0.5, 0.75}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := c.Put(key, im); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, ok, err := c.Get(key)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("Get after Put missed")
	}
	if diff := cmp.Diff(got, im); diff != "" {
		t.Errorf("Wrong cached image; diff (-got +want)\n%s", diff)
	}
}
