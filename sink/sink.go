// Package sink opens output destinations for rendered images: local paths, or
// Cloud Storage objects named gs://bucket/object.
package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const gcsScheme = "gs://"

var contentTypes = map[string]string{
	".png":  "image/png",
	".ppm":  "image/x-portable-pixmap",
	".rgbf": "application/octet-stream",
}

type Sink struct {
	gcs *storage.Client
}

// New returns a Sink.  gcs may be nil if no destination will be a gs:// URL.
func New(gcs *storage.Client) *Sink {
	return &Sink{gcs: gcs}
}

// IsGCS reports whether dest names a Cloud Storage object.
func IsGCS(dest string) bool {
	return strings.HasPrefix(dest, gcsScheme)
}

// ParseGCS splits gs://bucket/object into its bucket and object names.
func ParseGCS(dest string) (bucket, object string, err error) {
	if !IsGCS(dest) {
		return "", "", fmt.Errorf("%q is not a gs:// URL", dest)
	}
	rest := strings.TrimPrefix(dest, gcsScheme)
	slash := strings.Index(rest, "/")
	if slash <= 0 || slash == len(rest)-1 {
		return "", "", fmt.Errorf("%q must have the form gs://bucket/object", dest)
	}
	return rest[:slash], rest[slash+1:], nil
}

// Create opens dest for writing.  The data is only committed once the returned
// writer is closed without error.
func (s *Sink) Create(ctx context.Context, dest string) (io.WriteCloser, error) {
	tracer := otel.Tracer("glint/sink")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Sink.Create")
	defer span.End()
	span.SetAttributes(attribute.String("dest", dest))

	if !IsGCS(dest) {
		if dir := filepath.Dir(dest); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("while creating output directory: %w", err)
			}
		}
		f, err := os.Create(dest)
		if err != nil {
			return nil, fmt.Errorf("while creating output file: %w", err)
		}
		return f, nil
	}

	bucket, object, err := ParseGCS(dest)
	if err != nil {
		return nil, err
	}
	if s.gcs == nil {
		return nil, fmt.Errorf("no Cloud Storage client configured for %s", dest)
	}

	w := s.gcs.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentTypes[filepath.Ext(object)]
	return w, nil
}
