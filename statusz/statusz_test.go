package statusz

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSnapshot(t *testing.T) {
	start := time.Date(2021, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewProgress("mirrors")
	p.started = start
	p.now = func() time.Time { return start.Add(10 * time.Second) }

	p.Update(25, 100)

	want := Snapshot{
		Scene:     "mirrors",
		Done:      25,
		Total:     100,
		Percent:   25,
		Elapsed:   10 * time.Second,
		Remaining: 30 * time.Second,
	}
	if diff := cmp.Diff(p.Snapshot(), want); diff != "" {
		t.Errorf("Wrong snapshot; diff (-got +want)\n%s", diff)
	}
}

func TestSnapshotBeforeProgress(t *testing.T) {
	p := NewProgress("empty")
	s := p.Snapshot()
	if s.Percent != 0 || s.Remaining != 0 {
		t.Errorf("Snapshot before any progress = %+v, want zero percent and remaining", s)
	}
}

func TestHandlers(t *testing.T) {
	p := NewProgress("default")
	p.Update(3, 4)

	mux := http.NewServeMux()
	RegisterHandlers(mux, p)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	testCases := []struct {
		path string
		want string
	}{
		{"/healthz", "200 OK"},
		{"/progressz", "3 / 4"},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tc.path)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("Status = %d, want 200", resp.StatusCode)
			}
			if !strings.Contains(string(body), tc.want) {
				t.Errorf("Body %q does not contain %q", body, tc.want)
			}
		})
	}
}
