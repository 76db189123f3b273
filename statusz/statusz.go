// Package statusz serves debug pages for a running render.
package statusz

import (
	"html/template"
	"net/http"
	"sync"
	"time"
)

type Healthz struct {
}

func NewHealthz() *Healthz {
	return &Healthz{}
}

func (h *Healthz) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("200 OK"))
}

// Progress tracks how much of a render has finished.  It is safe for
// concurrent use.
type Progress struct {
	lock sync.Mutex

	scene   string
	started time.Time
	done    int
	total   int
	now     func() time.Time
}

func NewProgress(scene string) *Progress {
	return &Progress{
		scene:   scene,
		started: time.Now(),
		now:     time.Now,
	}
}

// Update has the signature of render.ProgressFunction.
func (p *Progress) Update(done, total int) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.done = done
	p.total = total
}

type Snapshot struct {
	Scene   string
	Done    int
	Total   int
	Percent float64
	Elapsed time.Duration

	// Remaining is a linear extrapolation; zero until some work is done.
	Remaining time.Duration
}

func (p *Progress) Snapshot() Snapshot {
	p.lock.Lock()
	defer p.lock.Unlock()

	s := Snapshot{
		Scene:   p.scene,
		Done:    p.done,
		Total:   p.total,
		Elapsed: p.now().Sub(p.started).Round(time.Millisecond),
	}
	if p.total > 0 {
		s.Percent = 100 * float64(p.done) / float64(p.total)
	}
	if p.done > 0 && p.total >= p.done {
		s.Remaining = time.Duration(float64(s.Elapsed) * float64(p.total-p.done) / float64(p.done)).Round(time.Second)
	}
	return s
}

var progressTemplate = template.Must(template.New("progress").Parse(`
<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <title>Render Progress</title>
  </head>
  <body>
    <h1>Render Progress</h1>
    <table>
      <tbody>
        <tr><td>Scene</td><td>{{.Scene}}</td></tr>
        <tr><td>Pixels</td><td>{{.Done}} / {{.Total}}</td></tr>
        <tr><td>Percent</td><td>{{printf "%.1f" .Percent}}</td></tr>
        <tr><td>Elapsed</td><td>{{.Elapsed}}</td></tr>
        <tr><td>Remaining</td><td>{{.Remaining}}</td></tr>
      </tbody>
    </table>
  </body>
  <script>setTimeout(function() {location.reload();}, 5000);</script>
</html>
`))

func (p *Progress) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	progressTemplate.Execute(w, p.Snapshot())
}

// RegisterHandlers installs the status pages on mux.
func RegisterHandlers(mux *http.ServeMux, p *Progress) {
	mux.Handle("/healthz", NewHealthz())
	mux.Handle("/progressz", p)
}
