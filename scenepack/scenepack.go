// Package scenepack loads scene descriptions and their render settings from
// YAML or JSON documents.
package scenepack

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"glint/builderr"
	"glint/camera"
	"glint/geometry"
	"glint/material"
	"glint/render"
	"glint/scene"
	"glint/tracer"
	"glint/vmath/vec3"

	"sigs.k8s.io/yaml"
)

const (
	DefaultWidth  = 400
	DefaultHeight = 225
	DefaultGamma  = 2.0
	DefaultVFov   = 90.0
)

var (
	DefaultSkyTop    = vec3.T{0.5, 0.7, 1.0}
	DefaultSkyBottom = vec3.T{1.0, 1.0, 1.0}
)

type Pack struct {
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	SamplesPerPixel int     `json:"samplesPerPixel,omitempty"`
	MaxDepth        int     `json:"maxDepth,omitempty"`
	Gamma           float64 `json:"gamma,omitempty"`
	Seed            int64   `json:"seed,omitempty"`

	Background *Background `json:"background,omitempty"`
	Camera     Camera      `json:"camera"`
	Materials  []Material  `json:"materials,omitempty"`
	Spheres    []Sphere    `json:"spheres,omitempty"`
}

// Background selects at most one of a constant color or a vertical gradient.
// With neither set the sky gradient is used.
type Background struct {
	Constant *vec3.T   `json:"constant,omitempty"`
	Gradient *Gradient `json:"gradient,omitempty"`
}

type Gradient struct {
	Top    vec3.T `json:"top"`
	Bottom vec3.T `json:"bottom"`
}

type Camera struct {
	Eye    vec3.T  `json:"eye"`
	LookAt vec3.T  `json:"lookAt"`
	Up     *vec3.T `json:"up,omitempty"`
	VFov   float64 `json:"vfov,omitempty"`

	// AspectRatio defaults to the image's width / height.
	AspectRatio float64 `json:"aspectRatio,omitempty"`
}

// Material sets exactly one of Diffuse or Specular to the albedo.
type Material struct {
	Name     string  `json:"name"`
	Diffuse  *vec3.T `json:"diffuse,omitempty"`
	Specular *vec3.T `json:"specular,omitempty"`
}

type Sphere struct {
	Center   vec3.T  `json:"center"`
	Radius   float64 `json:"radius"`
	Material string  `json:"material"`
}

// Parse decodes a YAML or JSON pack and fills in defaults.
func Parse(data []byte) (*Pack, error) {
	p := &Pack{}
	if err := yaml.UnmarshalStrict(data, p); err != nil {
		return nil, fmt.Errorf("while decoding scene pack: %w", err)
	}
	p.SetDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func Load(fileName string) (*Pack, error) {
	fileBytes, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("while opening scene pack: %w", err)
	}
	p, err := Parse(fileBytes)
	if err != nil {
		return nil, fmt.Errorf("while parsing %s: %w", fileName, err)
	}
	return p, nil
}

func (p *Pack) SetDefaults() {
	if p.Width == 0 {
		p.Width = DefaultWidth
	}
	if p.Height == 0 {
		p.Height = DefaultHeight
	}
	if p.SamplesPerPixel == 0 {
		p.SamplesPerPixel = render.DefaultSamplesPerPixel
	}
	if p.MaxDepth == 0 {
		p.MaxDepth = render.DefaultMaxDepth
	}
	if p.Gamma == 0 {
		p.Gamma = DefaultGamma
	}
	if p.Camera.Up == nil {
		p.Camera.Up = &vec3.T{0, 1, 0}
	}
	if p.Camera.VFov == 0 {
		p.Camera.VFov = DefaultVFov
	}
}

// AspectRatio is the camera's explicit aspect ratio, or width / height.
func (p *Pack) AspectRatio() float64 {
	if p.Camera.AspectRatio != 0 {
		return p.Camera.AspectRatio
	}
	return float64(p.Width) / float64(p.Height)
}

// Validate checks everything that can be checked without building the scene.
func (p *Pack) Validate() error {
	if p.Width < 1 || p.Height < 1 {
		return builderr.Newf(builderr.KindBadConfig, "image size %dx%d must be positive", p.Width, p.Height)
	}
	if p.SamplesPerPixel < 1 {
		return builderr.Newf(builderr.KindBadConfig, "samplesPerPixel must be at least 1, got %d", p.SamplesPerPixel)
	}
	if p.MaxDepth < 1 {
		return builderr.Newf(builderr.KindBadConfig, "maxDepth must be at least 1, got %d", p.MaxDepth)
	}
	if p.Gamma < 0 {
		return builderr.Newf(builderr.KindBadConfig, "gamma must not be negative, got %v", p.Gamma)
	}
	if p.Background != nil && p.Background.Constant != nil && p.Background.Gradient != nil {
		return builderr.Newf(builderr.KindBadConfig, "background sets both constant and gradient")
	}

	names := map[string]bool{}
	for i, m := range p.Materials {
		if m.Name == "" {
			return builderr.Newf(builderr.KindBadMaterial, "material %d has no name", i)
		}
		if names[m.Name] {
			return builderr.Newf(builderr.KindBadMaterial, "material name %q is used twice", m.Name)
		}
		names[m.Name] = true
		if (m.Diffuse == nil) == (m.Specular == nil) {
			return builderr.Newf(builderr.KindBadMaterial, "material %q must set exactly one of diffuse or specular", m.Name)
		}
	}

	for i, s := range p.Spheres {
		if !names[s.Material] {
			return builderr.Newf(builderr.KindBadMaterial, "sphere %d references unknown material %q", i, s.Material)
		}
	}
	return nil
}

func (p *Pack) background() tracer.Background {
	switch {
	case p.Background == nil:
	case p.Background.Constant != nil:
		return tracer.Constant{Color: *p.Background.Constant}
	case p.Background.Gradient != nil:
		return tracer.Gradient{Top: p.Background.Gradient.Top, Bottom: p.Background.Gradient.Bottom}
	}
	return tracer.Gradient{Top: DefaultSkyTop, Bottom: DefaultSkyBottom}
}

// Built is everything needed to render a pack.
type Built struct {
	Scene   *scene.Scene
	Camera  *camera.PinholeCamera
	Tracer  *tracer.Tracer
	Options render.Options

	Rows, Cols int
	Gamma      float64
}

func (p *Pack) Build() (*Built, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s := scene.New()
	materialIndex := map[string]int{}
	for _, m := range p.Materials {
		var mtl material.Material
		switch {
		case m.Diffuse != nil:
			mtl = &material.Diffuse{Color: *m.Diffuse}
		case m.Specular != nil:
			mtl = &material.Specular{Color: *m.Specular}
		}
		idx, err := s.AddMaterial(mtl)
		if err != nil {
			return nil, fmt.Errorf("while adding material %q: %w", m.Name, err)
		}
		materialIndex[m.Name] = idx
	}

	for i, sp := range p.Spheres {
		sph, err := geometry.NewSphere(sp.Center, sp.Radius, materialIndex[sp.Material])
		if err != nil {
			return nil, fmt.Errorf("while building sphere %d: %w", i, err)
		}
		if _, err := s.AddSphere(sph); err != nil {
			return nil, fmt.Errorf("while adding sphere %d: %w", i, err)
		}
	}

	cam, err := camera.New(camera.Config{
		Eye:         p.Camera.Eye,
		LookAt:      p.Camera.LookAt,
		Up:          *p.Camera.Up,
		VFovDeg:     p.Camera.VFov,
		AspectRatio: p.AspectRatio(),
	})
	if err != nil {
		return nil, fmt.Errorf("while building camera: %w", err)
	}

	return &Built{
		Scene:  s,
		Camera: cam,
		Tracer: tracer.New(s, p.background()),
		Options: render.Options{
			SamplesPerPixel: p.SamplesPerPixel,
			MaxDepth:        p.MaxDepth,
			Seed:            p.Seed,
		},
		Rows:  p.Height,
		Cols:  p.Width,
		Gamma: p.Gamma,
	}, nil
}

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Builtin returns the raw document of a scene shipped with the binary.
func Builtin(name string) ([]byte, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("no built-in scene %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Names lists the built-in scenes.
func Names() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	names := []string{}
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}
