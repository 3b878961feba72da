package sim

import (
	"fmt"
	"strings"
)

// Vec3 is a position or direction in world coordinates.
type Vec3 [3]float64

func (v Vec3) X() float64 { return v[0] }
func (v Vec3) Y() float64 { return v[1] }
func (v Vec3) Z() float64 { return v[2] }

// Quat is a rotation stored as (w, x, y, z).
type Quat [4]float64

// Identity is the zero rotation.
var Identity = Quat{1, 0, 0, 0}

// Joint identifies a joint of an articulated entity and its local DOF index.
type Joint struct {
	Name   string `json:"name"`
	DofIdx int    `json:"dof_idx"`
}

// Link identifies a rigid link of an articulated entity.
type Link struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// Frame is one rendered camera image. Pixel data stays inside the engine;
// the digest identifies the rendered state.
type Frame struct {
	Index     int    `json:"index"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Digest    uint64 `json:"digest"`
	Recording bool   `json:"recording"`
}

// Recording summarises a finalized camera recording.
type Recording struct {
	Filename string `json:"filename"`
	FPS      int    `json:"fps"`
	Frames   int    `json:"frames"`
}

// Backend selects the compute device of the engine.
type Backend uint8

const (
	BackendCPU Backend = iota
	BackendGPU
	BackendCUDA
	BackendVulkan
	BackendMetal
)

var backendNames = map[Backend]string{
	BackendCPU:    "cpu",
	BackendGPU:    "gpu",
	BackendCUDA:   "cuda",
	BackendVulkan: "vulkan",
	BackendMetal:  "metal",
}

func (b Backend) String() string {
	if s, ok := backendNames[b]; ok {
		return s
	}
	return fmt.Sprintf("backend(%d)", uint8(b))
}

// ParseBackend maps a backend name to its value.
func ParseBackend(s string) (Backend, error) {
	for b, name := range backendNames {
		if strings.EqualFold(name, s) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("%w: backend %q", ErrInvalidOption, s)
}

func (b Backend) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *Backend) UnmarshalText(text []byte) error {
	v, err := ParseBackend(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Theme selects the terminal colour scheme used for engine log output.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Renderer selects the rendering pipeline.
type Renderer string

const (
	RendererRasterizer Renderer = "rasterizer"
	RendererRayTracer  Renderer = "raytracer"
)
