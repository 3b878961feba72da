package dryrun

import (
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/simrunner/internal/core/sim"
)

// JointSpec describes one actuated DOF of a model.
type JointSpec struct {
	Name    string  `yaml:"name"`
	Lower   float64 `yaml:"lower"`
	Upper   float64 `yaml:"upper"`
	Home    float64 `yaml:"home"`
	Inertia float64 `yaml:"inertia,omitempty"`
}

// PlanarIK parameterises the closed-form top-down reach solver. Indices
// address JointSpec entries; link lengths are in metres.
type PlanarIK struct {
	BaseHeight float64 `yaml:"base_height"`
	Upper      float64 `yaml:"upper"`
	Fore       float64 `yaml:"fore"`
	Tool       float64 `yaml:"tool"`
	Yaw        int     `yaml:"yaw"`
	Shoulder   int     `yaml:"shoulder"`
	Elbow      int     `yaml:"elbow"`
	Wrist      int     `yaml:"wrist"`
	// Fingers keep their current position through IK.
	Fingers []int `yaml:"fingers,omitempty"`
}

// ModelSpec is what the dry-run engine knows about a model file.
type ModelSpec struct {
	Joints []JointSpec `yaml:"joints"`
	Links  []string    `yaml:"links"`
	IK     *PlanarIK   `yaml:"ik,omitempty"`
}

// Catalog maps model file paths to their specs.
type Catalog map[string]ModelSpec

// Lookup returns the spec for morph. Planes need no catalog entry.
func (c Catalog) Lookup(m sim.Morph) (ModelSpec, error) {
	if m.Kind == sim.MorphPlane {
		return ModelSpec{Links: []string{"plane"}}, nil
	}
	spec, ok := c[m.File]
	if !ok {
		return ModelSpec{}, fmt.Errorf("%w: %s", sim.ErrUnknownModel, m.File)
	}
	return spec, nil
}

// LoadCatalog decodes a YAML catalog and merges it over DefaultCatalog.
func LoadCatalog(r io.Reader) (Catalog, error) {
	var extra Catalog
	if err := yaml.NewDecoder(r).Decode(&extra); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode model catalog: %w", err)
	}
	c := DefaultCatalog()
	for file, spec := range extra {
		if err := spec.validate(); err != nil {
			return nil, fmt.Errorf("model %s: %w", file, err)
		}
		c[file] = spec
	}
	return c, nil
}

// LoadCatalogFile is LoadCatalog on a file path.
func LoadCatalogFile(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCatalog(f)
}

func (s ModelSpec) validate() error {
	seen := make(map[string]bool, len(s.Joints))
	for _, j := range s.Joints {
		if j.Name == "" {
			return fmt.Errorf("%w: joint without name", sim.ErrInvalidOption)
		}
		if seen[j.Name] {
			return fmt.Errorf("%w: duplicate joint %q", sim.ErrInvalidOption, j.Name)
		}
		seen[j.Name] = true
		if j.Lower > j.Upper {
			return fmt.Errorf("%w: joint %q lower > upper", sim.ErrInvalidOption, j.Name)
		}
	}
	if s.IK != nil {
		for _, idx := range append([]int{s.IK.Yaw, s.IK.Shoulder, s.IK.Elbow, s.IK.Wrist}, s.IK.Fingers...) {
			if idx < 0 || idx >= len(s.Joints) {
				return fmt.Errorf("%w: ik joint index %d", sim.ErrInvalidOption, idx)
			}
		}
	}
	return nil
}

const defaultMass = 1.0

// DefaultCatalog knows the Franka Panda arm, the URDF ground plane and the
// water bottle used by the bundled scenarios.
func DefaultCatalog() Catalog {
	return Catalog{
		sim.PandaMJCF: {
			Joints: []JointSpec{
				{Name: "joint1", Lower: -2.8973, Upper: 2.8973, Home: 0},
				{Name: "joint2", Lower: -1.7628, Upper: 1.7628, Home: -0.785},
				{Name: "joint3", Lower: -2.8973, Upper: 2.8973, Home: 0},
				{Name: "joint4", Lower: -3.0718, Upper: -0.0698, Home: -2.356},
				{Name: "joint5", Lower: -2.8973, Upper: 2.8973, Home: 0},
				{Name: "joint6", Lower: -0.0175, Upper: 3.7525, Home: 1.571},
				{Name: "joint7", Lower: -2.8973, Upper: 2.8973, Home: math.Pi / 4},
				{Name: "finger_joint1", Lower: 0, Upper: 0.04, Home: 0.04, Inertia: 0.1},
				{Name: "finger_joint2", Lower: 0, Upper: 0.04, Home: 0.04, Inertia: 0.1},
			},
			Links: []string{
				"link0", "link1", "link2", "link3", "link4", "link5", "link6", "link7",
				"hand", "left_finger", "right_finger",
			},
			IK: &PlanarIK{
				BaseHeight: 0.333,
				Upper:      0.3205,
				Fore:       0.3928,
				Tool:       0.2104,
				Yaw:        0,
				Shoulder:   1,
				Elbow:      3,
				Wrist:      5,
				Fingers:    []int{7, 8},
			},
		},
		sim.PlaneURDF: {
			Links: []string{"planeLink"},
		},
		sim.BottleURDF: {
			Links: []string{"base", "link_0"},
		},
	}
}
