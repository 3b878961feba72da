package sim

// MorphKind names the shape description an entity is built from.
type MorphKind string

const (
	MorphPlane MorphKind = "plane"
	MorphMJCF  MorphKind = "mjcf"
	MorphURDF  MorphKind = "urdf"
)

// Morph is a shape or robot description handed to Scene.AddEntity.
// Euler angles are in degrees.
type Morph struct {
	Kind  MorphKind `json:"kind"`
	File  string    `json:"file,omitempty"`
	Scale float64   `json:"scale,omitempty"`
	Pos   Vec3      `json:"pos"`
	Euler Vec3      `json:"euler"`
	Fixed bool      `json:"fixed,omitempty"`
}

// Model files shipped with the engine assets.
const (
	PandaMJCF  = "xml/franka_emika_panda/panda.xml"
	PlaneURDF  = "urdf/plane/plane.urdf"
	BottleURDF = "urdf/3763/mobility_vhacd.urdf"
)

// Plane is an infinite ground plane.
func Plane() Morph { return Morph{Kind: MorphPlane, Scale: 1} }

// MJCF loads a MuJoCo XML description.
func MJCF(file string) Morph { return Morph{Kind: MorphMJCF, File: file, Scale: 1} }

// URDF loads a URDF description.
func URDF(file string) Morph { return Morph{Kind: MorphURDF, File: file, Scale: 1} }

func (m Morph) WithScale(s float64) Morph { m.Scale = s; return m }
func (m Morph) WithPos(p Vec3) Morph      { m.Pos = p; return m }
func (m Morph) WithEuler(e Vec3) Morph    { m.Euler = e; return m }
func (m Morph) WithFixed(f bool) Morph    { m.Fixed = f; return m }

// Material describes the physical material of an entity.
type Material struct {
	Kind string  `json:"kind"`
	Rho  float64 `json:"rho"`
}

// Rigid is a rigid material with density rho (kg/m^3).
func Rigid(rho float64) Material { return Material{Kind: "rigid", Rho: rho} }

// EntityOptions holds the optional parameters of Scene.AddEntity.
type EntityOptions struct {
	Material *Material `json:"material,omitempty"`
}

// EntityOption mutates EntityOptions.
type EntityOption func(*EntityOptions)

// WithMaterial sets the entity material.
func WithMaterial(m Material) EntityOption {
	return func(o *EntityOptions) { o.Material = &m }
}

// ApplyEntityOptions folds opts into an EntityOptions value.
func ApplyEntityOptions(opts ...EntityOption) EntityOptions {
	var o EntityOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
