package sim

import "fmt"

// DefaultDt is the rigid solver timestep used when RigidOptions.Dt is zero.
const DefaultDt = 0.01

// InitOptions configures Engine.Init.
type InitOptions struct {
	Backend Backend `json:"backend" yaml:"backend"`
	Theme   Theme   `json:"theme" yaml:"theme"`
	Debug   bool    `json:"debug" yaml:"debug"`
}

// SceneOptions configures Engine.NewScene.
type SceneOptions struct {
	ShowViewer bool          `json:"show_viewer" yaml:"show_viewer"`
	Viewer     ViewerOptions `json:"viewer" yaml:"viewer"`
	Vis        VisOptions    `json:"vis" yaml:"vis"`
	Rigid      RigidOptions  `json:"rigid" yaml:"rigid"`
	Renderer   Renderer      `json:"renderer,omitempty" yaml:"renderer,omitempty"`
}

// ViewerOptions describes the interactive viewer window and its camera.
type ViewerOptions struct {
	Res          [2]int  `json:"res" yaml:"res"`
	CameraPos    Vec3    `json:"camera_pos" yaml:"camera_pos"`
	CameraLookat Vec3    `json:"camera_lookat" yaml:"camera_lookat"`
	CameraFOV    float64 `json:"camera_fov" yaml:"camera_fov"`
	MaxFPS       int     `json:"max_fps" yaml:"max_fps"`
}

// VisOptions controls what the renderer draws.
type VisOptions struct {
	ShowWorldFrame  bool       `json:"show_world_frame" yaml:"show_world_frame"`
	WorldFrameSize  float64    `json:"world_frame_size" yaml:"world_frame_size"`
	ShowLinkFrame   bool       `json:"show_link_frame" yaml:"show_link_frame"`
	ShowCameras     bool       `json:"show_cameras" yaml:"show_cameras"`
	PlaneReflection bool       `json:"plane_reflection" yaml:"plane_reflection"`
	AmbientLight    [3]float64 `json:"ambient_light" yaml:"ambient_light"`
}

// RigidOptions configures the rigid-body solver.
type RigidOptions struct {
	Dt float64 `json:"dt" yaml:"dt"`
}

// CameraOptions configures Scene.AddCamera.
type CameraOptions struct {
	Res    [2]int  `json:"res" yaml:"res"`
	Pos    Vec3    `json:"pos" yaml:"pos"`
	Lookat Vec3    `json:"lookat" yaml:"lookat"`
	FOV    float64 `json:"fov" yaml:"fov"`
	GUI    bool    `json:"gui" yaml:"gui"`
}

// DefaultViewerOptions mirrors the engine's own viewer defaults.
func DefaultViewerOptions() ViewerOptions {
	return ViewerOptions{
		Res:          [2]int{1280, 960},
		CameraPos:    Vec3{3.5, 0.5, 2.5},
		CameraLookat: Vec3{0, 0, 0.5},
		CameraFOV:    40,
		MaxFPS:       60,
	}
}

// TimeStep returns the effective solver timestep.
func (o RigidOptions) TimeStep() float64 {
	if o.Dt <= 0 {
		return DefaultDt
	}
	return o.Dt
}

// Validate checks the scene options for values the engine would reject.
func (o SceneOptions) Validate() error {
	if o.Rigid.Dt < 0 {
		return fmt.Errorf("%w: negative dt %v", ErrInvalidOption, o.Rigid.Dt)
	}
	if !o.ShowViewer {
		return nil
	}
	if o.Viewer.CameraFOV <= 0 || o.Viewer.CameraFOV >= 180 {
		return fmt.Errorf("%w: viewer fov %v", ErrInvalidOption, o.Viewer.CameraFOV)
	}
	if o.Viewer.MaxFPS < 0 {
		return fmt.Errorf("%w: viewer max fps %d", ErrInvalidOption, o.Viewer.MaxFPS)
	}
	return nil
}

// Validate checks the camera options.
func (o CameraOptions) Validate() error {
	if o.Res[0] <= 0 || o.Res[1] <= 0 {
		return fmt.Errorf("%w: camera resolution %dx%d", ErrInvalidOption, o.Res[0], o.Res[1])
	}
	if o.FOV <= 0 || o.FOV >= 180 {
		return fmt.Errorf("%w: camera fov %v", ErrInvalidOption, o.FOV)
	}
	return nil
}
