// Package remote speaks the engine contract over the network. A Client
// implements sim.Engine by forwarding every call to a Server, which wraps any
// local sim.Engine. Frames are JSON objects carried over a websocket or a
// QUIC stream.
package remote

import (
	"encoding/json"

	"github.com/zeusync/simrunner/internal/core/sim"
)

// Request is one engine call. Handle addresses the scene, entity, camera or
// viewer the method applies to; engine methods leave it empty.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Handle string          `json:"handle,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers the Request with the same ID.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Error is a failed call as seen on the wire.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MethodClose releases every handle owned by the connection.
const MethodClose = "engine.close"

type initParams struct {
	Options sim.InitOptions `json:"options"`
}

type generateParams struct {
	Prompt string `json:"prompt"`
}

type sceneParams struct {
	Options sim.SceneOptions `json:"options"`
}

type sceneResult struct {
	Handle string `json:"handle"`
	ID     string `json:"id"`
	Viewer string `json:"viewer,omitempty"`
}

type addEntityParams struct {
	Morph    sim.Morph     `json:"morph"`
	Material *sim.Material `json:"material,omitempty"`
}

type entityResult struct {
	Handle  string `json:"handle"`
	ID      string `json:"id"`
	NumDofs int    `json:"num_dofs"`
}

type addCameraParams struct {
	Options sim.CameraOptions `json:"options"`
}

type cameraResult struct {
	Handle string `json:"handle"`
	ID     string `json:"id"`
}

type nameParams struct {
	Name string `json:"name"`
}

type dofsParams struct {
	Values []float64 `json:"values"`
	Upper  []float64 `json:"upper,omitempty"`
	Dofs   []int     `json:"dofs"`
}

type ikParams struct {
	Link sim.Link `json:"link"`
	Pos  sim.Vec3 `json:"pos"`
	Quat sim.Quat `json:"quat"`
}

type planParams struct {
	Goal []float64 `json:"goal"`
}

type stopRecordingParams struct {
	Filename string `json:"filename"`
	FPS      int    `json:"fps"`
}

type builtResult struct {
	Built bool `json:"built"`
}
