package sim

// Operation names shared by the call journal of in-process engines and the
// remote wire protocol.
const (
	OpInit     = "engine.init"
	OpGenerate = "engine.generate"
	OpScene    = "engine.scene"

	OpAddEntity = "scene.add_entity"
	OpAddCamera = "scene.add_camera"
	OpBuild     = "scene.build"
	OpStep      = "scene.step"

	OpViewerStart = "viewer.start"
	OpViewerStop  = "viewer.stop"

	OpJoint           = "entity.joint"
	OpLink            = "entity.link"
	OpSetKp           = "entity.set_kp"
	OpSetKv           = "entity.set_kv"
	OpSetForceRange   = "entity.set_force_range"
	OpSetPosition     = "entity.set_position"
	OpControlPosition = "entity.control_position"
	OpControlVelocity = "entity.control_velocity"
	OpControlForce    = "entity.control_force"
	OpGetControlForce = "entity.control_force_get"
	OpIK              = "entity.ik"
	OpPlanPath        = "entity.plan_path"

	OpStartRecording = "camera.start_recording"
	OpRender         = "camera.render"
	OpStopRecording  = "camera.stop_recording"
)
