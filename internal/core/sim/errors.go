package sim

import "errors"

// Engine contract errors
var (
	// Lifecycle errors

	ErrNotInitialized     = errors.New("engine is not initialized")
	ErrAlreadyInitialized = errors.New("engine is already initialized")
	ErrEngineClosed       = errors.New("engine is closed")
	ErrSceneNotBuilt      = errors.New("scene is not built")
	ErrSceneBuilt         = errors.New("scene is already built")

	// Entity errors

	ErrUnknownJoint = errors.New("unknown joint")
	ErrUnknownLink  = errors.New("unknown link")
	ErrDofIndex     = errors.New("dof index out of range")
	ErrDofMismatch  = errors.New("value count does not match dof count")
	ErrNoDofs       = errors.New("entity has no controllable dofs")

	// Camera errors

	ErrNotRecording     = errors.New("camera is not recording")
	ErrAlreadyRecording = errors.New("camera is already recording")

	// Model errors

	ErrUnknownModel  = errors.New("unknown model file")
	ErrInvalidOption = errors.New("invalid option")
)
