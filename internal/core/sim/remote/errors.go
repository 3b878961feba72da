package remote

import (
	"errors"
	"strings"

	"github.com/zeusync/simrunner/internal/core/sim"
)

// Transport errors
var (
	ErrClosed        = errors.New("remote: connection closed")
	ErrUnknownHandle = errors.New("remote: unknown handle")
	ErrUnknownMethod = errors.New("remote: unknown method")
	ErrBadParams     = errors.New("remote: malformed params")
	ErrUnknownScheme = errors.New("remote: unsupported engine url scheme")
	ErrRemote        = errors.New("remote: engine error")
	ErrCallTimeout   = errors.New("remote: call timed out")
	ErrFrameTooLarge = errors.New("remote: frame exceeds size limit")
)

// Wire error codes. Every sim sentinel has one so that errors.Is keeps
// working across the connection.
var codes = []struct {
	code string
	err  error
}{
	{"not_initialized", sim.ErrNotInitialized},
	{"already_initialized", sim.ErrAlreadyInitialized},
	{"engine_closed", sim.ErrEngineClosed},
	{"scene_not_built", sim.ErrSceneNotBuilt},
	{"scene_built", sim.ErrSceneBuilt},
	{"unknown_joint", sim.ErrUnknownJoint},
	{"unknown_link", sim.ErrUnknownLink},
	{"dof_index", sim.ErrDofIndex},
	{"dof_mismatch", sim.ErrDofMismatch},
	{"no_dofs", sim.ErrNoDofs},
	{"not_recording", sim.ErrNotRecording},
	{"already_recording", sim.ErrAlreadyRecording},
	{"unknown_model", sim.ErrUnknownModel},
	{"invalid_option", sim.ErrInvalidOption},
	{"unknown_handle", ErrUnknownHandle},
	{"unknown_method", ErrUnknownMethod},
	{"bad_params", ErrBadParams},
}

const codeInternal = "internal"

func toWire(err error) *Error {
	if err == nil {
		return nil
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return &Error{Code: c.code, Message: err.Error()}
		}
	}
	return &Error{Code: codeInternal, Message: err.Error()}
}

// callError is a remote failure. It matches the sentinel its code names
// and ErrRemote.
type callError struct {
	method   string
	sentinel error
	message  string
}

func (e *callError) Error() string {
	msg := e.message
	if e.sentinel != nil && !strings.Contains(msg, e.sentinel.Error()) {
		msg = e.sentinel.Error() + ": " + msg
	}
	return e.method + ": " + msg
}

func (e *callError) Is(target error) bool {
	return target == ErrRemote || (e.sentinel != nil && target == e.sentinel)
}

func fromWire(method string, w *Error) error {
	if w == nil {
		return nil
	}
	ce := &callError{method: method, message: w.Message}
	for _, c := range codes {
		if c.code == w.Code {
			ce.sentinel = c.err
			break
		}
	}
	return ce
}
