package remote

import (
	"bytes"
	"encoding/json"

	"github.com/zeusync/simrunner/pkg/generic"
)

var framePool = generic.NewPool(
	func() *bytes.Buffer { return new(bytes.Buffer) },
	func(b *bytes.Buffer) { b.Reset() },
)

// encodeFrame marshals v into a pooled buffer. The caller returns the
// buffer with framePool.Put once the frame is sent.
func encodeFrame(v any) (*bytes.Buffer, error) {
	buf := framePool.Get()
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		framePool.Put(buf)
		return nil, err
	}
	// drop the newline Encode appends
	buf.Truncate(buf.Len() - 1)
	return buf, nil
}
