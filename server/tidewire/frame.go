package tidewire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidesql/tidesql/internal/sql/executor"
)

const (
	// MaxFrameSize limits memory usage on malformed/hostile input.
	MaxFrameSize = 8 << 20 // 8 MiB
)

// ExecuteRequest asks the server to run one statement on the
// connection's session.
type ExecuteRequest struct {
	ID  uint64 `json:"id"`
	SQL string `json:"sql"`
}

// ExecuteResponse carries the statement result, or the error text when
// the statement failed. ID echoes the request.
type ExecuteResponse struct {
	ID     uint64           `json:"id"`
	Result *executor.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// ReadFrame reads a single length-prefixed JSON frame.
func ReadFrame(r io.Reader, v any) error {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 {
		return fmt.Errorf("tidewire: empty frame")
	}
	if n > MaxFrameSize {
		return fmt.Errorf("tidewire: frame too large: %d > %d", n, MaxFrameSize)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}

	if err := json.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("tidewire: bad json: %w", err)
	}
	return nil
}

// WriteFrame writes v as a length-prefixed JSON frame.
func WriteFrame(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("tidewire: marshal: %w", err)
	}
	if len(b) > MaxFrameSize {
		return fmt.Errorf("tidewire: json too large: %d > %d", len(b), MaxFrameSize)
	}

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b)))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
