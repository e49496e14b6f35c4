//go:build no_file_io

package runtime

import (
	"rustcript/internal/diag"
	"rustcript/internal/value"
)

// callIO rejects every file operation when the io module is compiled out.
func (s *Sandbox) callIO(method string, args []value.Value) (value.Value, error) {
	return nil, diag.Errorf(diag.SecurityError, "the 'io' module is disabled in this build")
}
