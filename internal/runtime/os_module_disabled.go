//go:build no_os_exec

package runtime

import (
	"rustcript/internal/diag"
	"rustcript/internal/value"
)

// moduleOS rejects exec when the os module is compiled out.
func moduleOS(method string, args []value.Value) (value.Value, error) {
	return nil, diag.Errorf(diag.SecurityError, "the 'os' module is disabled in this build")
}
