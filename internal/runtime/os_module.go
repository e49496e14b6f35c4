//go:build !no_os_exec

package runtime

import (
	"os/exec"
	"strings"

	"rustcript/internal/diag"
	"rustcript/internal/value"
)

// moduleOS dispatches the os module. Only exec is exposed; failures to
// spawn report exit code -1 like a failed process.
func moduleOS(method string, args []value.Value) (value.Value, error) {
	if method != "exec" {
		return nil, diag.Errorf(diag.NameError, "unknown method '%s' for os module", method)
	}
	if err := checkArgs(args, 1, "os.exec"); err != nil {
		return nil, err
	}

	parts := strings.Fields(args[0].String())
	if len(parts) == 0 {
		return value.IntVal(-1), nil
	}

	cmd := exec.Command(parts[0], parts[1:]...)
	if err := cmd.Run(); err != nil {
		if cmd.ProcessState != nil {
			return value.IntVal(int32(cmd.ProcessState.ExitCode())), nil
		}
		return value.IntVal(-1), nil
	}
	return value.IntVal(int32(cmd.ProcessState.ExitCode())), nil
}
