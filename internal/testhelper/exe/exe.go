// Package exe contains helpers to help running commands
package exe

import (
	"errors"
	"io"
	"os/exec"
	"strings"
)

// Run runs a command and return stderr as error
func Run(name string, arg ...string) (string, error) {
	cmd := exec.Command(name, arg...) //nolint:gosec // using a variable is expected
	stdout, stderr, err := execCmd(cmd)

	if err != nil && stderr != "" {
		return stdout, errors.New(stderr) //nolint:goerr113 // the error is dynamically generated at runtime
	}

	return stdout, err
}

func execCmd(cmd *exec.Cmd) (stdout, stderr string, err error) {
	stderrReader, err := cmd.StderrPipe()
	if err != nil {
		return "", "", err
	}
	stdoutReader, err := cmd.StdoutPipe()
	if err != nil {
		return "", "", err
	}

	if err = cmd.Start(); err != nil {
		return "", "", err
	}

	stderrByte, err := io.ReadAll(stderrReader)
	if err != nil {
		return "", "", err
	}
	stdoutByte, err := io.ReadAll(stdoutReader)
	if err != nil {
		return "", "", err
	}

	stdout = strings.TrimSuffix(string(stdoutByte), "\n")
	stderr = strings.TrimSuffix(string(stderrByte), "\n")

	return stdout, stderr, cmd.Wait()
}
