package core

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/josephlewis42/wsh/core/config"
	"github.com/josephlewis42/wsh/core/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const terminalShellEnv = "WSH_TEST_TERMINAL_SHELL"

// TestTerminalShell is the interpreter TestShellTerminal starts on a
// pseudo-terminal. It does nothing when run directly.
func TestTerminalShell(t *testing.T) {
	if os.Getenv(terminalShellEnv) == "" {
		t.Skip("started by TestShellTerminal")
	}

	sh, err := NewShell(config.Default(), OSStdio(), logger.Discard())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	os.Exit(sh.Run())
}

func TestShellTerminal(t *testing.T) {
	master, tty, err := pty.Open()
	if err != nil {
		t.Skip("no pseudo-terminal:", err)
	}
	defer master.Close()

	out, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer out.Close()

	cmd := exec.Command(os.Args[0], "-test.run=^TestTerminalShell$")
	cmd.Env = append(os.Environ(), terminalShellEnv+"=1")
	cmd.Stdin = tty
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true, Ctty: 0}
	require.NoError(t, cmd.Start())
	tty.Close()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	// tr reads the terminal until end-of-file, then the interpreter must be
	// able to read the exit line.
	_, err = master.Write([]byte("tr a-z A-Z\nhello\n\x04exit\n"))
	require.NoError(t, err)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		_ = cmd.Process.Kill()
		<-done
		t.Fatal("interpreter didn't exit; the foreground job never got the terminal")
	}

	got, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	assert.Contains(t, string(got), "HELLO\n")
	assert.NotContains(t, string(got), "Stopped")
	assert.NotContains(t, string(got), "command not found")
}
