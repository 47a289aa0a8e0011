package jobs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilTerminal(t *testing.T) {
	var term *Terminal

	assert.NoError(t, term.Foreground(&Job{Pgid: 1234}))
	assert.NoError(t, term.Reclaim())
}

func TestTerminalSkipsUnstartedJob(t *testing.T) {
	devNull, err := os.Open(os.DevNull)
	require.NoError(t, err)
	defer devNull.Close()

	term := NewTerminal(devNull)
	assert.Equal(t, int(devNull.Fd()), term.Fd())
	assert.NoError(t, term.Foreground(&Job{}), "a job with no process group has nothing to hand the terminal to")
}
