package core

import (
	"fmt"
	"os"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/josephlewis42/wsh/core/config"
)

var (
	ColorBoldGreen = color.New(color.FgGreen, color.Bold)
	ColorBoldRed   = color.New(color.FgRed, color.Bold)
)

// ColorPrinter decides whether output written to a file gets colorized.
type ColorPrinter struct {
	mode string
	out  *os.File
}

// NewColorPrinter creates a printer for out using one of the config.Color*
// modes.
func NewColorPrinter(mode string, out *os.File) *ColorPrinter {
	return &ColorPrinter{mode: mode, out: out}
}

func (c *ColorPrinter) ShouldColor() bool {
	switch {
	case c.mode == config.ColorNever:
		return false
	case c.mode == config.ColorAlways:
		return true
	default:
		return c.out != nil && readline.IsTerminal(int(c.out.Fd()))
	}
}

func (c *ColorPrinter) Sprintf(clr *color.Color, format string, a ...interface{}) string {
	if !c.ShouldColor() {
		return fmt.Sprintf(format, a...)
	}

	// The package default disables color when stdout isn't a terminal, which
	// says nothing about the file this printer writes to.
	forced := *clr
	forced.EnableColor()
	return forced.Sprintf(format, a...)
}
