// Package shell turns an input line into a pipeline of processes.
//
// The grammar is deliberately small:
//
//	pipeline := segment ('|' segment)*
//	segment  := word+
//
// A standalone unquoted "&" word anywhere on the line runs the whole
// pipeline in the background and is dropped from the arguments.
package shell

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/anmitsu/go-shlex"
	"github.com/josephlewis42/wsh/core/jobs"
)

const (
	pipeSeparator      = "|"
	backgroundOperator = "&"
)

// ErrSyntax is the base error for lines that can't be parsed.
var ErrSyntax = errors.New("syntax error")

// Pipeline is a parsed input line.
type Pipeline struct {
	Processes  []*jobs.Process
	Background bool
}

// Parse parses a line into a pipeline. Blank lines return a nil pipeline
// and no error. Quoted or escaped '|' and '&' are ordinary characters.
func Parse(line string) (*Pipeline, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}

	segments, err := splitOperators(line)
	if err != nil {
		return nil, err
	}

	out := &Pipeline{}
	for _, seg := range segments {
		out.Background = out.Background || seg.background

		args, err := shlex.Split(seg.text, true)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}

		proc, err := jobs.NewProcess(args)
		if err != nil {
			return nil, syntaxErrorNear(seg)
		}
		out.Processes = append(out.Processes, proc)
	}

	return out, nil
}

type segment struct {
	text string
	// background is set if the segment held a standalone '&' word.
	background bool
}

// splitOperators cuts line at unquoted '|' and blanks out unquoted
// standalone '&' words. Word splitting of each segment is left to shlex.
func splitOperators(line string) ([]segment, error) {
	var (
		out     []segment
		cur     segment
		buf     strings.Builder
		quote   rune
		escaped bool
	)

	runes := []rune(line)
	for i, r := range runes {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if r == quote {
				quote = 0
			} else if r == '\\' && quote == '"' {
				escaped = true
			}
		case r == '\\':
			escaped = true
		case r == '\'' || r == '"':
			quote = r
		case string(r) == pipeSeparator:
			cur.text = buf.String()
			out = append(out, cur)
			cur = segment{}
			buf.Reset()
			continue
		case string(r) == backgroundOperator && isOperatorBoundary(runes, i-1) && isOperatorBoundary(runes, i+1):
			cur.background = true
			buf.WriteRune(' ')
			continue
		}
		buf.WriteRune(r)
	}

	if quote != 0 {
		return nil, fmt.Errorf("%w: no closing quotation", ErrSyntax)
	}

	cur.text = buf.String()
	return append(out, cur), nil
}

func isOperatorBoundary(runes []rune, i int) bool {
	return i < 0 || i >= len(runes) || unicode.IsSpace(runes[i]) || string(runes[i]) == pipeSeparator
}

// NewJob creates a job for the pipeline with the given ID.
func (p *Pipeline) NewJob(id int) *jobs.Job {
	return jobs.NewJob(id, p.Processes, p.Background)
}

func syntaxErrorNear(seg segment) error {
	token := pipeSeparator
	if seg.background {
		token = backgroundOperator
	}
	return fmt.Errorf("%w near unexpected token '%s'", ErrSyntax, token)
}
