// Package logger is the structured application log for the interpreter.
//
// Operator-facing output (prompts, usage errors, job notices) goes to the
// interpreter's own stdout and stderr; this log records the bookkeeping
// behind it for debugging.
package logger
