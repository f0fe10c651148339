// Package errors annotates errors with the place they pass through.
//
// Usage:
//
//	return xe.Wrap(err)
//
// The wrapped error remembers the function, file and line where Wrap was called.
// Its message reads as a chain; replace
//
//	s/ <- /\n/
//
// to see the path an error took from where it was raised to where it was reported.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// Located is an error with the call site where it was wrapped.
type Located struct {
	funcname string
	file     string
	line     int
	note     string
	err      error
}

func (e *Located) Func() string {
	return e.funcname
}

func (e *Located) File() string {
	return e.file
}

func (e *Located) Line() int {
	return e.line
}

func (e *Located) Error() string {
	if e.note == "" {
		return fmt.Sprintf(`@ %s "%s" l%d <- %s`, e.funcname, e.file, e.line, e.err.Error())
	}
	return fmt.Sprintf(`@ %s "%s" l%d (%s) <- %s`, e.funcname, e.file, e.line, e.note, e.err.Error())
}

func (e *Located) Unwrap() error {
	return e.err
}

// New creates an error with message text, located at the caller.
func New(text string) error {
	return locate("", errors.New(text), 1)
}

// Errorf is fmt.Errorf located at the caller. %w is supported.
func Errorf(format string, args ...any) error {
	return locate("", fmt.Errorf(format, args...), 1)
}

// Wrap annotates err with the caller location. nil stays nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return locate("", err, 1)
}

// WrapWithNote is Wrap with a short note shown beside the location.
func WrapWithNote(note string, err error) error {
	if err == nil {
		return nil
	}
	return locate(note, err, 1)
}

// WrapAsOuter annotates err with the location `depth` frames above the caller.
//
// Constructors of error values use this so the location points their callers.
func WrapAsOuter(err error, depth int) error {
	if err == nil {
		return nil
	}
	return locate("", err, depth+1)
}

func locate(note string, err error, depth int) error {
	pc, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		file = "?"
		line = -1
	}
	funcname := "(unknown func)"
	if fn := runtime.FuncForPC(pc); fn != nil {
		funcname = fn.Name()
	}

	return &Located{
		funcname: funcname,
		file:     file,
		line:     line,
		note:     note,
		err:      err,
	}
}

// Message returns the message of err without locations wrapped around it.
//
// Use this to show errors to users. Locations in causes inside are kept.
func Message(err error) string {
	if err == nil {
		return ""
	}
	for {
		l, ok := err.(*Located)
		if !ok {
			return err.Error()
		}
		err = l.err
	}
}
