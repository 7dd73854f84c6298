package gos2pcore

import (
	"errors"
	"fmt"
)

// Kind classifies why a decode failed.
type Kind int

const (
	KindInputUnavailable Kind = iota + 1
	KindMalformedContent
)

func (k Kind) String() string {
	switch k {
	case KindInputUnavailable:
		return "input unavailable"
	case KindMalformedContent:
		return "malformed content"
	default:
		return "unknown"
	}
}

var (
	ErrInputUnavailable = errors.New("touchstone: input unavailable")
	ErrMalformedContent = errors.New("touchstone: malformed content")
)

// DecodeError is returned by every Decode function on failure.
type DecodeError struct {
	Kind    Kind
	Path    string // empty when decoding from a reader
	Line    int    // 1-based, 0 when not tied to a line
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	src := e.Path
	if src == "" {
		src = "<input>"
	}
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s at %s:%d: %s", e.Kind, src, e.Line, msg)
	}
	return fmt.Sprintf("%s in %s: %s", e.Kind, src, msg)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrInputUnavailable:
		return e.Kind == KindInputUnavailable
	case ErrMalformedContent:
		return e.Kind == KindMalformedContent
	}
	return false
}

func inputError(path, message string, cause error) *DecodeError {
	return &DecodeError{Kind: KindInputUnavailable, Path: path, Message: message, Err: cause}
}

func rowError(line int, message string) *DecodeError {
	return &DecodeError{Kind: KindMalformedContent, Line: line, Message: message}
}
