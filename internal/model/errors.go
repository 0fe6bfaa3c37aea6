package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is matched by every identifier parse failure.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrNotFound is matched by every lookup miss.
	ErrNotFound = errors.New("not found")
)

// Grammar names used in FormatError.
const (
	GrammarNet        = "net"
	GrammarConnection = "connection"
)

// FormatError reports an identifier that does not match its grammar.
type FormatError struct {
	Input   string
	Grammar string
}

func (e *FormatError) Error() string {
	switch e.Grammar {
	case GrammarNet:
		return fmt.Sprintf("invalid net format %q: want \"pin\" or \"device:pin\"", e.Input)
	case GrammarConnection:
		return fmt.Sprintf("invalid connection format %q: want \"net@function\"", e.Input)
	}
	return fmt.Sprintf("invalid %s format %q", e.Grammar, e.Input)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidFormat
}

// Lookup kinds used in NotFoundError.
const (
	KindPin        = "pin"
	KindDevice     = "device"
	KindPeripheral = "peripheral"
)

// NotFoundError names an identifier that is absent from the board graph.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Kind == KindPin {
		return fmt.Sprintf("pin '%s' not found on the board", e.Name)
	}
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
