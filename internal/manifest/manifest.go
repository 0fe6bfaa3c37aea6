// Package manifest reads SoC, board and app YAML documents into the typed
// schematic model and locates them inside a project.
package manifest

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jward/schematic/internal/model"
)

// Manifest kinds, keyed in Documents.Paths.
const (
	KindSoc   = "soc"
	KindBoard = "board"
	KindApp   = "app"
)

// ErrorKind tells which step of reading a manifest failed.
type ErrorKind int

const (
	// FileRead means the file could not be read from disk.
	FileRead ErrorKind = iota
	// Parse means the file is not a valid manifest document.
	Parse
)

// Error is returned by Read. It wraps the underlying I/O or YAML error, so
// errors.Is(err, fs.ErrNotExist) and errors.Is(err, model.ErrInvalidFormat)
// both work through it.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == FileRead {
		return fmt.Sprintf("failed to read manifest file %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to parse manifest file %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotExist reports whether err is a FileRead error for a missing file.
func IsNotExist(err error) bool {
	var me *Error
	return errors.As(err, &me) && me.Kind == FileRead && errors.Is(me.Err, os.ErrNotExist)
}

// Document is the set of manifest types Read accepts.
type Document interface {
	model.Soc | model.Board | model.App
}

// Read loads the YAML manifest at path. Identifier strings inside the
// document (nets, functions, connections) are parsed while decoding.
func Read[T Document](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: FileRead, Path: path, Err: err}
	}
	return Decode[T](path, data)
}

// Decode parses manifest bytes. path is only used for error messages.
func Decode[T Document](path string, data []byte) (*T, error) {
	doc := new(T)
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, &Error{Kind: Parse, Path: path, Err: err}
	}
	return doc, nil
}
