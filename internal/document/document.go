// Package document holds the editor's single open document and the session
// that edits, saves and exports it.
//
// A Session is driven either by direct method calls from one goroutine or by
// Run, which consumes a command channel. Every transition re-renders the
// preview and publishes a View to the registered listener.
package document

import (
	"path/filepath"
	"strings"
)

// untitled names a document that has never been saved.
const untitled = "Untitled"

// State is the save state of the document.
type State int

// Document states.
const (
	Clean State = iota
	Modified
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// Document is the editor buffer. Path is empty until the first save.
type Document struct {
	Text     string
	Path     string
	Modified bool
}

// State returns Modified or Clean.
func (d Document) State() State {
	if d.Modified {
		return Modified
	}
	return Clean
}

// Title returns the file name, or "Untitled", followed by "*" when modified.
func (d Document) Title() string {
	name := untitled
	if d.Path != "" {
		name = filepath.Base(d.Path)
	}
	if d.Modified {
		name += "*"
	}
	return name
}

// View is what the editor shows after a transition.
type View struct {
	Title string
	HTML  string
	Words int
	State State
	Path  string
	Err   error // last render error; HTML then holds the previous preview
}

// WordCount counts whitespace-delimited tokens. Empty or blank text is 0.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
