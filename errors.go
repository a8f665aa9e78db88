package herald

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eringen/herald/graphql"
)

var (
	// ErrPathConflict indicates two different pages resolved to the same path.
	ErrPathConflict = errors.New("herald: page path conflict")
	// ErrInvalidPath indicates a page without a usable path.
	ErrInvalidPath = errors.New("herald: invalid page path")
	// ErrMalformedContent indicates the content source returned data that cannot be planned.
	ErrMalformedContent = errors.New("herald: malformed content")
	// ErrUnknownTemplate indicates a page references a template that is not registered.
	ErrUnknownTemplate = errors.New("herald: unknown template")
	// ErrBuildInProgress is returned when a rebuild is requested while one is running.
	ErrBuildInProgress = errors.New("herald: build already in progress")
)

// SourceQueryError reports that the content source failed a fetch. Type is
// set for content type list queries, Template for a page template's query.
// Either Errors (reported by the GraphQL endpoint) or Err (transport or
// decoding failure) is set.
type SourceQueryError struct {
	Type     string
	Template string
	Errors   []graphql.Error
	Err      error
}

func (e *SourceQueryError) Error() string {
	var b strings.Builder
	switch {
	case e.Template != "":
		fmt.Fprintf(&b, "herald: loading content for template %s failed", e.Template)
	default:
		fmt.Fprintf(&b, "herald: loading %s content failed", e.Type)
	}
	if len(e.Errors) > 0 {
		msgs := make([]string, len(e.Errors))
		for i, ge := range e.Errors {
			msgs[i] = ge.Error()
		}
		fmt.Fprintf(&b, ": content source reported %d error(s): %s", len(e.Errors), strings.Join(msgs, "; "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *SourceQueryError) Unwrap() error { return e.Err }

// PathConflictError reports two different pages registered under one path.
type PathConflictError struct {
	Path     string
	Existing Page
	Incoming Page
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("herald: path %q already registered by %s page %q, refusing %s page %q",
		e.Path, e.Existing.Component, e.Existing.Context.ID, e.Incoming.Component, e.Incoming.Context.ID)
}

func (e *PathConflictError) Is(target error) bool { return target == ErrPathConflict }
