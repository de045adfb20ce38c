package potree

import (
	"fmt"
)

// FormatError reports malformed or incomplete metadata
type FormatError struct {
	Field  string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "invalid point cloud metadata"
	if e.Field != "" {
		msg += fmt.Sprintf(" field %q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// FileNotFoundError reports a missing hierarchy shard or point payload file
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("point cloud file not found: %s", e.Path)
}

func (e *FileNotFoundError) Unwrap() error {
	return e.Err
}

// DataMismatchError reports binary data inconsistent with its declared layout
type DataMismatchError struct {
	Node   string
	Reason string
}

func (e *DataMismatchError) Error() string {
	return fmt.Sprintf("data mismatch for node r%s: %s", e.Node, e.Reason)
}

// DuplicateAssignmentError reports a second payload assignment to the same node
type DuplicateAssignmentError struct {
	Node string
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("point data already assigned to node r%s", e.Node)
}
