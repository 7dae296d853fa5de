package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrFileNotFound = errors.New("certificate file not found")
	ErrEmptyDataset = errors.New("certificate file has no records")
)

// DataFormatError reports the first row that could not be loaded. Row is the
// 1-based line in the CSV file; the header is line 1.
type DataFormatError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *DataFormatError) Error() string {
	msg := fmt.Sprintf("row %d, column %s", e.Row, e.Column)
	if e.Value != "" {
		msg += fmt.Sprintf(" (value %q)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataFormatError) Unwrap() error {
	return e.Err
}
