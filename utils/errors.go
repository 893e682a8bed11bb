package utils

import (
	"errors"
	"fmt"
)

// InputError marks malformed or missing caller input (bad image, bad meal
// payload). Controllers map it to a 4xx response.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func NewInputError(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// DataIntegrityError marks a knowledge-base entry that is structurally broken
// (e.g. an unparsable reference serving size). It must never be silently
// defaulted: a wrong denominator corrupts every nutrient total.
type DataIntegrityError struct {
	Field string
	Msg   string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("knowledge base integrity: %s: %s", e.Field, e.Msg)
}

func NewDataIntegrityError(field, format string, args ...any) error {
	return &DataIntegrityError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

func IsDataIntegrityError(err error) bool {
	var de *DataIntegrityError
	return errors.As(err, &de)
}

// UpstreamError marks a failed or timed-out call to an external collaborator
// (recognition provider, glucose regressor). Callers degrade the response
// instead of failing the whole request.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *UpstreamError) Unwrap() error { return e.Err }

func NewUpstreamError(op string, err error) error {
	return &UpstreamError{Op: op, Err: err}
}

func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
