package engine

import (
	"errors"
	"fmt"

	"github.com/edgepass/idphoto/internal/geometry"
)

// Error kinds a caller can test for with errors.Is.
var (
	ErrDecode             = errors.New("decode failed")
	ErrEncode             = errors.New("encode failed")
	ErrGeometryDegenerate = geometry.ErrGeometryDegenerate
	ErrInternal           = errors.New("internal fault")
)

// Stage names the pipeline step an error came from.
type Stage string

const (
	StageDecode   Stage = "decode"
	StageFrame    Stage = "frame"
	StageEncode   Stage = "encode"
	StageInternal Stage = "internal"
)

// StageError annotates a failure with the stage it happened in. It matches
// both its Kind and its Cause under errors.Is/As.
type StageError struct {
	Stage Stage
	Kind  error
	Cause error
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	if errors.Is(e.Cause, e.Kind) {
		return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Cause)
}

// Unwrap returns Kind and Cause for errors.Is/As support.
func (e *StageError) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := []error{e.Kind}
	if e.Cause != nil && e.Cause != e.Kind {
		errs = append(errs, e.Cause)
	}
	return errs
}

func stageErr(stage Stage, kind, cause error) error {
	return &StageError{Stage: stage, Kind: kind, Cause: cause}
}
