package trellis

import "errors"

// Submission-time errors. They indicate programmer error and are returned
// wrapped with context; test for them with errors.Is.
var (
	ErrNilStage         = errors.New("stage is nil")
	ErrStageDestroyed   = errors.New("stage has been destroyed")
	ErrNilTarget        = errors.New("target surface is null")
	ErrNilSource        = errors.New("source surface is null")
	ErrNilCamera        = errors.New("camera is null")
	ErrEmptyGeometry    = errors.New("request has no vertices or indices")
	ErrIndexCount       = errors.New("index count is not a multiple of 3")
	ErrIndexRange       = errors.New("index out of vertex range")
	ErrInvalidDepth     = errors.New("depth outside [0, 1]")
	ErrUnknownFill      = errors.New("unknown fill type")
	ErrMissingTexture   = errors.New("fill type requires a texture")
	ErrDuplicateTexture = errors.New("dual-textured request uses the same texture twice")
	ErrEmptyViewport    = errors.New("viewport has no area")
)

// Lifecycle errors returned by the StageManager and stores.
var (
	ErrUnknownStage   = errors.New("unknown stage handle")
	ErrManagerClosed  = errors.New("stage manager has been shut down")
	ErrUnknownSurface = errors.New("unknown surface handle")
	ErrReservedHandle = errors.New("handle is reserved")
	ErrUnknownCamera  = errors.New("unknown camera handle")
)
