package alohaplay

import "github.com/pkg/errors"

var (
	ErrAlreadyActive = errors.New("playback already active")
	ErrNotActive     = errors.New("no playback session")
	ErrStopTimeout   = errors.New("timed out waiting for playback to stop")
	ErrInvalidConfig = errors.New("invalid config")
)
