package main

import "errors"

var (
	// ErrUnsupportedMedia is returned when an input is not a decodable raster.
	ErrUnsupportedMedia = errors.New("unsupported media")

	// ErrEmptyInput is returned when compositing zero entries or strips that
	// cover no pixels.
	ErrEmptyInput = errors.New("no images to stitch")

	// ErrInvalidGeometry is returned when a resize update would invert the crop strip.
	ErrInvalidGeometry = errors.New("invalid crop geometry")

	// ErrIndexOutOfRange is returned for stale or invalid entry indices.
	ErrIndexOutOfRange = errors.New("index out of range")

	ErrResizeActive  = errors.New("a resize is already in progress")
	ErrNoResize      = errors.New("no resize in progress")
	ErrUnknownHandle = errors.New("unknown resize handle")
	ErrNoResult      = errors.New("no composite result")
)
