package domain

import "errors"

var (
	// ErrInvalidArgument is returned for non-positive distances, bad zoom
	// ranges and out-of-range or non-finite coordinates.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyTrack is returned when a track has no points.
	ErrEmptyTrack = errors.New("track has no points")

	// ErrPolarLatitude is returned when a box around a point cannot be
	// represented because its longitude span diverges near a pole.
	ErrPolarLatitude = errors.New("latitude too close to a pole for a bounding box")

	// ErrNotFound is returned when a plan does not exist.
	ErrNotFound = errors.New("not found")
)
