package model

import "context"

// FrameSource produces an ordered, fully materialized sequence of frames.
// Live sources block until ctx is cancelled and return what was captured so far.
type FrameSource interface {
	Frames(ctx context.Context) ([]Frame, error)
}
