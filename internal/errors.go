package internal

import "errors"

// Error definitions for the selection engine's input adapters
var (
	ErrNotMasterPlaylist = errors.New("not a master playlist")
	ErrNoVariants        = errors.New("master playlist has no variants")
	ErrNotFragmented     = errors.New("file is not a fragmented MP4")
	ErrNoInitSegment     = errors.New("no init segment found")
	ErrNoFragments       = errors.New("no media fragments found")
)
