// Package render binds media handles to named regions of the call view.
//
// A region is a rectangle in the UI: the local preview or one tile per remote
// participant. The renderer only tracks which handle plays into which region
// and makes sure a handle is stopped when its region is released or rebound.
// Layout, resolution and frame rate are not its concern.
package render
