// Package viz renders fluid simulations in the terminal.
//
// The package implements an interactive TUI using the Bubble Tea framework:
//
//   - [Model]: live view that steps a world on a timer
//   - [Canvas]: Braille-based pixel canvas, 2x4 dots per cell
//   - [Projector]: orthographic front, top, side and orbit views of the volume
//   - Theme selection with 5 built-in color schemes
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	.     - Single step while paused
//	R     - Rebuild the scene
//	V     - Cycle views
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
//
// # Recording
//
// Recordings rasterize the braille canvas, one block per dot, and are
// written as an animated GIF when recording stops.
package viz
