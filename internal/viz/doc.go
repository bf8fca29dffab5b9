// Package viz provides terminal-based visualization for PBD scenes.
//
// The package implements an interactive TUI using the Bubble Tea framework:
//
//   - [App]: preset picker that launches the viewer
//   - [Model]: live viewer stepping a [scene.Scene] once per tick
//   - [Canvas]: Braille-based pixel canvas; shadows render on a second
//     canvas composed underneath the particles
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	N     - Single step while paused
//	R     - Reset to initial state
//	S     - Toggle shadow overlay
//	↑/↓   - Add or remove a relaxation iteration (restarts the scene)
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
//	[]/   - Time travel (rewind/forward)
//
// # Recording
//
// Recordings are written to pbdsim.gif in the current directory when
// recording is toggled off or the viewer quits.
package viz
