// Package call implements the call-session controller.
//
// A Controller owns at most one live Session. Entering a channel starts a new
// session; the previous one is cancelled and the new one does not touch the
// SDK until the previous one has finished tearing down, so two sessions never
// overlap.
//
// # Session Lifecycle
//
//	Enter(channel)
//	     │
//	     ▼
//	 ┌────────────┐  create client → relay → microphone → camera
//	 │ Connecting │  → local preview → handlers → join → publish
//	 └─────┬──────┘
//	       │ ok                       │ error
//	       ▼                          ▼
//	 ┌────────────┐             ┌──────────┐
//	 │ Connected  │             │  Failed  │
//	 └─────┬──────┘             └────┬─────┘
//	       │ Leave / Enter / Close   │
//	       ▼                         ▼
//	   teardown: remove listeners, close tracks, release regions, leave
//
// Each session runs on a single goroutine. SDK callbacks are queued to that
// goroutine and handled in delivery order, so the participant roster is only
// mutated there. Callbacks from a session that is no longer current never
// reach the UI.
package call
