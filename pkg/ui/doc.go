// Package ui holds the per-browser view state of the video room.
//
// An App starts on the room-entry form. Submitting a channel name moves it
// to the call screen and starts a call session; leaving returns it to the
// form. When the configuration is unusable the App stays on the
// configuration-error screen and never starts a session.
//
// Two variants exist. The "call" variant accepts the form input verbatim and
// only logs initialization failures. The "room" variant trims the input,
// labels the channel "Room code", shows two disabled placeholder controls and
// surfaces initialization failures as one generic message.
//
// View returns a snapshot suitable for templates or JSON. Subscribe
// registers a callback invoked whenever the snapshot may have changed.
package ui
