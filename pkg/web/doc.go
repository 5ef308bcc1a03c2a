// Package web serves the videoroom UI over HTTP.
//
// Every browser gets a session, identified by a cookie, that owns one
// ui.App and therefore one call controller. Pages are rendered on the
// server; a websocket pushes the current view whenever it changes and
// accepts join/leave actions.
//
//	GET  /          form, call or configuration-error screen
//	POST /join      enter the channel named by the "channel" form field
//	POST /leave     leave the call
//	GET  /ws        live view updates
//	GET  /healthz   liveness probe
//	GET  /static/   stylesheet
//
// Sessions idle for longer than the configured timeout, with no open
// websocket, are closed by a janitor goroutine; closing a session leaves
// its call.
package web
