// Package rtc defines the boundary between the application and a real-time
// communication SDK.
//
// The application never touches media directly. It creates a Client through an
// Engine, asks the Engine for local capture handles, joins a named channel and
// publishes those handles. Everything below that line (capture, encode,
// transport, NAT traversal, decode) is the engine's business.
//
// # Call Flow
//
//	Application                               Engine / Client
//	───────────                               ───────────────
//	     │── CreateClient ──────────────────────>│
//	     │── SetRelay (optional) ───────────────>│
//	     │── CreateMicrophoneAudioTrack ────────>│
//	     │── CreateCameraVideoTrack ────────────>│
//	     │── On(Handlers) ──────────────────────>│
//	     │── Join(appID, channel, token, uid) ──>│
//	     │── Publish(mic, cam) ─────────────────>│
//	     │                                       │
//	     │<── OnUserPublished(user, kind) ───────│
//	     │── Subscribe(user, kind) ─────────────>│
//	     │<── OnUserUnpublished(user, kind) ─────│
//	     │<── OnUserLeft(user) ──────────────────│
//	     │                                       │
//	     │── Leave ─────────────────────────────>│
//
// Two engines ship with this module: package loopback (in-process, used for
// tests and local demos) and package pionrtc (pion/webrtc talking to a
// conference gateway).
package rtc
