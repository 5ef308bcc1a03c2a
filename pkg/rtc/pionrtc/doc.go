// Package pionrtc implements the rtc SDK interfaces on pion/webrtc.
//
// A Client holds one PeerConnection and one websocket to a conference
// gateway. The gateway speaks JSON messages of the form {id, type, ...}:
//
//	client                                   gateway
//	  │ join {appId, channel, token, uid}  ───▶ │
//	  │ ◀─── result {uid}                       │
//	  │ publish {tracks, sdp: offer}       ───▶ │
//	  │ ◀─── result {sdp: answer}               │
//	  │ ◀─── user-published {uid, kind}         │
//	  │ subscribe {uid, kind}              ───▶ │
//	  │ ◀─── result                             │
//	  │ ◀─── offer {sdp}   (adds remote track)  │
//	  │ answer {sdp}                       ───▶ │
//	  │ leave                              ───▶ │
//
// Requests carry a non-zero id and are answered by a result with the same
// id. A result with an error field fails the request; well-known error
// codes map to the rtc sentinels.
//
// Remote tracks are identified by their stream id, which the gateway sets to
// the publisher's uid. Subscribe returns the playback handle immediately;
// the pion TrackRemote is attached once it arrives, and its RTP is forwarded
// to the surface the handle plays into when that surface is an RTPSink.
//
// Local capture comes from SampleSources. An engine without a microphone or
// camera source reports capture as denied.
package pionrtc
