package pionrtc

import (
	"fmt"

	"github.com/backkem/videoroom/pkg/rtc"
)

// MessageType names a gateway message.
type MessageType string

// Requests.
const (
	TypeJoin      MessageType = "join"
	TypePublish   MessageType = "publish"
	TypeUnpublish MessageType = "unpublish"
	TypeSubscribe MessageType = "subscribe"
	TypeLeave     MessageType = "leave"
)

// Responses and notifications.
const (
	TypeResult          MessageType = "result"
	TypeUserPublished   MessageType = "user-published"
	TypeUserUnpublished MessageType = "user-unpublished"
	TypeUserLeft        MessageType = "user-left"
	TypeOffer           MessageType = "offer"
	TypeAnswer          MessageType = "answer"
)

// Error codes the gateway reports in Message.Error.
const (
	CodeInvalidAppID   = "invalid-app-id"
	CodeInvalidChannel = "invalid-channel"
	CodeUIDConflict    = "uid-conflict"
	CodeNotJoined      = "not-joined"
	CodeNotPublished   = "not-published"
)

// TrackInfo describes a published track.
type TrackInfo struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

// Message is one gateway frame.
type Message struct {
	ID      uint64      `json:"id,omitempty"`
	Type    MessageType `json:"type"`
	AppID   string      `json:"appId,omitempty"`
	Channel string      `json:"channel,omitempty"`
	Token   string      `json:"token,omitempty"`
	UID     rtc.UID     `json:"uid,omitempty"`
	Kind    string      `json:"kind,omitempty"`
	Tracks  []TrackInfo `json:"tracks,omitempty"`
	SDP     string      `json:"sdp,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// errorFromCode converts a gateway error code into an error.
func errorFromCode(code string) error {
	switch code {
	case CodeInvalidAppID:
		return rtc.ErrInvalidAppID
	case CodeInvalidChannel:
		return rtc.ErrInvalidChannel
	case CodeUIDConflict:
		return rtc.ErrUIDConflict
	case CodeNotJoined:
		return rtc.ErrNotJoined
	case CodeNotPublished:
		return rtc.ErrUserNotPublished
	default:
		return fmt.Errorf("%w: %s", ErrRequestFailed, code)
	}
}
