package ui

import (
	"fmt"
	"strings"
)

// Variant selects the flavour of the UI.
type Variant string

const (
	// VariantCall is the generic video call UI.
	VariantCall Variant = "call"

	// VariantRoom is the themed video room UI.
	VariantRoom Variant = "room"
)

// ParseVariant parses a variant name.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(s)); v {
	case VariantCall, VariantRoom:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVariant, s)
}

// normalize prepares form input. Returns false if it must be ignored.
func (v Variant) normalize(input string) (string, bool) {
	if v == VariantRoom {
		input = strings.TrimSpace(input)
	}
	return input, input != ""
}

// surfacesErrors reports whether initialization errors are shown to the user.
func (v Variant) surfacesErrors() bool {
	return v == VariantRoom
}

type texts struct {
	Title        string
	Heading      string
	Placeholder  string
	SubmitLabel  string
	ChannelLabel string
}

func (v Variant) texts() texts {
	if v == VariantRoom {
		return texts{
			Title:        "Video Room",
			Heading:      "Enter a Room",
			Placeholder:  "Enter Room Code",
			SubmitLabel:  "Enter Room",
			ChannelLabel: "Room code",
		}
	}
	return texts{
		Title:        "Video Chat",
		Heading:      "Join a Video Call",
		Placeholder:  "Enter Channel Name",
		SubmitLabel:  "Join",
		ChannelLabel: "Channel",
	}
}
