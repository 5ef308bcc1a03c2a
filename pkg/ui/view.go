package ui

// Screen identifies which screen the view shows.
type Screen string

const (
	ScreenConfigError Screen = "config-error"
	ScreenForm        Screen = "form"
	ScreenCall        Screen = "call"
)

// Messages shown to the user.
const (
	MissingAppIDMessage = "The application id is not configured. Set VIDEOROOM_APP_ID and restart."
	JoinFailedMessage   = "Could not join the room. Check the configuration and try again."
)

// Control is a button on the call screen.
type Control struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

// RegionView is one video region on the call screen.
type RegionView struct {
	ID    string `json:"id"`
	Class string `json:"class"`
	UID   string `json:"uid,omitempty"`
	Track string `json:"track"`
}

// View is a snapshot of the UI.
type View struct {
	Screen  Screen  `json:"screen"`
	Variant Variant `json:"variant"`
	Title   string  `json:"title"`

	// Config-error screen.
	Message string `json:"message,omitempty"`

	// Form screen.
	Heading     string `json:"heading,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	SubmitLabel string `json:"submitLabel,omitempty"`

	// Call screen.
	ChannelLabel     string       `json:"channelLabel,omitempty"`
	Channel          string       `json:"channel,omitempty"`
	ParticipantCount int          `json:"participantCount,omitempty"`
	Regions          []RegionView `json:"regions,omitempty"`
	Controls         []Control    `json:"controls,omitempty"`
	State            string       `json:"state,omitempty"`
	Error            string       `json:"error,omitempty"`
}
