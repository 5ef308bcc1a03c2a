package render

import "github.com/backkem/videoroom/pkg/rtc"

// Region IDs used by the call view.
const (
	LocalRegionID      = "local-video"
	remoteRegionPrefix = "remote-"
)

// RegionKind distinguishes the local preview from remote tiles.
type RegionKind uint8

const (
	RegionLocal RegionKind = iota
	RegionRemote
)

// String returns the CSS class used for the region.
func (k RegionKind) String() string {
	switch k {
	case RegionLocal:
		return "local-video"
	case RegionRemote:
		return "remote-video"
	default:
		return "video"
	}
}

// Region is a named rectangle a track can be played into. It implements
// rtc.Surface.
type Region struct {
	ID   string
	Kind RegionKind
	// UID is the remote participant shown in the region. Empty for local.
	UID rtc.UID
}

// SurfaceID implements rtc.Surface.
func (r Region) SurfaceID() string { return r.ID }

// LocalRegion returns the region for the local camera preview.
func LocalRegion() Region {
	return Region{ID: LocalRegionID, Kind: RegionLocal}
}

// RemoteRegion returns the region for a remote participant's video.
func RemoteRegion(uid rtc.UID) Region {
	return Region{ID: remoteRegionPrefix + string(uid), Kind: RegionRemote, UID: uid}
}
