package call

import (
	"sync"

	"github.com/backkem/videoroom/pkg/rtc"
)

// Participant is a remote user currently shown in the call.
type Participant struct {
	UID  rtc.UID
	User rtc.RemoteUser
}

// Roster is the ordered list of remote participants, keyed by uid.
// It is safe for concurrent use.
type Roster struct {
	mu   sync.RWMutex
	list []Participant
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{}
}

// Add appends the user unless a participant with the same uid is already
// present. Returns true if the roster changed.
func (r *Roster) Add(user rtc.RemoteUser) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	uid := user.UID()
	for _, p := range r.list {
		if p.UID == uid {
			return false
		}
	}
	r.list = append(r.list, Participant{UID: uid, User: user})
	return true
}

// Remove drops the participant with the given uid. Returns true if the
// roster changed.
func (r *Roster) Remove(uid rtc.UID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.list {
		if p.UID == uid {
			r.list = append(r.list[:i:i], r.list[i+1:]...)
			return true
		}
	}
	return false
}

// contains reports whether uid is in the roster.
func (r *Roster) contains(uid rtc.UID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.list {
		if p.UID == uid {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the roster in insertion order.
func (r *Roster) Snapshot() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Participant, len(r.list))
	copy(out, r.list)
	return out
}

// UIDs returns the participant uids in insertion order.
func (r *Roster) UIDs() []rtc.UID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]rtc.UID, len(r.list))
	for i, p := range r.list {
		out[i] = p.UID
	}
	return out
}

// Len returns the number of participants.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.list)
}

// Clear empties the roster and returns how many participants were removed.
func (r *Roster) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.list)
	r.list = nil
	return n
}
