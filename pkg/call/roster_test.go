package call

import (
	"testing"

	"github.com/backkem/videoroom/pkg/rtc"
	"github.com/google/go-cmp/cmp"
)

type fakeUser rtc.UID

func (u fakeUser) UID() rtc.UID          { return rtc.UID(u) }
func (u fakeUser) HasAudio() bool        { return false }
func (u fakeUser) HasVideo() bool        { return true }
func (u fakeUser) AudioTrack() rtc.Track { return nil }
func (u fakeUser) VideoTrack() rtc.Track { return nil }

func TestRoster_AddDeduplicates(t *testing.T) {
	r := NewRoster()

	if !r.Add(fakeUser("1")) {
		t.Error("Add(1) = false, want true")
	}
	if !r.Add(fakeUser("2")) {
		t.Error("Add(2) = false, want true")
	}
	if r.Add(fakeUser("1")) {
		t.Error("Add(1) again = true, want false")
	}

	if diff := cmp.Diff([]rtc.UID{"1", "2"}, r.UIDs()); diff != "" {
		t.Errorf("UIDs() mismatch (-want +got):\n%s", diff)
	}
}

func TestRoster_Remove(t *testing.T) {
	r := NewRoster()
	r.Add(fakeUser("1"))
	r.Add(fakeUser("2"))
	r.Add(fakeUser("3"))

	if !r.Remove("2") {
		t.Error("Remove(2) = false, want true")
	}
	if r.Remove("2") {
		t.Error("Remove(2) again = true, want false")
	}
	if r.Remove("9") {
		t.Error("Remove(9) = true, want false")
	}
	if diff := cmp.Diff([]rtc.UID{"1", "3"}, r.UIDs()); diff != "" {
		t.Errorf("UIDs() mismatch (-want +got):\n%s", diff)
	}
	if r.contains("2") {
		t.Error("Contains(2) = true after Remove")
	}
}

func TestRoster_SnapshotIsCopy(t *testing.T) {
	r := NewRoster()
	r.Add(fakeUser("1"))

	snap := r.Snapshot()
	snap[0].UID = "changed"

	if !r.contains("1") {
		t.Error("mutating a snapshot changed the roster")
	}
}

func TestRoster_Clear(t *testing.T) {
	r := NewRoster()
	r.Add(fakeUser("1"))
	r.Add(fakeUser("2"))

	if n := r.Clear(); n != 2 {
		t.Errorf("Clear() = %d, want 2", n)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if n := r.Clear(); n != 0 {
		t.Errorf("Clear() on empty = %d, want 0", n)
	}
}
