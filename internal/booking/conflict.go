package booking

import "sort"

// Overlapping scans existing bookings and returns those for the given room,
// still confirmed, whose windows overlap the candidate window under the
// half-open rule: [s,e) conflicts with [s2,e2) iff s < e2 && e > s2.
//
// The result is ordered by start time and is empty (not an error) when the
// candidate is clear. A persistent store may answer the same question with a
// range query; both implementations must agree on the predicate.
func Overlapping(existing []Booking, roomID string, w Window) []Booking {
	var conflicts []Booking
	for _, b := range existing {
		if b.RoomID != roomID || b.Status != StatusConfirmed {
			continue
		}
		if w.Overlaps(b.Window) {
			conflicts = append(conflicts, b)
		}
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].Window.Start.Equal(conflicts[j].Window.Start) {
			return conflicts[i].ID < conflicts[j].ID
		}
		return conflicts[i].Window.Start.Before(conflicts[j].Window.Start)
	})

	return conflicts
}
