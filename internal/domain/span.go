package domain

// OccupiedSlots maps a call duration to the number of hourly slots it
// occupies: 90 minutes reserves 5 hours, anything else (the 60-minute
// default) reserves 4. The extra hours are warm-up/travel buffer.
func OccupiedSlots(durationMinutes int) int {
	if durationMinutes == 90 {
		return 5
	}
	return 4
}

// SpanHours returns the hours a call occupies, starting at startHour, clipped
// at lastHour so a late call never spills past the end of the operating day.
func SpanHours(startHour, slots, lastHour int) []int {
	out := make([]int, 0, slots)
	for i := 0; i < slots; i++ {
		h := startHour + i
		if h > lastHour {
			break
		}
		out = append(out, h)
	}
	return out
}
