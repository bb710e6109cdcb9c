package domain

// A run is a sequence of runLength consecutive hourly slots on one day.
// A run is "full" when every hour in it reaches the quorum; a full run is
// what triggers a confirmed-match notification.

// RunFull reports whether every hour in [startHour, startHour+runLength)
// meets the quorum on the given day. The quorum comparison is inclusive.
func RunFull(idx *SlotIndex, day Day, startHour, runLength, quorum int) bool {
	for h := startHour; h < startHour+runLength; h++ {
		if idx.Count(day, h) < quorum {
			return false
		}
	}
	return true
}

// FindFullRuns returns every startHour in [firstHour, lastHour-runLength+1]
// whose run is full on the given day, ascending. With runLength 1 this
// degenerates to the raw per-slot quorum check.
func FindFullRuns(idx *SlotIndex, day Day, runLength, quorum, firstHour, lastHour int) []int {
	var out []int
	for start := firstHour; start <= lastHour-runLength+1; start++ {
		if RunFull(idx, day, start, runLength, quorum) {
			out = append(out, start)
		}
	}
	return out
}

// CommonUsers returns the players present in every hour of the run, sorted.
// If any hour of the run has no players the intersection is empty.
func CommonUsers(idx *SlotIndex, day Day, startHour, runLength int) []PlayerID {
	common := idx.Users(day, startHour)
	for h := startHour + 1; h < startHour+runLength && len(common) > 0; h++ {
		kept := common[:0]
		for _, id := range common {
			if idx.Has(day, h, id) {
				kept = append(kept, id)
			}
		}
		common = kept
	}
	return common
}

// CandidateStarts returns the startHours of every run that contains the
// given hour, clipped to the valid start range. A write at one hour can only
// change the status of these runs, which bounds recomputation to runLength
// candidates instead of a full-day rescan.
func CandidateStarts(hour, runLength, firstHour, lastHour int) []int {
	lo := hour - runLength + 1
	if lo < firstHour {
		lo = firstHour
	}
	hi := hour
	if max := lastHour - runLength + 1; hi > max {
		hi = max
	}
	var out []int
	for start := lo; start <= hi; start++ {
		out = append(out, start)
	}
	return out
}
