package livestream

import "github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/models"

// transitions is the full set of legal state changes for a hunt. Anything
// not listed here is rejected before it reaches storage.
var transitions = map[string][]string{
	models.TrackingDisabled: {
		models.TrackingNoSchedule, // operator re-enables tracking
	},
	models.TrackingNoSchedule: {
		models.TrackingNotYetLive, // stream time learned
		models.TrackingDisabled,
	},
	models.TrackingNotYetLive: {
		models.TrackingSearching, // entered the pre-stream window
		models.TrackingDisabled,
	},
	models.TrackingSearching: {
		models.TrackingFound,      // all expected codes discovered
		models.TrackingNoSchedule, // stalled hunt timed out
		models.TrackingDisabled,
	},
	models.TrackingFound: {
		models.TrackingDistributed,
		models.TrackingDisabled,
	},
	models.TrackingDistributed: {
		models.TrackingSearching, // a late code for the same version appeared
		models.TrackingDisabled,
	},
}

// CanTransition reports whether from→to is a legal hunt state change.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
