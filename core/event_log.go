package core

// LatestNonUserAuthor scans the event log backwards and returns the author of
// the most recent event not authored by the user. Returns "" when the log is
// empty or contains only user events.
func LatestNonUserAuthor(events []Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		if a := events[i].Author; a != "" && a != UserAuthor {
			return a
		}
	}
	return ""
}

// FindMatchingFunctionCall locates the event carrying the function call that
// the most recent user-authored function response answers. Pairing is by
// FunctionCall.ID. A nil result means the log does not end in a user function
// response; this is an ordinary fresh turn, not an error.
func FindMatchingFunctionCall(events []Event) *Event {
	if len(events) == 0 {
		return nil
	}

	last := events[len(events)-1]
	if last.Author != UserAuthor {
		return nil
	}

	responses := last.GetFunctionResponses()
	if len(responses) == 0 {
		return nil
	}

	ids := make(map[string]bool, len(responses))
	for _, fr := range responses {
		if fr.ID != "" {
			ids[fr.ID] = true
		}
	}

	for i := len(events) - 2; i >= 0; i-- {
		for _, fc := range events[i].GetFunctionCalls() {
			if ids[fc.ID] {
				ev := events[i]
				return &ev
			}
		}
	}

	return nil
}
