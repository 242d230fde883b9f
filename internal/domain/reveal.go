package domain

// VisibleAnswers computes which other participants' answers the requester
// may see for a single question. It is pure: the result depends only on the
// arguments and callers can evaluate it on every status read.
//
// participants must be ordered by join order; answers is keyed by
// participant ID and holds only answers for the question in scope.
func VisibleAnswers(strategy RevealStrategy, requester Participant, participants []Participant, answers map[string]Answer, roundClosed bool) []VisibleAnswer {
	switch strategy {
	case RevealToLaterParticipants:
		return revealEarlier(requester, participants, answers)
	case RevealAllAfterRound:
		if !roundClosed {
			return nil
		}
		return revealOthers(requester, participants, answers)
	default:
		// RevealNone and anything unrecognized reveal nothing.
		return nil
	}
}

// revealEarlier returns answers from participants who joined strictly before
// the requester. Earlier participants never see later ones, round closed or
// not.
func revealEarlier(requester Participant, participants []Participant, answers map[string]Answer) []VisibleAnswer {
	var visible []VisibleAnswer
	for _, p := range participants {
		if p.JoinOrder >= requester.JoinOrder {
			continue
		}
		if answer, ok := answers[p.ID]; ok {
			visible = append(visible, VisibleAnswer{
				ParticipantID: p.ID,
				Kind:          p.Kind,
				Value:         answer.Value,
				Correct:       answer.Correct,
			})
		}
	}
	return visible
}

func revealOthers(requester Participant, participants []Participant, answers map[string]Answer) []VisibleAnswer {
	var visible []VisibleAnswer
	for _, p := range participants {
		if p.ID == requester.ID {
			continue
		}
		if answer, ok := answers[p.ID]; ok {
			visible = append(visible, VisibleAnswer{
				ParticipantID: p.ID,
				Kind:          p.Kind,
				Value:         answer.Value,
				Correct:       answer.Correct,
			})
		}
	}
	return visible
}
