package rules

import (
	"fmt"

	"modguard/model"
)

// Ladder is the general punishment escalation ladder, ordered by ascending
// threshold. Immutable after load.
type Ladder struct {
	entries []model.LadderEntry
}

// NewLadder validates that thresholds are contiguous integers starting at 1.
// A gap or duplicate fails fast with a ConfigError rather than guessing.
func NewLadder(entries []model.LadderEntry) (*Ladder, error) {
	if len(entries) == 0 {
		return nil, &model.ConfigError{Field: "general_punishment_ladder", Reason: "must not be empty"}
	}
	for i, e := range entries {
		if e.Threshold != i+1 {
			return nil, &model.ConfigError{
				Field:  "general_punishment_ladder",
				Reason: fmt.Sprintf("thresholds must be contiguous from 1, got %d at position %d", e.Threshold, i),
			}
		}
		switch e.Action {
		case model.LadderMute:
			if e.Duration <= 0 {
				return nil, &model.ConfigError{
					Field:  "general_punishment_ladder",
					Reason: fmt.Sprintf("mute at threshold %d requires a positive duration", e.Threshold),
				}
			}
		case model.LadderRemoveTemp, model.LadderBan:
		default:
			return nil, &model.ConfigError{
				Field:  "general_punishment_ladder",
				Reason: fmt.Sprintf("unknown action %q at threshold %d", e.Action, e.Threshold),
			}
		}
	}
	return &Ladder{entries: entries}, nil
}

// TierFor returns the rung for the given violation count. Counts beyond the
// last rung clamp to it. Pure and total for count >= 1.
func (l *Ladder) TierFor(count int) model.LadderEntry {
	if count < 1 {
		count = 1
	}
	if count > len(l.entries) {
		count = len(l.entries)
	}
	return l.entries[count-1]
}

// MaxThreshold returns the highest rung's threshold.
func (l *Ladder) MaxThreshold() int {
	return len(l.entries)
}
