package trigger

import "chatline-backend/internal/models"

// CollapseByID removes duplicate message ids from a sequence rebuilt out
// of incremental updates. The last-seen value for an id wins, but the id
// keeps the position of its first occurrence, so retried or reconciled
// messages never render or persist twice.
func CollapseByID(msgs []models.Message) []models.Message {
	if len(msgs) == 0 {
		return msgs
	}

	pos := make(map[string]int, len(msgs))
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if i, seen := pos[m.ID]; seen {
			out[i] = m
			continue
		}
		pos[m.ID] = len(out)
		out = append(out, m)
	}
	return out
}
