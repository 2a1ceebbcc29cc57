package domain

import (
	"sort"
	"time"
)

// CompletedSessions returns the finished sessions, most recent first.
func CompletedSessions(sessions []Session) []Session {
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if s.IsCompleted {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// ActiveSession returns the single in-progress session, or nil.
func ActiveSession(sessions []Session) *Session {
	for i := range sessions {
		if !sessions[i].IsCompleted {
			return &sessions[i]
		}
	}
	return nil
}

// LifetimeVolume sums the volume across completed sessions.
func LifetimeVolume(sessions []Session) float64 {
	total := 0.0
	for _, s := range CompletedSessions(sessions) {
		total += s.TotalVolume
	}
	return total
}

// AverageDuration returns the mean duration in minutes over completed
// sessions, or 0 when there are none.
func AverageDuration(sessions []Session) float64 {
	completed := CompletedSessions(sessions)
	if len(completed) == 0 {
		return 0
	}
	total := 0
	for _, s := range completed {
		total += s.DurationMinutes
	}
	return float64(total) / float64(len(completed))
}

// ExerciseUsage counts how often an exercise appears in completed sessions.
type ExerciseUsage struct {
	ExerciseID string `json:"exercise_id"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
}

// MostUsedExercises ranks exercises by appearance count across completed
// sessions, descending, capped at limit.
func MostUsedExercises(sessions []Session, limit int) []ExerciseUsage {
	counts := make(map[string]*ExerciseUsage)
	for _, s := range CompletedSessions(sessions) {
		for _, ex := range s.Exercises {
			key := ex.ExerciseID
			if key == "" {
				key = ex.Name
			}
			usage, ok := counts[key]
			if !ok {
				usage = &ExerciseUsage{ExerciseID: ex.ExerciseID, Name: ex.Name}
				counts[key] = usage
			}
			usage.Count++
		}
	}

	ranked := make([]ExerciseUsage, 0, len(counts))
	for _, usage := range counts {
		ranked = append(ranked, *usage)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// WeeklyVolume is the volume bucket for one ISO week, keyed by the Monday
// that starts it.
type WeeklyVolume struct {
	WeekStart time.Time `json:"week_start"`
	Volume    float64   `json:"volume"`
}

// WeeklyVolumes buckets completed-session volume by week, oldest first.
func WeeklyVolumes(sessions []Session) []WeeklyVolume {
	buckets := make(map[time.Time]float64)
	for _, s := range CompletedSessions(sessions) {
		buckets[weekStart(s.Date)] += s.TotalVolume
	}

	out := make([]WeeklyVolume, 0, len(buckets))
	for start, volume := range buckets {
		out = append(out, WeeklyVolume{WeekStart: start, Volume: volume})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart.Before(out[j].WeekStart) })
	return out
}

// weekStart truncates to the Monday 00:00 UTC beginning the week of t.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	day := t.Truncate(24 * time.Hour)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
