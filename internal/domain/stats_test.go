package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func completedSession(id string, date time.Time, duration int, volume float64) Session {
	s := Session{
		ID:              id,
		TemplateName:    "Push Day",
		Date:            date,
		DurationMinutes: duration,
		Exercises: []ExerciseRecord{{
			ExerciseID: "bench",
			Name:       "Bench Press",
			Sets:       []SetRecord{{Weight: volume, Reps: 1, IsCompleted: true}},
		}},
		IsCompleted: true,
	}
	s.RecomputeVolume()
	return s
}

func TestRecomputeVolumeCountsOnlyCompletedSets(t *testing.T) {
	s := Session{
		Exercises: []ExerciseRecord{{
			Sets: []SetRecord{
				{Weight: 100, Reps: 5, IsCompleted: true},
				{Weight: 0, Reps: 8, IsCompleted: true},
				{Weight: 80, Reps: 10, IsCompleted: false},
			},
		}},
		TotalVolume: 9999, // stale stored aggregate, must be overwritten
	}

	s.RecomputeVolume()

	require.Equal(t, 500.0, s.TotalVolume)
}

func TestCompletedSessionsSortedRecentFirst(t *testing.T) {
	base := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	sessions := []Session{
		completedSession("old", base.Add(-48*time.Hour), 30, 100),
		{ID: "active", Date: base, IsCompleted: false},
		completedSession("new", base.Add(-time.Hour), 45, 200),
	}

	got := CompletedSessions(sessions)

	require.Len(t, got, 2)
	require.Equal(t, "new", got[0].ID)
	require.Equal(t, "old", got[1].ID)
}

func TestActiveSession(t *testing.T) {
	base := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	sessions := []Session{
		completedSession("done", base, 30, 100),
		{ID: "current", Date: base, IsCompleted: false},
	}

	active := ActiveSession(sessions)
	require.NotNil(t, active)
	require.Equal(t, "current", active.ID)

	require.Nil(t, ActiveSession(sessions[:1]))
}

func TestLifetimeVolumeAndAverageDuration(t *testing.T) {
	base := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	sessions := []Session{
		completedSession("a", base, 30, 100),
		completedSession("b", base.Add(time.Hour), 60, 200),
		{ID: "active", Date: base, IsCompleted: false},
	}

	require.Equal(t, 300.0, LifetimeVolume(sessions))
	require.Equal(t, 45.0, AverageDuration(sessions))
	require.Equal(t, 0.0, AverageDuration(nil))
}

func TestMostUsedExercisesRanking(t *testing.T) {
	base := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	sessions := []Session{
		{
			ID: "a", Date: base, IsCompleted: true,
			Exercises: []ExerciseRecord{
				{ExerciseID: "squat", Name: "Back Squat"},
				{ExerciseID: "bench", Name: "Bench Press"},
			},
		},
		{
			ID: "b", Date: base.Add(time.Hour), IsCompleted: true,
			Exercises: []ExerciseRecord{
				{ExerciseID: "squat", Name: "Back Squat"},
			},
		},
		{
			ID: "c", Date: base.Add(2 * time.Hour), IsCompleted: false,
			Exercises: []ExerciseRecord{
				{ExerciseID: "bench", Name: "Bench Press"},
			},
		},
	}

	got := MostUsedExercises(sessions, 10)

	require.Len(t, got, 2)
	require.Equal(t, "Back Squat", got[0].Name)
	require.Equal(t, 2, got[0].Count)
	require.Equal(t, 1, got[1].Count, "active sessions do not count")

	capped := MostUsedExercises(sessions, 1)
	require.Len(t, capped, 1)
}

func TestWeeklyVolumesBucketsByMonday(t *testing.T) {
	// 2026-03-02 is a Monday; 2026-03-01 (Sunday) belongs to the prior week.
	monday := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, time.March, 1, 20, 0, 0, 0, time.UTC)
	wednesday := time.Date(2026, time.March, 4, 18, 0, 0, 0, time.UTC)

	sessions := []Session{
		completedSession("a", sunday, 30, 100),
		completedSession("b", monday, 30, 200),
		completedSession("c", wednesday, 30, 300),
	}

	got := WeeklyVolumes(sessions)

	require.Len(t, got, 2)
	require.Equal(t, time.Date(2026, time.February, 23, 0, 0, 0, 0, time.UTC), got[0].WeekStart)
	require.Equal(t, 100.0, got[0].Volume)
	require.Equal(t, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), got[1].WeekStart)
	require.Equal(t, 500.0, got[1].Volume)
}

func TestPatchApplyRecomputesVolume(t *testing.T) {
	s := Session{ID: "sess-1", TotalVolume: 0}
	sets := []ExerciseRecord{{
		ExerciseID: "bench",
		Sets:       []SetRecord{{Weight: 100, Reps: 5, IsCompleted: true}},
	}}

	SessionPatch{Exercises: &sets}.Apply(&s)

	require.Equal(t, 500.0, s.TotalVolume)
}
