// Package domain defines the record types and business rules for the sync layer.
package domain

import "time"

// SetRecord is one performed set inside an exercise.
type SetRecord struct {
	Weight      float64 `json:"weight"`
	Reps        int     `json:"reps"`
	IsCompleted bool    `json:"is_completed"`
}

// Volume returns the training volume contributed by the set. Incomplete sets
// contribute nothing.
func (s SetRecord) Volume() float64 {
	if !s.IsCompleted || s.Reps <= 0 {
		return 0
	}
	return s.Weight * float64(s.Reps)
}

// ExerciseRecord groups the sets performed (or planned) for one exercise.
type ExerciseRecord struct {
	ExerciseID string      `json:"exercise_id"`
	Name       string      `json:"name"`
	Sets       []SetRecord `json:"sets"`
}

// Template is a reusable workout blueprint. The backend assigns the canonical
// ID on insert; records created offline carry a provisional client ID until
// replayed.
type Template struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	WorkoutTypeID string           `json:"workout_type_id"`
	Exercises     []ExerciseRecord `json:"exercises"`
}

// Session is a single workout, in progress or finished. At most one session
// per user may be active (IsCompleted == false) at any time.
type Session struct {
	ID              string           `json:"id"`
	TemplateID      string           `json:"template_id,omitempty"`
	TemplateName    string           `json:"template_name"`
	WorkoutTypeID   string           `json:"workout_type_id"`
	Date            time.Time        `json:"date"`
	DurationMinutes int              `json:"duration_minutes"`
	Exercises       []ExerciseRecord `json:"exercises"`
	TotalVolume     float64          `json:"total_volume"`
	IsCompleted     bool             `json:"is_completed"`
}

// RecomputeVolume rederives TotalVolume from the session's sets. Stored
// aggregates are never trusted; this runs whenever sets change and whenever
// remote or cached data is loaded.
func (s *Session) RecomputeVolume() {
	total := 0.0
	for _, ex := range s.Exercises {
		for _, set := range ex.Sets {
			total += set.Volume()
		}
	}
	s.TotalVolume = total
}

// AuthUser is the sanitized projection of the backend auth user that is safe
// to cache locally: identifiers, email, metadata and timestamps only.
type AuthUser struct {
	ID        string         `json:"id"`
	Email     string         `json:"email,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// UserSnapshot is the full cached state for one user. It is replaced
// wholesale on every successful remote sync and read-modified-written on
// every optimistic local mutation. LastSync only advances, except on an
// explicit clear.
type UserSnapshot struct {
	UserID    string     `json:"user_id"`
	Templates []Template `json:"templates"`
	Sessions  []Session  `json:"sessions"`
	LastSync  time.Time  `json:"last_sync"`
	User      *AuthUser  `json:"user,omitempty"`
}

// ChangeKind identifies which collection a pending change targets.
type ChangeKind string

const (
	ChangeKindTemplate ChangeKind = "template"
	ChangeKindSession  ChangeKind = "session"
)

// ChangeOp is the gateway operation a pending change replays.
type ChangeOp string

const (
	ChangeOpInsert ChangeOp = "insert"
	ChangeOpUpdate ChangeOp = "update"
	ChangeOpDelete ChangeOp = "delete"
)

// PendingChange is a queued write awaiting replay against the backend. The
// store assigns ID at enqueue time; IDs are the FIFO ordering key.
type PendingChange struct {
	ID         int64      `json:"id"`
	UserID     string     `json:"user_id"`
	Kind       ChangeKind `json:"type"`
	Op         ChangeOp   `json:"op"`
	RecordID   string     `json:"record_id"`
	Payload    []byte     `json:"data,omitempty"`
	EnqueuedAt time.Time  `json:"timestamp"`
	RetryCount int        `json:"retry_count"`
}
