package domain

import "time"

// TemplatePatch is a partial update for a template. Nil fields are untouched.
type TemplatePatch struct {
	Name          *string           `json:"name,omitempty"`
	WorkoutTypeID *string           `json:"workout_type_id,omitempty"`
	Exercises     *[]ExerciseRecord `json:"exercises,omitempty"`
}

// Apply overlays the patch onto the template.
func (p TemplatePatch) Apply(t *Template) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.WorkoutTypeID != nil {
		t.WorkoutTypeID = *p.WorkoutTypeID
	}
	if p.Exercises != nil {
		t.Exercises = *p.Exercises
	}
}

// AsPatch expresses the full template as a patch, used when replaying a
// queued update against the backend.
func (t Template) AsPatch() TemplatePatch {
	name, workoutType, exercises := t.Name, t.WorkoutTypeID, t.Exercises
	return TemplatePatch{Name: &name, WorkoutTypeID: &workoutType, Exercises: &exercises}
}

// SessionPatch is a partial update for a session. Nil fields are untouched.
type SessionPatch struct {
	TemplateName    *string           `json:"template_name,omitempty"`
	WorkoutTypeID   *string           `json:"workout_type_id,omitempty"`
	Date            *time.Time        `json:"date,omitempty"`
	DurationMinutes *int              `json:"duration_minutes,omitempty"`
	Exercises       *[]ExerciseRecord `json:"exercises,omitempty"`
	IsCompleted     *bool             `json:"is_completed,omitempty"`
}

// Apply overlays the patch onto the session and rederives the volume when the
// sets changed.
func (p SessionPatch) Apply(s *Session) {
	if p.TemplateName != nil {
		s.TemplateName = *p.TemplateName
	}
	if p.WorkoutTypeID != nil {
		s.WorkoutTypeID = *p.WorkoutTypeID
	}
	if p.Date != nil {
		s.Date = *p.Date
	}
	if p.DurationMinutes != nil {
		s.DurationMinutes = *p.DurationMinutes
	}
	if p.Exercises != nil {
		s.Exercises = *p.Exercises
		s.RecomputeVolume()
	}
	if p.IsCompleted != nil {
		s.IsCompleted = *p.IsCompleted
	}
}

// AsPatch expresses the full session as a patch for replayed updates.
func (s Session) AsPatch() SessionPatch {
	name, workoutType := s.TemplateName, s.WorkoutTypeID
	date, duration := s.Date, s.DurationMinutes
	exercises, completed := s.Exercises, s.IsCompleted
	return SessionPatch{
		TemplateName:    &name,
		WorkoutTypeID:   &workoutType,
		Date:            &date,
		DurationMinutes: &duration,
		Exercises:       &exercises,
		IsCompleted:     &completed,
	}
}
