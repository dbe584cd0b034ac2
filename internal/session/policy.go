package session

import (
	"encoding/json"

	"github.com/claude/liftlog/internal/models"
)

// Outcome is the decision of the conflict resolution policy.
type Outcome int

const (
	// StartImmediately means no session is active; the request can proceed.
	StartImmediately Outcome = iota
	// ResumeExisting means the active session matches the requested routine;
	// the caller should navigate back to it instead of starting over.
	ResumeExisting
	// RequiresUserChoice means a different workout is active; the user must
	// pick one of the Choice values.
	RequiresUserChoice
)

// String returns a human-readable outcome.
func (o Outcome) String() string {
	switch o {
	case StartImmediately:
		return "start_immediately"
	case ResumeExisting:
		return "resume_existing"
	case RequiresUserChoice:
		return "requires_user_choice"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the outcome by its wire name.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// Choice is one of the three user responses to RequiresUserChoice.
type Choice string

const (
	// ChoiceResume keeps the current session untouched.
	ChoiceResume Choice = "resume"
	// ChoiceDiscard discards the current session and starts the requested one.
	ChoiceDiscard Choice = "discard"
	// ChoiceCancel changes nothing.
	ChoiceCancel Choice = "cancel"
)

// Decision is the full output of Resolve.
type Decision struct {
	Outcome              Outcome                `json:"outcome"`
	Current              *models.WorkoutSession `json:"current,omitempty"`
	RequestedRoutineID   string                 `json:"requested_routine_id,omitempty"`
	RequestedRoutineName string                 `json:"requested_routine_name"`
}

// Resolve decides what happens when a new workout is requested. It is a pure
// function: it never mutates session state, only the caller acts on the
// decision. An empty routine ID denotes an ad-hoc quick workout; two quick
// workouts compare equal, so requesting one while one is active resumes it.
func Resolve(current *models.WorkoutSession, requestedRoutineID, requestedRoutineName string) Decision {
	d := Decision{
		RequestedRoutineID:   requestedRoutineID,
		RequestedRoutineName: requestedRoutineName,
	}

	if current == nil {
		d.Outcome = StartImmediately
		return d
	}

	d.Current = current
	if current.RoutineID == requestedRoutineID {
		d.Outcome = ResumeExisting
		return d
	}

	d.Outcome = RequiresUserChoice
	return d
}
