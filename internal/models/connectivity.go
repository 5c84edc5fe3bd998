package models

import "time"

// Phase is the position of the availability monitor in its state machine.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseChecking Phase = "checking"
	PhaseOnline   Phase = "online"
	PhaseOffline  Phase = "offline"
	PhaseWaking   Phase = "waking"
)

var phaseTransitions = map[Phase][]Phase{
	PhaseIdle:     {PhaseChecking},
	PhaseChecking: {PhaseOnline, PhaseOffline},
	PhaseOnline:   {PhaseChecking},
	PhaseOffline:  {PhaseChecking, PhaseWaking},
	PhaseWaking:   {PhaseOffline},
}

// CanTransition reports whether the state machine allows moving from p to next.
func (p Phase) CanTransition(next Phase) bool {
	for _, allowed := range phaseTransitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ConnectivityState is the snapshot of backend availability rendered by the UI shell.
type ConnectivityState struct {
	Phase              Phase      `json:"phase"`
	IsOnline           bool       `json:"is_online"`
	IsChecking         bool       `json:"is_checking"`
	LastChecked        *time.Time `json:"last_checked"`
	LastSuccess        *time.Time `json:"last_success,omitempty"`
	ErrorMessage       *string    `json:"error_message"`
	WakeUpAttempts     int        `json:"wake_up_attempts"`
	NextCheckCountdown int        `json:"next_check_countdown"`
}

// Clone returns a copy that shares no pointers with s.
func (s ConnectivityState) Clone() ConnectivityState {
	out := s
	if s.LastChecked != nil {
		t := *s.LastChecked
		out.LastChecked = &t
	}
	if s.LastSuccess != nil {
		t := *s.LastSuccess
		out.LastSuccess = &t
	}
	if s.ErrorMessage != nil {
		msg := *s.ErrorMessage
		out.ErrorMessage = &msg
	}
	return out
}

// Transition is emitted whenever IsOnline flips.
type Transition struct {
	ID             string    `json:"id"`
	Online         bool      `json:"online"`
	PreviousOnline bool      `json:"previous_online"`
	Error          string    `json:"error,omitempty"`
	WakeUpAttempts int       `json:"wake_up_attempts"`
	At             time.Time `json:"at"`
}
