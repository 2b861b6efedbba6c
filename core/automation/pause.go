package automation

// PauseRegistry suppresses automatic reminders per student. It is consulted
// before any automatic send and never affects manual sends. Toggling is an
// external-collaborator (UI) action.
type PauseRegistry interface {
	IsPaused(studentID string) (bool, error)
	SetPaused(studentID string, paused bool) error
}
