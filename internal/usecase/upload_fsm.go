package usecase

import "fmt"

// UploadPhase is the life cycle of the polling loop, separate from the
// job status reported to the user.
type UploadPhase string

const (
	// UploadIdle: no loop runs. Either nothing was started, the archive is
	// being submitted, or polling was cancelled.
	UploadIdle UploadPhase = "idle"
	// UploadPolling: a job exists and its status is polled.
	UploadPolling UploadPhase = "polling"
	// UploadTerminal: the last upload ended; its status is final.
	UploadTerminal UploadPhase = "terminal"
)

// A new upload always passes through Idle while its archive is submitted,
// so Terminal never moves straight to Polling.
var uploadTransitions = map[UploadPhase]map[UploadPhase]bool{
	UploadIdle:     {UploadIdle: true, UploadPolling: true, UploadTerminal: true},
	UploadPolling:  {UploadIdle: true, UploadPolling: true, UploadTerminal: true},
	UploadTerminal: {UploadIdle: true, UploadTerminal: true},
}

func checkUploadTransition(from, to UploadPhase) error {
	if uploadTransitions[from][to] {
		return nil
	}
	return fmt.Errorf("illegal upload transition %s -> %s", from, to)
}
