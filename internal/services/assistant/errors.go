package assistant

import (
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

var (
	ErrRunTimeout = errors.New("assistant run timed out")
	ErrNoAnswer   = errors.New("assistant run completed without an answer")
)

// RunEndedError reports a run that reached a terminal status other than
// completed.
type RunEndedError struct {
	RunID     string
	Status    openai.RunStatus
	LastError *openai.RunLastError
}

func (e *RunEndedError) Error() string {
	if e.LastError == nil {
		return fmt.Sprintf("run %s ended with status %s", e.RunID, e.Status)
	}
	return fmt.Sprintf("run %s ended with status %s: %s: %s", e.RunID, e.Status, e.LastError.Code, e.LastError.Message)
}
