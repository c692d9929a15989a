package conversation

import "fmt"

// Stage names the pipeline step an error came from.
type Stage string

const (
	StageRewrite     Stage = "rewrite"
	StageReformulate Stage = "reformulate"
	StageRetrieve    Stage = "retrieve"
	StageGenerate    Stage = "generate"
)

// StageError tags a downstream service failure with the pipeline stage that
// surfaced it. Failures abort the current turn only; nothing retries.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
