package scheduler

import (
	"time"

	dm "github.com/andrej220/hamagent/pkg/shared-models"
)

// Stage is how far a cycle got. A failed Outcome's Stage names the step
// that failed.
type Stage string

const (
	StageExecute Stage = "execute"
	StageDeliver Stage = "deliver"
	StageDone    Stage = "done"
)

const (
	ResultOK               = "ok"
	ResultExecutionFailure = "execution_failure"
	ResultDeliveryFailure  = "delivery_failure"
)

// Outcome is the result of one execute and report cycle.
type Outcome struct {
	Command  string
	Stage    Stage
	Record   dm.ResultRecord // zero unless execution succeeded
	Err      error
	Started  time.Time
	Duration time.Duration
}

func (o Outcome) Failed() bool { return o.Err != nil }

// Result classifies the outcome as ok, execution_failure or delivery_failure.
func (o Outcome) Result() string {
	switch {
	case o.Err == nil:
		return ResultOK
	case o.Stage == StageExecute:
		return ResultExecutionFailure
	default:
		return ResultDeliveryFailure
	}
}
