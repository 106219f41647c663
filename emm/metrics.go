package emm

import "github.com/omec-project/mme/context"

// Recorder is the metrics sink the Attach core reports into. A nil
// Recorder on Procedure is valid: every call site guards it.
type Recorder interface {
	AttachAccepted()
	AttachRejected(cause context.EMMCause)
	AttachAborted()
	InFlight(delta int)
	T3450Retries(n int32)
}
