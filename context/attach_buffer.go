package context

import "github.com/google/uuid"

// AttachBuffer is the retransmission payload bound to a running
// T3450: the cached ESM container that must go out byte-for-byte on
// every retry, plus the retry counter (spec.md 3).
type AttachBuffer struct {
	ID      uuid.UUID
	UeID    int64
	Retries int
	EsmMsg  []byte
	Timer   *Timer
}

// NewAttachBuffer allocates a fresh buffer with retries=0, as
// `_emm_attach` does when ESM_SAP_SUCCESS is returned (spec.md 4.4).
func NewAttachBuffer(ueID int64, esmMsg []byte) *AttachBuffer {
	return &AttachBuffer{
		ID:     uuid.New(),
		UeID:   ueID,
		EsmMsg: esmMsg,
	}
}
