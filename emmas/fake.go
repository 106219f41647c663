package emmas

import (
	"context"
	"sync"

	mmectx "github.com/omec-project/mme/context"
)

// Fake is a recording Service used by emm's tests and the demo
// harness to observe what the Attach core would have sent over the
// air without an actual S1AP/eNB stack.
type Fake struct {
	mu sync.Mutex

	Confirms          []EstablishConfirm
	Rejects           []EstablishReject
	IdentityRequests  []struct {
		UeID int64
		Type IdentityType
	}
	AuthRequests []struct {
		UeID   int64
		Vector mmectx.AuthVector
		Ksi    int32
	}
	SecurityCommands []struct {
		UeID int64
		Sec  mmectx.SecurityContext
	}

	ProcAborts      []int64
	AttachConfirms  []int64
	AttachRejects   []struct {
		UeID     int64
		EmmCause mmectx.EMMCause
	}
	CommonProcReqs []int64
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) EstablishConfirm(_ context.Context, cnf EstablishConfirm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Confirms = append(f.Confirms, cnf)
	return nil
}

func (f *Fake) EstablishReject(_ context.Context, rej EstablishReject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Rejects = append(f.Rejects, rej)
	return nil
}

func (f *Fake) SendIdentityRequest(_ context.Context, ueID int64, t IdentityType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.IdentityRequests = append(f.IdentityRequests, struct {
		UeID int64
		Type IdentityType
	}{ueID, t})
	return nil
}

func (f *Fake) SendAuthenticationRequest(_ context.Context, ueID int64, vector mmectx.AuthVector, ksi int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AuthRequests = append(f.AuthRequests, struct {
		UeID   int64
		Vector mmectx.AuthVector
		Ksi    int32
	}{ueID, vector, ksi})
	return nil
}

func (f *Fake) SendSecurityModeCommand(_ context.Context, ueID int64, sec mmectx.SecurityContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SecurityCommands = append(f.SecurityCommands, struct {
		UeID int64
		Sec  mmectx.SecurityContext
	}{ueID, sec})
	return nil
}

func (f *Fake) NotifyProcAbort(_ context.Context, ueID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ProcAborts = append(f.ProcAborts, ueID)
	return nil
}

func (f *Fake) NotifyAttachConfirm(_ context.Context, ueID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AttachConfirms = append(f.AttachConfirms, ueID)
	return nil
}

func (f *Fake) NotifyAttachReject(_ context.Context, ueID int64, cause mmectx.EMMCause) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AttachRejects = append(f.AttachRejects, struct {
		UeID     int64
		EmmCause mmectx.EMMCause
	}{ueID, cause})
	return nil
}

func (f *Fake) NotifyCommonProcedureRequest(_ context.Context, ueID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CommonProcReqs = append(f.CommonProcReqs, ueID)
	return nil
}

// LastConfirm returns the most recently recorded EstablishConfirm, if any.
func (f *Fake) LastConfirm() (EstablishConfirm, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Confirms) == 0 {
		return EstablishConfirm{}, false
	}
	return f.Confirms[len(f.Confirms)-1], true
}

var _ Service = (*Fake)(nil)
