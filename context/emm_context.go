package context

import (
	"sync"

	"go.uber.org/zap"

	"github.com/omec-project/util/fsm"
)

// contextLog is the base structured logger every EMMContext's per-UE
// Log field is derived from via .With, the same zap.SugaredLogger
// pattern the teacher's AmfRan.Log/RanUe.Log use for per-connection
// fields layered onto a shared base logger.
var contextLog = zap.NewNop().Sugar()

// SetBaseLogger replaces the base logger new contexts derive their
// per-UE Log from.
func SetBaseLogger(l *zap.SugaredLogger) {
	contextLog = l
}

// EMMContext is the per-UE EMM context, spec.md 3. One is created (or
// reused) for every Attach attempt and lives in the Store for as long
// as the UE is known to the MME.
type EMMContext struct {
	Mutex sync.Mutex `json:"-"`

	UeID      int64
	IsDynamic bool

	// Log carries ue_id as a structured field on every line, the same
	// role AmfRan.Log/RanUe.Log play for NGAP connections in the
	// teacher.
	Log *zap.SugaredLogger `json:"-"`

	Guti       *GUTI
	OldGuti    *GUTI
	GutiIsNew  bool

	// UePresentedGuti is the GUTI field carried on the most recently
	// processed ATTACH REQUEST, as opposed to Guti which may be one the
	// MME itself synthesized or reallocated. The parameter-change
	// detector compares against this, not Guti, so an MME-assigned GUTI
	// the UE hasn't echoed back yet is never mistaken for a
	// presence-asymmetry change on a duplicate resend (spec.md 8).
	UePresentedGuti *GUTI

	Imsi string
	Imei string

	Security *SecurityContext
	Vector   *AuthVector

	// Capability fields, TS 24.301 9.9.3.34 (eea/eia) and legacy 2G/3G
	// capability IEs carried for interworking.
	Eea          uint8
	Eia          uint8
	Ucs2         bool
	Uea          uint8
	Uia          uint8
	Gea          uint8
	UmtsPresent  bool
	GprsPresent  bool
	Ksi          int32

	Tac   uint16
	NTacs int

	IsEmergency bool
	IsAttached  bool

	EmmCause EMMCause
	EsmMsg   []byte

	fsmState *fsm.State

	T3450 *Timer
	T3460 *Timer
	T3470 *Timer

	// PendingProcedure is bookkeeping internal to this implementation,
	// not part of the wire-visible EMM context: it tells a resumed
	// common-procedure handler (identity/authentication/security-mode
	// response) which subordinate procedure is currently outstanding.
	// It is always consistent with fsmState == StatusCommonProcedureInitiated.
	PendingProcedure PendingProcedure
}

// PendingProcedure names the subordinate common procedure (spec.md 4.5,
// C5) an EMM context is currently waiting on a NAS response for.
type PendingProcedure int

const (
	PendingNone PendingProcedure = iota
	PendingIdentification
	PendingAuthentication
	PendingSecurityMode
)

// NewEMMContext builds a fresh dynamic context in DEREGISTERED state,
// as step 3 of on_attach_request does when no context and no
// resolvable GUTI are found (spec.md 4.4).
func NewEMMContext(ueID int64) *EMMContext {
	ctx := &EMMContext{
		UeID:      ueID,
		IsDynamic: true,
		EmmCause:  EMMCauseSuccess,
		Ksi:       KsiNotAvailable,
		Log:       contextLog.With("ue_id", ueID),
	}
	ctx.fsmState = fsm.NewState(fsm.StateType(StatusDeregistered))
	return ctx
}

// Status returns the current coarse FSM state.
func (c *EMMContext) Status() FSMStatus {
	return FSMStatus(c.fsmState.Current())
}

// SetStatus transitions the FSM state.
func (c *EMMContext) SetStatus(s FSMStatus) {
	c.fsmState.Set(fsm.StateType(s))
}

// StatusIs reports whether the FSM is currently in state s.
func (c *EMMContext) StatusIs(s FSMStatus) bool {
	return c.fsmState.Is(fsm.StateType(s))
}

// StopTimers stops T3450/T3460/T3470 unconditionally, used by release
// and by abort paths (spec.md 4.4 _emm_attach_release).
func (c *EMMContext) StopTimers() {
	if c.T3450 != nil {
		c.T3450.Stop()
		c.T3450 = nil
	}
	if c.T3460 != nil {
		c.T3460.Stop()
		c.T3460 = nil
	}
	if c.T3470 != nil {
		c.T3470.Stop()
		c.T3470 = nil
	}
}

// ClearIdentities releases identity and security material, used by
// release (spec.md 3 "Releasing a context releases... identity
// fields, ESM buffer, security keys").
func (c *EMMContext) ClearIdentities() {
	c.Imsi = ""
	c.Imei = ""
	c.Guti = nil
	c.OldGuti = nil
	c.GutiIsNew = false
	c.UePresentedGuti = nil
	c.Security = nil
	c.Vector = nil
	c.EsmMsg = nil
}

// ClearOnAttachComplete implements the GUTI bookkeeping reset that
// ATTACH COMPLETE performs unconditionally: old_guti and guti_is_new
// are cleared together (spec.md 3 invariant, 4.4).
func (c *EMMContext) ClearOnAttachComplete() {
	c.OldGuti = nil
	c.GutiIsNew = false
}
