// SPDX-License-Identifier: Apache-2.0

package emm

import (
	stdctx "context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/omec-project/mme/context"
	"github.com/omec-project/mme/emmas"
	"github.com/omec-project/mme/esm"
	"github.com/omec-project/mme/identity"
	"github.com/omec-project/mme/logger"
	"github.com/omec-project/mme/util"
)

// Procedure is the Attach State Machine (C4) plus the
// subordinate-procedure dispatcher (C5): one instance serves every UE,
// each EMM context serialized through its own Mutex so that, per
// context, handlers run to completion without interleaving (spec.md 5).
type Procedure struct {
	Store    *context.Store
	Identity identity.Provider
	ESM      esm.Service
	AS       emmas.Service
	Config   Config
	Metrics  Recorder

	// buffers holds the live Attach Data Buffer (C3) per ueID, keyed
	// independently of the EMM context to avoid a cyclic reference
	// between buffer and context (spec.md 9 design note).
	buffers sync.Map // map[int64]*context.AttachBuffer
}

// NewProcedure wires a Procedure's collaborators and subscribes the
// identity provider to ueID-rebind notifications, mirroring how the
// GUTI re-attach law (spec.md 8) requires both the store's own index
// and any external correlation table to follow a rebind.
func NewProcedure(store *context.Store, idp identity.Provider, esmSvc esm.Service, asSvc emmas.Service, cfg Config, rec Recorder) *Procedure {
	p := &Procedure{
		Store:    store,
		Identity: idp,
		ESM:      esmSvc,
		AS:       asSvc,
		Config:   cfg,
		Metrics:  rec,
	}
	store.OnUeIDChange(func(oldUeID, newUeID int64) {
		idp.NotifyUeIDChanged(oldUeID, newUeID)
	})
	return p
}

// OnAttachRequest is the single entry point for a decoded ATTACH
// REQUEST (spec.md 4.4).
func (p *Procedure) OnAttachRequest(c stdctx.Context, req AttachRequest) error {
	if logger.EmmLog.Logger.IsLevelEnabled(logrus.DebugLevel) {
		logger.EmmLog.Debugf("attach request: %s", util.MarshToJsonString(req)[0])
	}
	if req.UeID < 0 {
		return p.rejectNoContext(c, req.UeID, context.EMMCauseIllegalUE)
	}
	if req.Type == context.AttachTypeEmergency && !p.Config.EmergencyAttachEnable {
		return p.rejectNoContext(c, req.UeID, context.EMMCauseIMEINotAccepted)
	}

	ctx, found := p.Store.GetByUeID(req.UeID)
	viaGuti := false

	if found {
		ctx.Mutex.Lock()
		beyondDeregistered := !ctx.StatusIs(context.StatusDeregistered)
		if beyondDeregistered {
			changed := HasChanged(ctx, &req)
			ctx.Mutex.Unlock()
			if changed {
				logger.EmmLog.WithField("ue_id", req.UeID).Info("attach parameters changed, aborting and restarting")
				if err := p.release(c, ctx); err != nil {
					return err
				}
				return p.OnAttachRequest(c, req)
			}
			logger.EmmLog.WithField("ue_id", req.UeID).Debug("duplicate attach request, ignoring")
			return nil
		}
		ctx.Mutex.Unlock()
	} else if req.Guti != nil {
		if existing, ok := p.Store.GetByGuti(*req.Guti); ok {
			p.Store.RebindUeID(existing, req.UeID)
			ctx = existing
			viaGuti = true
		}
	}

	if ctx == nil {
		ctx = context.NewEMMContext(req.UeID)
		p.Store.Insert(ctx)
		if p.Metrics != nil {
			p.Metrics.InFlight(1)
		}
	}

	if err := p.updateContext(c, ctx, &req); err != nil {
		return err
	}

	return p.identify(c, ctx, viaGuti)
}

func (p *Procedure) updateContext(c stdctx.Context, ctx *context.EMMContext, req *AttachRequest) error {
	ctx.Mutex.Lock()

	if req.Tai != nil {
		ctx.Tac = req.Tai.Tac
	}

	ctx.Eea = req.Eea
	ctx.Eia = req.Eia
	ctx.Ucs2 = req.Ucs2
	ctx.Uea = req.Uea
	ctx.Uia = req.Uia
	ctx.Gea = req.Gea
	ctx.UmtsPresent = req.UmtsPresent
	ctx.GprsPresent = req.GprsPresent
	ctx.Ksi = req.Ksi
	ctx.IsEmergency = req.Type == context.AttachTypeEmergency
	ctx.EsmMsg = req.EsmContainer

	if req.Imsi != "" {
		ctx.Imsi = req.Imsi
	}
	if req.Imei != "" {
		ctx.Imei = req.Imei
	}

	ctx.UePresentedGuti = req.Guti

	if req.Guti != nil && !gutiEqual(ctx.Guti, req.Guti) {
		old := ctx.Guti
		ctx.Guti = req.Guti
		p.Store.IndexGuti(ctx, old, ctx.Guti)
	}

	needSynthesis := ctx.Guti == nil && ctx.Imsi != ""
	imsi := ctx.Imsi
	ctx.Mutex.Unlock()

	if !needSynthesis {
		return nil
	}

	if err := validateImsiPlmn(c, p.Identity, imsi); err != nil {
		p.rejectWithCause(c, ctx, context.EMMCauseIllegalUE)
		return err
	}
	guti, tac, nTacs, err := p.Identity.NewGUTI(c, imsi)
	if err != nil {
		p.rejectWithCause(c, ctx, context.EMMCauseIllegalUE)
		return fmt.Errorf("emm: synthesize guti: %w", err)
	}

	ctx.Mutex.Lock()
	old := ctx.Guti
	ctx.Guti = &guti
	ctx.GutiIsNew = true
	ctx.Tac = tac
	ctx.NTacs = nTacs
	p.Store.IndexGuti(ctx, old, ctx.Guti)
	ctx.Mutex.Unlock()
	return nil
}

// identify implements _emm_attach_identify (spec.md 4.5): selects an
// identification strategy by the highest-priority identity present.
func (p *Procedure) identify(c stdctx.Context, ctx *context.EMMContext, viaGuti bool) error {
	ctx.Mutex.Lock()
	imsi := ctx.Imsi
	imei := ctx.Imei
	guti := ctx.Guti
	hasSecurity := ctx.Security != nil
	isEmergency := ctx.IsEmergency
	ctx.Mutex.Unlock()

	if viaGuti && p.Config.ForceIdentifyOnGuti {
		return p.requestIdentity(c, ctx)
	}

	switch {
	case imsi != "" && !hasSecurity:
		vector, err := p.Identity.AuthInfoReq(c, ctx.UeID, imsi, 1, "")
		if err != nil {
			p.rejectWithCause(c, ctx, context.EMMCauseIllegalUE)
			return err
		}
		ctx.Mutex.Lock()
		ctx.Vector = vector
		ctx.Mutex.Unlock()
		return p.afterIdentification(c, ctx)

	case imsi != "" && hasSecurity:
		if err := p.Identity.IdentifyIMSI(c, imsi); err != nil {
			p.rejectWithCause(c, ctx, context.EMMCauseIllegalUE)
			return err
		}
		newGuti, tac, nTacs, err := p.Identity.NewGUTI(c, imsi)
		if err != nil {
			p.rejectWithCause(c, ctx, context.EMMCauseIllegalUE)
			return fmt.Errorf("emm: reallocate guti: %w", err)
		}
		ctx.Mutex.Lock()
		ctx.OldGuti = ctx.Guti
		ctx.Guti = &newGuti
		ctx.GutiIsNew = true
		ctx.Tac = tac
		ctx.NTacs = nTacs
		p.Store.IndexGuti(ctx, ctx.OldGuti, ctx.Guti)
		ctx.Mutex.Unlock()
		return p.afterIdentification(c, ctx)

	case imsi == "" && guti != nil:
		return p.requestIdentity(c, ctx)

	case imei != "" && isEmergency:
		if err := p.Identity.IdentifyIMEI(c, imei); err != nil {
			p.rejectWithCause(c, ctx, context.EMMCauseIMEINotAccepted)
			return err
		}
		return p.afterIdentification(c, ctx)

	default:
		p.rejectWithCause(c, ctx, context.EMMCauseIllegalUE)
		return fmt.Errorf("emm: ue %d has no usable identity", ctx.UeID)
	}
}

// requestIdentity suspends the procedure on the identification common
// procedure; OnIdentityResponse resumes it.
func (p *Procedure) requestIdentity(c stdctx.Context, ctx *context.EMMContext) error {
	ctx.Mutex.Lock()
	ctx.PendingProcedure = context.PendingIdentification
	ctx.SetStatus(context.StatusCommonProcedureInitiated)
	ctx.Mutex.Unlock()

	if err := p.AS.SendIdentityRequest(c, ctx.UeID, emmas.IdentityTypeIMSI); err != nil {
		_ = p.release(c, ctx)
		return err
	}
	return nil
}

// OnIdentityResponse resumes identify() once the UE has answered an
// IDENTITY REQUEST with its IMSI.
func (p *Procedure) OnIdentityResponse(c stdctx.Context, ueID int64, imsi string) error {
	ctx, ok := p.Store.GetByUeID(ueID)
	if !ok {
		logger.EmmLog.WithField("ue_id", ueID).Warn("identity response for unknown ue")
		return nil
	}
	ctx.Mutex.Lock()
	ctx.Imsi = imsi
	ctx.PendingProcedure = context.PendingNone
	ctx.Mutex.Unlock()
	return p.identify(c, ctx, false)
}

func (p *Procedure) afterIdentification(c stdctx.Context, ctx *context.EMMContext) error {
	ctx.Mutex.Lock()
	hasSecurity := ctx.Security != nil
	unauthenticatedEmergency := ctx.IsEmergency && p.Config.UnauthenticatedImsiEnable
	ctx.Mutex.Unlock()

	switch {
	case hasSecurity:
		return p.attach(c, ctx)
	case unauthenticatedEmergency:
		return p.securityPhase(c, ctx)
	default:
		return p.authenticate(c, ctx)
	}
}

func (p *Procedure) authenticate(c stdctx.Context, ctx *context.EMMContext) error {
	ctx.Mutex.Lock()
	vector := ctx.Vector
	ksi := ctx.Ksi
	imsi := ctx.Imsi
	ctx.Mutex.Unlock()

	if vector == nil {
		v, err := p.Identity.AuthInfoReq(c, ctx.UeID, imsi, 1, "")
		if err != nil {
			p.rejectWithCause(c, ctx, context.EMMCauseIllegalUE)
			return err
		}
		vector = v
		ctx.Mutex.Lock()
		ctx.Vector = vector
		ctx.Mutex.Unlock()
	}

	ctx.Mutex.Lock()
	ctx.PendingProcedure = context.PendingAuthentication
	ctx.SetStatus(context.StatusCommonProcedureInitiated)
	ctx.Mutex.Unlock()

	if err := p.AS.SendAuthenticationRequest(c, ctx.UeID, *vector, ksi); err != nil {
		_ = p.release(c, ctx)
		return err
	}
	return nil
}

// OnAuthenticationResponse resumes the procedure after the UE's
// AUTHENTICATION RESPONSE has been accepted by the access-stratum
// peer (RES verification is an AS-layer collaborator concern).
func (p *Procedure) OnAuthenticationResponse(c stdctx.Context, ueID int64) error {
	ctx, ok := p.Store.GetByUeID(ueID)
	if !ok {
		return nil
	}
	ctx.Mutex.Lock()
	ctx.PendingProcedure = context.PendingNone
	ctx.Mutex.Unlock()
	return p.securityPhase(c, ctx)
}

// OnAuthenticationFailure is the failure/release continuation for the
// authentication common procedure.
func (p *Procedure) OnAuthenticationFailure(c stdctx.Context, ueID int64) error {
	ctx, ok := p.Store.GetByUeID(ueID)
	if !ok {
		return nil
	}
	return p.release(c, ctx)
}

func (p *Procedure) securityPhase(c stdctx.Context, ctx *context.EMMContext) error {
	ctx.Mutex.Lock()
	if ctx.Security == nil {
		ctx.Security = context.NewNullSecurityContext()
	}
	sec := *ctx.Security
	ctx.PendingProcedure = context.PendingSecurityMode
	ctx.SetStatus(context.StatusCommonProcedureInitiated)
	ctx.Mutex.Unlock()

	if err := p.AS.SendSecurityModeCommand(c, ctx.UeID, sec); err != nil {
		_ = p.release(c, ctx)
		return err
	}
	return nil
}

// OnSecurityModeComplete is the success continuation for
// security-mode-control: proceed to _emm_attach.
func (p *Procedure) OnSecurityModeComplete(c stdctx.Context, ueID int64) error {
	ctx, ok := p.Store.GetByUeID(ueID)
	if !ok {
		return nil
	}
	ctx.Mutex.Lock()
	ctx.PendingProcedure = context.PendingNone
	ctx.Mutex.Unlock()
	return p.attach(c, ctx)
}

// OnSecurityModeReject is the failure/release continuation for
// security-mode-control.
func (p *Procedure) OnSecurityModeReject(c stdctx.Context, ueID int64) error {
	ctx, ok := p.Store.GetByUeID(ueID)
	if !ok {
		return nil
	}
	return p.release(c, ctx)
}

// attach implements _emm_attach: forward the ESM container and, on
// success, send ATTACH ACCEPT.
func (p *Procedure) attach(c stdctx.Context, ctx *context.EMMContext) error {
	ctx.Mutex.Lock()
	esmContainer := ctx.EsmMsg
	ctx.Mutex.Unlock()

	result, err := p.ESM.PDNConnectivityRequest(c, ctx.UeID, esmContainer)
	if err != nil {
		ctx.Mutex.Lock()
		ctx.EmmCause = context.EMMCauseESMFailure
		ctx.Mutex.Unlock()
		return p.reject(c, ctx)
	}

	switch result.Status {
	case esm.StatusSuccess:
		buf := context.NewAttachBuffer(ctx.UeID, result.Pdu)
		p.buffers.Store(ctx.UeID, buf)
		return p.sendAttachAccept(c, ctx, buf)
	case esm.StatusDiscarded:
		logger.EmmLog.WithField("ue_id", ctx.UeID).Debug("esm pdn connectivity discarded, treating as success")
		return nil
	default:
		ctx.Mutex.Lock()
		ctx.EmmCause = context.EMMCauseESMFailure
		ctx.EsmMsg = result.Pdu
		ctx.Mutex.Unlock()
		return p.reject(c, ctx)
	}
}

// sendAttachAccept implements send_attach_accept (spec.md 4.4): builds
// EMMAS_ESTABLISH_CNF per the GUTI-selection rules and arms T3450.
func (p *Procedure) sendAttachAccept(c stdctx.Context, ctx *context.EMMContext, buf *context.AttachBuffer) error {
	ctx.Mutex.Lock()
	cnf := emmas.EstablishConfirm{
		UeID:         ctx.UeID,
		Tac:          ctx.Tac,
		NTacs:        ctx.NTacs,
		Security:     ctx.Security,
		EsmContainer: buf.EsmMsg,
	}
	switch {
	case ctx.GutiIsNew && ctx.OldGuti != nil:
		cnf.OldGuti = ctx.OldGuti
		cnf.NewGuti = ctx.Guti
	case ctx.GutiIsNew:
		cnf.NewGuti = ctx.Guti
	default:
		cnf.NewGuti = ctx.Guti
	}
	if ctx.Security != nil {
		cnf.EncryptionAlgID = ctx.Security.CipheringAlg
		cnf.IntegrityAlgID = ctx.Security.IntegrityAlg
	}
	guti := ctx.Guti
	implicitRealloc := ctx.GutiIsNew && ctx.OldGuti != nil
	ctx.Mutex.Unlock()

	if err := p.AS.EstablishConfirm(c, cnf); err != nil {
		return err
	}
	if guti != nil {
		p.Identity.NotifyNewGUTI(ctx.UeID, *guti)
	}
	if implicitRealloc {
		if err := p.AS.NotifyCommonProcedureRequest(c, ctx.UeID); err != nil {
			logger.EmmLog.WithField("ue_id", ctx.UeID).Errorf("emmreg common proc req notification failed: %v", err)
		}
	}

	ctx.Mutex.Lock()
	if ctx.T3450 != nil {
		ctx.T3450.Restart()
	} else {
		ctx.T3450 = context.NewTimer(p.Config.T3450.ExpireTime, func() { p.onT3450Expire(ctx, buf) })
	}
	ctx.SetStatus(context.StatusRegisteredInitiated)
	ctx.Mutex.Unlock()

	return nil
}

// onT3450Expire implements the T3450 expiry handler (spec.md 4.4): the
// retry count lives on the Attach Data Buffer, not on the timer, so
// restarting T3450 to retransmit never resets the bound. Once the
// count reaches ATTACH_COUNTER_MAX, abort instead of retransmitting
// again.
func (p *Procedure) onT3450Expire(ctx *context.EMMContext, buf *context.AttachBuffer) {
	buf.Retries++
	retry := int32(buf.Retries)
	if retry < context.AttachCounterMax {
		ctx.Log.Debugw("t3450 expired, retransmitting attach accept", "retry", retry)
		logger.TimerLog.WithFields(logrus.Fields{"ue_id": ctx.UeID, "retry": retry}).Debug("t3450 expired, retransmitting attach accept")
		if p.Metrics != nil {
			p.Metrics.T3450Retries(retry)
		}
		if err := p.sendAttachAccept(stdctx.Background(), ctx, buf); err != nil {
			logger.EmmLog.WithField("ue_id", ctx.UeID).Errorf("attach accept retransmission failed: %v", err)
		}
		return
	}

	logger.TimerLog.WithField("ue_id", ctx.UeID).Info("t3450 exhausted, aborting attach")
	if err := p.abort(stdctx.Background(), ctx, buf); err != nil {
		logger.EmmLog.WithField("ue_id", ctx.UeID).Errorf("attach abort failed: %v", err)
	}
}

// OnAttachComplete implements on_attach_complete (spec.md 4.4).
func (p *Procedure) OnAttachComplete(c stdctx.Context, ueID int64, esmContainer []byte) error {
	p.buffers.Delete(ueID)

	ctx, ok := p.Store.GetByUeID(ueID)
	if !ok {
		logger.EmmLog.WithField("ue_id", ueID).Warn("attach complete for unknown ue")
		return nil
	}

	ctx.Mutex.Lock()
	if ctx.T3450 != nil {
		ctx.T3450.Stop()
		ctx.T3450 = nil
	}
	ctx.ClearOnAttachComplete()
	ctx.Mutex.Unlock()

	result, err := p.ESM.DefaultBearerActivateConfirm(c, ueID, esmContainer)
	if err != nil {
		logger.EmmLog.WithField("ue_id", ueID).Errorf("default bearer activate confirm failed: %v", err)
		ctx.Mutex.Lock()
		ctx.SetStatus(context.StatusDeregistered)
		ctx.Mutex.Unlock()
		if p.Metrics != nil {
			p.Metrics.AttachRejected(context.EMMCauseProtocolError)
		}
		if notifyErr := p.AS.NotifyAttachReject(c, ueID, context.EMMCauseProtocolError); notifyErr != nil {
			logger.EmmLog.WithField("ue_id", ueID).Errorf("emmreg attach reject notification failed: %v", notifyErr)
		}
		return err
	}

	switch result.Status {
	case esm.StatusSuccess:
		ctx.Mutex.Lock()
		ctx.IsAttached = true
		ctx.EsmMsg = nil
		ctx.SetStatus(context.StatusRegistered)
		ctx.Mutex.Unlock()
		ctx.Log.Infow("attach complete", "status", "registered")
		if p.Metrics != nil {
			p.Metrics.AttachAccepted()
		}
		if notifyErr := p.AS.NotifyAttachConfirm(c, ueID); notifyErr != nil {
			logger.EmmLog.WithField("ue_id", ueID).Errorf("emmreg attach confirm notification failed: %v", notifyErr)
		}
		return nil
	case esm.StatusDiscarded:
		return nil
	default:
		logger.EmmLog.WithField("ue_id", ueID).Warn("default bearer activation rejected")
		ctx.Mutex.Lock()
		ctx.SetStatus(context.StatusDeregistered)
		ctx.Mutex.Unlock()
		if p.Metrics != nil {
			p.Metrics.AttachRejected(context.EMMCauseESMFailure)
		}
		if notifyErr := p.AS.NotifyAttachReject(c, ueID, context.EMMCauseESMFailure); notifyErr != nil {
			logger.EmmLog.WithField("ue_id", ueID).Errorf("emmreg attach reject notification failed: %v", notifyErr)
		}
		return nil
	}
}

// abort implements _emm_attach_abort: T3450 exhaustion is silent to
// the UE (no ATTACH REJECT), but ESM and the release path still run.
func (p *Procedure) abort(c stdctx.Context, ctx *context.EMMContext, buf *context.AttachBuffer) error {
	ctx.Mutex.Lock()
	if ctx.T3450 != nil {
		ctx.T3450.Stop()
		ctx.T3450 = nil
	}
	ctx.Mutex.Unlock()

	p.buffers.Delete(ctx.UeID)
	if err := p.ESM.PDNConnectivityReject(c, ctx.UeID); err != nil {
		logger.EmmLog.WithField("ue_id", ctx.UeID).Errorf("pdn connectivity reject failed: %v", err)
	}
	if err := p.AS.NotifyAttachReject(c, ctx.UeID, context.EMMCauseProtocolError); err != nil {
		logger.EmmLog.WithField("ue_id", ctx.UeID).Errorf("emmreg attach reject notification failed: %v", err)
	}
	if p.Metrics != nil {
		p.Metrics.AttachAborted()
	}
	return p.release(c, ctx)
}

// release implements _emm_attach_release: stop timers, unindex the
// context (while its GUTI is still set), free identity and security
// material, and drop the context, then notify the
// registration-management sublayer that the procedure is gone
// (spec.md 4.4, 4.6).
func (p *Procedure) release(c stdctx.Context, ctx *context.EMMContext) error {
	ctx.Mutex.Lock()
	ctx.StopTimers()
	p.Store.Remove(ctx)
	ctx.ClearIdentities()
	ctx.Mutex.Unlock()

	p.buffers.Delete(ctx.UeID)
	if err := p.AS.NotifyProcAbort(c, ctx.UeID); err != nil {
		logger.EmmLog.WithField("ue_id", ctx.UeID).Errorf("emmreg proc abort notification failed: %v", err)
	}
	return nil
}

// reject implements _emm_attach_reject.
func (p *Procedure) reject(c stdctx.Context, ctx *context.EMMContext) error {
	ctx.Mutex.Lock()
	if ctx.EmmCause == context.EMMCauseSuccess {
		ctx.EmmCause = context.EMMCauseIllegalUE
	}
	cause := ctx.EmmCause
	var payload []byte
	if cause == context.EMMCauseESMFailure {
		if len(ctx.EsmMsg) == 0 {
			ctx.Mutex.Unlock()
			logger.EmmLog.WithField("ue_id", ctx.UeID).Error("reject with ESM_FAILURE but no ESM pdu")
			_ = p.release(c, ctx)
			return fmt.Errorf("emm: ue %d rejected with ESM_FAILURE but no ESM pdu", ctx.UeID)
		}
		payload = ctx.EsmMsg
	}
	isDynamic := ctx.IsDynamic
	ueID := ctx.UeID
	ctx.Mutex.Unlock()

	err := p.AS.EstablishReject(c, emmas.EstablishReject{UeID: ueID, EmmCause: cause, Payload: payload})
	if notifyErr := p.AS.NotifyAttachReject(c, ueID, cause); notifyErr != nil {
		logger.EmmLog.WithField("ue_id", ueID).Errorf("emmreg attach reject notification failed: %v", notifyErr)
	}
	if p.Metrics != nil {
		p.Metrics.AttachRejected(cause)
	}
	if isDynamic {
		_ = p.release(c, ctx)
	}
	return err
}

// rejectWithCause sets emm_cause then rejects.
func (p *Procedure) rejectWithCause(c stdctx.Context, ctx *context.EMMContext, cause context.EMMCause) {
	ctx.Mutex.Lock()
	ctx.EmmCause = cause
	ctx.Mutex.Unlock()
	_ = p.reject(c, ctx)
}

// rejectNoContext rejects a request that never got far enough to have
// an EMM context (steps 1-2 of on_attach_request).
func (p *Procedure) rejectNoContext(c stdctx.Context, ueID int64, cause context.EMMCause) error {
	if p.Metrics != nil {
		p.Metrics.AttachRejected(cause)
	}
	return p.AS.EstablishReject(c, emmas.EstablishReject{UeID: ueID, EmmCause: cause})
}
