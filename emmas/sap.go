// SPDX-License-Identifier: Apache-2.0

// Package emmas models the EMM<->AS service access point (spec.md 4.6,
// 6): ATTACH ACCEPT/REJECT transmission and the Identity/Authentication/
// Security-mode-control NAS messages the common procedures in the emm
// package need delivered to the UE. The lower-layer transport that
// actually carries these NAS PDUs over S1AP is an external
// collaborator out of scope for this module (spec.md 1).
package emmas

import (
	"context"

	mmectx "github.com/omec-project/mme/context"
)

// EstablishConfirm is EMMAS_ESTABLISH_CNF (spec.md 6): the primitive
// that carries ATTACH ACCEPT to the access-stratum peer.
type EstablishConfirm struct {
	UeID            int64
	OldGuti         *mmectx.GUTI
	NewGuti         *mmectx.GUTI
	Tac             uint16
	NTacs           int
	Security        *mmectx.SecurityContext
	EncryptionAlgID uint8
	IntegrityAlgID  uint8
	EsmContainer    []byte
}

// EstablishReject is EMMAS_ESTABLISH_REJ (spec.md 6): ATTACH REJECT.
type EstablishReject struct {
	UeID     int64
	EmmCause mmectx.EMMCause
	Payload  []byte
}

// Service is the EMM-facing access-stratum SAP.
type Service interface {
	// EstablishConfirm sends ATTACH ACCEPT.
	EstablishConfirm(ctx context.Context, cnf EstablishConfirm) error

	// EstablishReject sends ATTACH REJECT.
	EstablishReject(ctx context.Context, rej EstablishReject) error

	// SendIdentityRequest asks the UE for the given identity type as
	// part of the identification common procedure (spec.md 4.5).
	SendIdentityRequest(ctx context.Context, ueID int64, identityType IdentityType) error

	// SendAuthenticationRequest starts the authentication common
	// procedure with the given vector (spec.md 4.5).
	SendAuthenticationRequest(ctx context.Context, ueID int64, vector mmectx.AuthVector, ksi int32) error

	// SendSecurityModeCommand starts the security-mode-control common
	// procedure (spec.md 4.5).
	SendSecurityModeCommand(ctx context.Context, ueID int64, sec mmectx.SecurityContext) error

	// NotifyProcAbort delivers EMMREG_PROC_ABORT (spec.md 4.6): the
	// registration-management sublayer's notification that the Attach
	// procedure for ueID has been released, whether the UE ever saw a
	// reject/accept or not. Emitted by _emm_attach_release.
	NotifyProcAbort(ctx context.Context, ueID int64) error

	// NotifyAttachConfirm delivers EMMREG_ATTACH_CNF: the procedure
	// completed successfully (ATTACH COMPLETE processed).
	NotifyAttachConfirm(ctx context.Context, ueID int64) error

	// NotifyAttachReject delivers EMMREG_ATTACH_REJ: the procedure ended
	// in an ATTACH REJECT or a silent T3450-exhaustion abort.
	NotifyAttachReject(ctx context.Context, ueID int64, cause mmectx.EMMCause) error

	// NotifyCommonProcedureRequest delivers EMMREG_COMMON_PROC_REQ,
	// emitted when ATTACH ACCEPT carries an implicit GUTI reallocation
	// (both old_guti and new_guti present) rather than a first
	// assignment (spec.md 9 design note on _emm_attach_accept).
	NotifyCommonProcedureRequest(ctx context.Context, ueID int64) error
}

// IdentityType selects which identity the identification common
// procedure requests, TS 24.301 9.9.3.25.
type IdentityType int

const (
	IdentityTypeIMSI IdentityType = iota
	IdentityTypeIMEI
	IdentityTypeGUTI
)
