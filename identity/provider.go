// SPDX-License-Identifier: Apache-2.0

// Package identity declares the contract of the subscriber-identity
// provider collaborator named in spec.md 1/6: IMSI/IMEI/GUTI
// verification, authentication-vector retrieval, GUTI allocation, and
// the PLMN-to-MNC-length lookup used when synthesizing a GUTI from an
// IMSI. The Attach core never talks to an HSS/UDM directly -- it only
// ever calls through this interface.
package identity

import (
	"context"
	"errors"

	mmectx "github.com/omec-project/mme/context"
)

// ErrAmbiguousMNCLength is returned by a Provider when a PLMN's MNC
// length cannot be determined to be 2 or 3 digits (spec.md 4.4 step 5).
var ErrAmbiguousMNCLength = errors.New("identity: MNC length is neither 2 nor 3 digits")

// ErrIdentityRejected is returned when IMSI/IMEI verification fails.
var ErrIdentityRejected = errors.New("identity: identity verification rejected")

// Provider is the subscriber-identity provider SAP (spec.md 6).
type Provider interface {
	// IdentifyIMSI verifies that an IMSI presented alongside an existing
	// security context is a known subscriber.
	IdentifyIMSI(ctx context.Context, imsi string) error

	// IdentifyIMEI verifies an IMEI for an emergency attach.
	IdentifyIMEI(ctx context.Context, imei string) error

	// AuthInfoReq fetches a fresh authentication vector for imsi.
	// lastVisitedPLMN is advisory and may be empty.
	AuthInfoReq(ctx context.Context, ueID int64, imsi string, numVectors int, lastVisitedPLMN string) (*mmectx.AuthVector, error)

	// NewGUTI allocates a fresh GUTI for imsi, returning the GUTI and
	// the tracking-area assignment that goes with it.
	NewGUTI(ctx context.Context, imsi string) (guti mmectx.GUTI, tac uint16, nTacs int, err error)

	// NotifyUeIDChanged mirrors context.Store's rebind observer at the
	// identity-provider boundary, so external correlation tables can
	// follow a GUTI re-attach too.
	NotifyUeIDChanged(oldUeID, newUeID int64)

	// NotifyNewGUTI informs the identity provider that ueID now owns guti.
	NotifyNewGUTI(ueID int64, guti mmectx.GUTI)

	// FindMNCLength resolves the MNC length (2 or 3) for the 6-digit
	// MCC+MNC prefix embedded in an IMSI. Returns ErrAmbiguousMNCLength
	// if it cannot be determined.
	FindMNCLength(mccMnc string) (int, error)
}
