package emm

import (
	"github.com/mohae/deepcopy"

	"github.com/omec-project/mme/context"
)

// HasChanged implements the parameter-change detector (C8). It
// compares the live context against the fields of a new Attach
// Request and reports whether the two disagree on anything that
// defines the agreed-upon security and mobility posture, grounded on
// original_source/NAS/EMM/Attach.c's _emm_attach_have_changed.
func HasChanged(ctx *context.EMMContext, req *AttachRequest) bool {
	isEmergency := req.Type == context.AttachTypeEmergency

	if ctx.IsEmergency != isEmergency {
		return true
	}
	if ctx.Ksi != req.Ksi {
		return true
	}
	if ctx.Eea != req.Eea {
		return true
	}
	if ctx.Eia != req.Eia {
		return true
	}
	if ctx.UmtsPresent != req.UmtsPresent {
		return true
	}
	if ctx.GprsPresent != req.GprsPresent {
		return true
	}
	if ctx.UmtsPresent && req.UmtsPresent {
		if ctx.Ucs2 != req.Ucs2 || ctx.Uea != req.Uea || ctx.Uia != req.Uia {
			return true
		}
	}
	if ctx.GprsPresent && req.GprsPresent && ctx.Gea != req.Gea {
		return true
	}
	// Compare against the GUTI the UE itself presented on its last
	// Attach Request, not ctx.Guti: the MME may have synthesized or
	// reallocated ctx.Guti since then, and a UE that never echoes that
	// assignment back is not presenting a changed identity, just the
	// same one it always has (spec.md 8, duplicate-idempotence). The
	// caller holds ctx.Mutex here, but the result feeds a branch that
	// later releases the lock to abort/restart, so compare against a
	// copy rather than a pointer the context can still mutate underneath.
	presentedGuti, _ := deepcopy.Copy(ctx.UePresentedGuti).(*context.GUTI)
	if !gutiEqual(presentedGuti, req.Guti) {
		return true
	}
	if ctx.Imsi != req.Imsi {
		return true
	}
	if ctx.Imei != req.Imei {
		return true
	}
	return false
}

// gutiEqual treats presence-asymmetry as a change: one side holding a
// GUTI while the other holds none counts as CHANGED (spec.md 4.3).
func gutiEqual(a, b *context.GUTI) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	if a == nil {
		return true
	}
	return a.Equal(*b)
}
