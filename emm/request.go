// SPDX-License-Identifier: Apache-2.0

// Package emm implements the MME-side EPS Attach procedure (spec.md
// 4.4): the Attach State Machine (C4), the subordinate-procedure
// dispatcher (C5), and the parameter-change detector (C8). It is
// grounded on the teacher's gmm package -- one function per NAS
// message/continuation, driving a context.EMMContext through its FSM
// states -- generalized from 5GS Registration to EPS Attach.
package emm

import "github.com/omec-project/mme/context"

// TAI is a Tracking Area Identity, TS 23.003 19.4.2.3.
type TAI struct {
	MCC string
	MNC string
	Tac uint16
}

// AttachRequest carries the fields of a decoded ATTACH REQUEST that
// on_attach_request needs (spec.md 4.4). Message decoding itself is
// out of scope (spec.md 1); the caller (the NAS message dispatcher)
// is responsible for producing this from the wire PDU.
type AttachRequest struct {
	UeID int64
	Type context.AttachType

	NativeKsi bool
	Ksi       int32

	NativeGuti bool
	Guti       *context.GUTI
	Imsi       string
	Imei       string

	Tai *TAI

	Eea         uint8
	Eia         uint8
	Ucs2        bool
	Uea         uint8
	Uia         uint8
	Gea         uint8
	UmtsPresent bool
	GprsPresent bool

	EsmContainer []byte
}
