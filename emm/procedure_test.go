package emm

import (
	stdctx "context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omec-project/mme/context"
	"github.com/omec-project/mme/emmas"
	"github.com/omec-project/mme/esm"
	"github.com/omec-project/mme/identity"
)

const testImsi = "001010000000001"
const testImsiPrefix = "001010"

func testGummei() context.Gummei {
	return context.Gummei{MCC: "001", MNC: "01", MMEGroupID: 1, MMECode: 1}
}

func newTestProcedure(t *testing.T) (*Procedure, *identity.Fake, *esm.Fake, *emmas.Fake) {
	t.Helper()
	idp := identity.NewFake(testGummei())
	idp.AddSubscriber(testImsi)
	idp.SetMNCLength(testImsiPrefix, 2)

	esmSvc := esm.NewFake()
	asSvc := emmas.NewFake()
	store := context.NewStore()

	cfg := Config{
		EmergencyAttachEnable: false,
		T3450:                 TimerConfig{Enable: true, ExpireTime: time.Hour, MaxRetryTimes: context.AttachCounterMax},
	}
	p := NewProcedure(store, idp, esmSvc, asSvc, cfg, nil)
	return p, idp, esmSvc, asSvc
}

// driveToAccept runs a full clean-IMSI attach through authentication
// and security-mode control up to ATTACH ACCEPT, as scenario 1.
func driveToAccept(t *testing.T, p *Procedure, ueID int64, imsi string) {
	t.Helper()
	c := stdctx.Background()

	req := AttachRequest{
		UeID:         ueID,
		Type:         context.AttachTypeEPS,
		Imsi:         imsi,
		Eea:          0xF0,
		EsmContainer: []byte("PDN-CONNREQ"),
	}
	require.NoError(t, p.OnAttachRequest(c, req))
	require.NoError(t, p.OnAuthenticationResponse(c, ueID))
	require.NoError(t, p.OnSecurityModeComplete(c, ueID))
}

func TestCleanIMSIAttach(t *testing.T) {
	p, _, _, asSvc := newTestProcedure(t)
	driveToAccept(t, p, 7, testImsi)

	cnf, ok := asSvc.LastConfirm()
	require.True(t, ok)
	require.NotNil(t, cnf.NewGuti)
	assert.NotZero(t, cnf.NewGuti.MTmsi)

	ctx, ok := p.Store.GetByUeID(7)
	require.True(t, ok)
	assert.True(t, ctx.StatusIs(context.StatusRegisteredInitiated))
	assert.NotNil(t, ctx.T3450)

	require.NoError(t, p.OnAttachComplete(stdctx.Background(), 7, []byte("BEARER-ACT")))
	assert.True(t, ctx.IsAttached)
	assert.Nil(t, ctx.T3450)
	assert.True(t, ctx.StatusIs(context.StatusRegistered))
}

func TestDuplicateAttachIsIdempotent(t *testing.T) {
	p, _, _, asSvc := newTestProcedure(t)
	driveToAccept(t, p, 7, testImsi)
	confirmsAfterFirst := len(asSvc.Confirms)

	req := AttachRequest{
		UeID:         7,
		Type:         context.AttachTypeEPS,
		Imsi:         testImsi,
		Eea:          0xF0,
		EsmContainer: []byte("PDN-CONNREQ"),
	}
	require.NoError(t, p.OnAttachRequest(stdctx.Background(), req))

	assert.Len(t, asSvc.Confirms, confirmsAfterFirst)
	ctx, ok := p.Store.GetByUeID(7)
	require.True(t, ok)
	assert.True(t, ctx.StatusIs(context.StatusRegisteredInitiated))
}

func TestChangedCapabilitiesRestartsAttach(t *testing.T) {
	p, _, _, asSvc := newTestProcedure(t)
	driveToAccept(t, p, 7, testImsi)

	req := AttachRequest{
		UeID:         7,
		Type:         context.AttachTypeEPS,
		Imsi:         testImsi,
		Eea:          0x70,
		EsmContainer: []byte("PDN-CONNREQ"),
	}
	require.NoError(t, p.OnAttachRequest(stdctx.Background(), req))
	require.NoError(t, p.OnAuthenticationResponse(stdctx.Background(), 7))
	require.NoError(t, p.OnSecurityModeComplete(stdctx.Background(), 7))

	ctx, ok := p.Store.GetByUeID(7)
	require.True(t, ok)
	assert.Equal(t, uint8(0x70), ctx.Eea)
	assert.True(t, ctx.StatusIs(context.StatusRegisteredInitiated))

	cnf, ok := asSvc.LastConfirm()
	require.True(t, ok)
	assert.NotNil(t, cnf)
}

func TestGutiReattachRebindsUeID(t *testing.T) {
	p, _, _, _ := newTestProcedure(t)
	driveToAccept(t, p, 7, testImsi)

	ctx7, ok := p.Store.GetByUeID(7)
	require.True(t, ok)
	guti := *ctx7.Guti

	var rebound bool
	p.Store.OnUeIDChange(func(oldUeID, newUeID int64) {
		if oldUeID == 7 && newUeID == 12 {
			rebound = true
		}
	})

	req := AttachRequest{
		UeID:         12,
		Type:         context.AttachTypeEPS,
		Guti:         &guti,
		EsmContainer: []byte("PDN-CONNREQ"),
	}
	require.NoError(t, p.OnAttachRequest(stdctx.Background(), req))

	assert.True(t, rebound)
	_, stillAt7 := p.Store.GetByUeID(7)
	assert.False(t, stillAt7)
	ctx12, ok := p.Store.GetByUeID(12)
	require.True(t, ok)
	assert.Same(t, ctx7, ctx12)
	assert.Equal(t, testImsi, ctx12.Imsi)
}

func TestEmergencyAttachRejectedWhenDisabled(t *testing.T) {
	p, _, _, asSvc := newTestProcedure(t)

	req := AttachRequest{
		UeID: 9,
		Type: context.AttachTypeEmergency,
		Imei: "123456789012345",
	}
	require.NoError(t, p.OnAttachRequest(stdctx.Background(), req))

	require.Len(t, asSvc.Rejects, 1)
	assert.Equal(t, context.EMMCauseIMEINotAccepted, asSvc.Rejects[0].EmmCause)
	_, ok := p.Store.GetByUeID(9)
	assert.False(t, ok)
}

func TestT3450RetransmissionExhaustion(t *testing.T) {
	idp := identity.NewFake(testGummei())
	idp.AddSubscriber(testImsi)
	idp.SetMNCLength(testImsiPrefix, 2)
	esmSvc := esm.NewFake()
	asSvc := emmas.NewFake()
	store := context.NewStore()

	cfg := Config{
		T3450: TimerConfig{Enable: true, ExpireTime: 5 * time.Millisecond, MaxRetryTimes: context.AttachCounterMax},
	}
	p := NewProcedure(store, idp, esmSvc, asSvc, cfg, nil)

	driveToAccept(t, p, 7, testImsi)

	deadline := time.After(2 * time.Second)
	for {
		if _, ok := store.GetByUeID(7); !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("context was never released after t3450 exhaustion")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// 1 initial ATTACH ACCEPT + (ATTACH_COUNTER_MAX - 1) retransmissions.
	assert.Len(t, asSvc.Confirms, context.AttachCounterMax)
	assert.Contains(t, esmSvc.Rejected, int64(7))
	assert.Empty(t, asSvc.Rejects)
}
