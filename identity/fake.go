package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/omec-project/util/idgenerator"

	mmectx "github.com/omec-project/mme/context"
)

// Fake is an in-memory Provider backed by a static subscriber table.
// It is not a production HSS/UDM client -- it exists so the emm
// package's tests and the cmd/mme-attach-sim demo harness have a
// concrete, deterministic Provider to drive the Attach core against,
// the same role the teacher's mock_gmm.go plays for the GMM FSM.
type Fake struct {
	mu          sync.Mutex
	subscribers map[string]struct{} // known IMSIs
	equipment   map[string]struct{} // known IMEIs
	mncLengths  map[string]int      // 6-digit MCC+MNC prefix -> length

	// tmsiGen synthesizes m_tmsi values the same way the teacher's
	// AMFContext.TmsiAllocate does: a monotonic unique allocator, not
	// a pointer cast (spec.md 9 open question).
	tmsiGen *idgenerator.IDGenerator

	gummei mmectx.Gummei
}

// NewFake builds a Fake provider serving the given GUMMEI for newly
// synthesized GUTIs.
func NewFake(gummei mmectx.Gummei) *Fake {
	return &Fake{
		subscribers: make(map[string]struct{}),
		equipment:   make(map[string]struct{}),
		mncLengths:  make(map[string]int),
		tmsiGen:     idgenerator.NewGenerator(1, 2147483647),
		gummei:      gummei,
	}
}

// AddSubscriber registers imsi as a known subscriber.
func (f *Fake) AddSubscriber(imsi string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribers[imsi] = struct{}{}
}

// AddEquipment registers imei as known equipment.
func (f *Fake) AddEquipment(imei string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.equipment[imei] = struct{}{}
}

// SetMNCLength configures the MNC length for a 6-digit MCC+MNC prefix.
// FindMNCLength accepts only a stored length of 2 or 3.
func (f *Fake) SetMNCLength(mccMnc string, length int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mncLengths[mccMnc] = length
}

func (f *Fake) IdentifyIMSI(_ context.Context, imsi string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subscribers[imsi]; !ok {
		return ErrIdentityRejected
	}
	return nil
}

func (f *Fake) IdentifyIMEI(_ context.Context, imei string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.equipment[imei]; !ok {
		return ErrIdentityRejected
	}
	return nil
}

func (f *Fake) AuthInfoReq(_ context.Context, _ int64, imsi string, _ int, _ string) (*mmectx.AuthVector, error) {
	if err := f.IdentifyIMSI(context.Background(), imsi); err != nil {
		return nil, err
	}
	v := &mmectx.AuthVector{
		RAND:  randomBytes(16),
		AUTN:  randomBytes(16),
		XRES:  randomBytes(8),
		KASME: randomBytes(32),
	}
	return v, nil
}

func (f *Fake) NewGUTI(_ context.Context, imsi string) (mmectx.GUTI, uint16, int, error) {
	tmsi, err := f.tmsiGen.Allocate()
	if err != nil {
		return mmectx.GUTI{}, 0, 0, fmt.Errorf("identity: allocate m_tmsi: %w", err)
	}
	return mmectx.GUTI{
		Gummei: f.gummei,
		MTmsi:  uint32(tmsi),
	}, 1, 1, nil
}

func (f *Fake) NotifyUeIDChanged(oldUeID, newUeID int64) {}

func (f *Fake) NotifyNewGUTI(ueID int64, guti mmectx.GUTI) {}

func (f *Fake) FindMNCLength(mccMnc string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.mncLengths[mccMnc]; ok && (l == 2 || l == 3) {
		return l, nil
	}
	return 0, ErrAmbiguousMNCLength
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

var _ Provider = (*Fake)(nil)
