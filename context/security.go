package context

// Algorithm identifiers, TS 33.401 5.1.3/5.1.4. Only the null
// algorithms are meaningful to the Attach core itself -- key
// derivation and ciphering are owned by collaborators outside this
// module's scope (spec.md 1).
const (
	AlgEEA0 uint8 = 0
	AlgEIA0 uint8 = 0
)

// KeySetIdentifier sentinel, TS 24.301 9.11.3.32.
const KsiNotAvailable int32 = 7

// SecurityContext is the NAS security context installed on an EMM
// context once security-mode-control succeeds (spec.md 3).
type SecurityContext struct {
	Type         SecurityContextType
	Ksi          int32
	KAsme        []byte
	KNasEnc      []byte
	KNasInt      []byte
	CipheringAlg uint8
	IntegrityAlg uint8
}

// SecurityContextType distinguishes a context derived from a full AKA
// run from the null placeholder the Attach core installs before
// security-mode control whenever the EMM context has none yet.
type SecurityContextType int

const (
	SecurityContextTypeNotAvailable SecurityContextType = iota
	SecurityContextTypeNative
)

// NewNullSecurityContext returns the zero-initialized context
// `_emm_attach_security` installs before invoking security-mode
// control: KSI_NOT_AVAILABLE, EEA0/EIA0 selected (spec.md 4.5).
func NewNullSecurityContext() *SecurityContext {
	return &SecurityContext{
		Type:         SecurityContextTypeNotAvailable,
		Ksi:          KsiNotAvailable,
		CipheringAlg: AlgEEA0,
		IntegrityAlg: AlgEIA0,
	}
}

// AuthVector is an E-UTRAN authentication vector, TS 33.401 6.1.1.
type AuthVector struct {
	RAND  []byte
	AUTN  []byte
	XRES  []byte
	KASME []byte
}
