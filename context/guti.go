package context

import "fmt"

// Gummei is the Globally Unique MME Identifier embedded in a GUTI,
// TS 23.003 2.10.1.
type Gummei struct {
	MCC       string
	MNC       string
	MMEGroupID uint16
	MMECode    uint8
}

// Equal compares all four GUMMEI digits/fields, as required by the
// parameter-change detector (spec.md 4.3): a GUTI match requires every
// digit of the embedded GUMMEI to match, not just the m_tmsi.
func (g Gummei) Equal(o Gummei) bool {
	return g.MCC == o.MCC && g.MNC == o.MNC &&
		g.MMEGroupID == o.MMEGroupID && g.MMECode == o.MMECode
}

// GUTI is the Globally Unique Temporary Identity, TS 23.003 2.8.
type GUTI struct {
	Gummei Gummei
	MTmsi  uint32
}

// Equal implements the identity comparison from spec.md 4.3: equal iff
// both the m_tmsi and every digit of the embedded GUMMEI match.
func (g GUTI) Equal(o GUTI) bool {
	return g.MTmsi == o.MTmsi && g.Gummei.Equal(o.Gummei)
}

func (g GUTI) String() string {
	return fmt.Sprintf("%s%s-%d-%d-%08x", g.Gummei.MCC, g.Gummei.MNC, g.Gummei.MMEGroupID, g.Gummei.MMECode, g.MTmsi)
}

// Key returns a value usable as a map key for the GUTI index.
func (g GUTI) Key() string {
	return g.String()
}
