package emm

import (
	"context"
	"fmt"

	"github.com/omec-project/mme/identity"
)

// validateImsiPlmn checks that the 6-digit MCC+MNC prefix of imsi
// resolves to an unambiguous MNC length before a GUTI is synthesized
// from it (spec.md 4.4 step 5).
func validateImsiPlmn(ctx context.Context, idp identity.Provider, imsi string) error {
	if len(imsi) < 6 {
		return fmt.Errorf("emm: imsi %q too short to derive a PLMN prefix", imsi)
	}
	_, err := idp.FindMNCLength(imsi[:6])
	return err
}
