package match

import (
	"fmt"

	"roaming-recon/internal/deal"
)

// DeriveDestinationType classifies a call by comparing ISO-3166 alpha-3
// country codes: home when the home and called countries agree, local when
// the visited and called countries agree, international otherwise.
//
// hcc is the home country, vcc the visited country, ccc the called country.
func DeriveDestinationType(hcc, vcc, ccc string) (deal.Destination, error) {
	for _, cc := range []string{hcc, vcc, ccc} {
		if err := checkCountryCode(cc); err != nil {
			return "", err
		}
	}

	switch {
	case hcc == ccc:
		return deal.DestinationHome, nil
	case vcc == ccc:
		return deal.DestinationLocal, nil
	default:
		return deal.DestinationInternational, nil
	}
}

func checkCountryCode(cc string) error {
	if len(cc) != 3 {
		return fmt.Errorf("country code %q is not 3 characters long", cc)
	}
	for i := 0; i < len(cc); i++ {
		if cc[i] >= 'a' && cc[i] <= 'z' {
			return fmt.Errorf("country code %q is not uppercase", cc)
		}
	}
	for i := 0; i < len(cc); i++ {
		if cc[i] < 'A' || cc[i] > 'Z' {
			return fmt.Errorf("country code %q contains non-alphabetic characters", cc)
		}
	}
	return nil
}
