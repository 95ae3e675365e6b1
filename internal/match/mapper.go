package match

import (
	"fmt"
	"slices"

	"roaming-recon/internal/deal"

	"github.com/google/uuid"
)

// Mapper attributes usage records to the rate entities of a single deal.
// Candidate lists are scanned in document order and the first entity whose
// service, party lists and destination all cover the record wins.
type Mapper struct {
	deal *deal.Deal
}

// NewMapper returns a mapper over a validated deal rendered for the
// organisation whose usage is being attributed.
func NewMapper(d *deal.Deal) *Mapper {
	return &Mapper{deal: d}
}

// Map attributes a single record. SMS and voice MO consult the derived
// destination class; data and voice MT price the same everywhere, so they
// skip it. VoLTE tries its own rates first and falls back to data rates
// field by field. Unknown service types yield an empty match.
//
// The only error is a malformed country code on a destination-classified
// service.
func (m *Mapper) Map(r Record) (Match, error) {
	switch deal.Service(r.ServiceType) {
	case deal.ServiceSMS:
		return m.mapWithDestination(r, deal.ServiceSMS)
	case deal.ServiceVoiceMO:
		return m.mapWithDestination(r, deal.ServiceVoiceMO)
	case deal.ServiceData:
		return m.mapWithoutDestination(r, deal.ServiceData), nil
	case deal.ServiceVoiceMT:
		return m.mapWithoutDestination(r, deal.ServiceVoiceMT), nil
	case deal.ServiceVoLTE:
		return m.mapVoLTE(r)
	default:
		return Match{}, nil
	}
}

// MapAll attributes records in order. A malformed record aborts the whole
// batch: the caller must not persist a partially attributed file.
func (m *Mapper) MapAll(records []Record) ([]Match, error) {
	out := make([]Match, 0, len(records))
	for i, r := range records {
		match, err := m.Map(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, match)
	}
	return out, nil
}

func (m *Mapper) mapWithDestination(r Record, service deal.Service) (Match, error) {
	dest, err := DeriveDestinationType(r.HomeCountry, r.VisitorCountry, r.CalledCountry)
	if err != nil {
		return Match{}, err
	}
	return m.find(r, service, &dest), nil
}

func (m *Mapper) mapWithoutDestination(r Record, service deal.Service) Match {
	return m.find(r, service, nil)
}

func (m *Mapper) mapVoLTE(r Record) (Match, error) {
	volte, err := m.mapWithDestination(r, deal.ServiceVoLTE)
	if err != nil {
		return Match{}, err
	}
	if volte.ServiceUUID != nil && volte.CommitmentUUID != nil && volte.ServiceRateUUID != nil && volte.TapUUID != nil {
		return volte, nil
	}
	data := m.mapWithoutDestination(r, deal.ServiceData)
	return Match{
		ServiceUUID:     coalesce(volte.ServiceUUID, data.ServiceUUID),
		CommitmentUUID:  coalesce(volte.CommitmentUUID, data.CommitmentUUID),
		ServiceRateUUID: coalesce(volte.ServiceRateUUID, data.ServiceRateUUID),
		TapUUID:         coalesce(volte.TapUUID, data.TapUUID),
	}, nil
}

func (m *Mapper) find(r Record, service deal.Service, dest *deal.Destination) Match {
	out := Match{ServiceUUID: m.findServiceUUID(r, service, dest)}
	out.CommitmentUUID, out.ServiceRateUUID = m.findCommitmentUUIDs(r, service, dest)
	out.TapUUID = m.findTapUUID(r, service, dest)
	return out
}

func (m *Mapper) findServiceUUID(r Record, service deal.Service, dest *deal.Destination) *uuid.UUID {
	// TODO: confirm with settlement that inbound is the right direction for
	// visited-network usage rather than outbound.
	if m.deal.Inbound == nil {
		return nil
	}
	for i := range m.deal.Inbound.IoTRates {
		rate := &m.deal.Inbound.IoTRates[i]
		if rate.Service != service {
			continue
		}
		if !coversParties(&rate.Scope, r) {
			continue
		}
		if coversDestination(rate.Destination, dest) {
			u := rate.UUID
			return &u
		}
	}
	return nil
}

func (m *Mapper) findCommitmentUUIDs(r Record, service deal.Service, dest *deal.Destination) (*uuid.UUID, *uuid.UUID) {
	if m.deal.Inbound == nil {
		return nil, nil
	}
	for i := range m.deal.Inbound.Commitments {
		c := &m.deal.Inbound.Commitments[i]
		if !coversParties(&c.Scope, r) {
			continue
		}
		if !coversDestination(c.Destination, dest) {
			continue
		}
		for j := range c.ServiceRates {
			if c.ServiceRates[j].Service == service {
				cu, su := c.UUID, c.ServiceRates[j].UUID
				return &cu, &su
			}
		}
	}
	return nil, nil
}

func (m *Mapper) findTapUUID(r Record, service deal.Service, dest *deal.Destination) *uuid.UUID {
	if m.deal.Inbound == nil {
		return nil
	}
	for i := range m.deal.Inbound.TapRates {
		tap := &m.deal.Inbound.TapRates[i]
		if tap.Service != service {
			continue
		}
		if !coversParties(&tap.Scope, r) {
			continue
		}
		if coversDestination(tap.Destination, dest) {
			u := tap.UUID
			return &u
		}
	}
	return nil
}

// coversParties requires the record's home operator among the serving
// parties and its visited operator among the served parties.
func coversParties(s *deal.Scope, r Record) bool {
	return slices.Contains(s.ServingParty, r.HomePMN) && slices.Contains(s.ServedParty, r.VisitorPMN)
}

func coversDestination(have deal.Destination, want *deal.Destination) bool {
	if want == nil {
		return true
	}
	return have == *want || have == deal.DestinationAll
}

func coalesce(primary, fallback *uuid.UUID) *uuid.UUID {
	if primary != nil {
		return primary
	}
	return fallback
}
