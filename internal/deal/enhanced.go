package deal

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Achievements carries the usage aggregates a settlement pass computed for
// one contract: matched volume keyed by the entity it matched, settled
// amounts for financial commitments where a settlement run produced one, and
// the volume that matched nothing, grouped by service type, for fallback
// clearing reports.
type Achievements struct {
	VolumeByService    map[uuid.UUID]decimal.Decimal
	VolumeByCommitment map[uuid.UUID]decimal.Decimal
	VolumeByTap        map[uuid.UUID]decimal.Decimal

	// AmountByCommitment is optional; a financial commitment with no entry
	// is reported as not met rather than guessed at.
	AmountByCommitment map[uuid.UUID]decimal.Decimal

	UnmatchedVolumeByServiceType map[string]decimal.Decimal
}

type EnhancedTier struct {
	Tier
	TierAchieved       bool            `json:"tier_achieved"`
	TierAchievedVolume decimal.Decimal `json:"tier_achieved_volume"`
}

type EnhancedRatePlan struct {
	RatePlan
	Tiers          []EnhancedTier  `json:"tiers"`
	VolumeAchieved decimal.Decimal `json:"volume_achieved"`
	// TierAchieved is the index of the highest tier reached, -1 when none.
	TierAchieved int `json:"tier_achieved"`
}

type EnhancedCommitment struct {
	Commitment
	AmountAchieved *decimal.Decimal `json:"amount_achieved,omitempty"`
	VolumeAchieved *decimal.Decimal `json:"volume_achieved,omitempty"`
	// The wire name keeps the historical "committment" spelling existing
	// consumers depend on.
	CommitmentMet bool `json:"committment_met"`
}

type EnhancedTapRate struct {
	TapRate
	Paid       decimal.Decimal `json:"paid"`
	Chargeable decimal.Decimal `json:"chargeable"`
}

type EnhancedDirectionalData struct {
	DirectionalData
	Commitments []EnhancedCommitment `json:"commitments"`
	IoTRates    []EnhancedRatePlan   `json:"iot_rates"`
	TapRates    []EnhancedTapRate    `json:"tap_rates"`
}

// EnhancedDeal is the post-settlement view of a deal: the validated document
// plus achievement fields. It is a derived copy; building it never touches
// the deal it was built from.
type EnhancedDeal struct {
	Deal
	ClientToPartner *EnhancedDirectionalData `json:"client_to_partner,omitempty"`
	PartnerToClient *EnhancedDirectionalData `json:"partner_to_client,omitempty"`
	Inbound         *EnhancedDirectionalData `json:"inbound,omitempty"`
	Outbound        *EnhancedDirectionalData `json:"outbound,omitempty"`
}

// BuildEnhanced derives the enhanced view of a validated deal from settlement
// achievements.
func BuildEnhanced(d *Deal, a Achievements) *EnhancedDeal {
	out := &EnhancedDeal{Deal: *d}
	out.Deal.ClientToPartner = nil
	out.Deal.PartnerToClient = nil
	out.Deal.Inbound = nil
	out.Deal.Outbound = nil

	out.ClientToPartner = enhanceDirection(d.ClientToPartner, a)
	out.PartnerToClient = enhanceDirection(d.PartnerToClient, a)
	out.Inbound = enhanceDirection(d.Inbound, a)
	out.Outbound = enhanceDirection(d.Outbound, a)
	return out
}

func enhanceDirection(dd *DirectionalData, a Achievements) *EnhancedDirectionalData {
	if dd == nil {
		return nil
	}
	out := &EnhancedDirectionalData{DirectionalData: *dd}
	out.DirectionalData.Commitments = nil
	out.DirectionalData.IoTRates = nil
	out.DirectionalData.TapRates = nil

	for i := range dd.Commitments {
		out.Commitments = append(out.Commitments, enhanceCommitment(&dd.Commitments[i], a))
	}
	for i := range dd.IoTRates {
		r := &dd.IoTRates[i]
		out.IoTRates = append(out.IoTRates, enhanceRatePlan(r, a.VolumeByService[r.UUID]))
	}
	for i := range dd.TapRates {
		t := dd.TapRates[i]
		// Paid needs rate arithmetic, which settlement reporting does not
		// perform; chargeable carries the matched volume.
		out.TapRates = append(out.TapRates, EnhancedTapRate{TapRate: t, Chargeable: a.VolumeByTap[t.UUID]})
	}
	return out
}

// enhanceRatePlan attributes the plan's achieved volume to its tiers. Tiers
// are bands bounded above by their threshold; a tier without a threshold is
// open-ended and absorbs the remainder. Threshold figures are compared to the
// aggregated volume as-is: unit conversion between threshold_type and record
// volumes is billing arithmetic and not performed here.
func enhanceRatePlan(r *RatePlan, volume decimal.Decimal) EnhancedRatePlan {
	out := EnhancedRatePlan{RatePlan: *r, VolumeAchieved: volume, TierAchieved: -1}
	out.RatePlan.Tiers = nil

	floor := decimal.Zero
	open := false
	for i := range r.Tiers {
		t := EnhancedTier{Tier: r.Tiers[i]}
		if !open {
			var span decimal.Decimal
			if th := r.Tiers[i].Threshold; th != nil {
				ceil := decimal.NewFromInt(*th)
				span = decimal.Min(volume, ceil).Sub(floor)
				floor = ceil
			} else {
				span = volume.Sub(floor)
				open = true
			}
			if span.IsPositive() {
				t.TierAchieved = true
				t.TierAchievedVolume = span
				out.TierAchieved = i
			}
		}
		out.Tiers = append(out.Tiers, t)
	}
	return out
}

func enhanceCommitment(c *Commitment, a Achievements) EnhancedCommitment {
	out := EnhancedCommitment{Commitment: *c}
	switch c.CommitmentType {
	case CommitmentVolume:
		achieved := a.VolumeByCommitment[c.UUID]
		out.VolumeAchieved = &achieved
		out.CommitmentMet = achieved.GreaterThanOrEqual(decimal.NewFromInt(*c.Volume))
	case CommitmentFinancial:
		if achieved, ok := a.AmountByCommitment[c.UUID]; ok {
			out.AmountAchieved = &achieved
			out.CommitmentMet = achieved.GreaterThanOrEqual(*c.Amount)
		}
	}
	return out
}
