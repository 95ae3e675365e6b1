package deal

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// How currency, rate, rate_unit, rate_type, charge_unit and charge_type relate:
//
//	<CURRENCY> <RATE> per <RATE_UNIT> <RATE_TYPE>, charged every <CHARGE_UNIT> <CHARGE_TYPE>
//	    £       0.10  per     10          MB     , charged every       1           GB

// Tier is one band of a rate plan. A plan with a single unbounded tier is a
// flat rate.
type Tier struct {
	Rate          decimal.Decimal `json:"rate" jsonschema_description:"Price per rate_unit of rate_type"`
	RateUnit      decimal.Decimal `json:"rate_unit" jsonschema_description:"How many rate_type units the rate buys"`
	RateType      string          `json:"rate_type" jsonschema_description:"Unit the rate is expressed in (seconds/minutes, sms, KB/MB/GB/TB)"`
	ChargeUnit    decimal.Decimal `json:"charge_unit" jsonschema_description:"Billing increment size"`
	ChargeType    string          `json:"charge_type" jsonschema_description:"Unit of the billing increment"`
	Threshold     *int64          `json:"threshold,omitempty" jsonschema_description:"Upper bound of this tier; absent on the final (open-ended) tier"`
	ThresholdType *string         `json:"threshold_type,omitempty" jsonschema_description:"Unit of the threshold; present exactly when threshold is"`
}

// Scope pins a rate entity to a destination class and an operator pair. Party
// lists are ordered; matching takes the first entity whose lists contain the
// record's codes.
type Scope struct {
	Destination  Destination `json:"destination" jsonschema_description:"home, local, international, or the wildcard all"`
	ServingParty []string    `json:"serving_party" jsonschema_description:"PMN codes of the serving (home) side"`
	ServedParty  []string    `json:"served_party" jsonschema_description:"PMN codes of the served (visited) side"`
}

// ServiceRate is a single per-service unit price, used inside commitments.
type ServiceRate struct {
	UUID     uuid.UUID       `json:"uuid"`
	Service  Service         `json:"service"`
	Rate     decimal.Decimal `json:"rate"`
	RateUnit decimal.Decimal `json:"rate_unit"`
	RateType string          `json:"rate_type"`
}

// TapRate is a clearing-house settlement rate for one service, destination
// and party pair, independent of the negotiated IoT rates.
type TapRate struct {
	UUID      uuid.UUID `json:"uuid"`
	ModelType ModelType `json:"model_type" jsonschema_description:"Always tap_rate"`
	Scope
	Service    Service         `json:"service"`
	Rate       decimal.Decimal `json:"rate"`
	RateUnit   decimal.Decimal `json:"rate_unit"`
	RateType   string          `json:"rate_type"`
	ChargeUnit decimal.Decimal `json:"charge_unit"`
	ChargeType string          `json:"charge_type"`
}

// RatePlan is one negotiated IoT rate for a service. The model_type tag
// selects the variant: "structured" (tiered or flat) or "balanced", which
// additionally carries the balanced_* fields both directions must agree on.
type RatePlan struct {
	UUID      uuid.UUID `json:"uuid"`
	ModelType ModelType `json:"model_type" jsonschema_description:"structured or balanced"`
	Scope
	Service     Service `json:"service"`
	BackToFirst bool    `json:"back_to_first" jsonschema_description:"Whether accumulated volume re-prices earlier traffic at the reached tier"`
	Tiers       []Tier  `json:"tiers"`

	// Set exactly when ModelType is balanced.
	BalancedRate     *decimal.Decimal `json:"balanced_rate,omitempty"`
	BalancedRateUnit *decimal.Decimal `json:"balanced_rate_unit,omitempty"`
	BalancedRateType *string          `json:"balanced_rate_type,omitempty"`
}

// Balanced reports whether the plan is the balanced variant.
func (r *RatePlan) Balanced() bool { return r.ModelType == ModelTypeBalanced }

// Commitment is a minimum the served side agrees to reach. The
// commitment_type tag selects the variant: "financial" (an amount reached via
// a composite of service rates) or "volume" (a single service rate with a
// volume floor).
type Commitment struct {
	UUID           uuid.UUID      `json:"uuid"`
	CommitmentType CommitmentType `json:"commitment_type" jsonschema_description:"financial or volume"`
	Scope
	ServiceRates []ServiceRate `json:"service_rates"`

	// Set exactly when CommitmentType is financial.
	Amount *decimal.Decimal `json:"amount,omitempty"`

	// Set exactly when CommitmentType is volume. A volume commitment has
	// exactly one service rate and VolumeType shares its rate class.
	Volume     *int64  `json:"volume,omitempty"`
	VolumeType *string `json:"volume_type,omitempty"`
}

// DirectionalData holds everything negotiated for one traffic direction.
type DirectionalData struct {
	CurrencyCode        string       `json:"currency_code"`
	Tax                 bool         `json:"tax"`
	Commitments         []Commitment `json:"commitments"`
	IoTRates            []RatePlan   `json:"iot_rates"`
	TapRateTax          *bool        `json:"tap_rate_tax,omitempty" jsonschema_description:"Defaults to tax when unset"`
	TapRateCurrencyCode *string      `json:"tap_rate_currency_code,omitempty" jsonschema_description:"Required when tap_rates is non-empty"`
	TapRates            []TapRate    `json:"tap_rates"`
}

type ContractPeriod struct {
	StartPeriod time.Time `json:"start_period"`
	EndPeriod   time.Time `json:"end_period"`
}

// Addendum is an extra contract term attached to a deal. Custom addendums
// belong to the organisation that wrote them; system addendums belong to no
// one.
type Addendum struct {
	Heading      string       `json:"heading"`
	Content      string       `json:"content"`
	OrgUUID      *uuid.UUID   `json:"org_uuid,omitempty"`
	AddendumType AddendumType `json:"addendum_type"`
}

// UploadedContract is the contract_template_uuid value used for off-platform
// deals that were uploaded rather than built from a template.
const UploadedContract = "uploaded_contract"

// Deal is a validated AA12 roaming agreement between a client and a partner
// organisation.
//
// Directional payloads live in exactly one of two orientations: the storage
// orientation (ClientToPartner/PartnerToClient) or the viewer-relative
// orientation (Inbound/Outbound). The perspective transforms move between
// them; outside a transform the two pairs are never populated together.
type Deal struct {
	DealType string `json:"deal_type"`

	ContractPeriod ContractPeriod `json:"contract_period"`

	// UUID of the contract template this deal was built from, or the
	// literal "uploaded_contract" for off-platform deals.
	ContractTemplateUUID string    `json:"contract_template_uuid"`
	ClientUUID           uuid.UUID `json:"client_uuid"`
	PartnerUUID          uuid.UUID `json:"partner_uuid"`

	// Storage orientation.
	ClientToPartner *DirectionalData `json:"client_to_partner,omitempty"`
	PartnerToClient *DirectionalData `json:"partner_to_client,omitempty"`

	// Which way a unilateral deal points when rendered viewer-relative.
	// Nil for bilateral deals and in storage orientation.
	Direction *Direction `json:"direction,omitempty"`

	Laterality Laterality `json:"laterality"`

	// Viewer-relative orientation.
	Inbound  *DirectionalData `json:"inbound,omitempty"`
	Outbound *DirectionalData `json:"outbound,omitempty"`

	Addendums []Addendum `json:"addendums"`
}

// directionalSlots returns the populated directional payloads in a fixed
// order: inbound, outbound, client_to_partner, partner_to_client.
func (d *Deal) directionalSlots() []*DirectionalData {
	var slots []*DirectionalData
	for _, dd := range []*DirectionalData{d.Inbound, d.Outbound, d.ClientToPartner, d.PartnerToClient} {
		if dd != nil {
			slots = append(slots, dd)
		}
	}
	return slots
}
