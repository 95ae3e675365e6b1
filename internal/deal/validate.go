package deal

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidationCause is the machine-readable reason a deal was rejected.
type ValidationCause string

const (
	CauseDealType           ValidationCause = "deal_type"
	CauseContractTemplate   ValidationCause = "contract_template"
	CauseContractParties    ValidationCause = "contract_parties"
	CauseContractPeriod     ValidationCause = "contract_period"
	CauseDirections         ValidationCause = "directions"
	CauseLaterality         ValidationCause = "laterality"
	CauseCurrencyCode       ValidationCause = "currency_code"
	CausePartyCode          ValidationCause = "party_code"
	CauseDestination        ValidationCause = "destination"
	CauseService            ValidationCause = "service"
	CauseRateType           ValidationCause = "rate_type"
	CauseDiscriminator      ValidationCause = "discriminator"
	CauseTierThreshold      ValidationCause = "tier_threshold"
	CauseTierOrdering       ValidationCause = "tier_ordering"
	CauseTiersEmpty         ValidationCause = "tiers_empty"
	CauseVolumeCommitment   ValidationCause = "volume_commitment"
	CauseDuplicateScope     ValidationCause = "duplicate_scope"
	CauseAllConflict        ValidationCause = "all_destination_conflict"
	CauseMissingIoTRate     ValidationCause = "missing_iot_rate"
	CauseTapCurrency        ValidationCause = "tap_currency"
	CauseBalancedRate       ValidationCause = "balanced_rate"
	CauseBalancedUnilateral ValidationCause = "balanced_in_unilateral"
	CauseAddendum           ValidationCause = "addendum"
)

// ValidationError is the fatal rejection of a deal document. A rejected deal
// must not be used for matching or persisted in any form.
type ValidationError struct {
	Cause  ValidationCause
	Detail string
}

func (e *ValidationError) Error() string {
	return string(e.Cause) + ": " + e.Detail
}

func failf(cause ValidationCause, format string, args ...any) error {
	return &ValidationError{Cause: cause, Detail: fmt.Sprintf(format, args...)}
}

// Normalize fills the defaults a deal document may omit: the deal type tag,
// tap_rate_tax (inherits tax), the tap_rate discriminator, and entity UUIDs.
func (d *Deal) Normalize() {
	if d.DealType == "" {
		d.DealType = "AA12"
	}
	for _, dd := range d.directionalSlots() {
		dd.normalize()
	}
}

func (dd *DirectionalData) normalize() {
	if dd.TapRateTax == nil {
		v := dd.Tax
		dd.TapRateTax = &v
	}
	for i := range dd.IoTRates {
		if dd.IoTRates[i].UUID == uuid.Nil {
			dd.IoTRates[i].UUID = uuid.New()
		}
	}
	for i := range dd.Commitments {
		c := &dd.Commitments[i]
		if c.UUID == uuid.Nil {
			c.UUID = uuid.New()
		}
		for j := range c.ServiceRates {
			if c.ServiceRates[j].UUID == uuid.Nil {
				c.ServiceRates[j].UUID = uuid.New()
			}
		}
	}
	for i := range dd.TapRates {
		t := &dd.TapRates[i]
		if t.ModelType == "" {
			t.ModelType = ModelTypeTapRate
		}
		if t.UUID == uuid.Nil {
			t.UUID = uuid.New()
		}
	}
}

// Validate runs the full invariant battery over the deal. It is pure, checks
// every rule rather than a subset, and returns a *ValidationError naming the
// first violated rule. Callers must treat any error as fatal to the deal.
func (d *Deal) Validate() error {
	if d.DealType != "AA12" {
		return failf(CauseDealType, "deal type must be %q, got %q", "AA12", d.DealType)
	}
	if err := d.validateContractTemplate(); err != nil {
		return err
	}
	if d.ClientUUID == uuid.Nil {
		return failf(CauseContractParties, "deal must specify a client uuid")
	}
	if d.PartnerUUID == uuid.Nil {
		return failf(CauseContractParties, "deal must specify a partner uuid")
	}
	if !d.Laterality.IsValid() {
		return failf(CauseLaterality, "laterality must be unilateral or bilateral, got %q", d.Laterality)
	}
	if err := d.ContractPeriod.validate(); err != nil {
		return err
	}
	if err := d.validateDirections(); err != nil {
		return err
	}
	for _, dd := range d.directionalSlots() {
		if err := dd.validate(); err != nil {
			return err
		}
	}
	if err := d.validateBalancedRates(); err != nil {
		return err
	}
	for i := range d.Addendums {
		if err := d.Addendums[i].validate(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deal) validateContractTemplate() error {
	if d.ContractTemplateUUID == UploadedContract {
		return nil
	}
	if _, err := uuid.Parse(d.ContractTemplateUUID); err != nil {
		return failf(CauseContractTemplate, "contract template must be a uuid or %q, got %q", UploadedContract, d.ContractTemplateUUID)
	}
	return nil
}

func (p *ContractPeriod) validate() error {
	if p.StartPeriod.IsZero() || p.EndPeriod.IsZero() {
		return failf(CauseContractPeriod, "contract period must specify start and end")
	}
	if !p.StartPeriod.Before(p.EndPeriod) {
		return failf(CauseContractPeriod, "contract period start must be before end")
	}
	return nil
}

func (d *Deal) validateDirections() error {
	storage := d.ClientToPartner != nil || d.PartnerToClient != nil
	viewer := d.Inbound != nil || d.Outbound != nil

	if !storage && !viewer {
		return failf(CauseDirections, "at least one direction must be provided")
	}
	if storage && viewer {
		return failf(CauseDirections, "deal cannot mix storage and viewer orientations")
	}

	populated := len(d.directionalSlots())
	switch d.Laterality {
	case Unilateral:
		if populated != 1 {
			return failf(CauseLaterality, "unilateral agreements must have exactly one direction")
		}
	case Bilateral:
		if populated != 2 {
			return failf(CauseLaterality, "bilateral agreements must have both directions")
		}
	}
	return nil
}

func (d *Deal) validateBalancedRates() error {
	if d.Laterality == Unilateral {
		for _, dd := range d.directionalSlots() {
			for i := range dd.IoTRates {
				if dd.IoTRates[i].Balanced() {
					return failf(CauseBalancedUnilateral, "balanced rates are not allowed in unilateral agreements")
				}
			}
		}
		return nil
	}

	var a, b *DirectionalData
	switch {
	case d.Inbound != nil && d.Outbound != nil:
		a, b = d.Inbound, d.Outbound
	case d.ClientToPartner != nil && d.PartnerToClient != nil:
		a, b = d.ClientToPartner, d.PartnerToClient
	default:
		return failf(CauseLaterality, "bilateral agreements must have both directions")
	}

	ratesA := collectBalancedRates(a)
	ratesB := collectBalancedRates(b)

	for _, pair := range [2][2]map[balancedKey]balancedValue{{ratesA, ratesB}, {ratesB, ratesA}} {
		side, other := pair[0], pair[1]
		for key, v := range side {
			counterpart, ok := other[key]
			if !ok {
				return failf(CauseBalancedRate, "balanced rate for service %q destination %q not found in both directions", key.service, key.destination)
			}
			if !v.rate.Equal(counterpart.rate) || !v.rateUnit.Equal(counterpart.rateUnit) || v.rateType != counterpart.rateType {
				return failf(CauseBalancedRate, "balanced rates must be the same in both directions for service %q destination %q", key.service, key.destination)
			}
		}
	}
	return nil
}

type balancedKey struct {
	service     Service
	destination Destination
}

type balancedValue struct {
	rate     decimal.Decimal
	rateUnit decimal.Decimal
	rateType string
}

func collectBalancedRates(dd *DirectionalData) map[balancedKey]balancedValue {
	out := make(map[balancedKey]balancedValue)
	for i := range dd.IoTRates {
		r := &dd.IoTRates[i]
		if !r.Balanced() {
			continue
		}
		out[balancedKey{r.Service, r.Destination}] = balancedValue{
			rate:     *r.BalancedRate,
			rateUnit: *r.BalancedRateUnit,
			rateType: *r.BalancedRateType,
		}
	}
	return out
}

func (dd *DirectionalData) validate() error {
	if dd.CurrencyCode == "" {
		return failf(CauseCurrencyCode, "directional data must specify a currency code")
	}
	for i := range dd.Commitments {
		if err := dd.Commitments[i].validate(); err != nil {
			return err
		}
	}
	for i := range dd.IoTRates {
		if err := dd.IoTRates[i].validate(); err != nil {
			return err
		}
	}
	for i := range dd.TapRates {
		if err := dd.TapRates[i].validate(); err != nil {
			return err
		}
	}
	if len(dd.TapRates) > 0 && dd.TapRateCurrencyCode == nil {
		return failf(CauseTapCurrency, "tap rate currency code must be provided when tap rates are present")
	}

	iotDests := dd.iotServiceDestinations()
	for service, dests := range iotDests {
		if dup, ok := firstDuplicate(dests); ok {
			return failf(CauseDuplicateScope, "service %q cannot have multiple iot rates for destination %q", service, dup)
		}
	}
	if err := checkAgainstIoTRates("committed service", dd.commitmentServiceDestinations(), iotDests); err != nil {
		return err
	}
	return checkAgainstIoTRates("tap rate service", dd.tapServiceDestinations(), iotDests)
}

// iotServiceDestinations maps each service to the destinations its IoT rates
// cover, with the "all" wildcard expanded to the three concrete destinations.
func (dd *DirectionalData) iotServiceDestinations() map[Service][]Destination {
	out := make(map[Service][]Destination)
	for i := range dd.IoTRates {
		r := &dd.IoTRates[i]
		if r.Destination == DestinationAll {
			out[r.Service] = append(out[r.Service], concreteDestinations...)
		} else {
			out[r.Service] = append(out[r.Service], r.Destination)
		}
	}
	return out
}

// commitmentServiceDestinations maps each committed service to the
// destinations of the commitments naming it. A commitment contributes its
// destination once per nested service rate.
func (dd *DirectionalData) commitmentServiceDestinations() map[Service][]Destination {
	out := make(map[Service][]Destination)
	for i := range dd.Commitments {
		c := &dd.Commitments[i]
		for j := range c.ServiceRates {
			out[c.ServiceRates[j].Service] = append(out[c.ServiceRates[j].Service], c.Destination)
		}
	}
	return out
}

func (dd *DirectionalData) tapServiceDestinations() map[Service][]Destination {
	out := make(map[Service][]Destination)
	for i := range dd.TapRates {
		t := &dd.TapRates[i]
		out[t.Service] = append(out[t.Service], t.Destination)
	}
	return out
}

// checkAgainstIoTRates enforces, per service, that destinations are unique,
// that "all" does not coexist with specific destinations, and that every
// (service, destination) pair is covered by an IoT rate directly or via the
// expanded wildcard.
func checkAgainstIoTRates(kind string, got, iotDests map[Service][]Destination) error {
	for service, dests := range got {
		if dup, ok := firstDuplicate(dests); ok {
			return failf(CauseDuplicateScope, "%s %q cannot have multiple entries for destination %q", kind, service, dup)
		}
		if containsDestination(dests, DestinationAll) && len(dests) > 1 {
			return failf(CauseAllConflict, "%s %q cannot have %q and other destinations at the same time", kind, service, DestinationAll)
		}
		covered, ok := iotDests[service]
		if !ok {
			return failf(CauseMissingIoTRate, "%s %q must have a corresponding iot rate", kind, service)
		}
		for _, dest := range dests {
			if dest == DestinationAll {
				continue
			}
			if !containsDestination(covered, dest) {
				return failf(CauseMissingIoTRate, "%s %q must have a corresponding iot rate for destination %q", kind, service, dest)
			}
		}
	}
	return nil
}

func firstDuplicate(dests []Destination) (Destination, bool) {
	seen := make(map[Destination]bool, len(dests))
	for _, d := range dests {
		if seen[d] {
			return d, true
		}
		seen[d] = true
	}
	return "", false
}

func containsDestination(dests []Destination, want Destination) bool {
	for _, d := range dests {
		if d == want {
			return true
		}
	}
	return false
}

func (t *Tier) validate() error {
	if (t.Threshold == nil) != (t.ThresholdType == nil) {
		return failf(CauseTierThreshold, "threshold and threshold_type must be set together or not at all")
	}
	if t.Threshold != nil && *t.Threshold < 0 {
		return failf(CauseTierThreshold, "threshold must not be negative, got %d", *t.Threshold)
	}
	if ClassOfRateType(t.RateType) == RateClassNone {
		return failf(CauseRateType, "unknown rate type %q", t.RateType)
	}
	if ClassOfRateType(t.ChargeType) == RateClassNone {
		return failf(CauseRateType, "unknown charge type %q", t.ChargeType)
	}
	if t.ThresholdType != nil && ClassOfRateType(*t.ThresholdType) == RateClassNone {
		return failf(CauseRateType, "unknown threshold type %q", *t.ThresholdType)
	}
	return nil
}

func (s *Scope) validate() error {
	if !s.Destination.IsValid() {
		return failf(CauseDestination, "unknown destination %q", s.Destination)
	}
	if err := validatePartyCodes("serving_party", s.ServingParty); err != nil {
		return err
	}
	return validatePartyCodes("served_party", s.ServedParty)
}

// validatePartyCodes enforces the PMN code format: exactly 5 alphanumeric
// characters, the first 3 alphabetic (the country-code prefix), and at least
// one code per list.
func validatePartyCodes(field string, codes []string) error {
	for _, code := range codes {
		if len(code) != 5 {
			return failf(CausePartyCode, "%s PMN code %q must be 5 characters long", field, code)
		}
		for i := 0; i < len(code); i++ {
			if !isAlnum(code[i]) {
				return failf(CausePartyCode, "%s PMN code %q must be alphanumeric", field, code)
			}
		}
		for i := 0; i < 3; i++ {
			if !isAlpha(code[i]) {
				return failf(CausePartyCode, "%s PMN code %q must start with a 3-letter country code", field, code)
			}
		}
	}
	if len(codes) == 0 {
		return failf(CausePartyCode, "%s must have at least one PMN code", field)
	}
	return nil
}

func isAlpha(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isAlnum(c byte) bool {
	return isAlpha(c) || (c >= '0' && c <= '9')
}

func (sr *ServiceRate) validate() error {
	if !sr.Service.IsValid() {
		return failf(CauseService, "unknown service %q", sr.Service)
	}
	if ClassOfRateType(sr.RateType) == RateClassNone {
		return failf(CauseRateType, "unknown rate type %q", sr.RateType)
	}
	return nil
}

func (r *RatePlan) validate() error {
	if r.ModelType != ModelTypeStructured && r.ModelType != ModelTypeBalanced {
		return failf(CauseDiscriminator, "iot rate model_type must be structured or balanced, got %q", r.ModelType)
	}
	if err := r.Scope.validate(); err != nil {
		return err
	}
	if !r.Service.IsValid() {
		return failf(CauseService, "unknown service %q", r.Service)
	}
	if len(r.Tiers) == 0 {
		return failf(CauseTiersEmpty, "rate plan must have at least one tier")
	}
	for i := range r.Tiers {
		if err := r.Tiers[i].validate(); err != nil {
			return err
		}
	}
	// Thresholds must strictly increase wherever two neighboring tiers
	// both define one.
	for i := 1; i < len(r.Tiers); i++ {
		lower, upper := r.Tiers[i-1].Threshold, r.Tiers[i].Threshold
		if lower != nil && upper != nil && *upper <= *lower {
			return failf(CauseTierOrdering, "tier %d threshold must be greater than tier %d threshold", i+1, i)
		}
	}

	hasBalancedFields := r.BalancedRate != nil || r.BalancedRateUnit != nil || r.BalancedRateType != nil
	if r.Balanced() {
		if r.BalancedRate == nil || r.BalancedRateUnit == nil || r.BalancedRateType == nil {
			return failf(CauseDiscriminator, "balanced rate plan must set balanced_rate, balanced_rate_unit and balanced_rate_type")
		}
		if ClassOfRateType(*r.BalancedRateType) == RateClassNone {
			return failf(CauseRateType, "unknown balanced rate type %q", *r.BalancedRateType)
		}
	} else if hasBalancedFields {
		return failf(CauseDiscriminator, "structured rate plan cannot carry balanced rate fields")
	}
	return nil
}

func (c *Commitment) validate() error {
	if c.CommitmentType != CommitmentFinancial && c.CommitmentType != CommitmentVolume {
		return failf(CauseDiscriminator, "commitment_type must be financial or volume, got %q", c.CommitmentType)
	}
	if err := c.Scope.validate(); err != nil {
		return err
	}
	for i := range c.ServiceRates {
		if err := c.ServiceRates[i].validate(); err != nil {
			return err
		}
	}

	switch c.CommitmentType {
	case CommitmentFinancial:
		if c.Amount == nil {
			return failf(CauseDiscriminator, "financial commitment must set an amount")
		}
		if c.Volume != nil || c.VolumeType != nil {
			return failf(CauseDiscriminator, "financial commitment cannot carry volume fields")
		}
	case CommitmentVolume:
		if c.Amount != nil {
			return failf(CauseDiscriminator, "volume commitment cannot carry an amount")
		}
		if c.Volume == nil || c.VolumeType == nil {
			return failf(CauseDiscriminator, "volume commitment must set volume and volume_type")
		}
		if len(c.ServiceRates) != 1 {
			return failf(CauseVolumeCommitment, "volume commitment must have exactly one service rate")
		}
		if !SameRateClass(c.ServiceRates[0].RateType, *c.VolumeType) {
			return failf(CauseVolumeCommitment, "volume type and rate type must belong to the same rate class")
		}
	}
	return nil
}

func (t *TapRate) validate() error {
	if t.ModelType != ModelTypeTapRate {
		return failf(CauseDiscriminator, "tap rate model_type must be %q, got %q", ModelTypeTapRate, t.ModelType)
	}
	if err := t.Scope.validate(); err != nil {
		return err
	}
	if !t.Service.IsValid() {
		return failf(CauseService, "unknown service %q", t.Service)
	}
	if ClassOfRateType(t.RateType) == RateClassNone {
		return failf(CauseRateType, "unknown rate type %q", t.RateType)
	}
	if ClassOfRateType(t.ChargeType) == RateClassNone {
		return failf(CauseRateType, "unknown charge type %q", t.ChargeType)
	}
	return nil
}

func (a *Addendum) validate() error {
	switch a.AddendumType {
	case AddendumCustom:
		if a.OrgUUID == nil {
			return failf(CauseAddendum, "organisation uuid is required for custom addendums")
		}
	case AddendumSystem:
		if a.OrgUUID != nil {
			return failf(CauseAddendum, "an org uuid cannot be assigned to a system addendum")
		}
	default:
		return failf(CauseAddendum, "addendum type must be system or custom, got %q", a.AddendumType)
	}
	return nil
}
