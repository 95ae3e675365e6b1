package deal_test

import (
	"errors"
	"testing"
	"time"

	"roaming-recon/internal/deal"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func testScope(dest deal.Destination) deal.Scope {
	return deal.Scope{
		Destination:  dest,
		ServingParty: []string{"GBRCN"},
		ServedParty:  []string{"FRAOR"},
	}
}

func validTier() deal.Tier {
	return deal.Tier{
		Rate:       dec("0.1"),
		RateUnit:   decimal.NewFromInt(1),
		RateType:   "MB",
		ChargeUnit: decimal.NewFromInt(1),
		ChargeType: "GB",
	}
}

func structuredPlan(service deal.Service, dest deal.Destination) deal.RatePlan {
	return deal.RatePlan{
		UUID:      uuid.New(),
		ModelType: deal.ModelTypeStructured,
		Scope:     testScope(dest),
		Service:   service,
		Tiers:     []deal.Tier{validTier()},
	}
}

func balancedPlan(service deal.Service, dest deal.Destination, rate string) deal.RatePlan {
	p := structuredPlan(service, dest)
	p.ModelType = deal.ModelTypeBalanced
	p.BalancedRate = ptr(dec(rate))
	p.BalancedRateUnit = ptr(decimal.NewFromInt(1))
	p.BalancedRateType = ptr("MB")
	return p
}

func volumeCommitment(service deal.Service, dest deal.Destination, rateType, volumeType string) deal.Commitment {
	return deal.Commitment{
		UUID:           uuid.New(),
		CommitmentType: deal.CommitmentVolume,
		Scope:          testScope(dest),
		ServiceRates: []deal.ServiceRate{{
			UUID:     uuid.New(),
			Service:  service,
			Rate:     dec("0.1"),
			RateUnit: decimal.NewFromInt(1),
			RateType: rateType,
		}},
		Volume:     ptr(int64(1000)),
		VolumeType: ptr(volumeType),
	}
}

func directionalData(plans ...deal.RatePlan) *deal.DirectionalData {
	return &deal.DirectionalData{
		CurrencyCode: "GBP",
		IoTRates:     plans,
	}
}

func validBilateralDeal() *deal.Deal {
	return &deal.Deal{
		DealType: "AA12",
		ContractPeriod: deal.ContractPeriod{
			StartPeriod: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			EndPeriod:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		ContractTemplateUUID: uuid.NewString(),
		ClientUUID:           uuid.New(),
		PartnerUUID:          uuid.New(),
		Laterality:           deal.Bilateral,
		ClientToPartner:      directionalData(structuredPlan(deal.ServiceData, deal.DestinationAll)),
		PartnerToClient:      directionalData(structuredPlan(deal.ServiceData, deal.DestinationAll)),
	}
}

func TestDeal_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(d *deal.Deal)
		expectErr bool
	}{
		{
			name:      "valid bilateral deal",
			mutate:    func(d *deal.Deal) {},
			expectErr: false,
		},
		{
			name: "wrong deal type",
			mutate: func(d *deal.Deal) {
				d.DealType = "AA14"
			},
			expectErr: true,
		},
		{
			name: "uploaded contract template",
			mutate: func(d *deal.Deal) {
				d.ContractTemplateUUID = "uploaded_contract"
			},
			expectErr: false,
		},
		{
			name: "garbage contract template",
			mutate: func(d *deal.Deal) {
				d.ContractTemplateUUID = "not-a-template"
			},
			expectErr: true,
		},
		{
			name: "missing client uuid",
			mutate: func(d *deal.Deal) {
				d.ClientUUID = uuid.Nil
			},
			expectErr: true,
		},
		{
			name: "contract period reversed",
			mutate: func(d *deal.Deal) {
				d.ContractPeriod.StartPeriod, d.ContractPeriod.EndPeriod = d.ContractPeriod.EndPeriod, d.ContractPeriod.StartPeriod
			},
			expectErr: true,
		},
		{
			name: "contract period start equals end",
			mutate: func(d *deal.Deal) {
				d.ContractPeriod.EndPeriod = d.ContractPeriod.StartPeriod
			},
			expectErr: true,
		},
		{
			name: "no directions at all",
			mutate: func(d *deal.Deal) {
				d.ClientToPartner, d.PartnerToClient = nil, nil
			},
			expectErr: true,
		},
		{
			name: "mixed storage and viewer orientations",
			mutate: func(d *deal.Deal) {
				d.Inbound = d.PartnerToClient
				d.PartnerToClient = nil
			},
			expectErr: true,
		},
		{
			name: "bilateral with a single direction",
			mutate: func(d *deal.Deal) {
				d.PartnerToClient = nil
			},
			expectErr: true,
		},
		{
			name: "unilateral with both directions",
			mutate: func(d *deal.Deal) {
				d.Laterality = deal.Unilateral
			},
			expectErr: true,
		},
		{
			name: "unilateral with one direction",
			mutate: func(d *deal.Deal) {
				d.Laterality = deal.Unilateral
				d.PartnerToClient = nil
			},
			expectErr: false,
		},
		{
			name: "unknown laterality",
			mutate: func(d *deal.Deal) {
				d.Laterality = "mutual"
			},
			expectErr: true,
		},
		{
			name: "viewer orientation bilateral",
			mutate: func(d *deal.Deal) {
				d.Inbound, d.Outbound = d.ClientToPartner, d.PartnerToClient
				d.ClientToPartner, d.PartnerToClient = nil, nil
			},
			expectErr: false,
		},
		{
			name: "missing currency code",
			mutate: func(d *deal.Deal) {
				d.ClientToPartner.CurrencyCode = ""
			},
			expectErr: true,
		},
		{
			name: "unknown destination on a rate plan",
			mutate: func(d *deal.Deal) {
				d.ClientToPartner.IoTRates[0].Destination = "galactic"
			},
			expectErr: true,
		},
		{
			name: "unknown service on a rate plan",
			mutate: func(d *deal.Deal) {
				d.ClientToPartner.IoTRates[0].Service = "fax"
			},
			expectErr: true,
		},
		{
			name: "unknown iot model type",
			mutate: func(d *deal.Deal) {
				d.ClientToPartner.IoTRates[0].ModelType = "flat"
			},
			expectErr: true,
		},
		{
			name: "rate plan without tiers",
			mutate: func(d *deal.Deal) {
				d.ClientToPartner.IoTRates[0].Tiers = nil
			},
			expectErr: true,
		},
		{
			name: "structured plan carrying balanced fields",
			mutate: func(d *deal.Deal) {
				d.ClientToPartner.IoTRates[0].BalancedRate = ptr(dec("0.2"))
			},
			expectErr: true,
		},
		{
			name: "custom addendum without org uuid",
			mutate: func(d *deal.Deal) {
				d.Addendums = []deal.Addendum{{Heading: "h", Content: "c", AddendumType: deal.AddendumCustom}}
			},
			expectErr: true,
		},
		{
			name: "system addendum with org uuid",
			mutate: func(d *deal.Deal) {
				d.Addendums = []deal.Addendum{{Heading: "h", Content: "c", AddendumType: deal.AddendumSystem, OrgUUID: ptr(uuid.New())}}
			},
			expectErr: true,
		},
		{
			name: "valid addendums",
			mutate: func(d *deal.Deal) {
				d.Addendums = []deal.Addendum{
					{Heading: "h", Content: "c", AddendumType: deal.AddendumSystem},
					{Heading: "h2", Content: "c2", AddendumType: deal.AddendumCustom, OrgUUID: ptr(uuid.New())},
				}
			},
			expectErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validBilateralDeal()
			tt.mutate(d)
			d.Normalize()
			err := d.Validate()

			if tt.expectErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTier_ThresholdRules(t *testing.T) {
	tests := []struct {
		name          string
		threshold     *int64
		thresholdType *string
		expectErr     bool
	}{
		{"both absent", nil, nil, false},
		{"both present", ptr(int64(100)), ptr("MB"), false},
		{"zero threshold", ptr(int64(0)), ptr("MB"), false},
		{"threshold without type", ptr(int64(100)), nil, true},
		{"type without threshold", nil, ptr("MB"), true},
		{"negative threshold", ptr(int64(-1)), ptr("MB"), true},
		{"unknown threshold type", ptr(int64(100)), ptr("furlongs"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validBilateralDeal()
			tier := validTier()
			tier.Threshold = tt.threshold
			tier.ThresholdType = tt.thresholdType
			d.ClientToPartner.IoTRates[0].Tiers = []deal.Tier{tier}

			err := d.Validate()
			if tt.expectErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRatePlan_TierOrdering(t *testing.T) {
	tierAt := func(threshold *int64) deal.Tier {
		tier := validTier()
		tier.Threshold = threshold
		if threshold != nil {
			tier.ThresholdType = ptr("MB")
		}
		return tier
	}

	tests := []struct {
		name       string
		thresholds []*int64
		expectErr  bool
	}{
		{"strictly increasing", []*int64{ptr(int64(100)), ptr(int64(200)), ptr(int64(300))}, false},
		{"equal neighbors", []*int64{ptr(int64(100)), ptr(int64(100))}, true},
		{"decreasing neighbors", []*int64{ptr(int64(200)), ptr(int64(100))}, true},
		{"final tier open-ended", []*int64{ptr(int64(100)), nil}, false},
		{"gap skips the comparison", []*int64{ptr(int64(200)), nil, ptr(int64(100))}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validBilateralDeal()
			var tiers []deal.Tier
			for _, th := range tt.thresholds {
				tiers = append(tiers, tierAt(th))
			}
			d.ClientToPartner.IoTRates[0].Tiers = tiers

			err := d.Validate()
			if tt.expectErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestScope_PartyCodes(t *testing.T) {
	tests := []struct {
		name      string
		codes     []string
		expectErr bool
	}{
		{"valid code", []string{"USA12"}, false},
		{"several valid codes", []string{"USA12", "GBRCN"}, false},
		{"too short", []string{"US1"}, true},
		{"non-alphanumeric", []string{"US1A!"}, true},
		{"digit in country prefix", []string{"U1A12"}, true},
		{"empty list", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validBilateralDeal()
			d.ClientToPartner.IoTRates[0].ServingParty = tt.codes

			err := d.Validate()
			if tt.expectErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestScope_PartyCodeCause(t *testing.T) {
	d := validBilateralDeal()
	d.ClientToPartner.IoTRates[0].ServedParty = []string{"US1"}

	err := d.Validate()
	var verr *deal.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a *ValidationError, got %v", err)
	}
	if verr.Cause != deal.CausePartyCode {
		t.Errorf("expected cause %q, got %q", deal.CausePartyCode, verr.Cause)
	}
}

func TestCommitment_Rules(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *deal.Commitment)
		expectErr bool
	}{
		{
			name:      "valid volume commitment",
			mutate:    func(c *deal.Commitment) {},
			expectErr: false,
		},
		{
			name: "volume commitment with two service rates",
			mutate: func(c *deal.Commitment) {
				extra := c.ServiceRates[0]
				extra.UUID = uuid.New()
				c.ServiceRates = append(c.ServiceRates, extra)
			},
			expectErr: true,
		},
		{
			name: "volume type in a different rate class",
			mutate: func(c *deal.Commitment) {
				c.VolumeType = ptr("minutes")
			},
			expectErr: true,
		},
		{
			name: "volume commitment with an amount",
			mutate: func(c *deal.Commitment) {
				c.Amount = ptr(dec("1000"))
			},
			expectErr: true,
		},
		{
			name: "financial commitment",
			mutate: func(c *deal.Commitment) {
				c.CommitmentType = deal.CommitmentFinancial
				c.Amount = ptr(dec("1000"))
				c.Volume, c.VolumeType = nil, nil
			},
			expectErr: false,
		},
		{
			name: "financial commitment without amount",
			mutate: func(c *deal.Commitment) {
				c.CommitmentType = deal.CommitmentFinancial
				c.Volume, c.VolumeType = nil, nil
			},
			expectErr: true,
		},
		{
			name: "unknown commitment type",
			mutate: func(c *deal.Commitment) {
				c.CommitmentType = "promissory"
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validBilateralDeal()
			c := volumeCommitment(deal.ServiceData, deal.DestinationAll, "MB", "MB")
			tt.mutate(&c)
			d.ClientToPartner.Commitments = []deal.Commitment{c}

			err := d.Validate()
			if tt.expectErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDirectionalData_ScopeUniqueness(t *testing.T) {
	tests := []struct {
		name      string
		plans     []deal.RatePlan
		expectErr bool
	}{
		{
			name:      "distinct destinations",
			plans:     []deal.RatePlan{structuredPlan(deal.ServiceData, deal.DestinationHome), structuredPlan(deal.ServiceData, deal.DestinationLocal)},
			expectErr: false,
		},
		{
			name:      "same service and destination twice",
			plans:     []deal.RatePlan{structuredPlan(deal.ServiceData, deal.DestinationHome), structuredPlan(deal.ServiceData, deal.DestinationHome)},
			expectErr: true,
		},
		{
			name:      "wildcard collides with a specific destination",
			plans:     []deal.RatePlan{structuredPlan(deal.ServiceData, deal.DestinationAll), structuredPlan(deal.ServiceData, deal.DestinationHome)},
			expectErr: true,
		},
		{
			name:      "same destination on different services",
			plans:     []deal.RatePlan{structuredPlan(deal.ServiceData, deal.DestinationHome), structuredPlan(deal.ServiceSMS, deal.DestinationHome)},
			expectErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validBilateralDeal()
			d.ClientToPartner.IoTRates = tt.plans

			err := d.Validate()
			if tt.expectErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDirectionalData_CommitmentCoverage(t *testing.T) {
	tests := []struct {
		name        string
		plans       []deal.RatePlan
		commitments []deal.Commitment
		expectErr   bool
	}{
		{
			name:        "covered directly",
			plans:       []deal.RatePlan{structuredPlan(deal.ServiceData, deal.DestinationHome)},
			commitments: []deal.Commitment{volumeCommitment(deal.ServiceData, deal.DestinationHome, "MB", "MB")},
			expectErr:   false,
		},
		{
			name:        "covered via the wildcard",
			plans:       []deal.RatePlan{structuredPlan(deal.ServiceData, deal.DestinationAll)},
			commitments: []deal.Commitment{volumeCommitment(deal.ServiceData, deal.DestinationHome, "MB", "MB")},
			expectErr:   false,
		},
		{
			name:        "committed service has no iot rate",
			plans:       []deal.RatePlan{structuredPlan(deal.ServiceSMS, deal.DestinationAll)},
			commitments: []deal.Commitment{volumeCommitment(deal.ServiceData, deal.DestinationHome, "MB", "MB")},
			expectErr:   true,
		},
		{
			name:        "committed destination not covered",
			plans:       []deal.RatePlan{structuredPlan(deal.ServiceData, deal.DestinationLocal)},
			commitments: []deal.Commitment{volumeCommitment(deal.ServiceData, deal.DestinationHome, "MB", "MB")},
			expectErr:   true,
		},
		{
			name:  "duplicate commitment destination",
			plans: []deal.RatePlan{structuredPlan(deal.ServiceData, deal.DestinationAll)},
			commitments: []deal.Commitment{
				volumeCommitment(deal.ServiceData, deal.DestinationHome, "MB", "MB"),
				volumeCommitment(deal.ServiceData, deal.DestinationHome, "MB", "MB"),
			},
			expectErr: true,
		},
		{
			name:  "wildcard commitment alongside a specific one",
			plans: []deal.RatePlan{structuredPlan(deal.ServiceData, deal.DestinationAll)},
			commitments: []deal.Commitment{
				volumeCommitment(deal.ServiceData, deal.DestinationAll, "MB", "MB"),
				volumeCommitment(deal.ServiceData, deal.DestinationHome, "MB", "MB"),
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validBilateralDeal()
			d.ClientToPartner.IoTRates = tt.plans
			d.ClientToPartner.Commitments = tt.commitments

			err := d.Validate()
			if tt.expectErr && err == nil {
				t.Errorf("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDirectionalData_TapRates(t *testing.T) {
	tapRate := func(service deal.Service, dest deal.Destination) deal.TapRate {
		return deal.TapRate{
			UUID:       uuid.New(),
			ModelType:  deal.ModelTypeTapRate,
			Scope:      testScope(dest),
			Service:    service,
			Rate:       dec("0.05"),
			RateUnit:   decimal.NewFromInt(1),
			RateType:   "MB",
			ChargeUnit: decimal.NewFromInt(1),
			ChargeType: "MB",
		}
	}

	t.Run("tap rates require a currency code", func(t *testing.T) {
		d := validBilateralDeal()
		d.ClientToPartner.TapRates = []deal.TapRate{tapRate(deal.ServiceData, deal.DestinationHome)}
		if err := d.Validate(); err == nil {
			t.Errorf("expected error, got nil")
		}
	})

	t.Run("tap rate with currency and coverage", func(t *testing.T) {
		d := validBilateralDeal()
		d.ClientToPartner.TapRateCurrencyCode = ptr("GBP")
		d.ClientToPartner.TapRates = []deal.TapRate{tapRate(deal.ServiceData, deal.DestinationHome)}
		if err := d.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("tap rate service without iot rate", func(t *testing.T) {
		d := validBilateralDeal()
		d.ClientToPartner.TapRateCurrencyCode = ptr("GBP")
		d.ClientToPartner.TapRates = []deal.TapRate{tapRate(deal.ServiceVoiceMO, deal.DestinationHome)}
		if err := d.Validate(); err == nil {
			t.Errorf("expected error, got nil")
		}
	})

	t.Run("duplicate tap destinations", func(t *testing.T) {
		d := validBilateralDeal()
		d.ClientToPartner.TapRateCurrencyCode = ptr("GBP")
		d.ClientToPartner.TapRates = []deal.TapRate{
			tapRate(deal.ServiceData, deal.DestinationHome),
			tapRate(deal.ServiceData, deal.DestinationHome),
		}
		if err := d.Validate(); err == nil {
			t.Errorf("expected error, got nil")
		}
	})
}

func TestDeal_BalancedRates(t *testing.T) {
	t.Run("unilateral deal rejects balanced plans", func(t *testing.T) {
		d := validBilateralDeal()
		d.Laterality = deal.Unilateral
		d.PartnerToClient = nil
		d.ClientToPartner = directionalData(balancedPlan(deal.ServiceData, deal.DestinationHome, "0.1"))

		err := d.Validate()
		var verr *deal.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected a *ValidationError, got %v", err)
		}
		if verr.Cause != deal.CauseBalancedUnilateral {
			t.Errorf("expected cause %q, got %q", deal.CauseBalancedUnilateral, verr.Cause)
		}
	})

	t.Run("bilateral with equal counterparts", func(t *testing.T) {
		d := validBilateralDeal()
		d.ClientToPartner = directionalData(balancedPlan(deal.ServiceData, deal.DestinationHome, "0.1"))
		d.PartnerToClient = directionalData(balancedPlan(deal.ServiceData, deal.DestinationHome, "0.1"))
		if err := d.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("one-sided balanced plan", func(t *testing.T) {
		d := validBilateralDeal()
		d.ClientToPartner = directionalData(balancedPlan(deal.ServiceData, deal.DestinationHome, "0.1"))
		if err := d.Validate(); err == nil {
			t.Errorf("expected error, got nil")
		}
	})

	t.Run("mismatched balanced rates", func(t *testing.T) {
		d := validBilateralDeal()
		d.ClientToPartner = directionalData(balancedPlan(deal.ServiceData, deal.DestinationHome, "0.1"))
		d.PartnerToClient = directionalData(balancedPlan(deal.ServiceData, deal.DestinationHome, "0.2"))
		if err := d.Validate(); err == nil {
			t.Errorf("expected error, got nil")
		}
	})

	t.Run("counterpart under a different destination", func(t *testing.T) {
		d := validBilateralDeal()
		d.ClientToPartner = directionalData(balancedPlan(deal.ServiceData, deal.DestinationHome, "0.1"))
		d.PartnerToClient = directionalData(balancedPlan(deal.ServiceData, deal.DestinationLocal, "0.1"))
		if err := d.Validate(); err == nil {
			t.Errorf("expected error, got nil")
		}
	})
}

func TestDeal_Normalize(t *testing.T) {
	d := validBilateralDeal()
	d.DealType = ""
	d.ClientToPartner.Tax = true
	d.ClientToPartner.TapRateTax = nil
	d.ClientToPartner.IoTRates[0].UUID = uuid.Nil
	d.ClientToPartner.TapRates = []deal.TapRate{{
		Scope:      testScope(deal.DestinationAll),
		Service:    deal.ServiceData,
		Rate:       dec("0.05"),
		RateUnit:   decimal.NewFromInt(1),
		RateType:   "MB",
		ChargeUnit: decimal.NewFromInt(1),
		ChargeType: "MB",
	}}
	d.ClientToPartner.TapRateCurrencyCode = ptr("GBP")

	d.Normalize()

	if d.DealType != "AA12" {
		t.Errorf("expected deal type to default to AA12, got %q", d.DealType)
	}
	if d.ClientToPartner.TapRateTax == nil || *d.ClientToPartner.TapRateTax != true {
		t.Errorf("expected tap_rate_tax to inherit tax")
	}
	if d.ClientToPartner.IoTRates[0].UUID == uuid.Nil {
		t.Errorf("expected a generated iot rate uuid")
	}
	if d.ClientToPartner.TapRates[0].ModelType != deal.ModelTypeTapRate {
		t.Errorf("expected tap rate model type to default, got %q", d.ClientToPartner.TapRates[0].ModelType)
	}
	if d.ClientToPartner.TapRates[0].UUID == uuid.Nil {
		t.Errorf("expected a generated tap rate uuid")
	}

	if err := d.Validate(); err != nil {
		t.Errorf("normalized deal failed validation: %v", err)
	}
}
