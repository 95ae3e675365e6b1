package bolt

import (
	"github.com/shopspring/decimal"

	"roaming-recon/internal/match"
)

// FileType says which side of the roaming relationship a usage file reports:
// a home file is our subscribers abroad, a visiting file is foreign
// subscribers on our network.
type FileType string

const (
	FileTypeHome     FileType = "home"
	FileTypeVisiting FileType = "visiting"
	FileTypeUnknown  FileType = "unknown"
)

// Record is one row of the flat interchange format every operator feed is
// transformed into: one service's figures for one source row.
type Record struct {
	match.Record

	Date               string
	CurrencyCode       string
	VolumeCharged      decimal.Decimal
	VolumeChargeable   decimal.Decimal
	IMSIUsed           int
	ChargeExcludingTax decimal.Decimal
	ChargeIncludingTax decimal.Decimal
	PctOfTotalCharge   decimal.Decimal
}
