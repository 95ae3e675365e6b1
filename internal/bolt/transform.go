package bolt

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNoServiceMappings is returned when a transform is attempted without any
// column mappings for the feed.
var ErrNoServiceMappings = errors.New("no service mappings provided")

// ServiceMapping tells the transform where one service's figures live in a
// wide usage file. A mapping whose charge column is absent from the file is
// skipped.
type ServiceMapping struct {
	ServiceName         string `hcl:"service_name,label"`
	BoltServiceName     string `hcl:"bolt_service_name,optional"`
	ChargeInclTaxCol    string `hcl:"charge_incl_tax_col"`
	ChargeExclTaxCol    string `hcl:"charge_excl_tax_col"`
	VolumeChargedCol    string `hcl:"volume_charged_col,optional"`
	VolumeChargeableCol string `hcl:"volume_chargeable_col,optional"`
	PMNCodeCol          string `hcl:"pmn_code_col,optional"`
	CalledCountryISOCol string `hcl:"called_country_iso_code,optional"`
	DateCol             string `hcl:"date_col,optional"`
	CurrencyCodeCol     string `hcl:"currency_code_col,optional"`
	IMSICol             string `hcl:"imsi_col,optional"`
	PctOfTotalChargeCol string `hcl:"pct_of_total_charge_col,optional"`

	// Documentation only; the volume columns already imply the unit.
	VolumeType string `hcl:"volume_type,optional"`
}

// fallback column names for the roaming partner's PMN code, tried in order
// when the mapping does not name one.
var partnerPMNColumns = []string{"tadig", "hplmn_operator_id", "vplmn_operator_id"}

// Transform turns a wide usage file into flat interchange records: one record
// per (mapping, source row), concatenated in mapping order.
type Transform struct {
	Mappings []ServiceMapping

	// OwnerPMN is the file owner's network; FileType decides whether it is
	// the home or the visited side of each record.
	OwnerPMN string
	FileType FileType

	// Countries maps the file's country display names to ISO-3166 alpha-3.
	Countries map[string]string

	Logger *zap.Logger
}

// Apply transforms the frame. Rows whose charges are all zero are dropped.
func (t *Transform) Apply(f *Frame) ([]Record, error) {
	if len(t.Mappings) == 0 {
		return nil, ErrNoServiceMappings
	}
	logger := t.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var out []Record
	for _, m := range t.Mappings {
		if !f.HasColumn(m.ChargeExclTaxCol) {
			logger.Warn("skipping service mapping, charge column not found",
				zap.String("service", m.ServiceName),
				zap.String("column", m.ChargeExclTaxCol))
			continue
		}
		out = append(out, t.applyMapping(f, m)...)
	}
	return out, nil
}

func (t *Transform) applyMapping(f *Frame, m ServiceMapping) []Record {
	dateCol := defaultColumn(m.DateCol, "callmonth")
	currencyCol := defaultColumn(m.CurrencyCodeCol, "currency")
	imsiCol := defaultColumn(m.IMSICol, "no_imsi")
	pctCol := defaultColumn(m.PctOfTotalChargeCol, "of_total_charge")

	partnerCol := t.partnerPMNColumn(f, m)

	var out []Record
	for row := 0; row < f.Len(); row++ {
		r := Record{
			Date:         f.Value(row, dateCol),
			CurrencyCode: f.Value(row, currencyCol),
		}
		r.HomeCountry = t.homeCountry(f, row)
		r.VisitorCountry = f.Value(row, m.CalledCountryISOCol)
		r.CalledCountry = f.Value(row, m.CalledCountryISOCol)
		r.HomePMN, r.VisitorPMN = t.attributePMNs(f, row, partnerCol)
		r.ServiceType = t.serviceType(f, row, m)

		r.VolumeCharged = parseDecimal(f.Value(row, m.VolumeChargedCol))
		r.VolumeChargeable = parseDecimal(f.Value(row, m.VolumeChargeableCol))
		r.IMSIUsed = parseInt(f.Value(row, imsiCol))
		r.ChargeExcludingTax = parseDecimal(f.Value(row, m.ChargeExclTaxCol))
		if f.HasColumn(m.ChargeInclTaxCol) {
			r.ChargeIncludingTax = parseDecimal(f.Value(row, m.ChargeInclTaxCol))
		} else {
			r.ChargeIncludingTax = r.ChargeExcludingTax
		}
		r.PctOfTotalCharge = parseDecimal(f.Value(row, pctCol))

		if r.ChargeExcludingTax.IsZero() && r.ChargeIncludingTax.IsZero() {
			continue
		}
		out = append(out, r)
	}
	return out
}

// serviceType resolves the record's service: the normalized value of the
// feed's call-type column when the mapping names one, the mapping's service
// name otherwise.
func (t *Transform) serviceType(f *Frame, row int, m ServiceMapping) string {
	if m.BoltServiceName != "" && f.HasColumn(m.BoltServiceName) {
		return NormalizeCallType(f.Value(row, m.BoltServiceName))
	}
	return m.ServiceName
}

// homeCountry prefers a ready-made ISO column and otherwise converts the
// display-name country column through the configured country table.
func (t *Transform) homeCountry(f *Frame, row int) string {
	if f.HasColumn("country_iso3") {
		return f.Value(row, "country_iso3")
	}
	if f.HasColumn("country") {
		return t.Countries[f.Value(row, "country")]
	}
	return ""
}

func (t *Transform) partnerPMNColumn(f *Frame, m ServiceMapping) string {
	if m.PMNCodeCol != "" && f.HasColumn(m.PMNCodeCol) {
		return m.PMNCodeCol
	}
	for _, col := range partnerPMNColumns {
		if f.HasColumn(col) {
			return col
		}
	}
	return ""
}

// attributePMNs assigns the owner's PMN to the side the file type names and
// the per-row partner code to the other side.
func (t *Transform) attributePMNs(f *Frame, row int, partnerCol string) (home, visitor string) {
	partner := ""
	if partnerCol != "" {
		partner = f.Value(row, partnerCol)
	}
	switch t.FileType {
	case FileTypeHome:
		return t.OwnerPMN, partner
	case FileTypeVisiting:
		return partner, t.OwnerPMN
	default:
		return "", ""
	}
}

// NormalizeCallType maps a feed's call-type label onto the service names
// deals are written in: lowercased, spaces to underscores, with the legacy
// labels folded ("gprs" to data, "sms_mo"/"sms_mt" to sms).
func NormalizeCallType(v string) string {
	v = strings.ReplaceAll(strings.ToLower(v), " ", "_")
	if v == "gprs" {
		return "data"
	}
	if strings.HasPrefix(v, "sms_") {
		return "sms"
	}
	return v
}

func defaultColumn(col, fallback string) string {
	if col == "" {
		return fallback
	}
	return col
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
