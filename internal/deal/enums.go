package deal

type Service string

const (
	ServiceVoiceMO Service = "voice_mo"
	ServiceSMS     Service = "sms"
	ServiceData    Service = "data"
	ServiceVoiceMT Service = "voice_mt"
	ServiceVoLTE   Service = "volte"
)

func (s Service) IsValid() bool {
	switch s {
	case ServiceVoiceMO, ServiceSMS, ServiceData, ServiceVoiceMT, ServiceVoLTE:
		return true
	}
	return false
}

type Destination string

const (
	DestinationHome          Destination = "home"
	DestinationLocal         Destination = "local"
	DestinationInternational Destination = "international"
	DestinationAll           Destination = "all"
)

func (d Destination) IsValid() bool {
	switch d {
	case DestinationHome, DestinationLocal, DestinationInternational, DestinationAll:
		return true
	}
	return false
}

// concreteDestinations are the destinations "all" stands for.
var concreteDestinations = []Destination{DestinationHome, DestinationLocal, DestinationInternational}

type Laterality string

const (
	Unilateral Laterality = "unilateral"
	Bilateral  Laterality = "bilateral"
)

func (l Laterality) IsValid() bool {
	return l == Unilateral || l == Bilateral
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type ModelType string

const (
	ModelTypeStructured ModelType = "structured" // tiered or flat
	ModelTypeBalanced   ModelType = "balanced"
	ModelTypeTapRate    ModelType = "tap_rate"
)

type CommitmentType string

const (
	CommitmentFinancial CommitmentType = "financial"
	CommitmentVolume    CommitmentType = "volume"
)

type AddendumType string

const (
	AddendumSystem AddendumType = "system"
	AddendumCustom AddendumType = "custom"
)

// RateClass identifies which of the three disjoint rate-type enumerations a
// value belongs to. A rate type belongs to at most one class.
type RateClass int

const (
	RateClassNone RateClass = iota
	RateClassVoice
	RateClassSMS
	RateClassData
)

// ClassOfRateType reports the class of a rate/charge/threshold/volume type,
// or RateClassNone when the value is not a known rate type.
//
// Voice: seconds, minutes. SMS: sms. Data: KB, MB, GB, TB.
func ClassOfRateType(v string) RateClass {
	switch v {
	case "seconds", "minutes":
		return RateClassVoice
	case "sms":
		return RateClassSMS
	case "KB", "MB", "GB", "TB":
		return RateClassData
	}
	return RateClassNone
}

// SameRateClass reports whether two rate-type values belong to the same
// (known) class.
func SameRateClass(a, b string) bool {
	ca := ClassOfRateType(a)
	return ca != RateClassNone && ca == ClassOfRateType(b)
}
