package match

import "github.com/google/uuid"

// Record is the slice of a usage record the matcher consumes: the service the
// traffic belongs to, the operator pair that carried it, and the country
// triple the destination class is derived from.
type Record struct {
	ServiceType    string
	HomePMN        string
	VisitorPMN     string
	HomeCountry    string
	VisitorCountry string
	CalledCountry  string
}

// Match attributes one record to the deal's rate entities. Every field is
// independent; nil means no entity of that kind covers the record, which is
// an ordinary outcome, not an error.
type Match struct {
	ServiceUUID     *uuid.UUID
	CommitmentUUID  *uuid.UUID
	ServiceRateUUID *uuid.UUID
	TapUUID         *uuid.UUID
}

// Unmatched reports whether no rate entity at all covers the record.
func (m Match) Unmatched() bool {
	return m.ServiceUUID == nil && m.CommitmentUUID == nil && m.ServiceRateUUID == nil && m.TapUUID == nil
}
