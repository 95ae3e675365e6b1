package bolt

// PMNPair identifies one operator relationship inside a file.
type PMNPair struct {
	HomePMN    string
	VisitorPMN string
}

// SplitByOperator groups records by their operator pair. Pairs come back in
// first-seen order and records keep their order within each group, so a
// deterministic input yields a deterministic processing sequence.
func SplitByOperator(records []Record) ([]PMNPair, map[PMNPair][]Record) {
	var pairs []PMNPair
	groups := make(map[PMNPair][]Record)

	for _, r := range records {
		key := PMNPair{HomePMN: r.HomePMN, VisitorPMN: r.VisitorPMN}
		if _, ok := groups[key]; !ok {
			pairs = append(pairs, key)
		}
		groups[key] = append(groups[key], r)
	}
	return pairs, groups
}
