package session

// Aggregator keeps run-wide tallies of the domains and entities that
// collected items were annotated with.
type Aggregator struct {
	domains  *Counts
	entities *Counts
}

func NewAggregator() *Aggregator {
	return &Aggregator{domains: NewCounts(), entities: NewCounts()}
}

// Accumulate adds one item's counts to the running totals.
func (a *Aggregator) Accumulate(domains, entities *Counts) {
	for _, e := range domains.Entries() {
		a.domains.Add(e.Name, e.Count)
	}
	for _, e := range entities.Entries() {
		a.entities.Add(e.Name, e.Count)
	}
}

// Finalize returns both tallies sorted by count, highest first.
func (a *Aggregator) Finalize() (domains, entities []Count) {
	return a.domains.Sorted(), a.entities.Sorted()
}
