package normalize

import (
	"github.com/qepting91/misinfo-collector/internal/domain"
	"github.com/qepting91/misinfo-collector/internal/session"
)

// CountAnnotations tallies the domain and entity names of a context
// annotation list such as
//
//	[{"domain": {"name": "Sport"}, "entity": {"name": "FIFA"}}, ...]
//
// Entries missing a name are skipped for that side only.
func CountAnnotations(item domain.RawItem, field string) (domains, entities *session.Counts, ok bool) {
	list, found := item.Get(field)
	if !found || !list.IsArray() {
		return nil, nil, false
	}
	domains, entities = session.NewCounts(), session.NewCounts()
	for _, a := range list.Array() {
		if name := a.Get("domain.name"); name.Exists() {
			domains.Add(name.String(), 1)
		}
		if name := a.Get("entity.name"); name.Exists() {
			entities.Add(name.String(), 1)
		}
	}
	return domains, entities, true
}
