package service

import (
	"maps"

	"github.com/SierraSoftworks/connor"

	"github.com/fulldump/hashdb/dberror"
	"github.com/fulldump/hashdb/query"
)

// Find selects records with a document filter such as
// {"name": "Ann", "age": {"$gt": 26}} instead of a where expression. The
// record id can be matched under query.IDField. Results are sorted, paginated
// and projected as Query does. An empty filter falls back to Query.
func (s *Service) Find(databaseName, collectionName string, filter map[string]any, options query.Options) (*query.Result, error) {
	if len(filter) == 0 {
		return s.Query(databaseName, collectionName, options)
	}
	if options.Filter != "" {
		return nil, dberror.InvalidArgument("use either a where expression or a filter document, not both")
	}

	err := options.Validate()
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	col, err := s.getCollection(databaseName, collectionName)
	if err != nil {
		return nil, err
	}

	selection := &query.Selection{
		Matches: []query.Match{},
		Plan:    query.PlanScan,
	}
	for _, record := range col.All() {
		document := maps.Clone(record.Attributes)
		document[query.IDField] = record.ID

		match, err := connor.Match(filter, document)
		if err != nil {
			return nil, dberror.InvalidArgument("filter: %s", err.Error())
		}
		if !match {
			continue
		}
		selection.Matches = append(selection.Matches, query.Match{ID: record.ID, Attributes: record.Attributes})
	}

	return query.Finish(selection, options), nil
}
