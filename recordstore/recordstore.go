package recordstore

import (
	"github.com/cespare/xxhash/v2"
	"github.com/google/btree"
)

const DefaultBuckets = 100

type Attributes = map[string]any

type entry struct {
	ID         string
	Attributes Attributes
}

func lessEntry(a, b *entry) bool {
	return a.ID < b.ID
}

// RecordStore maps record ids to attributes. Ids are spread over a fixed
// number of buckets by hash; each bucket keeps its entries ordered by id.
type RecordStore struct {
	buckets []*btree.BTreeG[*entry]
	length  int
}

func New(buckets int) *RecordStore {
	if buckets <= 0 {
		buckets = DefaultBuckets
	}

	s := &RecordStore{
		buckets: make([]*btree.BTreeG[*entry], buckets),
	}
	for i := range s.buckets {
		s.buckets[i] = btree.NewG(8, lessEntry)
	}

	return s
}

func (s *RecordStore) bucket(id string) *btree.BTreeG[*entry] {
	return s.buckets[xxhash.Sum64String(id)%uint64(len(s.buckets))]
}

// Insert stores attributes under id, replacing any previous record.
func (s *RecordStore) Insert(id string, attributes Attributes) {
	_, replaced := s.bucket(id).ReplaceOrInsert(&entry{
		ID:         id,
		Attributes: attributes,
	})
	if !replaced {
		s.length++
	}
}

func (s *RecordStore) Get(id string) (Attributes, bool) {
	e, found := s.bucket(id).Get(&entry{ID: id})
	if !found {
		return nil, false
	}
	return e.Attributes, true
}

func (s *RecordStore) Has(id string) bool {
	return s.bucket(id).Has(&entry{ID: id})
}

// Remove deletes id and reports whether it was present.
func (s *RecordStore) Remove(id string) bool {
	_, removed := s.bucket(id).Delete(&entry{ID: id})
	if removed {
		s.length--
	}
	return removed
}

// Iterate visits every record bucket by bucket until f returns false. The
// order depends on the bucket count, not on insertion order.
func (s *RecordStore) Iterate(f func(id string, attributes Attributes) bool) {
	stop := false
	for _, b := range s.buckets {
		b.Ascend(func(e *entry) bool {
			if !f(e.ID, e.Attributes) {
				stop = true
				return false
			}
			return true
		})
		if stop {
			return
		}
	}
}

func (s *RecordStore) Len() int {
	return s.length
}

func (s *RecordStore) Buckets() int {
	return len(s.buckets)
}

// Document is the flat id -> attributes form used for persistence.
func (s *RecordStore) Document() map[string]Attributes {
	result := make(map[string]Attributes, s.length)
	s.Iterate(func(id string, attributes Attributes) bool {
		result[id] = attributes
		return true
	})
	return result
}
