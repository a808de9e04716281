package store

// Store is the normalized replica: kind -> primary key -> record, plus the
// tournament singleton. It is not safe for concurrent use; a single session
// goroutine owns it.
type Store struct {
	records    map[Kind]map[int64]Record
	tournament *Record
}

func New() *Store {
	return &Store{records: make(map[Kind]map[int64]Record)}
}

// LoadSnapshot discards everything and rebuilds the store from records.
func (s *Store) LoadSnapshot(records []Record) {
	s.records = make(map[Kind]map[int64]Record)
	s.tournament = nil
	for _, rec := range records {
		s.ApplyUpdate(rec)
	}
}

// ApplyUpdate merges a partial record into the store. Incoming fields
// overwrite, absent fields are left alone, and nulls are stored as nulls.
// The tournament singleton is replaced wholesale.
func (s *Store) ApplyUpdate(rec Record) {
	if rec.Kind == KindTournament {
		c := rec.Clone()
		s.tournament = &c
		return
	}

	bucket := s.records[rec.Kind]
	if bucket == nil {
		bucket = make(map[int64]Record)
		s.records[rec.Kind] = bucket
	}

	existing, ok := bucket[rec.PK]
	if !ok {
		bucket[rec.PK] = rec.Clone()
		return
	}
	for k, v := range rec.Fields {
		existing.Fields[k] = v
	}
}

// ApplyDelete removes a record and reports whether it was present.
// Deleting a missing record is a no-op.
func (s *Store) ApplyDelete(kind Kind, pk int64) bool {
	if kind == KindTournament {
		if s.tournament == nil {
			return false
		}
		s.tournament = nil
		return true
	}
	bucket := s.records[kind]
	if _, ok := bucket[pk]; !ok {
		return false
	}
	delete(bucket, pk)
	return true
}

// Get returns a copy of the record. The tournament is found regardless of pk.
func (s *Store) Get(kind Kind, pk int64) (Record, bool) {
	if kind == KindTournament {
		if s.tournament == nil {
			return Record{}, false
		}
		return s.tournament.Clone(), true
	}
	rec, ok := s.records[kind][pk]
	if !ok {
		return Record{}, false
	}
	return rec.Clone(), true
}

// All returns copies of every record of a kind in no particular order.
func (s *Store) All(kind Kind) []Record {
	if kind == KindTournament {
		if s.tournament == nil {
			return nil
		}
		return []Record{s.tournament.Clone()}
	}
	bucket := s.records[kind]
	out := make([]Record, 0, len(bucket))
	for _, rec := range bucket {
		out = append(out, rec.Clone())
	}
	return out
}

func (s *Store) Len(kind Kind) int {
	if kind == KindTournament {
		if s.tournament == nil {
			return 0
		}
		return 1
	}
	return len(s.records[kind])
}

// Tournament returns the singleton, if one has been received.
func (s *Store) Tournament() (Record, bool) {
	return s.Get(KindTournament, 0)
}
