package letters

import "time"

// Filter holds up to three optional, AND-combined predicates over the
// letters collection. Zero values mean "match all" for that dimension.
type Filter struct {
	Date   *time.Time // matches the calendar day of AbsenceDate
	Class  string     // matches the live student record's class
	Status Status     // exact status match
}

// IsZero reports whether no predicate is set.
func (f Filter) IsZero() bool {
	return f.Date == nil && f.Class == "" && f.Status == ""
}

// Filtered returns the letters matching the filter, preserving collection
// order. The class predicate resolves class through the student roster, not
// the letter's submission-time snapshot; letters whose student no longer
// exists never match a class filter.
func (s *Store) Filtered(f Filter) []Letter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Letter, 0, len(s.letters))
	for _, l := range s.letters {
		if f.Date != nil && !sameDay(l.AbsenceDate, *f.Date) {
			continue
		}
		if f.Class != "" {
			student, ok := s.findStudent(l.StudentID)
			if !ok || student.Class != f.Class {
				continue
			}
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		out = append(out, l)
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
