package review

import (
	"slices"

	"github.com/AlekseyZapadovnikov/code-review/internal/models"
)

// Entry запись журнала ревью для одной связанной ревизии.
type Entry struct {
	Change             models.ChangeRecord
	Reviewed           bool
	Reviewer           string
	SuitableForCompare bool
}

// Key возвращает ключ записи.
func (e *Entry) Key() string {
	return e.Change.Key()
}

// Set журнал ревью одного объекта.
type Set struct {
	entries []*Entry
}

// MatchAll предикат для отметки всех ревизий.
func MatchAll(string) bool { return true }

// MatchKeys строит предикат по явному набору ключей.
func MatchKeys(keys []string) func(string) bool {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return func(key string) bool {
		_, ok := set[key]
		return ok
	}
}

// NewThresholdSet строит журнал по номеру последней просмотренной ревизии основного репозитория.
func NewThresholdSet(changes []models.ChangeRecord, lastReviewed *int) *Set {
	s := &Set{entries: make([]*Entry, 0, len(changes))}
	for _, c := range changes {
		e := &Entry{Change: c}
		if c.IsDefaultRepository() {
			rev, err := c.NumericRevision()
			if err == nil {
				e.Reviewed = lastReviewed != nil && rev <= *lastReviewed
				e.SuitableForCompare = len(c.ChangedPaths) > 0
			}
		}
		s.entries = append(s.entries, e)
	}
	return s
}

// NewRecordSet строит журнал по разобранной строке журнала.
func NewRecordSet(changes []models.ChangeRecord, rec Record) *Set {
	s := &Set{entries: make([]*Entry, 0, len(changes))}
	for _, c := range changes {
		e := &Entry{Change: c}
		if reviewer, ok := rec[c.Key()]; ok {
			e.Reviewed = true
			e.Reviewer = reviewer
		}
		e.SuitableForCompare = c.IsDefaultRepository() && len(c.ChangedPaths) > 0
		s.entries = append(s.entries, e)
	}
	return s
}

// Entries возвращает копию записей в исходном порядке ревизий.
func (s *Set) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out
}

// MarkReviewed отмечает подходящие непросмотренные ревизии от имени ревьюера.
// Ревизии, автором которых является сам ревьюер, пропускаются.
func (s *Set) MarkReviewed(match func(key string) bool, reviewer Identity) {
	for _, e := range s.entries {
		if e.Reviewed || !match(e.Key()) {
			continue
		}
		if reviewer.IsAuthorOf(e.Change) {
			continue
		}
		e.Reviewed = true
		e.Reviewer = reviewer.ID
	}
}

// MarkKeysReviewed отмечает ревизии с перечисленными ключами.
func (s *Set) MarkKeysReviewed(keys []string, reviewer Identity) {
	s.MarkReviewed(MatchKeys(keys), reviewer)
}

// HasUnreviewed сообщает, остались ли непросмотренные ревизии.
func (s *Set) HasUnreviewed() bool {
	return s.any(func(e *Entry) bool { return !e.Reviewed })
}

// HasUnreviewedSuitableForCompare сообщает о непросмотренных ревизиях, для которых доступно сравнение.
func (s *Set) HasUnreviewedSuitableForCompare() bool {
	return s.any(func(e *Entry) bool { return !e.Reviewed && e.SuitableForCompare })
}

// HasUnreviewedNonDefaultRepository сообщает о непросмотренных ревизиях внешних репозиториев.
func (s *Set) HasUnreviewedNonDefaultRepository() bool {
	return s.any(func(e *Entry) bool { return !e.Reviewed && !e.Change.IsDefaultRepository() })
}

// HasAnySuitableForCompare сообщает, есть ли хотя бы одна ревизия для сравнения.
func (s *Set) HasAnySuitableForCompare() bool {
	return s.any(func(e *Entry) bool { return e.SuitableForCompare })
}

// HasReviewedByDisallowedReviewer ищет отметки, поставленные пользователями без права ревью.
func (s *Set) HasReviewedByDisallowedReviewer(isAllowed func(reviewer string) bool) bool {
	return s.any(func(e *Entry) bool { return e.Reviewer != "" && !isAllowed(e.Reviewer) })
}

// HasSelfReviewedEntries ищет ревизии, отмеченные их же автором.
func (s *Set) HasSelfReviewedEntries(resolve Resolver) bool {
	return s.any(func(e *Entry) bool {
		return e.Reviewed && e.Reviewer != "" && resolve(e.Reviewer).IsAuthorOf(e.Change)
	})
}

// HasUnreviewedAuthoredBy сообщает о непросмотренных ревизиях пользователя.
func (s *Set) HasUnreviewedAuthoredBy(user Identity) bool {
	return s.any(func(e *Entry) bool { return !e.Reviewed && user.IsAuthorOf(e.Change) })
}

// HasUnreviewedNotAuthoredBy сообщает о непросмотренных ревизиях других авторов.
func (s *Set) HasUnreviewedNotAuthoredBy(user Identity) bool {
	return s.any(func(e *Entry) bool { return !e.Reviewed && !user.IsAuthorOf(e.Change) })
}

// ComparableUnreviewed возвращает непросмотренные ревизии, для которых доступно сравнение.
func (s *Set) ComparableUnreviewed() []models.ChangeRecord {
	var out []models.ChangeRecord
	for _, e := range s.entries {
		if !e.Reviewed && e.SuitableForCompare {
			out = append(out, e.Change)
		}
	}
	return out
}

// RecordString кодирует просмотренные записи в строку журнала.
func (s *Set) RecordString() string {
	marks := make([]Mark, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Reviewed {
			marks = append(marks, Mark{Key: e.Key(), Reviewer: e.Reviewer})
		}
	}
	return EncodeRecord(marks)
}

// LastReviewedRevision возвращает наибольший номер N основного репозитория, такой что
// все его ревизии с номером не больше N просмотрены.
func (s *Set) LastReviewedRevision() (int, bool) {
	var revs []int
	reviewed := make(map[int]bool)
	for _, e := range s.entries {
		if !e.Change.IsDefaultRepository() {
			continue
		}
		rev, err := e.Change.NumericRevision()
		if err != nil {
			continue
		}
		revs = append(revs, rev)
		reviewed[rev] = e.Reviewed
	}
	slices.Sort(revs)

	last, found := 0, false
	for _, rev := range revs {
		if !reviewed[rev] {
			break
		}
		last, found = rev, true
	}
	return last, found
}

func (s *Set) any(pred func(*Entry) bool) bool {
	for _, e := range s.entries {
		if pred(e) {
			return true
		}
	}
	return false
}
