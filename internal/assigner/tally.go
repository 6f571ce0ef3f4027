package assigner

// Tally счётчик ревью по ревьюерам с сохранением порядка добавления.
type Tally struct {
	order  []string
	counts map[string]int
}

// NewTally создаёт пустой счётчик.
func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// Add увеличивает счётчик ревьюера на n.
func (t *Tally) Add(reviewer string, n int) {
	if _, ok := t.counts[reviewer]; !ok {
		t.order = append(t.order, reviewer)
	}
	t.counts[reviewer] += n
}

// Set задаёт значение счётчика ревьюера.
func (t *Tally) Set(reviewer string, n int) {
	if _, ok := t.counts[reviewer]; !ok {
		t.order = append(t.order, reviewer)
	}
	t.counts[reviewer] = n
}

// Seed добавляет ревьюера с нулевым счётчиком, если его ещё нет.
func (t *Tally) Seed(reviewer string) {
	t.Add(reviewer, 0)
}

// Merge суммирует значения другого счётчика.
func (t *Tally) Merge(other *Tally) {
	if other == nil {
		return
	}
	for _, r := range other.order {
		t.Add(r, other.counts[r])
	}
}

// Count возвращает значение счётчика и признак присутствия ревьюера.
func (t *Tally) Count(reviewer string) (int, bool) {
	n, ok := t.counts[reviewer]
	return n, ok
}

// Reviewers возвращает ревьюеров в порядке добавления.
func (t *Tally) Reviewers() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len возвращает количество ревьюеров.
func (t *Tally) Len() int {
	return len(t.order)
}

// Without возвращает копию счётчика без исключённых ревьюеров.
func (t *Tally) Without(exclude func(reviewer string) bool) *Tally {
	out := NewTally()
	for _, r := range t.order {
		if exclude(r) {
			continue
		}
		out.Set(r, t.counts[r])
	}
	return out
}
