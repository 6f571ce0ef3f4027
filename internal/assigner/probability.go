package assigner

import (
	"math/rand/v2"

	"github.com/AlekseyZapadovnikov/code-review/internal/domain"
)

// Rand источник равномерных значений в [0,1).
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Distribution распределение вероятностей выбора ревьюера.
// Чем больше ревью у ревьюера, тем меньше его вероятность.
type Distribution struct {
	reviewers []string
	probs     []float64
}

// DistributionFactory строит распределение по счётчику.
type DistributionFactory func(*Tally) (*Distribution, error)

// NewDistribution строит распределение по счётчику со сглаживанием +1.
func NewDistribution(t *Tally) (*Distribution, error) {
	reviewers := t.Reviewers()
	n := len(reviewers)
	total := 0
	for _, r := range reviewers {
		c, _ := t.Count(r)
		if c < 0 {
			return nil, domain.NewNegativeTallyError(r, c)
		}
		total += c + 1
	}

	d := &Distribution{reviewers: reviewers, probs: make([]float64, n)}
	for i, r := range reviewers {
		if n == 1 {
			d.probs[i] = 1
			continue
		}
		c, _ := t.Count(r)
		d.probs[i] = float64(total-(c+1)) / float64(total*(n-1))
	}
	return d, nil
}

// Len возвращает число кандидатов.
func (d *Distribution) Len() int {
	return len(d.reviewers)
}

// Probability возвращает вероятность выбора ревьюера.
func (d *Distribution) Probability(reviewer string) float64 {
	for i, r := range d.reviewers {
		if r == reviewer {
			return d.probs[i]
		}
	}
	return 0
}

// Select возвращает первого ревьюера, чья накопленная вероятность превышает draw.
func (d *Distribution) Select(draw float64) (string, bool, error) {
	if draw < 0 || draw >= 1 {
		return "", false, domain.NewDrawOutOfRangeError(draw)
	}
	if len(d.reviewers) == 0 {
		return "", false, nil
	}
	cumulative := 0.0
	for i, r := range d.reviewers {
		cumulative += d.probs[i]
		if cumulative > draw {
			return r, true, nil
		}
	}
	return d.reviewers[len(d.reviewers)-1], true, nil
}

// SelectRandomly выбирает ревьюера случайным значением из rnd.
func (d *Distribution) SelectRandomly(rnd Rand) (string, bool) {
	if rnd == nil {
		rnd = globalRand{}
	}
	// Float64 всегда в [0,1), ошибка невозможна
	r, ok, _ := d.Select(rnd.Float64())
	return r, ok
}
