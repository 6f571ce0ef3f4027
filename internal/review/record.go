package review

import "strings"

const (
	entryDelimiter    = ","
	outputDelimiter   = ", "
	reviewerSeparator = `\`
)

// Record разобранная строка журнала ревью: ключ ревизии → идентификатор ревьюера.
// Пустая строка означает отметку без ревьюера.
type Record map[string]string

// Mark одна отметка о ревью, сохраняемая в строку журнала.
type Mark struct {
	Key      string
	Reviewer string
}

// DecodeRecord разбирает сохранённую строку журнала ревью.
// Повреждённые токены не прерывают разбор: такой токен целиком становится ключом без ревьюера.
func DecodeRecord(s string) Record {
	rec := make(Record)
	for _, token := range strings.Split(s, entryDelimiter) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		i := strings.LastIndex(token, reviewerSeparator)
		if i <= 0 || i == len(token)-1 {
			rec[token] = ""
			continue
		}
		rec[token[:i]] = token[i+1:]
	}
	return rec
}

// EncodeRecord формирует строку журнала в порядке переданных отметок.
func EncodeRecord(marks []Mark) string {
	parts := make([]string, 0, len(marks))
	for _, m := range marks {
		if m.Reviewer == "" {
			parts = append(parts, m.Key)
			continue
		}
		parts = append(parts, m.Key+reviewerSeparator+m.Reviewer)
	}
	return strings.Join(parts, outputDelimiter)
}

// ValidReviewer сообщает, можно ли сохранить идентификатор в строке журнала.
func ValidReviewer(id string) bool {
	return id != "" && !strings.ContainsAny(id, entryDelimiter+reviewerSeparator)
}
