package models

import "time"

// ReviewSubject описывает рабочий элемент, изменения которого проходят ревью.
type ReviewSubject struct {
	Scope      string            `json:"scope"`
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Status     string            `json:"status"`
	Resolution string            `json:"resolution,omitempty"`
	TimePoint  string            `json:"time_point,omitempty"`
	Fields     map[string]string `json:"fields"`
	UpdatedAt  *time.Time        `json:"updated_at,omitempty"`
}

// Ref возвращает глобальный идентификатор объекта в формате scope/id.
func (s *ReviewSubject) Ref() string {
	return s.Scope + "/" + s.ID
}

// Field возвращает значение поля и признак его наличия.
func (s *ReviewSubject) Field(name string) (string, bool) {
	if s.Fields == nil {
		return "", false
	}
	v, ok := s.Fields[name]
	return v, ok
}

// SetField записывает значение поля, создавая карту при необходимости.
func (s *ReviewSubject) SetField(name, value string) {
	if s.Fields == nil {
		s.Fields = make(map[string]string)
	}
	s.Fields[name] = value
}

// HistorySnapshot историческое состояние объекта вместе с изменением, которое его породило.
type HistorySnapshot struct {
	DataRevision int64        `json:"data_revision"`
	Status       string       `json:"status"`
	Change       ChangeRecord `json:"change"`
}

// Transition описывает именованный переход рабочего процесса.
type Transition struct {
	Name               string `json:"name"`
	FromStatus         string `json:"from_status"`
	ToStatus           string `json:"to_status"`
	RequiresResolution bool   `json:"requires_resolution"`
}
