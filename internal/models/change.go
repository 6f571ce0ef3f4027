package models

import (
	"strconv"
	"time"
)

// DefaultRepository имя основного репозитория с целочисленными номерами ревизий.
const DefaultRepository = "default"

// ChangeRecord описывает неизменяемую ревизию системы контроля версий.
type ChangeRecord struct {
	Repository   string    `json:"repository"`
	Revision     string    `json:"revision"`
	Author       string    `json:"author"`
	Created      time.Time `json:"created"`
	Message      string    `json:"message"`
	ChangedPaths []string  `json:"changed_paths"`
}

// Key возвращает ключ ревизии в формате repository/revision.
func (c ChangeRecord) Key() string {
	return c.Repository + "/" + c.Revision
}

// IsDefaultRepository сообщает, относится ли ревизия к основному репозиторию.
func (c ChangeRecord) IsDefaultRepository() bool {
	return c.Repository == DefaultRepository
}

// NumericRevision разбирает номер ревизии основного репозитория.
func (c ChangeRecord) NumericRevision() (int, error) {
	return strconv.Atoi(c.Revision)
}
