package review

import (
	"fmt"

	"github.com/AlekseyZapadovnikov/code-review/internal/models"
)

// CheckFastTrack проверяет, что все изменённые пути разрешены для fast-track ревью.
// Возвращает пустую строку, если условие выполнено, иначе причину отказа.
func CheckFastTrack(changes []models.ChangeRecord, pathPermitted func(path string) bool, ignoredRepository func(repository string) bool) string {
	for _, c := range changes {
		if ignoredRepository != nil && ignoredRepository(c.Repository) {
			continue
		}
		for _, p := range c.ChangedPaths {
			if p == "" {
				continue
			}
			if !pathPermitted(p) {
				return fmt.Sprintf("At least one revision (%s) needs to be reviewed by real person", c.Key())
			}
		}
	}
	return ""
}
