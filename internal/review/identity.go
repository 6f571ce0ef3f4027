package review

import "github.com/AlekseyZapadovnikov/code-review/internal/models"

// Identity пользователь, которого можно узнать по идентификатору или по отображаемому имени.
type Identity struct {
	ID   string
	Name string
}

// Resolver находит отображаемое имя пользователя по идентификатору.
type Resolver func(userID string) Identity

// HasID сообщает, совпадает ли идентификатор пользователя.
func (i Identity) HasID(id string) bool {
	return id != "" && i.ID == id
}

// HasName сообщает, совпадает ли отображаемое имя пользователя.
func (i Identity) HasName(name string) bool {
	return name != "" && i.Name == name
}

// HasIDOrName сравнивает значение и с идентификатором, и с именем.
func (i Identity) HasIDOrName(v string) bool {
	return i.HasID(v) || i.HasName(v)
}

// IsAuthorOf проверяет авторство ревизии. Внешние репозитории могут хранить автора только именем.
func (i Identity) IsAuthorOf(change models.ChangeRecord) bool {
	if change.IsDefaultRepository() {
		return i.HasID(change.Author)
	}
	return i.HasIDOrName(change.Author)
}
