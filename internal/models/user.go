package models

// User описывает сущность пользователя.
type User struct {
	UserId   string `json:"user_id"`
	Username string `json:"username"`
}
