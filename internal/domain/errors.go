package domain

import (
	"errors"
	"fmt"
)

// Сентинельные ошибки домена, используемые сервисами, репозиториями, джобами и веб-слоем.
var (
	ErrNotFound              = errors.New("NOT_FOUND")
	ErrConfig                = errors.New("CONFIGURATION_ERROR")
	ErrUnauthorized          = errors.New("UNAUTHORIZED")
	ErrNotInReview           = errors.New("NOT_IN_REVIEW")
	ErrNoCandidate           = errors.New("NO_CANDIDATE")
	ErrNegativeTally         = errors.New("NEGATIVE_TALLY")
	ErrDrawOutOfRange        = errors.New("DRAW_OUT_OF_RANGE")
	ErrFastTrackDenied       = errors.New("FAST_TRACK_DENIED")
	ErrInvalidQuery          = errors.New("INVALID_QUERY")
	ErrTransitionUnavailable = errors.New("TRANSITION_UNAVAILABLE")
	ErrInvalidRequest        = errors.New("INVALID_REQUEST")
)

// NewNotFoundError возвращает ошибку отсутствия переданного ресурса.
func NewNotFoundError(resource string) error {
	return fmt.Errorf("%w: %s not found", ErrNotFound, resource)
}

// NewConfigError сообщает о некорректной или неполной конфигурации.
func NewConfigError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// NewUnauthorizedError используется при попытке выполнить недоступное действие.
func NewUnauthorizedError(action string) error {
	return fmt.Errorf("%w: not authorized to %s", ErrUnauthorized, action)
}

// NewNotInReviewError сообщает, что объект ревью не находится в статусе ревью.
func NewNotInReviewError(subjectID string) error {
	return fmt.Errorf("%w: subject %s is not in review", ErrNotInReview, subjectID)
}

// NewNoCandidateError сообщает, что не удалось найти доступного ревьюера.
func NewNoCandidateError(subjectID string) error {
	return fmt.Errorf("%w: no candidate reviewer available for subject %s", ErrNoCandidate, subjectID)
}

// NewNegativeTallyError возвращается при отрицательном значении счётчика ревьюера.
func NewNegativeTallyError(reviewer string, count int) error {
	return fmt.Errorf("%w: reviewer %s has negative tally %d", ErrNegativeTally, reviewer, count)
}

// NewDrawOutOfRangeError возвращается, если значение розыгрыша вне [0,1).
func NewDrawOutOfRangeError(draw float64) error {
	return fmt.Errorf("%w: %v is not in [0,1)", ErrDrawOutOfRange, draw)
}

// NewFastTrackDeniedError передаёт причину, по которой fast-track недоступен.
func NewFastTrackDeniedError(reason string) error {
	return fmt.Errorf("%w: %s", ErrFastTrackDenied, reason)
}

// NewInvalidQueryError сообщает о синтаксической ошибке в тексте запроса.
func NewInvalidQueryError(query, reason string) error {
	return fmt.Errorf("%w: %q: %s", ErrInvalidQuery, query, reason)
}

// NewTransitionUnavailableError сообщает, что переход недоступен из текущего статуса.
func NewTransitionUnavailableError(name, status string) error {
	return fmt.Errorf("%w: transition %s is not available from status %s", ErrTransitionUnavailable, name, status)
}

// NewInvalidRequestError сообщает о некорректных входных данных запроса.
func NewInvalidRequestError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, reason)
}
