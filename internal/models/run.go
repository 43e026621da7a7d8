package models

import "time"

// Статус запуска.
const (
	// RunOK — запуск прошёл без ошибок.
	RunOK = "ok"
	// RunPartial — запуск завершён, но часть лент или статей не обработана.
	RunPartial = "partial"
	// RunFailed — запуск прерван: хранилище недоступно или непредвиденная ошибка.
	RunFailed = "failed"
)

// RunSummary — итог одного запуска конвейера.
type RunSummary struct {
	RunID         string    `json:"run_id"`
	Status        string    `json:"status"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	InsertedCount int       `json:"inserted_count"`
	LabeledCount  int       `json:"labeled_count"`
	Errors        []string  `json:"errors"`
	// Aborted выставляется, если запуск остановлен целиком, а не отдельной лентой.
	Aborted bool `json:"aborted"`
}

// Failed сообщает, что запуск был прерван. Ошибки отдельных лент и статей
// запуск не проваливают.
func (s RunSummary) Failed() bool {
	return s.Aborted
}

// Finish выставляет Status по Aborted и Errors.
func (s *RunSummary) Finish(at time.Time) {
	s.FinishedAt = at
	switch {
	case s.Aborted:
		s.Status = RunFailed
	case len(s.Errors) > 0:
		s.Status = RunPartial
	default:
		s.Status = RunOK
	}
}
