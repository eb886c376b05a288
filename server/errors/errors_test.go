package errors

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	inner := errors.New("sql: no rows")
	err := NewNotFoundError("станок не найден", inner)

	if err.StatusCode() != http.StatusNotFound {
		t.Errorf("expected 404, got %d", err.StatusCode())
	}
	if err.UserMessage() != "станок не найден" {
		t.Errorf("unexpected user message: %q", err.UserMessage())
	}
	if !strings.Contains(err.Error(), "sql: no rows") {
		t.Errorf("expected inner error in text, got %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to reach inner error")
	}
}

func TestNewInternalError_HidesDetails(t *testing.T) {
	err := NewInternalError("не удалось прочитать базу", errors.New("disk I/O error"))

	if err.StatusCode() != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", err.StatusCode())
	}
	// Детали остаются во внутренней ошибке, пользователю — общее сообщение
	if err.UserMessage() != "Внутренняя ошибка сервера" {
		t.Errorf("internal error must hide details, got %q", err.UserMessage())
	}
	if !strings.Contains(err.Err.Error(), "disk I/O error") {
		t.Errorf("expected details preserved internally, got %q", err.Err.Error())
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "context") != nil {
		t.Fatal("wrapping nil must return nil")
	}

	conflict := NewConflictError("нет активной сессии импорта", nil)
	wrapped := WrapError(conflict, "применение сверки")
	if wrapped.StatusCode() != http.StatusConflict {
		t.Errorf("wrapping must keep original status, got %d", wrapped.StatusCode())
	}
	if !strings.Contains(wrapped.UserMessage(), "применение сверки") {
		t.Errorf("expected added context, got %q", wrapped.UserMessage())
	}

	plain := WrapError(errors.New("boom"), "контекст")
	if plain.StatusCode() != http.StatusInternalServerError {
		t.Errorf("plain error must wrap as 500, got %d", plain.StatusCode())
	}
}
