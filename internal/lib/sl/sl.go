// Package sl содержит вспомогательные атрибуты для slog.
package sl

import "log/slog"

// Err возвращает атрибут "error" с текстом ошибки. Для nil пишется пустая строка,
// чтобы логирование никогда не паниковало.
//
//	log.Error("failed to confirm payment", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Op атрибут с именем операции, как в const op.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}
