// Package smtp отправляет письма через SMTP-сервер с обязательным STARTTLS.
package smtp

import "io"

// Client минимальный SMTP-клиент, нужный отправщику.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}
