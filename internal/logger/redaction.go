package logger

import (
	"io"
	"regexp"
)

const redacted = "[REDACTED]"

// Redactor masks credentials before log lines reach a writer.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor for provider keys and server secrets.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// provider keys: sk-..., sk-ant-..., sk-proj-...
			regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._~+/=-]+`),
			regexp.MustCompile(`(?i)x-api-key["\s:=]+[^\s",}]+`),
			regexp.MustCompile(`(?i)x-mathroute-secret["\s:=]+[^\s",}]+`),
			regexp.MustCompile(`(?i)"?(api_key|shared_secret|password|secret)"?\s*[:=]\s*"[^"]*"`),
			regexp.MustCompile(`(?i)(api_key|shared_secret|password|secret)=[^\s&"]+`),
		},
	}
}

// AddPattern adds a custom redaction pattern
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, re)
	return nil
}

// Redact masks every match in s
func (r *Redactor) Redact(s string) string {
	for _, p := range r.patterns {
		s = p.ReplaceAllString(s, redacted)
	}
	return s
}

// Wrap returns a writer that redacts each write before passing it on. The
// reported length is the caller's, so zerolog does not treat a shorter
// redacted line as a short write.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{writer: w, redactor: r}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := w.writer.Write([]byte(w.redactor.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
