package entitlement

// Field is a structured log field.
type Field struct {
	Key   string
	Value interface{}
}

// Logger is the interface for structured logging. Adapters for concrete
// logging libraries live under pkg/entitlement/logger.
type Logger interface {
	// Debug logs a debug message with fields.
	Debug(msg string, fields ...Field)

	// Info logs an info message with fields.
	Info(msg string, fields ...Field)

	// Warn logs a warning message with fields.
	Warn(msg string, fields ...Field)

	// Error logs an error message with fields.
	Error(msg string, fields ...Field)
}

// NoopLogger discards all log messages.
type NoopLogger struct{}

func (n *NoopLogger) Debug(msg string, fields ...Field) {}
func (n *NoopLogger) Info(msg string, fields ...Field)  {}
func (n *NoopLogger) Warn(msg string, fields ...Field)  {}
func (n *NoopLogger) Error(msg string, fields ...Field) {}

// errField is a shorthand for the conventional error field.
func errField(err error) Field {
	return Field{Key: "error", Value: err.Error()}
}
