package conneg

import "go.uber.org/zap"

// Config controls dispatch behavior. The zero value gives strict matching
// with sub-resource candidate pruning and no logging.
type Config struct {
	// PartialSubtypeCheck lets a plain subtype match one half of a composite
	// `+` subtype, e.g. `application/json` matches `application/vnd.foo+json`.
	PartialSubtypeCheck bool `mapstructure:"partial-subtype-check"`

	// KeepSubresourceCandidates keeps sub-resource locators which consume the
	// whole path in the candidate set even when a resource method matched.
	KeepSubresourceCandidates bool `mapstructure:"keep-subresource-candidates"`

	// ReportFaultMessage sends the dispatch diagnostic to clients as a
	// `text/plain` body instead of a problem document.
	ReportFaultMessage bool `mapstructure:"report-fault-message"`

	// Logger receives match tracing and no-match warnings. Nil disables
	// logging.
	Logger *zap.Logger `mapstructure:"-"`

	// Metrics records dispatch outcomes when set.
	Metrics *Metrics `mapstructure:"-"`

	// Formats maps content types to the marshalers used for problem
	// documents. Nil means `DefaultFormats`.
	Formats map[string]Format `mapstructure:"-"`

	// DefaultFormat is used when the client accepts none of the formats.
	// It defaults to `application/json`.
	DefaultFormat string `mapstructure:"default-format"`
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
