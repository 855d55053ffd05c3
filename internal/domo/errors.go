package domo

import "fmt"

// ConfigError indicates invalid static configuration, such as missing client
// credentials. It is raised before any network call is attempted.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "domo: config error: " + e.Reason
}

// AuthError indicates a transport or credential problem on either token
// endpoint: a non-200 status, an unparsable body, or a missing access_token.
// It carries the status and raw body for diagnostics but never the client
// credentials.
type AuthError struct {
	Endpoint   string
	Body       string
	Reason     string
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("domo: auth error from %s (status %d): %s", e.Endpoint, e.StatusCode, e.Reason)
}

// ProtocolError indicates the provider returned 200 but violated its own
// contract by omitting the expected business field. Distinguished from
// AuthError because it points at the provider, not at our credentials.
type ProtocolError struct {
	Endpoint string
	Body     string
	Reason   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("domo: protocol error from %s: %s", e.Endpoint, e.Reason)
}
