package domo

import "encoding/base64"

// BasicAuthHeader encodes a client id/secret pair as an HTTP Basic
// authorization header value. Deterministic, no I/O.
func BasicAuthHeader(clientID, clientSecret string) (string, error) {
	if clientID == "" || clientSecret == "" {
		return "", &ConfigError{Reason: "client id and secret must be non-empty"}
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"+clientSecret)), nil
}
