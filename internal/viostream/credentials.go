package viostream

import (
	"context"
	"strings"
)

// Credentials are the Viostream API key pair. AccessKey is used as the basic
// auth username and APIKey as the password.
type Credentials struct {
	AccessKey string `json:"access_key"`
	APIKey    string `json:"api_key"`
}

// Configured reports whether both keys are set.
func (c Credentials) Configured() bool {
	return strings.TrimSpace(c.AccessKey) != "" && strings.TrimSpace(c.APIKey) != ""
}

// CredentialsSource supplies credentials at call time. The client asks for
// them on every request so rotated keys take effect without a restart.
type CredentialsSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticCredentials is a fixed credential pair (e.g. from the environment).
type StaticCredentials Credentials

// Credentials implements CredentialsSource.
func (s StaticCredentials) Credentials(context.Context) (Credentials, error) {
	return Credentials(s), nil
}

// CredentialsFunc adapts a function to CredentialsSource.
type CredentialsFunc func(ctx context.Context) (Credentials, error)

// Credentials implements CredentialsSource.
func (f CredentialsFunc) Credentials(ctx context.Context) (Credentials, error) {
	return f(ctx)
}
