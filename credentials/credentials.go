// Package credentials supplies and caches the signing credential.
package credentials

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Credentials is the signing material for one request. The secret is
// never logged; String redacts it.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Source names the provider that produced the value.
	Source string

	// CanExpire and Expires describe temporary credentials.
	CanExpire bool
	Expires   time.Time
}

// HasKeys reports whether both key halves are present.
func (c Credentials) HasKeys() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Expired reports whether the credentials are unusable at now, with the
// given early-refresh window subtracted from the expiry.
func (c Credentials) Expired(now time.Time, window time.Duration) bool {
	return c.CanExpire && !now.Before(c.Expires.Add(-window))
}

// String redacts the secret material.
func (c Credentials) String() string {
	return fmt.Sprintf("credentials{access_key_id=%s, source=%s}", c.AccessKeyID, c.Source)
}

// Provider produces credentials, possibly via a network fetch.
type Provider interface {
	Retrieve(ctx context.Context) (Credentials, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (Credentials, error)

func (f ProviderFunc) Retrieve(ctx context.Context) (Credentials, error) { return f(ctx) }

// StaticProvider returns fixed credentials.
type StaticProvider struct {
	Value Credentials
}

func (p StaticProvider) Retrieve(context.Context) (Credentials, error) {
	if !p.Value.HasKeys() {
		return Credentials{}, fmt.Errorf("static credentials are incomplete")
	}
	v := p.Value
	v.Source = "static"
	return v, nil
}

// Environment variable names read by EnvProvider.
const (
	EnvAccessKeyID     = "CIRRUS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "CIRRUS_SECRET_ACCESS_KEY"
	EnvSessionToken    = "CIRRUS_SESSION_TOKEN"
)

// EnvProvider reads credentials from the process environment.
type EnvProvider struct{}

func (EnvProvider) Retrieve(context.Context) (Credentials, error) {
	creds := Credentials{
		AccessKeyID:     os.Getenv(EnvAccessKeyID),
		SecretAccessKey: os.Getenv(EnvSecretAccessKey),
		SessionToken:    os.Getenv(EnvSessionToken),
		Source:          "environment",
	}
	if !creds.HasKeys() {
		return Credentials{}, fmt.Errorf("%s and %s not set", EnvAccessKeyID, EnvSecretAccessKey)
	}
	return creds, nil
}

// ChainProvider tries each provider in order and returns the first
// success.
type ChainProvider struct {
	Providers []Provider
}

func (p ChainProvider) Retrieve(ctx context.Context) (Credentials, error) {
	var errs []error
	for _, provider := range p.Providers {
		creds, err := provider.Retrieve(ctx)
		if err == nil {
			return creds, nil
		}
		errs = append(errs, err)
	}
	return Credentials{}, fmt.Errorf("no provider in chain supplied credentials: %w", joinErrs(errs))
}

func joinErrs(errs []error) error {
	switch len(errs) {
	case 0:
		return fmt.Errorf("empty provider chain")
	case 1:
		return errs[0]
	default:
		err := errs[0]
		for _, e := range errs[1:] {
			err = fmt.Errorf("%w; %w", err, e)
		}
		return err
	}
}
