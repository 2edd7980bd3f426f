package signer

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/cirrusws/cirrus-sdk-go/credentials"
)

var testCreds = credentials.Credentials{
	AccessKeyID:     "AKIDEXAMPLE",
	SecretAccessKey: "secretkey",
	SessionToken:    "session-token",
}

func signedRequest(t *testing.T) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "https://svc.example.com/path?b=2&a=1", bytes.NewReader([]byte("body")))
	assert.NilError(t, err)
	return req
}

func TestSignSetsHeaders(t *testing.T) {
	req := signedRequest(t)
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.NilError(t, New().Sign(context.Background(), req, testCreds, "storage", "us-east-1", when))

	assert.Check(t, is.Equal(req.Header.Get("X-Cirrus-Date"), "20240501T120000Z"))
	assert.Check(t, is.Equal(req.Header.Get("X-Cirrus-Security-Token"), "session-token"))

	auth := req.Header.Get("Authorization")
	assert.Check(t, is.Contains(auth, "CIRRUS4-HMAC-SHA256 "))
	assert.Check(t, is.Contains(auth, "Credential=AKIDEXAMPLE/20240501/us-east-1/storage/request"))
	assert.Check(t, is.Contains(auth, "SignedHeaders="))
	assert.Check(t, is.Contains(auth, "Signature="))
}

func TestSignDeterministic(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	sig := func() string {
		req := signedRequest(t)
		assert.NilError(t, New().Sign(context.Background(), req, testCreds, "storage", "us-east-1", when))
		return req.Header.Get("Authorization")
	}
	assert.Check(t, is.Equal(sig(), sig()))
}

func TestSignSensitiveToInputs(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	base := signedRequest(t)
	assert.NilError(t, New().Sign(context.Background(), base, testCreds, "storage", "us-east-1", when))

	other := signedRequest(t)
	assert.NilError(t, New().Sign(context.Background(), other, testCreds, "storage", "eu-west-1", when))
	assert.Check(t, base.Header.Get("Authorization") != other.Header.Get("Authorization"))
}

func TestSignRequiresCredentials(t *testing.T) {
	req := signedRequest(t)
	err := New().Sign(context.Background(), req, credentials.Credentials{}, "storage", "us-east-1", time.Now())
	assert.ErrorContains(t, err, "without credentials")
}

func TestSignExcludesUserAgent(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	a := signedRequest(t)
	a.Header.Set("User-Agent", "one/1.0")
	assert.NilError(t, New().Sign(context.Background(), a, testCreds, "storage", "us-east-1", when))

	b := signedRequest(t)
	b.Header.Set("User-Agent", "two/2.0")
	assert.NilError(t, New().Sign(context.Background(), b, testCreds, "storage", "us-east-1", when))

	assert.Check(t, is.Equal(a.Header.Get("Authorization"), b.Header.Get("Authorization")))
	assert.Check(t, !strings.Contains(a.Header.Get("Authorization"), "user-agent"))
}

func TestPresign(t *testing.T) {
	u, err := url.Parse("https://svc.example.com/object")
	assert.NilError(t, err)
	req := &http.Request{Method: http.MethodGet, URL: u, Header: http.Header{}, Host: "svc.example.com"}
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	signed, err := New().Presign(context.Background(), req, testCreds, "storage", "us-east-1", when, 15*time.Minute)
	assert.NilError(t, err)

	parsed, err := url.Parse(signed)
	assert.NilError(t, err)
	q := parsed.Query()
	assert.Check(t, is.Equal(q.Get("X-Cirrus-Algorithm"), "CIRRUS4-HMAC-SHA256"))
	assert.Check(t, is.Equal(q.Get("X-Cirrus-Credential"), "AKIDEXAMPLE/20240501/us-east-1/storage/request"))
	assert.Check(t, is.Equal(q.Get("X-Cirrus-Expires"), "900"))
	assert.Check(t, q.Get("X-Cirrus-Signature") != "")
}
