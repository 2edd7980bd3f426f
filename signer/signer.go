// Package signer attaches request signatures. The algorithm is the
// familiar canonical-request HMAC-SHA256 scheme: hash the canonical
// form of the request, chain-derive a signing key from the secret, date,
// region and service, and place the signature in the Authorization
// header (or, for presigned URLs, in the query string).
package signer

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cirrusws/cirrus-sdk-go/credentials"
)

// Signer signs a request in place.
type Signer interface {
	Sign(ctx context.Context, req *http.Request, creds credentials.Credentials, service, region string, signingTime time.Time) error
}

// Presigner produces a self-authenticating URL valid for a bounded
// lifetime.
type Presigner interface {
	Presign(ctx context.Context, req *http.Request, creds credentials.Credentials, service, region string, signingTime time.Time, expires time.Duration) (string, error)
}

const (
	algorithm     = "CIRRUS4-HMAC-SHA256"
	timeFormat    = "20060102T150405Z"
	dateFormat    = "20060102"
	tokenHeader   = "X-Cirrus-Security-Token"
	dateHeader    = "X-Cirrus-Date"
	unsignedBody  = "UNSIGNED-PAYLOAD"
	authHeaderFmt = "%s Credential=%s/%s, SignedHeaders=%s, Signature=%s"
)

// V4 implements Signer and Presigner.
type V4 struct{}

// New returns the default signer.
func New() *V4 { return &V4{} }

// Sign adds the date, optional session token and Authorization headers.
// Requests whose body cannot be replayed sign with an unsigned-payload
// marker instead of a body digest.
func (s *V4) Sign(_ context.Context, req *http.Request, creds credentials.Credentials, service, region string, signingTime time.Time) error {
	if !creds.HasKeys() {
		return fmt.Errorf("cannot sign request without credentials")
	}
	signingTime = signingTime.UTC()
	req.Header.Set(dateHeader, signingTime.Format(timeFormat))
	if creds.SessionToken != "" {
		req.Header.Set(tokenHeader, creds.SessionToken)
	}

	payloadHash, err := bodyHash(req)
	if err != nil {
		return err
	}

	signedHeaders, canonicalHeaders := canonicalizeHeaders(req)
	canonical := strings.Join([]string{
		req.Method,
		canonicalURI(req),
		canonicalQuery(req),
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{signingTime.Format(dateFormat), region, service, "request"}, "/")
	stringToSign := strings.Join([]string{
		algorithm,
		signingTime.Format(timeFormat),
		scope,
		hexSHA256([]byte(canonical)),
	}, "\n")

	signature := hex.EncodeToString(hmacSHA256(
		signingKey(creds.SecretAccessKey, signingTime, region, service),
		[]byte(stringToSign),
	))

	req.Header.Set("Authorization", fmt.Sprintf(authHeaderFmt,
		algorithm, creds.AccessKeyID, scope, signedHeaders, signature))
	return nil
}

// Presign moves the signature into the query string with an expiry.
func (s *V4) Presign(ctx context.Context, req *http.Request, creds credentials.Credentials, service, region string, signingTime time.Time, expires time.Duration) (string, error) {
	signingTime = signingTime.UTC()
	q := req.URL.Query()
	scope := strings.Join([]string{signingTime.Format(dateFormat), region, service, "request"}, "/")
	q.Set("X-Cirrus-Algorithm", algorithm)
	q.Set("X-Cirrus-Credential", creds.AccessKeyID+"/"+scope)
	q.Set("X-Cirrus-Date", signingTime.Format(timeFormat))
	q.Set("X-Cirrus-Expires", strconv.Itoa(int(expires/time.Second)))
	if creds.SessionToken != "" {
		q.Set("X-Cirrus-Security-Token", creds.SessionToken)
	}
	signedHeaders, canonicalHeaders := canonicalizeHeaders(req)
	q.Set("X-Cirrus-SignedHeaders", signedHeaders)
	req.URL.RawQuery = q.Encode()

	canonical := strings.Join([]string{
		req.Method,
		canonicalURI(req),
		canonicalQuery(req),
		canonicalHeaders,
		signedHeaders,
		unsignedBody,
	}, "\n")
	stringToSign := strings.Join([]string{
		algorithm,
		signingTime.Format(timeFormat),
		scope,
		hexSHA256([]byte(canonical)),
	}, "\n")
	signature := hex.EncodeToString(hmacSHA256(
		signingKey(creds.SecretAccessKey, signingTime, region, service),
		[]byte(stringToSign),
	))

	q.Set("X-Cirrus-Signature", signature)
	req.URL.RawQuery = q.Encode()
	return req.URL.String(), nil
}

func bodyHash(req *http.Request) (string, error) {
	if req.Body == nil || req.GetBody == nil {
		if req.Body == nil {
			return hexSHA256(nil), nil
		}
		return unsignedBody, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return "", err
	}
	defer body.Close()
	h := sha256.New()
	if _, err := io.Copy(h, body); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func canonicalURI(req *http.Request) string {
	if req.URL.Path == "" {
		return "/"
	}
	return req.URL.EscapedPath()
}

func canonicalQuery(req *http.Request) string {
	// url.Values.Encode sorts by key, matching the canonical form.
	return strings.ReplaceAll(req.URL.Query().Encode(), "+", "%20")
}

func canonicalizeHeaders(req *http.Request) (signed, canonical string) {
	names := []string{"host"}
	lower := map[string]string{"host": req.Host}
	if lower["host"] == "" {
		lower["host"] = req.URL.Host
	}
	for name, values := range req.Header {
		ln := strings.ToLower(name)
		if ln == "authorization" || ln == "user-agent" {
			continue
		}
		names = append(names, ln)
		lower[ln] = strings.Join(values, ",")
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(strings.TrimSpace(lower[name]))
		b.WriteByte('\n')
	}
	return strings.Join(names, ";"), b.String()
}

func signingKey(secret string, t time.Time, region, service string) []byte {
	k := hmacSHA256([]byte("CIRRUS4"+secret), []byte(t.Format(dateFormat)))
	k = hmacSHA256(k, []byte(region))
	k = hmacSHA256(k, []byte(service))
	return hmacSHA256(k, []byte("request"))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func hexSHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
