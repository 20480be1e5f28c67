// Package sign implements the keyed-hash request signing scheme used by the
// video generation provider. A Signer derives a date-scoped signing key from
// the secret key and produces the Authorization header for a single outbound
// call. The remote verifier recomputes the same pipeline, so every field and
// separator must match byte for byte.
package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrMissingCredentials is returned when the access key or secret key is
// absent. Signing is rejected before any network call is attempted.
var ErrMissingCredentials = errors.New("sign: missing credentials")

const (
	// ContentType is the content type covered by every signature.
	ContentType = "application/json"

	algorithm     = "HMAC-SHA256"
	signedHeaders = "content-type;host;x-content-sha256;x-date"
	timeFormat    = "20060102T150405Z"
	dateFormat    = "20060102"
)

// Credentials is an access key pair. The zero value means "absent": callers
// fall back to server-side defaults, and absent credentials are never
// serialized as empty strings.
type Credentials struct {
	AccessKey string `json:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty"`
}

// Present returns true if both halves of the key pair are set.
func (c Credentials) Present() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// Signature carries the computed Authorization header together with the
// header values the signature covers. Callers must send exactly these values.
type Signature struct {
	// Authorization is the complete Authorization header value.
	Authorization string
	// Date is the X-Date header value (UTC, yyyymmddThhmmssZ).
	Date string
	// ContentHash is the X-Content-Sha256 header value.
	ContentHash string
	// SignedHeaders is the ;-joined list of covered header names.
	SignedHeaders string
}

// Signer computes request signatures for a fixed provider host, region and
// service. A new signing context (timestamp, date stamp, credential scope) is
// derived on every Sign call.
type Signer struct {
	host    string
	region  string
	service string
	now     func() time.Time
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock sets the time source, used by tests to pin the signing context.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		s.now = now
	}
}

// New creates a Signer for the given provider host, region and service name.
func New(host, region, service string, opts ...Option) *Signer {
	s := &Signer{
		host:    host,
		region:  region,
		service: service,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign computes the signature for a single request. The body must be the
// exact bytes that will be sent; the signature covers them via the content
// hash. Sign fails only on missing credentials.
func (s *Signer) Sign(creds Credentials, method, path string, query map[string]string, body []byte) (Signature, error) {
	if !creds.Present() {
		return Signature{}, ErrMissingCredentials
	}

	now := s.now().UTC()
	ts := now.Format(timeFormat)
	date := now.Format(dateFormat)
	scope := strings.Join([]string{date, s.region, s.service, "request"}, "/")

	contentHash := hashHex(body)
	canonical := s.canonicalRequest(method, path, query, ts, contentHash)

	stringToSign := strings.Join([]string{
		algorithm,
		ts,
		scope,
		hashHex([]byte(canonical)),
	}, "\n")

	key := signingKey(creds.SecretKey, date, s.region, s.service)
	signature := hex.EncodeToString(hmacSHA256(key, stringToSign))

	auth := fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		algorithm, creds.AccessKey, scope, signedHeaders, signature)

	return Signature{
		Authorization: auth,
		Date:          ts,
		ContentHash:   contentHash,
		SignedHeaders: signedHeaders,
	}, nil
}

// canonicalRequest builds the normalized request representation that both
// sides hash. Header order is fixed: content-type, host, x-content-sha256,
// x-date, the same order as the signed-header names.
func (s *Signer) canonicalRequest(method, path string, query map[string]string, ts, contentHash string) string {
	headers := strings.Join([]string{
		"content-type:" + ContentType,
		"host:" + s.host,
		"x-content-sha256:" + contentHash,
		"x-date:" + ts,
	}, "\n") + "\n"

	return strings.Join([]string{
		method,
		path,
		canonicalQuery(query),
		headers,
		signedHeaders,
		contentHash,
	}, "\n")
}

// canonicalQuery joins key=value pairs with & in key order, so the output is
// invariant to insertion order.
func canonicalQuery(query map[string]string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+query[k])
	}
	return strings.Join(pairs, "&")
}

// signingKey cascades keyed hashes: secret -> date -> region -> service ->
// "request". Each output keys the next round.
func signingKey(secret, date, region, service string) []byte {
	k := hmacSHA256([]byte(secret), date)
	k = hmacSHA256(k, region)
	k = hmacSHA256(k, service)
	return hmacSHA256(k, "request")
}

func hmacSHA256(key []byte, msg string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}

func hashHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
