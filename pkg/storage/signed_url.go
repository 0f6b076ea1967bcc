package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidToken is returned for malformed, tampered or foreign tokens.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrTokenExpired is returned when a valid token is past its expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// DownloadGrant is what a download token authorises: one stored file of one export job,
// scoped to the export type it was rendered for.
type DownloadGrant struct {
	JobID     string
	Scope     string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues and verifies HMAC-signed download tokens of the form
// job.scope.expiry.path.signature.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer. A non-positive ttl means one day.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token granting access to relPath of jobID within scope.
func (s *SignedURLSigner) Sign(jobID, scope, relPath string) (string, time.Time, error) {
	if jobID == "" || scope == "" || relPath == "" {
		return "", time.Time{}, fmt.Errorf("job id, scope and path are required")
	}
	if strings.Contains(jobID, ".") || strings.Contains(scope, ".") {
		return "", time.Time{}, fmt.Errorf("job id and scope must not contain dots")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	fields := []string{
		jobID,
		scope,
		strconv.FormatInt(expiresAt.Unix(), 10),
		base64.RawURLEncoding.EncodeToString([]byte(relPath)),
	}
	return strings.Join(append(fields, s.signature(fields)), "."), expiresAt, nil
}

// Verify checks the signature and expiry of token. Cleanup passes allowExpired to locate old files.
func (s *SignedURLSigner) Verify(token string, allowExpired bool) (DownloadGrant, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 5 {
		return DownloadGrant{}, fmt.Errorf("%w: malformed", ErrInvalidToken)
	}
	fields, signature := parts[:4], parts[4]
	if !hmac.Equal([]byte(s.signature(fields)), []byte(signature)) {
		return DownloadGrant{}, fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	}

	expUnix, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return DownloadGrant{}, fmt.Errorf("%w: bad expiry", ErrInvalidToken)
	}
	path, err := base64.RawURLEncoding.DecodeString(fields[3])
	if err != nil {
		return DownloadGrant{}, fmt.Errorf("%w: bad path", ErrInvalidToken)
	}

	grant := DownloadGrant{JobID: fields[0], Scope: fields[1], Path: string(path), ExpiresAt: time.Unix(expUnix, 0)}
	if !allowExpired && s.now().After(grant.ExpiresAt) {
		return DownloadGrant{}, ErrTokenExpired
	}
	return grant, nil
}

func (s *SignedURLSigner) signature(fields []string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
