package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fe-v2/pkg/logger"
)

// CredentialInfo is what an unverified decode reveals about a credential
type CredentialInfo struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the credential carries an expiry before now
func (i CredentialInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// DecodeCredential reads the claims of a JWT credential without verifying
// its signature. ok is false for opaque credentials. The result is for
// diagnostics only; the API is the one that validates credentials.
func DecodeCredential(credential string) (info CredentialInfo, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return CredentialInfo{}, false
	}

	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, true
}

// logCredentialClaims logs who the credential belongs to and warns when it
// has already expired. It never blocks resolution.
func logCredentialClaims(log *logger.Logger, field, credential string) {
	info, ok := DecodeCredential(credential)
	if !ok {
		log.WithField("credential", field).Debug("Credential is not a decodable JWT")
		return
	}

	fields := map[string]interface{}{"credential": field}
	if info.Subject != "" {
		fields["sub"] = info.Subject
	}
	if !info.ExpiresAt.IsZero() {
		fields["exp"] = info.ExpiresAt.UTC().Format(time.RFC3339)
	}

	if info.Expired(time.Now()) {
		log.WithFields(fields).Warn("Credential has expired, the API will likely reject it")
		return
	}
	log.WithFields(fields).Debug("Decoded credential")
}
