package authware

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// keyfuncValidator validates externally issued JWTs against configured
// signing material (given keys or a remote JWK set).
type keyfuncValidator struct {
	keyFunc jwt.Keyfunc
}

func (v *keyfuncValidator) Validate(tokenString string) (AuthClaims, error) {
	token, err := jwt.Parse(tokenString, v.keyFunc)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrJWTMissingOrMalformed
	}

	return mapClaims(claims), nil
}

// mapClaims adapts raw jwt.MapClaims to the AuthClaims interface.
type mapClaims jwt.MapClaims

func (m mapClaims) Subject() string {
	s, _ := m["sub"].(string)
	return s
}

func (m mapClaims) UserID() string {
	if uid, ok := m["uid"].(string); ok && uid != "" {
		return uid
	}
	return m.Subject()
}

func (m mapClaims) Username() string {
	s, _ := m["username"].(string)
	return s
}

func (m mapClaims) Remembered() bool {
	b, _ := m["rmb"].(bool)
	return b
}

func (m mapClaims) IssuedAt() time.Time {
	return m.numericDate("iat")
}

func (m mapClaims) Expires() time.Time {
	return m.numericDate("exp")
}

func (m mapClaims) numericDate(key string) time.Time {
	switch v := m[key].(type) {
	case float64:
		return time.Unix(int64(v), 0)
	case int64:
		return time.Unix(v, 0)
	}
	return time.Time{}
}
