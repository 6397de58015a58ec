// File: internal/auth/strategy.go
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xkilldash9x/pathfinder-autofill/internal/config"
)

// Source is where a credential came from.
type Source string

const (
	SourceCache       Source = "cache"
	SourceEnvironment Source = "environment"
	SourceConfig      Source = "config"
)

// Method is how a credential is presented to the site.
type Method string

const (
	MethodToken       Method = "token"
	MethodAPIKey      Method = "api_key"
	MethodCredentials Method = "credentials"
)

// Strategy is one authentication attempt.
type Strategy struct {
	Source Source
	Method Method
	creds  config.Credentials
}

func (s Strategy) String() string {
	return fmt.Sprintf("%s %s", s.Source, s.Method)
}

// expandCredentials returns the usable strategies of one source in method order:
// token, API key, username and password. Absent or placeholder values are skipped.
func expandCredentials(src Source, c config.Credentials) []Strategy {
	var out []Strategy
	if !config.IsAbsent(c.AccessToken) {
		out = append(out, Strategy{Source: src, Method: MethodToken, creds: config.Credentials{AccessToken: c.AccessToken}})
	}
	if !config.IsAbsent(c.APIKey) {
		out = append(out, Strategy{Source: src, Method: MethodAPIKey, creds: config.Credentials{APIKey: c.APIKey}})
	}
	if !config.IsAbsent(c.Username) && !config.IsAbsent(c.Password) {
		out = append(out, Strategy{Source: src, Method: MethodCredentials, creds: config.Credentials{Username: c.Username, Password: c.Password}})
	}
	return out
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens, and JWTs without exp, are never considered expired.
func tokenExpired(token string, now time.Time) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
