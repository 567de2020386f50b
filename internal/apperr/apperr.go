// Package apperr defines the error taxonomy shared by the transport, session and
// form layers. Nothing here retries: a failed request is reported once.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// NetworkError means the request never completed (dial, TLS, timeout, reset)
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AuthenticationError means the backend rejected the credentials or the session
type AuthenticationError struct {
	Status  int
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return e.Message
}

// APIError is any other non-2xx backend response
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}

// ValidationError carries client-side form violations keyed by field name.
// It never reaches the backend.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for a single field, or "" when it is valid
func (e *ValidationError) Field(name string) string {
	if e == nil {
		return ""
	}
	return e.Fields[name]
}

// IsNetwork reports whether err is (or wraps) a NetworkError
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsAuthentication reports whether err is (or wraps) an AuthenticationError
func IsAuthentication(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// AsValidation unwraps a ValidationError
func AsValidation(err error) (*ValidationError, bool) {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr, true
	}
	return nil, false
}

// Message returns the text shown to a user for err
func Message(err error) string {
	if err == nil {
		return ""
	}

	var (
		authErr *AuthenticationError
		apiErr  *APIError
		netErr  *NetworkError
		valErr  *ValidationError
	)

	switch {
	case errors.As(err, &authErr):
		if authErr.Message != "" {
			return authErr.Message
		}
		return "E-mail ou senha inválidos"
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "O servidor não conseguiu processar a solicitação"
	case errors.As(err, &netErr):
		return "Não foi possível conectar ao servidor"
	case errors.As(err, &valErr):
		return "Verifique os campos destacados"
	default:
		return err.Error()
	}
}
