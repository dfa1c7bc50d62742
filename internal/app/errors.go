package app

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotConfigured means a required collaborator (the store) was not wired.
var ErrNotConfigured = errors.New("app: store not configured")

const (
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeValidation       = "VALIDATION_ERROR"
	CodeInvalidList      = "INVALID_LIST"
	CodeNotFound         = "NOT_FOUND"
	CodeStoreError       = "STORE_ERROR"
)

const permissionDeniedMessage = "Permiso denegado. No tienes autorización para realizar esta acción."

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func permissionDenied(action string) *DomainError {
	return domainError(http.StatusForbidden, CodePermissionDenied, permissionDeniedMessage, map[string]any{"action": action})
}

func validationError(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, CodeValidation, message, nil)
}

func invalidList(list string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, CodeInvalidList, fmt.Sprintf("La lista %q no está permitida.", list), nil)
}

func notFound(message string) *DomainError {
	return domainError(http.StatusNotFound, CodeNotFound, message, nil)
}

// storeFailure hides driver detail from callers; the cause is logged where it happens.
func storeFailure() *DomainError {
	return domainError(http.StatusInternalServerError, CodeStoreError, "Ocurrió un error inesperado.", nil)
}

// IsPermissionDenied reports whether err is a role-gate rejection.
func IsPermissionDenied(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == CodePermissionDenied
}
