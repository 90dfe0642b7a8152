package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("record already exists")
	ErrInvalidTransition = errors.New("transition not allowed")
	ErrPermissionDenied  = errors.New("permission denied")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountInactive    = errors.New("account inactive")
	ErrInvalidToken       = errors.New("invalid token")
)

var (
	ErrUserNotFound            = fmt.Errorf("user %w", ErrNotFound)
	ErrOrganizationNotFound    = fmt.Errorf("organization %w", ErrNotFound)
	ErrDepartmentNotFound      = fmt.Errorf("department %w", ErrNotFound)
	ErrPositionNotFound        = fmt.Errorf("position %w", ErrNotFound)
	ErrEmployeeNotFound        = fmt.Errorf("employee %w", ErrNotFound)
	ErrPermissionNotFound      = fmt.Errorf("permission %w", ErrNotFound)
	ErrPermissionGroupNotFound = fmt.Errorf("permission group %w", ErrNotFound)
	ErrAssignmentNotFound      = fmt.Errorf("assignment %w", ErrNotFound)
	ErrAssetCategoryNotFound   = fmt.Errorf("asset category %w", ErrNotFound)
	ErrAssetNotFound           = fmt.Errorf("asset %w", ErrNotFound)
	ErrIncidentNotFound        = fmt.Errorf("incident %w", ErrNotFound)
	ErrDocumentNotFound        = fmt.Errorf("document %w", ErrNotFound)
	ErrVersionNotFound         = fmt.Errorf("document version %w", ErrNotFound)
	ErrAccessNotFound          = fmt.Errorf("document access %w", ErrNotFound)
	ErrMappingNotFound         = fmt.Errorf("ISO mapping %w", ErrNotFound)
	ErrDomainNotFound          = fmt.Errorf("ISO domain %w", ErrNotFound)
	ErrObjectiveNotFound       = fmt.Errorf("ISO objective %w", ErrNotFound)
	ErrRequirementNotFound     = fmt.Errorf("ISO requirement %w", ErrNotFound)
	ErrDeclarationNotFound     = fmt.Errorf("SoA declaration %w", ErrNotFound)
	ErrEntryNotFound           = fmt.Errorf("SoA entry %w", ErrNotFound)
	ErrNotificationNotFound    = fmt.Errorf("notification %w", ErrNotFound)
	ErrProviderNotFound        = fmt.Errorf("notification provider %w", ErrNotFound)
)

// ValidationError carries field-level messages for a rejected submission.
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
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field, keeping the first one.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// Err returns e when it holds messages and nil otherwise.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func fieldError(field, msg string) error {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// IsDuplicateError recognises unique-constraint violations from sqlite and postgres.
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicate) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}

// translate maps gorm's not-found and unique-violation errors to service errors.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case IsDuplicateError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}
