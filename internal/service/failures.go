package service

import (
	appErrors "github.com/aulalink/gradebook-api/pkg/errors"

	"github.com/aulalink/gradebook-api/pkg/database"
)

// storeFailure classifies a repository error: an unreachable store becomes
// STORE_UNAVAILABLE so the client can distinguish connectivity from a
// rejected operation; anything else is internal.
func storeFailure(err error, message string) error {
	if database.IsUnavailable(err) {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, appErrors.ErrStoreUnavailable.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// createFailure additionally maps unique-constraint violations, which are
// the authoritative duplicate guard, onto DUPLICATE_CREDENTIAL.
func createFailure(err error, duplicateMessage, internalMessage string) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrDuplicateCredential, duplicateMessage)
	}
	return storeFailure(err, internalMessage)
}

// conflictFailure is createFailure for non-credential resources: the same
// constraint-is-authority treatment, surfaced as CONFLICT.
func conflictFailure(err error, conflictMessage, internalMessage string) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, conflictMessage)
	}
	return storeFailure(err, internalMessage)
}
