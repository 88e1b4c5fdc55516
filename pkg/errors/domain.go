package errors

import (
	"errors"

	"github.com/tendant/tg-identity/pkg/store"
	"github.com/tendant/tg-identity/pkg/tokengenerator"
)

// FromDomain maps store and token sentinels to coded errors. Anything it does
// not recognise becomes an internal error carrying message.
func FromDomain(err error, message string) *Error {
	var coded *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &coded):
		return coded
	case errors.Is(err, store.ErrUserNotFound):
		return Wrap(err, ErrCodeUserNotFound, "user not found")
	case errors.Is(err, store.ErrRoleNotFound):
		return Wrap(err, ErrCodeRoleNotFound, "role not found")
	case errors.Is(err, store.ErrNotFound):
		return Wrap(err, ErrCodeNotFound, "not found")
	case errors.Is(err, store.ErrDuplicateKey):
		return Wrap(err, ErrCodeDuplicateKey, "already exists")
	case errors.Is(err, store.ErrInvalidPage):
		return Wrap(err, ErrCodeValidationFailed, err.Error())
	case errors.Is(err, store.ErrStoreUnavailable):
		return Wrap(err, ErrCodeStoreUnavailable, "store unavailable")
	case errors.Is(err, tokengenerator.ErrSigning):
		return Wrap(err, ErrCodeSigning, "failed to sign token")
	}
	return InternalWrap(err, message)
}
