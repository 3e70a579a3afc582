package httpserver

import (
	stderrors "errors"

	"github.com/pestpro/pestpro/internal/domain"
	"github.com/pestpro/pestpro/internal/platform/errors"
)

// mapServiceError translates domain sentinels into structured errors with the
// right HTTP status. Already-structured errors pass through untouched.
func mapServiceError(err error) error {
	if err == nil {
		return nil
	}

	var structured *errors.Error
	if stderrors.As(err, &structured) {
		return structured
	}

	switch {
	case stderrors.Is(err, domain.ErrClientNotFound):
		return errors.NotFoundError("client not found")
	case stderrors.Is(err, domain.ErrContractNotFound):
		return errors.NotFoundError("contract not found")
	case stderrors.Is(err, domain.ErrContractCompleted):
		return errors.ConflictError("contract is already completed")
	default:
		return err
	}
}
