package graphql

import (
	"context"
	stderrors "errors"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/lewisdbentley/graphbook/errors"
)

// toGraphQLError converts a classified error into a GraphQL error with an
// appropriate error code. Invalid-input errors surface the root cause and
// the rejected arguments; internal detail stays out of fatal errors.
func toGraphQLError(err error, operation string) *gqlerror.Error {
	if err == nil {
		return nil
	}

	var gqlErr *gqlerror.Error
	if stderrors.As(err, &gqlErr) {
		return gqlErr
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return &gqlerror.Error{
			Message: "operation timeout exceeded",
			Extensions: map[string]any{
				"code":      "DEADLINE_EXCEEDED",
				"operation": operation,
			},
		}

	case stderrors.Is(err, context.Canceled):
		return &gqlerror.Error{
			Message: "operation cancelled",
			Extensions: map[string]any{
				"code":      "CANCELLED",
				"operation": operation,
			},
		}
	}

	if errors.IsAuth(err) {
		return &gqlerror.Error{
			Message: "not authenticated",
			Extensions: map[string]any{
				"code":      "UNAUTHENTICATED",
				"operation": operation,
			},
		}
	}

	// Bad credentials keep one fixed message regardless of whether the
	// username or the password was wrong.
	if stderrors.Is(err, errors.ErrWrongCredentials) {
		return &gqlerror.Error{
			Message: "wrong credentials",
			Extensions: map[string]any{
				"code":      "BAD_USER_INPUT",
				"operation": operation,
			},
		}
	}

	if errors.IsInvalid(err) {
		extensions := map[string]any{
			"code":      "BAD_USER_INPUT",
			"operation": operation,
		}
		if args := errors.Args(err); args != nil {
			extensions["invalidArgs"] = args
		}
		return &gqlerror.Error{
			Message:    errors.Cause(err).Error(),
			Extensions: extensions,
		}
	}

	if errors.IsTransient(err) {
		return &gqlerror.Error{
			Message: "service temporarily unavailable",
			Extensions: map[string]any{
				"code":      "SERVICE_UNAVAILABLE",
				"operation": operation,
				"retryable": true,
			},
		}
	}

	if errors.IsFatal(err) {
		return &gqlerror.Error{
			Message: "internal server error",
			Extensions: map[string]any{
				"code":      "INTERNAL_ERROR",
				"operation": operation,
			},
		}
	}

	return &gqlerror.Error{
		Message: err.Error(),
		Extensions: map[string]any{
			"code":      "UNKNOWN_ERROR",
			"operation": operation,
		},
	}
}
