package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/hashdb/database"
	"github.com/fulldump/hashdb/dberror"
	"github.com/fulldump/hashdb/transaction"
)

var ErrUnavailable = errors.New("temporarily unavailable")

type PrettyError struct {
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (p PrettyError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"error": struct {
			Message     string `json:"message"`
			Description string `json:"description"`
		}{
			p.Message,
			p.Description,
		},
	})
}

func (p PrettyError) MarshalTo(w io.Writer) error {
	return json.NewEncoder(w).Encode(p)
}

// StatusProvider is the part of the catalog the api needs to know whether
// requests can be served.
type StatusProvider interface {
	GetStatus() string
}

func InterceptorUnavailable(db StatusProvider) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {

			status := db.GetStatus()
			if status == database.StatusOpening {
				box.SetError(ctx, fmt.Errorf("%w: opening", ErrUnavailable))
				return
			}
			if status == database.StatusClosing {
				box.SetError(ctx, fmt.Errorf("%w: closing", ErrUnavailable))
				return
			}
			next(ctx)
		}
	}
}

// describeError chooses the http status and the description for err.
func describeError(ctx context.Context, err error) (int, string) {

	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "user is not authenticated"
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "database is not operating"
	case errors.Is(err, box.ErrResourceNotFound):
		return http.StatusNotFound, fmt.Sprintf("resource '%s' not found", box.GetRequest(ctx).URL.String())
	case errors.Is(err, box.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, fmt.Sprintf("method '%s' not allowed", box.GetRequest(ctx).Method)
	case errors.As(err, &syntaxError), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, "Malformed JSON"
	case errors.As(err, &typeError):
		return http.StatusBadRequest, "Unexpected JSON type"
	case errors.Is(err, dberror.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, dberror.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, dberror.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid argument"
	case errors.Is(err, transaction.ErrNoTransaction):
		return http.StatusConflict, "begin a transaction first"
	case errors.Is(err, dberror.ErrIndexInconsistency):
		return http.StatusInternalServerError, "data was stored but an index could not be updated"
	case errors.Is(err, dberror.ErrIOFailure):
		return http.StatusInternalServerError, "storage failure"
	}

	return http.StatusInternalServerError, "Unexpected error"
}

func PrettyErrorInterceptor(next box.H) box.H {
	return func(ctx context.Context) {

		next(ctx)

		err := box.GetError(ctx)
		if err == nil {
			return
		}
		w := box.GetResponse(ctx)

		status, description := describeError(ctx, err)
		w.WriteHeader(status)
		PrettyError{
			Message:     err.Error(),
			Description: description,
		}.MarshalTo(w)
	}
}
