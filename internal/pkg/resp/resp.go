/*
Package resp writes the {code, message, data} envelope returned by every REST endpoint.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

// Envelope is the body of every REST response. Code is 0 on success,
// otherwise one of the errs codes.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

const successMessage = "success"

// loggerFor prefers the request-scoped logger installed by logx.RequestLogger.
func loggerFor(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return logx.Logger()
}

func write(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		loggerFor(r).Error().Err(err).
			Int("code", env.Code).
			Int("http_status", status).
			Msg("Response envelope could not be encoded")

		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	if _, err := w.Write(body); err != nil {
		loggerFor(r).Debug().Err(err).Msg("Client went away before the response was written")
	}
}

// RespondSuccess writes data with HTTP 200.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	write(w, r, http.StatusOK, Envelope{Message: successMessage, Data: data})
}

// RespondError writes customErr with its own HTTP status. A nil error is
// reported as ErrUnknown.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	loggerFor(r).Debug().
		Int("code", customErr.Code).
		Int("http_status", customErr.Status).
		Msg("Request rejected")

	write(w, r, customErr.Status, Envelope{Code: customErr.Code, Message: customErr.Message})
}
