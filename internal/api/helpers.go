package api

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/fitskit/internal/docstore"
	"github.com/samcharles93/fitskit/internal/fits"
	"github.com/samcharles93/fitskit/internal/preview"
	"github.com/samcharles93/fitskit/internal/wcs"
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "")
}

func writeUnprocessable(c *echo.Context, msg string) error {
	return writeError(c, http.StatusUnprocessableEntity, "invalid_fits_error", msg, "")
}

func writeError(c *echo.Context, status int, errType, msg, param string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Param:   param,
		},
	})
}

// writeFailure maps decoder, store and request errors to a status code.
func writeFailure(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return writeBadRequest(c, err.Error())
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, docstore.ErrClosed),
		errors.Is(err, ErrNoHDU), errors.Is(err, fs.ErrNotExist):
		return writeNotFound(c, err.Error())
	case errors.Is(err, fits.ErrFormat), errors.Is(err, ErrNoData),
		errors.Is(err, preview.ErrNoPixels), errors.Is(err, preview.ErrPlane),
		errors.Is(err, wcs.ErrNoWCS), errors.Is(err, wcs.ErrSingular):
		return writeUnprocessable(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return writeError(c, http.StatusGatewayTimeout, "timeout_error", err.Error(), "")
	default:
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "")
	}
}

// writeJSONStream encodes v straight to the response with goccy/go-json.
func writeJSONStream(c *echo.Context, status int, v any) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	res.WriteHeader(status)
	return json.NewEncoder(res).Encode(v)
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// intQuery parses an optional integer query parameter.
func intQuery(c *echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, newInvalidRequest(name + " must be an integer")
	}
	return n, nil
}

func floatQuery(c *echo.Context, name string) (float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, newInvalidRequest(name + " is required")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, newInvalidRequest(name + " must be a number")
	}
	return f, nil
}
