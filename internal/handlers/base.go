package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/notify"
	"github.com/Ramsey-B/clover/pkg/session"
)

// maxBodySize caps submitted configuration bodies
const maxBodySize = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// OutcomeResponse wraps the result of a mutating action with the state it left behind
type OutcomeResponse struct {
	Outcome notify.Outcome `json:"outcome"`
	Data    any            `json:"data,omitempty"`
}

// GetUserID extracts the user ID from context
func GetUserID(c echo.Context) (string, error) {
	userID := appctx.GetUserID(c.Request().Context())
	if userID == "" {
		return "", httperror.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return userID, nil
}

// ParseIndex parses a non-negative integer path parameter
func ParseIndex(c echo.Context, param string) (int, error) {
	raw := c.Param(param)
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s: must be a non-negative integer", param)
	}
	return index, nil
}

// Bind decodes and validates a JSON request body
func Bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return BadRequest("invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return BadRequest(err.Error())
	}
	return nil
}

// SuccessResponse returns a 200 OK with data
func SuccessResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// AcceptedResponse returns a 202 Accepted with data
func AcceptedResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusAccepted, data)
}

// OutcomeResult maps an outcome onto a status code, keeping the body in every case
func OutcomeResult(c echo.Context, outcome notify.Outcome, data any) error {
	return c.JSON(outcomeStatus(outcome), OutcomeResponse{Outcome: outcome, Data: data})
}

func outcomeStatus(outcome notify.Outcome) int {
	switch outcome.Status {
	case notify.StatusSuccess:
		return http.StatusOK
	case notify.StatusValidation:
		return http.StatusUnprocessableEntity
	case notify.StatusSkipped:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// BadRequest returns a 400 Bad Request error
func BadRequest(message string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, message)
}

// noCommunity maps a missing session community onto 409
func noCommunity(err error) error {
	if errors.Is(err, session.ErrNoCommunity) {
		return httperror.NewHTTPError(http.StatusConflict, "no community selected")
	}
	return err
}
