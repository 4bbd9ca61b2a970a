package handler // handler defines http handlers

import (
	"errors"   // sentinel matching in writeError
	"net/http" // status codes
	"strconv"  // path parameter parsing

	"github.com/go-playground/validator/v10" // struct tag validation for request DTOs
	"github.com/labstack/echo/v4"            // echo defines request context types

	"github.com/iliyamo/classroom-seating/internal/middleware" // identity stored by JWTAuth
	"github.com/iliyamo/classroom-seating/internal/seating"    // domain errors
	"github.com/iliyamo/classroom-seating/internal/store"      // session store errors
)

// Validator adapts go-playground/validator to echo's Validator interface so
// handlers can call c.Validate on bound DTOs.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

func (cv *Validator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// bindValid binds the request body into req and validates it. It writes the
// 400 response itself and returns false when either step fails.
func bindValid(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
	}
	return true, nil
}

// validationMessage reports the first failed field in a readable form.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid field " + fe.Field() + " (" + fe.Tag() + ")"
	}
	return "invalid body"
}

// getUserID extracts the authenticated user id placed by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errors.New("invalid user_id in context")
	}
	return id, nil
}

// owner is the session-store owner key for the current user.
func owner(c echo.Context) (string, error) {
	id, err := getUserID(c)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(id, 10), nil
}

// seatIndex parses the :index path parameter. Indexes are display indexes,
// the same numbering snapshots use for fixedSeats and disabledSeats.
func seatIndex(c echo.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("index"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// writeError maps domain and store errors to status codes. Recoverable seat
// conditions are flagged as warnings so a UI can show them inline.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	case errors.Is(err, store.ErrTooManySessions):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case seating.IsWarning(err):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "warning": true})
	case errors.Is(err, seating.ErrCapacityExceeded):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, seating.ErrInvalidIndex),
		errors.Is(err, seating.ErrInvalidDimensions),
		errors.Is(err, seating.ErrInvalidMode),
		errors.Is(err, seating.ErrMalformedSnapshot),
		errors.Is(err, seating.ErrEmptyRoster),
		errors.Is(err, seating.ErrUnknownStudent):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	c.Logger().Errorf("request failed: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
