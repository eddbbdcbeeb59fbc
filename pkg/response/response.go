package response

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Response struct {
	ResponseError `json:"error,omitzero"`
}

type ResponseError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error Codes
type ErrCode string

var (
	FAILED_REQUEST     ErrCode = "REQUEST_FAILED"
	BAD_REQUEST        ErrCode = "FAILED_TO_DECODE"
	VALIDATION_FAILED  ErrCode = "VALIDATION_FAILED"
	UNAUTHORIZED       ErrCode = "UNAUTHORIZED"
	FORBIDDEN          ErrCode = "FORBIDDEN"
	NOT_FOUND          ErrCode = "NOT_FOUND"
	LOCKED             ErrCode = "LOCKED"
	SLOT_NOT_AVAILABLE ErrCode = "SLOT_NOT_AVAILABLE"
	INVALID_STATE      ErrCode = "INVALID_STATE"
	TOO_MANY_REQUESTS  ErrCode = "TOO_MANY_REQUESTS"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrLocked           = errors.New("resource is locked")
	ErrSlotNotAvailable = errors.New("slot is not available")
	ErrInvalidState     = errors.New("cannot reschedule cancelled appointment")
	ErrInvalidSlot      = errors.New("requested time is not a bookable slot")
	ErrOutsideHorizon   = errors.New("requested date is outside the booking horizon")
)

func Error(code ErrCode, msg string) Response {
	return Response{
		ResponseError: ResponseError{
			Code:    string(code),
			Message: msg,
		},
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	fields := make([]FieldError, 0, len(errs))

	for _, err := range errs {
		fields = append(fields, FieldError{
			Field:   err.Field(),
			Message: fieldMessage(err),
		})
	}

	return Response{
		ResponseError: ResponseError{
			Code:    string(VALIDATION_FAILED),
			Message: "request validation failed",
			Fields:  fields,
		},
	}
}

// SingleFieldError reports a validation failure that was found after the
// request passed struct validation.
func SingleFieldError(field, msg string) Response {
	return Response{
		ResponseError: ResponseError{
			Code:    string(VALIDATION_FAILED),
			Message: "request validation failed",
			Fields:  []FieldError{{Field: field, Message: msg}},
		},
	}
}

func fieldMessage(err validator.FieldError) string {
	switch err.ActualTag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", err.Field())
	case "email":
		return fmt.Sprintf("Field '%s' must be a valid email address", err.Field())
	case "date":
		return fmt.Sprintf("Field '%s' format must be YYYY-MM-DD", err.Field())
	case "hhmm":
		return fmt.Sprintf("Field '%s' format must be HH:mm", err.Field())
	case "mobile":
		return fmt.Sprintf("Field '%s' must be a valid mobile number", err.Field())
	case "min":
		return fmt.Sprintf("Field '%s' must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("Field '%s' must be at most %s", err.Field(), err.Param())
	default:
		return fmt.Sprintf("Field '%s' is invalid", err.Field())
	}
}
