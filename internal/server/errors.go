package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/shelfwise/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/shelfwise/internal/catalog/domain"
	circulationdomain "github.com/smallbiznis/shelfwise/internal/circulation/domain"
	feedomain "github.com/smallbiznis/shelfwise/internal/fee/domain"
	"github.com/smallbiznis/shelfwise/internal/importer"
	invoicedomain "github.com/smallbiznis/shelfwise/internal/invoice/domain"
	"github.com/smallbiznis/shelfwise/internal/locale"
	membershipdomain "github.com/smallbiznis/shelfwise/internal/membership/domain"
	stockdomain "github.com/smallbiznis/shelfwise/internal/stock/domain"
	"github.com/smallbiznis/shelfwise/pkg/db/pagination"
	"github.com/smallbiznis/shelfwise/pkg/money"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// Sentinels are matched in order; the first hit names the error code.
var (
	validationSentinels = []error{
		ErrInvalidRequest,
		catalogdomain.ErrInvalidID,
		catalogdomain.ErrInvalidISBN,
		catalogdomain.ErrInvalidTitle,
		catalogdomain.ErrInvalidPrice,
		catalogdomain.ErrInvalidStock,
		catalogdomain.ErrInvalidPublishedYear,
		catalogdomain.ErrInvalidLanguage,
		catalogdomain.ErrInvalidPublisher,
		catalogdomain.ErrInvalidGenre,
		catalogdomain.ErrInvalidAuthor,
		stockdomain.ErrNoItems,
		stockdomain.ErrInvalidBookID,
		stockdomain.ErrInvalidType,
		stockdomain.ErrNegativeQuantity,
		membershipdomain.ErrInvalidID,
		membershipdomain.ErrInvalidName,
		membershipdomain.ErrInvalidEmail,
		membershipdomain.ErrInvalidBorrowDays,
		membershipdomain.ErrInvalidMaxBooks,
		membershipdomain.ErrInvalidFee,
		membershipdomain.ErrInvalidType,
		circulationdomain.ErrInvalidID,
		circulationdomain.ErrInvalidMember,
		circulationdomain.ErrInvalidBook,
		circulationdomain.ErrInvalidItem,
		circulationdomain.ErrInvalidOutcome,
		circulationdomain.ErrNoBooks,
		circulationdomain.ErrDuplicateBook,
		circulationdomain.ErrDuplicateItem,
		circulationdomain.ErrNotesTooLong,
		invoicedomain.ErrInvalidID,
		invoicedomain.ErrInvalidMember,
		invoicedomain.ErrInvalidStatus,
		invoicedomain.ErrInvalidAmount,
		invoicedomain.ErrInvalidMethod,
		feedomain.ErrInvalidSeverity,
		pagination.ErrInvalidPageToken,
		auditdomain.ErrInvalidPageToken,
		auditdomain.ErrInvalidTimeRange,
		auditdomain.ErrInvalidAction,
		money.ErrInvalidAmount,
		locale.ErrUnsupportedLocale,
		importer.ErrUnknownFormat,
		importer.ErrMissingHeader,
		importer.ErrMissingReader,
	}

	notFoundSentinels = []error{
		ErrNotFound,
		catalogdomain.ErrNotFound,
		membershipdomain.ErrNotFound,
		membershipdomain.ErrTypeNotFound,
		circulationdomain.ErrNotFound,
		circulationdomain.ErrMemberNotFound,
		circulationdomain.ErrBookNotFound,
		invoicedomain.ErrNotFound,
		gorm.ErrRecordNotFound,
	}

	conflictSentinels = []error{
		ErrConflict,
		catalogdomain.ErrDuplicateISBN,
		membershipdomain.ErrDuplicateTypeName,
		membershipdomain.ErrDuplicateEmail,
		stockdomain.ErrConcurrentUpdate,
		circulationdomain.ErrTransactionLocked,
		circulationdomain.ErrInvalidTransition,
		invoicedomain.ErrInvoiceClosed,
		invoicedomain.ErrConcurrentUpdate,
	}

	unprocessableSentinels = []error{
		circulationdomain.ErrTooManyBooks,
		circulationdomain.ErrNoActiveMembership,
		circulationdomain.ErrReturnBeforeBorrow,
		membershipdomain.ErrNoActiveMembership,
		membershipdomain.ErrInactiveType,
		invoicedomain.ErrPartialPaymentNotAllowed,
		invoicedomain.ErrOverpayment,
	}
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var itemErrs stockdomain.ValidationErrors
	if errors.As(err, &itemErrs) {
		out := make([]ValidationError, 0, len(itemErrs))
		for _, e := range itemErrs {
			field := e.Field
			if e.Index >= 0 {
				field = fmt.Sprintf("items[%d].%s", e.Index, e.Field)
			}
			out = append(out, ValidationError{
				Field:   field,
				Code:    "invalid_" + e.Field,
				Message: e.Message,
			})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  out,
		}
	}

	if errors.Is(err, feedomain.ErrInvalidSettings) {
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Code:    feedomain.ErrInvalidSettings.Error(),
			Message: "fee settings are invalid",
		}
	}

	if sentinel := match(err, validationSentinels); sentinel != nil {
		code := sentinel.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	if sentinel := match(err, notFoundSentinels); sentinel != nil {
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Code:    sentinel.Error(),
			Message: "not found",
		}
	}

	if sentinel := match(err, conflictSentinels); sentinel != nil {
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    sentinel.Error(),
			Message: "conflict",
		}
	}

	if sentinel := match(err, unprocessableSentinels); sentinel != nil {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "business_rule_violation",
			Code:    sentinel.Error(),
			Message: err.Error(),
		}
	}

	if errors.Is(err, ErrServiceUnavailable) {
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	}

	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

// classifyErrorForLog returns the error type and code logged per request.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Code
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if code == "" {
		code = payload.Type
	}
	return payload.Type, code
}

func match(err error, sentinels []error) error {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return nil
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "no_books_requested", "duplicate_book_in_request":
		return "book_ids"
	case "no_adjustment_items", "negative_quantity":
		return "items"
	case "duplicate_item_in_request":
		return "items"
	case "notes_too_long":
		return "notes"
	case "unsupported_locale":
		return "code"
	case "unknown_import_format":
		return "format"
	case "csv_header_missing", "import_source_missing":
		return "file"
	case "invalid_amount":
		return "amount"
	case "invalid_time_range":
		return "end_at"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "no_books_requested":
		return "at least one book is required"
	case "duplicate_book_in_request":
		return "a book may appear only once per transaction"
	case "notes_too_long":
		return "notes are too long"
	case "unsupported_locale":
		return "locale is not supported"
	default:
		return "invalid value"
	}
}
