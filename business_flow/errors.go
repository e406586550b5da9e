// Package businessflow contains the core business logic and use cases for invitation workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Site-related errors
	ErrSiteNotFound  = errors.New("site not found")
	ErrSiteRequired  = errors.New("site is required")
	ErrNoPrimarySite = errors.New("no primary site configured")

	// Campaign-related errors
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrCampaignDisabled        = errors.New("campaign is disabled")
	ErrCampaignNameRequired    = errors.New("campaign name is required")
	ErrCampaignUUIDRequired    = errors.New("campaign UUID is required")
	ErrInvalidPeriod           = errors.New("invalid ISO-8601 period")
	ErrCampaignContentNotFound = errors.New("campaign content not found for site")
	ErrCampaignContentDisabled = errors.New("campaign content is disabled for site")
	ErrNoUsableTemplates       = errors.New("no usable templates for requested channels")

	// Recipient-related errors
	ErrRecipientNotFound      = errors.New("recipient not found")
	ErrRecipientNameRequired  = errors.New("recipient name is required")
	ErrNoContactMethod        = errors.New("at least one of email or phone is required")
	ErrInvalidEmail           = errors.New("invalid email address")
	ErrInvalidPhone           = errors.New("invalid phone number")
	ErrInvitationCodeNotFound = errors.New("invitation code not found")
	ErrInvalidChannel         = errors.New("invalid channel")

	// Dispatch-related errors
	ErrNothingToDispatch     = errors.New("no pending recipients for requested channels")
	ErrNoChannelRequested    = errors.New("at least one channel must be requested")
	ErrDispatchTaskNotFound  = errors.New("dispatch task not found")
	ErrTaskNotCancellable    = errors.New("dispatch task is not cancellable")
	ErrSMSServiceUnavailable = errors.New("sms service unavailable")

	// Import-related errors
	ErrImportSessionNotFound = errors.New("import session not found or expired")
	ErrImportStageInvalid    = errors.New("import session is not in the expected stage")
	ErrImportFileEmpty       = errors.New("import file is empty")
	ErrImportNotValidated    = errors.New("import session has no validated rows")

	// Analytics errors
	ErrStatsNotFound    = errors.New("analytics snapshot not found")
	ErrInvalidDateRange = errors.New("range end precedes range start")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size is out of range")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsSiteNotFound(err error) bool {
	return errors.Is(err, ErrSiteNotFound)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignDisabled(err error) bool {
	return errors.Is(err, ErrCampaignDisabled)
}

func IsCampaignContentNotFound(err error) bool {
	return errors.Is(err, ErrCampaignContentNotFound)
}

func IsNoUsableTemplates(err error) bool {
	return errors.Is(err, ErrNoUsableTemplates)
}

func IsRecipientNotFound(err error) bool {
	return errors.Is(err, ErrRecipientNotFound)
}

func IsInvalidEmail(err error) bool {
	return errors.Is(err, ErrInvalidEmail)
}

func IsInvalidPhone(err error) bool {
	return errors.Is(err, ErrInvalidPhone)
}

func IsInvitationCodeNotFound(err error) bool {
	return errors.Is(err, ErrInvitationCodeNotFound)
}

func IsNothingToDispatch(err error) bool {
	return errors.Is(err, ErrNothingToDispatch)
}

func IsNoChannelRequested(err error) bool {
	return errors.Is(err, ErrNoChannelRequested)
}

func IsDispatchTaskNotFound(err error) bool {
	return errors.Is(err, ErrDispatchTaskNotFound)
}

func IsTaskNotCancellable(err error) bool {
	return errors.Is(err, ErrTaskNotCancellable)
}

func IsImportSessionNotFound(err error) bool {
	return errors.Is(err, ErrImportSessionNotFound)
}

func IsImportStageInvalid(err error) bool {
	return errors.Is(err, ErrImportStageInvalid)
}

func IsInvalidPeriod(err error) bool {
	return errors.Is(err, ErrInvalidPeriod)
}

func IsStatsNotFound(err error) bool {
	return errors.Is(err, ErrStatsNotFound)
}
