package handlers

// Stable error codes returned in ErrorResponse.Code. Clients branch on these,
// not on messages.
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "session_busy",
//	  "message": "another message for this session is still being processed"
//	}
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeTurnFailed   = "turn_failed"
	ErrCodeSessionBusy  = "session_busy"
	ErrCodeListFailed   = "list_failed"
	ErrCodeUpdateFailed = "update_failed"
)
