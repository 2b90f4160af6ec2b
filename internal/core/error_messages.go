package core

// error_messages.go maps technical errors to user-friendly messages with codes
// for support reference. Import failures are reported per row with these
// codes, and the HTTP layer uses them for request-level errors.
//
// # Validation Errors (VAL001-VAL007)
//
//	VAL001 - Missing business key: the row has neither id nor key column value
//	         Patterns: "must be passed"
//	VAL002 - Invalid cell: a number or boolean column could not be parsed
//	         Patterns: "must be a "
//	VAL003 - Data not an array: the request carried no rows
//	         Patterns: "data must be an array"
//	VAL004 - Missing client: no Client id was given for the import
//	         Patterns: "client id must be passed"
//	VAL005 - Unsupported kind: the kind cannot be imported or is unknown
//	         Patterns: "cannot be imported", "unknown kind", "unknown term list"
//	VAL006 - Header not found: no header row in the first rows of the file
//	         Patterns: "header not found"
//	VAL007 - Tenant change: the id belongs to a different Client
//	         Patterns: "tenant cannot change"
//
// # Authorization Errors (AUTH001-AUTH002)
//
//	AUTH001 - Forbidden: the caller may not read or write this entity
//	AUTH002 - Invalid token: the bearer token could not be verified
//
// # Database Errors (DB001-DB007)
//
//	DB001 - Duplicate business key within a Client
//	DB002 - Raw unique constraint violation
//	DB003 - Entity not found
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//	DB007 - Deadlock
//
// # File Errors (FILE001-FILE005)
//
//	FILE001 - File too large
//	FILE002 - Invalid CSV
//	FILE003 - Encoding error
//	FILE004 - No file provided
//	FILE005 - Empty file
//
// # Import Errors (IMP001-IMP003)
//
//	IMP001 - Too many concurrent imports
//	IMP002 - Request cancelled
//	IMP003 - Request timed out
//
// # Rate Limiting (RATE001)
//
// # Default Error (ERR000)
//
// Patterns are matched case-insensitively using strings.Contains. The first
// matching pattern wins, so more specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// Validation Errors (VAL001-VAL007)
	// =========================================================================
	{
		pattern: "client id must be passed",
		msg: UserMessage{
			Message: "No Client was given for the import",
			Action:  "Select the Client the rows belong to",
			Code:    "VAL004",
		},
	},
	{
		pattern: "data must be an array",
		msg: UserMessage{
			Message: "No rows were sent",
			Action:  "Upload a sheet with a header and data rows",
			Code:    "VAL003",
		},
	},
	{
		pattern: "must be passed",
		msg: UserMessage{
			Message: "Row has no id or business key",
			Action:  "Fill in the id or the key column for every row",
			Code:    "VAL001",
		},
	},
	{
		pattern: "must be a ",
		msg: UserMessage{
			Message: "A cell has an invalid number or TRUE/FALSE value",
			Action:  "Remove stray text and use plain numbers or TRUE/FALSE",
			Code:    "VAL002",
		},
	},
	{
		pattern: "cannot be imported",
		msg: UserMessage{
			Message: "This sheet type cannot be imported",
			Action:  "Choose one of the importable sheet types",
			Code:    "VAL005",
		},
	},
	{
		pattern: "unknown kind",
		msg: UserMessage{
			Message: "Unknown sheet type",
			Action:  "Choose one of the importable sheet types",
			Code:    "VAL005",
		},
	},
	{
		pattern: "unknown term list",
		msg: UserMessage{
			Message: "Unknown term list",
			Action:  "Use one of the five contract term sheets",
			Code:    "VAL005",
		},
	},
	{
		pattern: "header not found",
		msg: UserMessage{
			Message: "Header row not found",
			Action:  "Download the template and keep its column names",
			Code:    "VAL006",
		},
	},
	{
		pattern: "tenant cannot change",
		msg: UserMessage{
			Message: "This id belongs to a different Client",
			Action:  "Clear the id column to create a new record",
			Code:    "VAL007",
		},
	},

	// =========================================================================
	// Authorization Errors (AUTH001-AUTH002)
	// =========================================================================
	{
		pattern: "forbidden",
		msg: UserMessage{
			Message: "You do not have access to this data",
			Action:  "Ask an administrator for access to the Client",
			Code:    "AUTH001",
		},
	},
	{
		pattern: "token",
		msg: UserMessage{
			Message: "Your session could not be verified",
			Action:  "Sign in again",
			Code:    "AUTH002",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB007)
	// =========================================================================
	{
		pattern: "duplicate business key",
		msg: UserMessage{
			Message: "Another record of this Client already uses this key",
			Action:  "Use the existing record's id or change the key",
			Code:    "DB001",
		},
	},
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your CSV",
			Code:    "DB002",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your CSV",
			Code:    "DB002",
		},
	},
	{
		pattern: "entity not found",
		msg: UserMessage{
			Message: "Record not found",
			Action:  "Check the id and try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try importing a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit (100MB)",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save file as UTF-8 encoding",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to import",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Please upload a CSV file with data rows",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Import Errors (IMP001-IMP003)
	// =========================================================================
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "IMP002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try importing a smaller file or check your connection",
			Code:    "IMP003",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
//
// Example:
//
//	msg := MapError(reconcile.MissingFieldError{Field: "catNo"})
//	// msg.Code == "VAL001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with its user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
