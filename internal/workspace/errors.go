package workspace

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrAuthentication reports a workspace that is unreachable with the
// configured credentials.
var ErrAuthentication = errors.New("workspace authentication failed")

// Category groups remote service errors by how they are reported to users.
type Category string

const (
	CategoryPermissionDenied Category = "permission_denied"
	CategoryNotFound         Category = "not_found"
	CategoryQuotaExceeded    Category = "quota_exceeded"
	CategoryOther            Category = "other"
)

// RemoteError is a categorized failure returned by the workspace service.
type RemoteError struct {
	Category Category
	Code     string
	Message  string
	Status   int
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("workspace API error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("workspace API error %s (status %d): %s", e.Code, e.Status, e.Message)
}

// IsNotFound reports whether err is a not-found RemoteError.
func IsNotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Category == CategoryNotFound
}

// classify maps an error response to ErrAuthentication or a *RemoteError.
func classify(status int, code, message string) error {
	if status == http.StatusUnauthorized || code == "UNAUTHENTICATED" {
		return fmt.Errorf("%w: %s", ErrAuthentication, message)
	}

	cat := CategoryOther
	switch {
	case code == "PERMISSION_DENIED" || status == http.StatusForbidden:
		cat = CategoryPermissionDenied
	case code == "NOT_FOUND" || code == "RESOURCE_DOES_NOT_EXIST" || status == http.StatusNotFound:
		cat = CategoryNotFound
	case code == "QUOTA_EXCEEDED" || code == "RESOURCE_EXHAUSTED" || status == http.StatusTooManyRequests:
		cat = CategoryQuotaExceeded
	}
	return &RemoteError{Category: cat, Code: code, Message: message, Status: status}
}

// UserMessage renders err for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrAuthentication) {
		return "Authentication failed. Please check your Databricks credentials."
	}
	var re *RemoteError
	if errors.As(err, &re) {
		switch re.Category {
		case CategoryPermissionDenied:
			return "Permission denied. Please check your Databricks access rights."
		case CategoryNotFound:
			return "Resource not found. The requested item may have been deleted."
		case CategoryQuotaExceeded:
			return "Quota exceeded. Please contact your workspace administrator."
		}
		return "Databricks API error: " + re.Message
	}
	return err.Error()
}
