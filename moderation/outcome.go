package moderation

import (
	"github.com/vibecoder/vibecoder/item"
)

type Outcome int

const (
	Created Outcome = iota
	Deleted
	RateLimited
	ValidationFailed
	Unauthorized
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	case RateLimited:
		return "rate_limited"
	case ValidationFailed:
		return "validation_failed"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not_found"
	}
	return "unknown"
}

// Validation failure reasons.
const (
	ReasonTitleRequired   = "title_required"
	ReasonContentTooShort = "content_too_short"
	ReasonCommentTooShort = "comment_too_short"
	ReasonPasswordTooLong = "password_too_long"
	ReasonParentRequired  = "parent_required"
	ReasonHoneypot        = "honeypot"
)

// Result is what a moderation request surfaces to the presentation layer. A
// quarantined item is reported as Created like any other.
type Result struct {
	Outcome Outcome
	Reason  string
	Item    *item.Item
	// Token is the identity the item was created with; the caller renews the cookie
	// with it.
	Token string
}

func validationFailed(reason string) *Result {
	return &Result{Outcome: ValidationFailed, Reason: reason}
}
