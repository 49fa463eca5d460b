package internal

import (
	"fmt"
	"strings"
	"unicode"

	pkgerrs "github.com/jamesprial/go-reddit-harvester/pkg/errors"
	"github.com/jamesprial/go-reddit-harvester/pkg/types"
)

const (
	maxPostIDLength    = 100
	maxUserAgentLength = 256
)

// Validator checks request parameters before anything is sent.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateCommunity checks that a community name stays a single path segment.
// Anything Reddit itself accepts there passes, including multi-community names
// ("golang+rust") and user pages ("u_name").
func (v *Validator) ValidateCommunity(name string) error {
	if name == "" {
		return &pkgerrs.InvalidParameterError{Field: "community", Message: "community name cannot be empty"}
	}
	if strings.Contains(name, "..") {
		return &pkgerrs.InvalidParameterError{Field: "community", Value: name, Message: "community name cannot contain '..'"}
	}
	for i, ch := range name {
		if strings.ContainsRune(`/\?#%`, ch) || unicode.IsSpace(ch) || unicode.IsControl(ch) {
			return &pkgerrs.InvalidParameterError{Field: "community", Value: name, Message: fmt.Sprintf("invalid character %q at position %d", ch, i)}
		}
	}
	return nil
}

// ValidatePostID checks that a post ID is a plain base36 identifier.
func (v *Validator) ValidatePostID(id string) error {
	if id == "" {
		return &pkgerrs.InvalidParameterError{Field: "post_id", Message: "post ID cannot be empty"}
	}
	if len(id) > maxPostIDLength {
		return &pkgerrs.InvalidParameterError{Field: "post_id", Value: id, Message: fmt.Sprintf("post ID too long (max %d characters)", maxPostIDLength)}
	}
	for _, ch := range id {
		if !isAlphanumeric(ch) {
			return &pkgerrs.InvalidParameterError{Field: "post_id", Value: id, Message: fmt.Sprintf("invalid character '%c' (only alphanumeric allowed)", ch)}
		}
	}
	return nil
}

// ValidateListingRequest enforces the listing parameter rules: the kind must be
// known, and a top listing needs a valid time range. The time range of any other
// kind is not checked because it is never sent. Limit is left to the server.
func (v *Validator) ValidateListingRequest(req *types.ListingRequest) error {
	if req == nil {
		return &pkgerrs.InvalidParameterError{Field: "request", Message: "listing request cannot be nil"}
	}
	if err := v.ValidateCommunity(req.Community); err != nil {
		return err
	}
	kind := types.ListingKind(strings.ToLower(string(req.Kind)))
	if !kind.Valid() {
		return &pkgerrs.InvalidParameterError{Field: "listing", Value: string(req.Kind), Message: "unknown listing"}
	}
	if kind != types.ListingTop {
		return nil
	}
	if req.TimeRange == types.TimeRangeNone {
		return &pkgerrs.InvalidParameterError{Field: "time_range", Message: "a time range is required for top listings"}
	}
	if !req.TimeRange.Valid() {
		return &pkgerrs.InvalidParameterError{Field: "time_range", Value: string(req.TimeRange), Message: "unknown time range"}
	}
	return nil
}

// ValidateUserAgent validates the User-Agent string to prevent header injection attacks.
func (v *Validator) ValidateUserAgent(ua string) error {
	if len(ua) == 0 {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: "user agent cannot be empty"}
	}
	if strings.ContainsAny(ua, "\r\n") {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: "user agent cannot contain newline characters"}
	}
	if len(ua) > maxUserAgentLength {
		return &pkgerrs.ConfigError{Field: "UserAgent", Message: fmt.Sprintf("user agent too long (max %d characters)", maxUserAgentLength)}
	}
	return nil
}

func isAlphanumeric(ch rune) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}
