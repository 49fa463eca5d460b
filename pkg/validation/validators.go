// Package validation checks harvested rows before they are exported.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jamesprial/go-reddit-harvester/pkg/types"
)

// MaxTitleLength is the longest title Reddit accepts.
const MaxTitleLength = 300

// Regular expressions for validating Reddit data formats
var (
	// base36Regex matches base36 encoded IDs (0-9, a-z)
	base36Regex = regexp.MustCompile(`^[0-9a-z]+$`)

	// rowURLRegex matches the permalink stored with a row:
	// https://reddit.com/r/{community}/comments/{post_id}
	rowURLRegex = regexp.MustCompile(`^https://reddit\.com/r/([^/?#%\s]+)/comments/([0-9a-z]+)$`)
)

// IsValidBase36 checks if a string is a valid base36 encoded ID
func IsValidBase36(s string) bool {
	return s != "" && base36Regex.MatchString(s)
}

// IsValidRowURL reports whether s is a row permalink and returns the community
// and post id it names.
func IsValidRowURL(s string) (community, postID string, ok bool) {
	m := rowURLRegex.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// ValidateRow checks one harvested row. A row without a URL is valid; when a URL
// is present it must point at the row's own post.
func ValidateRow(p *types.Post) error {
	if p == nil {
		return fmt.Errorf("row is nil")
	}

	var errs []error

	if p.ID == "" {
		errs = append(errs, fmt.Errorf("ID is required"))
	} else if !IsValidBase36(p.ID) {
		errs = append(errs, fmt.Errorf("ID has invalid base36 format: %s", p.ID))
	}

	if p.Title == "" {
		errs = append(errs, fmt.Errorf("Title is required"))
	} else if len(p.Title) > MaxTitleLength {
		errs = append(errs, fmt.Errorf("Title exceeds %d character limit (%d chars)", MaxTitleLength, len(p.Title)))
	}

	if p.NumComments < 0 {
		errs = append(errs, fmt.Errorf("NumComments cannot be negative, got %d", p.NumComments))
	}

	if p.URL != "" {
		if _, postID, ok := IsValidRowURL(p.URL); !ok {
			errs = append(errs, fmt.Errorf("URL has invalid format: %s", p.URL))
		} else if p.ID != "" && postID != p.ID {
			errs = append(errs, fmt.Errorf("URL points at post %s, not %s", postID, p.ID))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("row validation failed: %w", joinValidationErrors(errs))
	}

	return nil
}

// ValidateRows validates every row and returns one error per invalid row,
// labelled with its position.
func ValidateRows(rows []types.Post) []error {
	var errs []error
	for i := range rows {
		if err := ValidateRow(&rows[i]); err != nil {
			errs = append(errs, fmt.Errorf("row %d: %w", i, err))
		}
	}
	return errs
}

// joinValidationErrors combines multiple errors into a single error message
func joinValidationErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
