package enums

import "fmt"

// ContentFormat describes how the content body is delivered.
type ContentFormat string

const (
	ContentFormatAttachment ContentFormat = "attachment"
	ContentFormatFile       ContentFormat = "file"
	ContentFormatURL        ContentFormat = "url"
)

var validContentFormats = []ContentFormat{
	ContentFormatAttachment,
	ContentFormatFile,
	ContentFormatURL,
}

// String returns the literal string for the format.
func (c ContentFormat) String() string {
	return string(c)
}

// IsValid reports whether the format is known.
func (c ContentFormat) IsValid() bool {
	for _, candidate := range validContentFormats {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContentFormat converts raw input into a ContentFormat.
func ParseContentFormat(value string) (ContentFormat, error) {
	for _, candidate := range validContentFormats {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid content format %q", value)
}

// PublicStatus controls whether a content row is visible outside its owner.
type PublicStatus string

const (
	PublicStatusPublic  PublicStatus = "public"
	PublicStatusPrivate PublicStatus = "private"
)

var validPublicStatuses = []PublicStatus{
	PublicStatusPublic,
	PublicStatusPrivate,
}

// String implements fmt.Stringer.
func (p PublicStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PublicStatus.
func (p PublicStatus) IsValid() bool {
	for _, candidate := range validPublicStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePublicStatus converts raw input into a PublicStatus.
func ParsePublicStatus(value string) (PublicStatus, error) {
	for _, candidate := range validPublicStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid public status %q", value)
}
