// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package schema

import (
	"regexp"
	"time"

	"github.com/go-openapi/strfmt"
)

// Format checks delegate to the go-openapi registry where it has one, with
// two custom formats on top:
//
//	phone — international dialing (E.164-style, optional leading +)
//	slug  — lowercase alphanumerics separated by single hyphens
var (
	phoneRe = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	slugRe  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// formatMessages maps format names to the diagnostic shown on violation.
var formatMessages = map[string]string{
	"email":     "Must be a valid email address",
	"uri":       "Must be a valid URI",
	"date":      "Must be a valid date (YYYY-MM-DD)",
	"date-time": "Must be a valid ISO 8601 date-time",
	"time":      "Must be a valid time (HH:MM:SS)",
	"ipv4":      "Must be a valid IPv4 address",
	"ipv6":      "Must be a valid IPv6 address",
	"hostname":  "Must be a valid hostname",
	"phone":     "Must be a valid phone number",
	"slug":      "Must be a valid slug (lowercase letters, numbers, hyphens)",
}

// checkFormat reports whether value satisfies the named format. Unknown
// formats are accepted, matching JSON Schema's permissive treatment.
func checkFormat(format, value string) bool {
	switch format {
	case "phone":
		return phoneRe.MatchString(value)
	case "slug":
		return slugRe.MatchString(value)
	case "time":
		if _, err := time.Parse("15:04:05", value); err == nil {
			return true
		}
		_, err := time.Parse("15:04:05Z07:00", value)
		return err == nil
	case "email", "uri", "date", "date-time", "ipv4", "ipv6", "hostname":
		return strfmt.Default.Validates(format, value)
	default:
		return true
	}
}

// formatMessage returns the constraint-specific message for a format.
func formatMessage(format string) string {
	if msg, ok := formatMessages[format]; ok {
		return msg
	}
	return "Must match format: " + format
}
