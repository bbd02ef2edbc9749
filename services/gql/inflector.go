// Copyright (C) 2025 Apifactory Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gql

import (
	"strings"
	"unicode"
)

// Singularize applies the fixed suffix rules used for naming synthesized
// types and item query fields:
//
//	...ies -> ...y
//	...es  -> strip "es"
//	...s   -> strip "s"
//	else unchanged
//
// The rules are intentionally naive; irregular plurals ("people", "geese")
// come out wrong and that is the accepted behavior. Changing them would
// rename every synthesized type for existing clients.
func Singularize(name string) string {
	switch {
	case strings.HasSuffix(name, "ies"):
		return name[:len(name)-3] + "y"
	case strings.HasSuffix(name, "es"):
		return name[:len(name)-2]
	case strings.HasSuffix(name, "s"):
		return name[:len(name)-1]
	default:
		return name
	}
}

// TypeName is the capitalized singular of a resource name: "users" becomes
// "User", "categories" becomes "Category".
func TypeName(resource string) string {
	s := Singularize(resource)
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
