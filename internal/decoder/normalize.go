// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package decoder

import (
	"fmt"
	"regexp"
	"strings"
)

// schemaPattern matches [vendor:]org/name/format/version. The vendor prefix
// (usually "iglu:") is optional.
var schemaPattern = regexp.MustCompile(`^(?:.+:)?([a-zA-Z0-9_.]+)/([a-zA-Z0-9_]+)/[^/]+/(.*)$`)

// camelBoundary finds a lower-case or digit character followed by an upper-case one.
var camelBoundary = regexp.MustCompile(`([^A-Z_])([A-Z])`)

// NormalizeSchemaName flattens a schema identifier into a field name:
//
//	NormalizeSchemaName("unstruct_event", "com.acme.Test/linkClick/jsonschema/1-0-1")
//	// unstruct_event_com_acme_test_link_click_1
func NormalizeSchemaName(prefix, schema string) (string, error) {
	m := schemaPattern.FindStringSubmatch(schema)
	if m == nil {
		return "", fmt.Errorf("schema %q does not match %s", schema, schemaPattern)
	}

	org := strings.ToLower(strings.ReplaceAll(m[1], ".", "_"))
	name := strings.ToLower(camelBoundary.ReplaceAllString(m[2], "${1}_${2}"))
	major, _, _ := strings.Cut(m[3], "-")

	return prefix + "_" + org + "_" + name + "_" + major, nil
}
