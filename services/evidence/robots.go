// Copyright (C) 2025 IdeaGauge AI (dev@ideagauge.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import "strings"

// IsRobotsDisallowAll reports whether a robots.txt body blocks all crawling
// for wildcard user agents.
//
// Only "User-agent: *" groups are considered; agent-specific groups never
// affect the verdict. The result is true exactly when a wildcard group
// contains "Disallow: /" and no wildcard group opens the root back up with
// an Allow directive for "/" (an empty Allow value counts) or an empty
// Disallow directive. A body with no wildcard group is never blocking.
func IsRobotsDisallowAll(body string) bool {
	inWildcardGroup := false
	sawWildcardGroup := false
	disallowRoot := false
	allowRoot := false

	for _, rawLine := range strings.Split(body, "\n") {
		line := rawLine
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			inWildcardGroup = value == "*"
			if inWildcardGroup {
				sawWildcardGroup = true
			}
		case "disallow":
			if !inWildcardGroup {
				continue
			}
			if value == "/" {
				disallowRoot = true
			}
			if value == "" {
				// An empty Disallow permits everything for the group.
				allowRoot = true
			}
		case "allow":
			if !inWildcardGroup {
				continue
			}
			// An empty Allow value is treated like "Allow: /".
			if value == "/" || value == "" {
				allowRoot = true
			}
		}
	}

	return sawWildcardGroup && disallowRoot && !allowRoot
}
