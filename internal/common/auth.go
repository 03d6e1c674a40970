package common

import "strings"

// IsAuthorized implements spec.md §6's inbound auth check: the request is
// authorised if any presented credential equals the configured key.
func IsAuthorized(authHeader, apiKeyHeader, googAPIKeyHeader, queryKey *string, requiredKey string) bool {
	if authHeader != nil {
		if token, ok := strings.CutPrefix(*authHeader, "Bearer "); ok && token == requiredKey {
			return true
		}
	}
	if apiKeyHeader != nil && *apiKeyHeader == requiredKey {
		return true
	}
	if googAPIKeyHeader != nil && *googAPIKeyHeader == requiredKey {
		return true
	}
	if queryKey != nil && *queryKey == requiredKey {
		return true
	}
	return false
}
