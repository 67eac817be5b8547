package util

import "strings"

// KeySeparator joins the segments of a composed provider key.
const KeySeparator = "/"

// ComposeKey builds a provider key from its segments, skipping empty ones.
func ComposeKey(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, KeySeparator)
}

// SplitKey splits a composed provider key back into its segments.
func SplitKey(key string) []string {
	if key == "" {
		return nil
	}
	return strings.Split(key, KeySeparator)
}
