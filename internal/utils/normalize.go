package utils

import (
	"sort"
	"strings"
)

// NormalizeText lowercases, trims and collapses inner whitespace
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// MatchAlias returns the key whose alias list matches term.
// A term matches when it equals an alias or contains it as a substring.
// An exact match wins; a term whose substrings match more than one key is ambiguous and fails.
func MatchAlias(term string, aliases map[string][]string) (string, bool) {
	if key, ok := MatchAliasExact(term, aliases); ok {
		return key, true
	}
	t := NormalizeText(term)
	if t == "" {
		return "", false
	}

	matched := ""
	for _, key := range sortedKeys(aliases) {
		for _, alias := range aliases[key] {
			if strings.Contains(t, alias) {
				if matched != "" && matched != key {
					return "", false
				}
				matched = key
				break
			}
		}
	}
	return matched, matched != ""
}

// MatchAliasExact returns the key with an alias equal to the normalized term
func MatchAliasExact(term string, aliases map[string][]string) (string, bool) {
	t := NormalizeText(term)
	if t == "" {
		return "", false
	}
	for _, key := range sortedKeys(aliases) {
		for _, alias := range aliases[key] {
			if t == alias {
				return key, true
			}
		}
	}
	return "", false
}

func sortedKeys(aliases map[string][]string) []string {
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
