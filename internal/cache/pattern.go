package cache

import (
	"path"
	"regexp"
)

// matchGlob reports whether key matches pattern. Shell-glob patterns
// (path.Match syntax: *, ?, [...]) are tried first since that is the
// common case for key prefixes like "session:*". The pattern is retried
// as a regular expression if it fails to parse as a glob, or if it does
// not match as a glob and contains a regex-only character (see
// looksLikeRegex).
func matchGlob(pattern, key string) (bool, error) {
	if ok, err := path.Match(pattern, key); err == nil {
		if ok {
			return true, nil
		}
		if !looksLikeRegex(pattern) {
			return false, nil
		}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(key), nil
}

func looksLikeRegex(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '^', '$', '+', '(', ')', '|', '\\':
			return true
		}
	}
	return false
}
