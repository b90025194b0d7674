package helpers

import (
	"errors"
	"strings"
)

// GetSplitPart splits target by separate and returns the part at index
func GetSplitPart(target string, separate string, index int) (string, error) {
	parts := strings.Split(target, separate)
	if index >= len(parts) {
		return "", errors.New("index out of range")
	}
	return parts[index], nil
}

// LastPathSegment returns the last non-empty path segment of a URL without
// its query, fragment or file extension.
func LastPathSegment(link string) (string, error) {
	path, err := GetSplitPart(link, "?", 0)
	if err != nil {
		return "", err
	}
	path, _ = GetSplitPart(path, "#", 0)
	path = strings.TrimRight(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx < 0 || idx == len(path)-1 {
		return "", errors.New("no path segment")
	}
	segment := path[idx+1:]
	if dot := strings.LastIndex(segment, "."); dot > 0 {
		segment = segment[:dot]
	}
	return segment, nil
}
