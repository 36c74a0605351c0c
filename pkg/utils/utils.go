package utils

import (
	"sort"
	"strings"
)

// Unique 切片去重，保留首次出现的顺序
func Unique[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	return result
}

// SortedStrings 去空白、去空串、去重并按字典序排序
func SortedStrings(items []string) []string {
	trimmed := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			trimmed = append(trimmed, s)
		}
	}
	result := Unique(trimmed)
	sort.Strings(result)
	return result
}
