package db

import (
	"sort"
	"strings"
)

// FormatOptions renders options as space separated key=value pairs in key order
func FormatOptions(options map[string]string) string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+options[k])
	}
	return strings.Join(parts, " ")
}
