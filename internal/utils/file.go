package utils

import (
	"path/filepath"
	"strings"
)

// SanitizeFilename reduces an uploaded filename to a safe base name.
func SanitizeFilename(filename string) string {
	// Browsers on Windows may send the full client path.
	filename = filename[strings.LastIndexAny(filename, `/\`)+1:]
	result := filepath.Base(filename)
	if result == "." {
		return ""
	}

	invalid := []string{":", "*", "?", "\"", "<", ">", "|"}
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}

	return strings.Trim(result, " .")
}
