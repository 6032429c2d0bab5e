package service

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// allowedExtensions maps content categories to their accepted file
// extensions. Anything outside this table is rejected at submit time;
// no deeper format validation is attempted.
var allowedExtensions = map[string][]string{
	"video":    {"mp4", "avi", "mov", "wmv"},
	"audio":    {"mp3", "wav", "aac", "m4a"},
	"document": {"pdf", "doc", "docx", "txt"},
	"code":     {"py", "js", "html", "css", "java", "cpp", "c"},
	"image":    {"jpg", "jpeg", "png", "gif", "bmp"},
}

// ValidCategory reports whether the category is one a submitter may choose.
func ValidCategory(category string) bool {
	_, ok := allowedExtensions[category]
	return ok
}

// IsAllowedFile reports whether the filename's extension is on the
// allow-list of any category.
func IsAllowedFile(filename string) bool {
	return FileCategory(filename) != "unknown"
}

// FileCategory determines the content category from the file extension,
// "unknown" when the extension is not on any allow-list.
func FileCategory(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return "unknown"
	}
	for category, extensions := range allowedExtensions {
		for _, allowed := range extensions {
			if ext == allowed {
				return category
			}
		}
	}
	return "unknown"
}

// NewObjectKey generates a unique storage key for an upload, preserving the
// original extension. The original filename itself only lives in the
// database.
func NewObjectKey(filename string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}

// SanitizeFilename strips directory components and limits length.
func SanitizeFilename(name string) string {
	// Normalize Windows-style backslashes to forward slashes before
	// calling filepath.Base, which is platform-specific.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	if len(name) > 255 {
		ext := filepath.Ext(name)
		name = name[:255-len(ext)] + ext
	}

	if name == "" || name == "." || name == "/" {
		name = "upload"
	}

	return name
}
