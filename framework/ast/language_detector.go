package ast

import (
	"path/filepath"
	"strings"
)

// LanguageDetector maps filenames/extensions to languages.
type LanguageDetector struct {
	extensionMap map[string]string
}

// NewLanguageDetector seeds the languages the tool can edit.
func NewLanguageDetector() *LanguageDetector {
	ld := &LanguageDetector{extensionMap: make(map[string]string)}
	ld.extensionMap[".py"] = "python"
	ld.extensionMap[".pyi"] = "python"
	ld.extensionMap[".go"] = "go"
	return ld
}

// Add maps an extension (with leading dot) to a language.
func (ld *LanguageDetector) Add(ext, language string) {
	ld.extensionMap[strings.ToLower(ext)] = language
}

// Detect returns the language for path or "unknown".
func (ld *LanguageDetector) Detect(path string) string {
	if path == "" {
		return "unknown"
	}
	if lang, ok := ld.extensionMap[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "unknown"
}
