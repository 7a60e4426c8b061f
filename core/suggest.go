package core

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/coverbouncer/schema"
)

// suggestionRule maps naming conventions to a profile. Rules are checked in order.
type suggestionRule struct {
	profile      string
	dirParts     []string // substrings of the parent directory name
	nameParts    []string // substrings of the file name
	nameSuffixes []string // file name endings
}

var suggestionRules = []suggestionRule{
	{profile: "Critical", dirParts: []string{"security", "auth"}, nameParts: []string{"security", "payment"}},
	{profile: "Integration", dirParts: []string{"controllers", "adapters"}, nameSuffixes: []string{"controller.cs", "adapter.cs"}},
	{profile: "BusinessLogic", dirParts: []string{"services", "business"}, nameSuffixes: []string{"service.cs", "manager.cs"}},
	{profile: "Dto", dirParts: []string{"models", "dtos", "viewmodels"}, nameSuffixes: []string{"dto.cs", "viewmodel.cs", "model.cs"}},
}

// SuggestedFallbackProfile is suggested when no naming rule matches.
const SuggestedFallbackProfile = "Standard"

// SuggestProfile guesses a profile for path from its file name and parent directory.
func SuggestProfile(path string) string {
	path = filepath.FromSlash(path)
	name := strings.ToLower(filepath.Base(path))
	dir := strings.ToLower(filepath.Base(filepath.Dir(path)))

	for _, rule := range suggestionRules {
		if containsAny(dir, rule.dirParts) || containsAny(name, rule.nameParts) || hasAnySuffix(name, rule.nameSuffixes) {
			return rule.profile
		}
	}
	return SuggestedFallbackProfile
}

// SuggestProfiles returns a suggestion for every path.
func SuggestProfiles(paths []string) map[string]string {
	suggestions := make(map[string]string, len(paths))
	for _, p := range paths {
		suggestions[p] = SuggestProfile(p)
	}
	return suggestions
}

// ReadFileList reads one path per line, skipping blank lines and # comments.
func ReadFileList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file list %s: %w", path, schema.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open file list %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var files []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		files = append(files, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file list %s: %w", path, err)
	}
	return files, nil
}

func containsAny(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
