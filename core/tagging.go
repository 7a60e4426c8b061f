package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/schema"
)

var (
	namespaceDecl   = regexp.MustCompile(`(?m)^[ \t]*namespace\s+`)
	typeDecl        = regexp.MustCompile(`(?m)^[ \t]*(?:(?:public|internal|private|protected|static|abstract|sealed|partial|readonly|file)\s+)*(?:class|interface|enum|record|struct)\s+`)
	usingDirective  = regexp.MustCompile(`(?m)^[ \t]*using\s+.*;`)
	extraBlankLines = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// DefaultTagExcludes keeps build output out of directory and pattern tagging.
var DefaultTagExcludes = []string{"bin/", "obj/"}

// TagOptions controls how tagging operations touch the filesystem.
type TagOptions struct {
	Backup   bool     // write <file>.backup before modifying
	DryRun   bool     // report what would change without writing
	Excludes []string // patterns dropped from directory and pattern discovery
}

// TagError pairs a file with the reason it could not be processed.
type TagError struct {
	File string `json:"file"`
	Err  string `json:"error"`
}

// TaggingResult summarizes a batch tagging operation.
type TaggingResult struct {
	FilesMatched int        `json:"files_matched"`
	Tagged       []string   `json:"tagged"`
	Skipped      []string   `json:"skipped"`
	Errors       []TagError `json:"errors"`
}

func markerFor(profile string) string {
	return fmt.Sprintf(`[CoverageProfile("%s")]`, profile)
}

// WriteProfileTag adds or updates the marker in a source file. It reports
// false when the file already carries the same profile.
func WriteProfileTag(path, profile string, backup bool) (bool, error) {
	if profile == "" || strings.Contains(profile, `"`) {
		return false, fmt.Errorf("invalid profile name %q", profile)
	}
	content, mode, err := readSource(path)
	if err != nil {
		return false, err
	}

	existing, found := ExtractProfile(content)
	if found && existing == profile {
		return false, nil
	}

	var updated string
	if found {
		loc := markerPattern.FindStringIndex(content)
		updated = content[:loc[0]] + markerFor(profile) + content[loc[1]:]
	} else {
		updated = insertProfileTag(content, profile)
	}

	if err := writeSource(path, content, updated, mode, backup); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveProfileTag removes the first marker from a source file. It reports
// false when the file has no marker.
func RemoveProfileTag(path string, backup bool) (bool, error) {
	content, mode, err := readSource(path)
	if err != nil {
		return false, err
	}

	loc := markerPattern.FindStringIndex(content)
	if loc == nil {
		return false, nil
	}

	lineStart := strings.LastIndexByte(content[:loc[0]], '\n') + 1
	lineEnd := len(content)
	if i := strings.IndexByte(content[loc[1]:], '\n'); i >= 0 {
		lineEnd = loc[1] + i + 1
	}
	rest := strings.TrimSpace(content[lineStart:loc[0]] + content[loc[1]:lineEnd])

	var updated string
	if rest == "" || rest == "//" {
		updated = content[:lineStart] + content[lineEnd:]
	} else {
		updated = content[:loc[0]] + content[loc[1]:]
	}
	updated = extraBlankLines.ReplaceAllString(updated, "\n\n")

	if err := writeSource(path, content, updated, mode, backup); err != nil {
		return false, err
	}
	return true, nil
}

// insertProfileTag places a commented marker before the namespace declaration,
// else before the first type declaration, else after the last using directive,
// else at the top of the file.
func insertProfileTag(content, profile string) string {
	tag := "// " + markerFor(profile)

	for _, decl := range []*regexp.Regexp{namespaceDecl, typeDecl} {
		loc := decl.FindStringIndex(content)
		if loc == nil {
			continue
		}
		idx := loc[0]
		before := content[:idx]
		if strings.TrimSpace(before) != "" && !strings.HasSuffix(before, "\n\n") {
			tag = "\n" + tag
		}
		return before + tag + "\n" + content[idx:]
	}

	if all := usingDirective.FindAllStringIndex(content, -1); len(all) > 0 {
		idx := all[len(all)-1][1]
		return content[:idx] + "\n\n" + tag + content[idx:]
	}

	return tag + "\n\n" + content
}

func readSource(path string) (string, fs.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", 0, fmt.Errorf("source file %s: %w", path, schema.ErrNotFound)
		}
		return "", 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", 0, fmt.Errorf("source file %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), info.Mode().Perm(), nil
}

func writeSource(path, original, updated string, mode fs.FileMode, backup bool) error {
	if backup {
		if err := os.WriteFile(path+".backup", []byte(original), mode); err != nil {
			return fmt.Errorf("failed to write backup for %s: %w", path, err)
		}
	}
	if err := os.WriteFile(path, []byte(updated), mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// TagFiles tags each path with profile. Files already carrying the profile are skipped.
func TagFiles(paths []string, profile string, opts TagOptions) TaggingResult {
	result := TaggingResult{FilesMatched: len(paths), Tagged: []string{}, Skipped: []string{}, Errors: []TagError{}}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			result.Errors = append(result.Errors, TagError{File: path, Err: "file not found"})
			continue
		}
		if existing, found := ReadProfileMarker(path); found && existing == profile {
			result.Skipped = append(result.Skipped, path)
			continue
		}
		if !opts.DryRun {
			if _, err := WriteProfileTag(path, profile, opts.Backup); err != nil {
				result.Errors = append(result.Errors, TagError{File: path, Err: err.Error()})
				continue
			}
		}
		result.Tagged = append(result.Tagged, path)
	}
	return result
}

// UntagFiles removes markers from each path. Files without a marker are skipped.
func UntagFiles(paths []string, opts TagOptions) TaggingResult {
	result := TaggingResult{FilesMatched: len(paths), Tagged: []string{}, Skipped: []string{}, Errors: []TagError{}}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			result.Errors = append(result.Errors, TagError{File: path, Err: "file not found"})
			continue
		}
		if _, found := ReadProfileMarker(path); !found {
			result.Skipped = append(result.Skipped, path)
			continue
		}
		if !opts.DryRun {
			if _, err := RemoveProfileTag(path, opts.Backup); err != nil {
				result.Errors = append(result.Errors, TagError{File: path, Err: err.Error()})
				continue
			}
		}
		result.Tagged = append(result.Tagged, path)
	}
	return result
}

// TagDirectory tags every C# source file under dir.
func TagDirectory(dir, profile string, recursive bool, opts TagOptions) (TaggingResult, error) {
	files, err := discoverSources(dir, opts.Excludes, func(rel string, _ fs.DirEntry) bool {
		return recursive || !strings.Contains(rel, "/")
	})
	if err != nil {
		return TaggingResult{}, err
	}
	return TagFiles(files, profile, opts), nil
}

// TagByPattern tags C# source files under baseDir whose slash-separated relative
// path matches pattern. Patterns support ** for any number of directories.
func TagByPattern(baseDir, pattern, profile string, opts TagOptions) (TaggingResult, error) {
	files, err := FindByPattern(baseDir, pattern, opts.Excludes)
	if err != nil {
		return TaggingResult{}, err
	}
	return TagFiles(files, profile, opts), nil
}

// FindByPattern returns the C# source files under baseDir matching pattern.
func FindByPattern(baseDir, pattern string, excludes []string) ([]string, error) {
	pattern = filepath.ToSlash(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	return discoverSources(baseDir, excludes, func(rel string, _ fs.DirEntry) bool {
		ok, _ := doublestar.Match(pattern, rel)
		return ok
	})
}

// discoverSources walks root collecting *.cs files accepted by keep, in lexical order.
func discoverSources(root string, excludes []string, keep func(rel string, d fs.DirEntry) bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("directory %s: %w", root, schema.ErrNotFound)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && contract.ShouldIgnore(rel+"/", excludes) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".cs") || contract.ShouldIgnore(rel, excludes) {
			return nil
		}
		if keep(rel, d) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return files, nil
}
