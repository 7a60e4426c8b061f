package core

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/huangsam/coverbouncer/internal/contract"
	"github.com/huangsam/coverbouncer/schema"
)

// markerPattern matches [CoverageProfile("Name")] anywhere in a file, including
// inside comments and string literals.
var markerPattern = regexp.MustCompile(`\[CoverageProfile\s*\(\s*"([^"]+)"\s*\)\]`)

// markerCacheVersion defines the version of cached marker entries.
const markerCacheVersion = 2

// ExtractProfile returns the profile named by the first marker in content.
func ExtractProfile(content string) (string, bool) {
	m := markerPattern.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ReadProfileMarker reads the file at path and extracts its marker.
// Any read failure is reported as "no marker".
func ReadProfileMarker(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return ExtractProfile(string(data))
}

// ProfileResolver attaches explicit profiles from source markers onto a coverage report.
type ProfileResolver struct {
	sourceRoot string
	workers    int
	cache      contract.CacheStore // optional
}

// NewProfileResolver creates a resolver. Relative report paths are joined to
// sourceRoot when it is set. cache may be nil.
func NewProfileResolver(sourceRoot string, workers int, cache contract.CacheStore) *ProfileResolver {
	if workers < 1 {
		workers = 1
	}
	return &ProfileResolver{sourceRoot: sourceRoot, workers: workers, cache: cache}
}

type markerResult struct {
	path    string
	profile string
	found   bool
}

// Resolve reads every file's marker concurrently and assigns the explicit
// profile to files that carry one. Files without a marker are left unassigned.
func (r *ProfileResolver) Resolve(ctx context.Context, report *schema.CoverageReport) error {
	paths := report.SortedPaths()
	pathCh := make(chan string, len(paths))
	resultCh := make(chan markerResult, len(paths))
	var wg sync.WaitGroup

	for range r.workers {
		wg.Go(func() {
			for p := range pathCh {
				profile, found := r.readMarker(r.sourcePath(p))
				resultCh <- markerResult{path: p, profile: profile, found: found}
			}
		})
	}

	var ctxErr error
	for _, p := range paths {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		pathCh <- p
	}
	close(pathCh)

	wg.Wait()
	close(resultCh)

	for res := range resultCh {
		if res.found {
			report.Files[res.path].AssignProfile(res.profile)
		}
	}
	return ctxErr
}

// ResolveFile returns the explicit profile of a single source file.
func (r *ProfileResolver) ResolveFile(path string) (string, bool) {
	return r.readMarker(r.sourcePath(path))
}

func (r *ProfileResolver) sourcePath(p string) string {
	if r.sourceRoot == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.sourceRoot, p)
}

// readMarker consults the cache before reading the file. Cached entries are only
// trusted while the file's size, modification time, inode and change time are
// unchanged. Where the platform has no change time, a same-size rewrite that
// restores the modification time is not detected.
func (r *ProfileResolver) readMarker(path string) (string, bool) {
	if r.cache == nil {
		return ReadProfileMarker(path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	key := markerCacheKey(path)
	if entry, ok := checkMarkerHit(r.cache, key, info); ok {
		return entry.Profile, entry.Found
	}

	profile, found := ReadProfileMarker(path)
	inode, changeTime := fileStamp(info)
	entry := schema.MarkerEntry{
		Profile:    profile,
		Found:      found,
		Size:       info.Size(),
		ModTime:    info.ModTime().UnixNano(),
		Inode:      inode,
		ChangeTime: changeTime,
	}
	if data, err := json.Marshal(entry); err == nil {
		_ = r.cache.Set(key, data, markerCacheVersion, time.Now().Unix())
	}
	return profile, found
}

// checkMarkerHit returns a cached entry that still matches the file on disk.
func checkMarkerHit(cache contract.CacheStore, key string, info os.FileInfo) (schema.MarkerEntry, bool) {
	var entry schema.MarkerEntry
	data, version, _, err := cache.Get(key)
	if err != nil || version != markerCacheVersion {
		return entry, false
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, false
	}
	if entry.Size != info.Size() || entry.ModTime != info.ModTime().UnixNano() {
		return entry, false
	}
	if inode, changeTime := fileStamp(info); entry.Inode != inode || entry.ChangeTime != changeTime {
		return entry, false
	}
	return entry, true
}

func markerCacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "marker:" + filepath.ToSlash(path)
}
