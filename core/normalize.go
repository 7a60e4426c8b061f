package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/huangsam/coverbouncer/schema"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tailscale/hujson"
)

// coverageDocumentSchema describes the only structure common to both Coverlet shapes:
// an object of modules, each of which is itself an object.
const coverageDocumentSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": { "type": "object" }
}`

var coverageSchema = jsonschema.MustCompileString("coverbouncer://coverage.schema.json", coverageDocumentSchema)

// Coverlet field names, matched case-insensitively.
const (
	documentsKey = "Documents"
	linesKey     = "Lines"
	branchesKey  = "Branches"
	hitsKey      = "Hits"
)

// coverageAccumulator collects additive per-file totals across every leaf that names a file.
type coverageAccumulator struct {
	files map[string]*schema.FileCoverage
}

func newCoverageAccumulator() *coverageAccumulator {
	return &coverageAccumulator{files: make(map[string]*schema.FileCoverage)}
}

func (acc *coverageAccumulator) entry(path string) *schema.FileCoverage {
	fc, ok := acc.files[path]
	if !ok {
		fc = &schema.FileCoverage{FilePath: path}
		acc.files[path] = fc
	}
	return fc
}

// ParseCoverageFile reads and normalizes a Coverlet JSON report from disk.
func ParseCoverageFile(path string) (*schema.CoverageReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("coverage report %s: %w", path, schema.ErrNotFound)
		}
		return nil, fmt.Errorf("coverage report %s: %w: %v", path, schema.ErrNotFound, err)
	}
	report, err := ParseCoverageJSON(data)
	if err != nil {
		return nil, fmt.Errorf("coverage report %s: %w", path, err)
	}
	return report, nil
}

// ParseCoverageJSON normalizes Coverlet JSON content. Both the Documents shape
// (module -> Documents -> file -> Lines) and the class shape
// (module -> file -> class -> method -> Lines) are accepted, and they may be mixed
// across modules. Comments and trailing commas are tolerated.
func ParseCoverageJSON(data []byte) (*schema.CoverageReport, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrMalformedInput, err)
	}

	var doc any
	if err := json.Unmarshal(std, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrMalformedInput, err)
	}
	if err := coverageSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: unexpected document structure: %v", schema.ErrMalformedInput, err)
	}

	var modules map[string]map[string]json.RawMessage
	if err := json.Unmarshal(std, &modules); err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrMalformedInput, err)
	}

	acc := newCoverageAccumulator()
	for moduleName, module := range modules {
		if documents, ok := lookupKey(module, documentsKey); ok {
			err = acc.accumulateDocuments(moduleName, documents)
		} else {
			err = acc.accumulateClasses(moduleName, module)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", schema.ErrMalformedInput, err)
		}
	}

	report := schema.NewCoverageReport()
	report.Files = acc.files
	return report, nil
}

// accumulateDocuments handles module -> Documents -> file -> {Lines, Branches}.
// Every listed document yields a file entry, even one without line data.
func (acc *coverageAccumulator) accumulateDocuments(moduleName string, raw json.RawMessage) error {
	var documents map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &documents); err != nil {
		return fmt.Errorf("module %q: expected Documents to map file paths to objects: %v", moduleName, err)
	}
	for path, leaf := range documents {
		acc.entry(path)
		if err := acc.addLeaf(path, leaf); err != nil {
			return fmt.Errorf("module %q, file %q: %v", moduleName, path, err)
		}
	}
	return nil
}

// accumulateClasses handles module -> file -> class -> method -> {Lines, Branches}.
// Only methods carrying a Lines map contribute, and every method adds to its file's totals.
func (acc *coverageAccumulator) accumulateClasses(moduleName string, module map[string]json.RawMessage) error {
	for path, rawClasses := range module {
		var classes map[string]map[string]map[string]json.RawMessage
		if err := json.Unmarshal(rawClasses, &classes); err != nil {
			return fmt.Errorf("module %q, file %q: expected class -> method objects: %v", moduleName, path, err)
		}
		for className, methods := range classes {
			for methodName, leaf := range methods {
				if err := acc.addLeaf(path, leaf); err != nil {
					return fmt.Errorf("module %q, file %q, %s.%s: %v", moduleName, path, className, methodName, err)
				}
			}
		}
	}
	return nil
}

// addLeaf folds one Lines/Branches leaf into the file's totals.
func (acc *coverageAccumulator) addLeaf(path string, leaf map[string]json.RawMessage) error {
	rawLines, hasLines := lookupKey(leaf, linesKey)
	rawBranches, hasBranches := lookupKey(leaf, branchesKey)
	if !hasLines && !hasBranches {
		return nil
	}

	fc := acc.entry(path)
	if hasLines && !isJSONNull(rawLines) {
		var lines map[string]json.Number
		if err := json.Unmarshal(rawLines, &lines); err != nil {
			return fmt.Errorf("expected Lines to map line numbers to hit counts: %v", err)
		}
		for line, hits := range lines {
			n, err := hitCount(hits)
			if err != nil {
				return fmt.Errorf("line %s: %v", line, err)
			}
			fc.TotalLines++
			if n > 0 {
				fc.CoveredLines++
			}
		}
	}

	if hasBranches && !isJSONNull(rawBranches) {
		var branches []map[string]json.RawMessage
		if err := json.Unmarshal(rawBranches, &branches); err != nil {
			return fmt.Errorf("expected Branches to be an array of branch points: %v", err)
		}
		for i, branch := range branches {
			rawHits, ok := lookupKey(branch, hitsKey)
			if !ok {
				continue
			}
			var hits json.Number
			if err := json.Unmarshal(rawHits, &hits); err != nil {
				return fmt.Errorf("branch %d: %v", i, err)
			}
			n, err := hitCount(hits)
			if err != nil {
				return fmt.Errorf("branch %d: %v", i, err)
			}
			fc.TotalBranches++
			if n > 0 {
				fc.CoveredBranches++
			}
		}
	}
	return nil
}

// hitCount converts a JSON number to an integer hit count.
func hitCount(n json.Number) (int64, error) {
	v, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("hit count %q is not an integer", n.String())
	}
	return v, nil
}

// lookupKey finds key in m, preferring an exact match over a case-insensitive one.
func lookupKey(m map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
