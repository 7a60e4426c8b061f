package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/huangsam/coverbouncer/schema"
	"github.com/tailscale/hujson"
)

// LoadPolicyJSON parses and validates a policy document. Field names match
// case-insensitively; profile names are kept exactly as written. A missing
// coverageReportPath falls back to the default, while an explicit blank one is rejected.
// source names the document in error messages.
func LoadPolicyJSON(data []byte, source string) (*schema.PolicyConfiguration, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration from %s: %w: %v", source, schema.ErrMalformedInput, err)
	}
	if bytes.Equal(bytes.TrimSpace(std), []byte("null")) {
		return nil, fmt.Errorf("failed to parse configuration from %s: %w: document is null", source, schema.ErrMalformedInput)
	}

	cfg := schema.NewPolicyConfiguration()
	dec := json.NewDecoder(bytes.NewReader(std))
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration from %s: %w: %v", source, schema.ErrMalformedInput, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", source, err)
	}
	return cfg, nil
}

// LoadPolicyFile reads and validates the policy document at path.
func LoadPolicyFile(path string) (*schema.PolicyConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("configuration file %s: %w", path, schema.ErrNotFound)
		}
		return nil, fmt.Errorf("configuration file %s: %w: %v", path, schema.ErrNotFound, err)
	}
	return LoadPolicyJSON(data, path)
}

// FindPolicyFile walks from startDir up to the filesystem root looking for fileName.
func FindPolicyFile(startDir, fileName string) (string, bool) {
	if fileName == "" {
		fileName = schema.DefaultPolicyFileName
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(dir, fileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// LoadPolicyFromFileOrParent loads the first fileName found from startDir upwards.
func LoadPolicyFromFileOrParent(startDir, fileName string) (*schema.PolicyConfiguration, string, error) {
	path, ok := FindPolicyFile(startDir, fileName)
	if !ok {
		return nil, "", fmt.Errorf("configuration file %s in %s or any parent directory: %w", fileName, startDir, schema.ErrNotFound)
	}
	cfg, err := LoadPolicyFile(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// LoadPolicySmart loads pathOrName directly when it exists, otherwise searches
// for its base name from the current directory upwards. It returns the path used.
func LoadPolicySmart(pathOrName string) (*schema.PolicyConfiguration, string, error) {
	if pathOrName == "" {
		pathOrName = schema.DefaultPolicyFileName
	}
	if info, err := os.Stat(pathOrName); err == nil && !info.IsDir() {
		cfg, err := LoadPolicyFile(pathOrName)
		return cfg, pathOrName, err
	}
	return LoadPolicyFromFileOrParent(".", filepath.Base(pathOrName))
}

// MarshalPolicy renders a policy document as indented JSON.
func MarshalPolicy(cfg *schema.PolicyConfiguration) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	return append(data, '\n'), nil
}

// WritePolicyFile writes cfg to path, refusing to replace an existing file.
func WritePolicyFile(cfg *schema.PolicyConfiguration, path string) error {
	data, err := MarshalPolicy(cfg)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("configuration file %s already exists", path)
		}
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
