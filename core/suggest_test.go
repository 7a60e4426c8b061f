package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/coverbouncer/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestProfile(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"src/Security/TokenValidator.cs", "Critical"},
		{"src/Billing/PaymentProcessor.cs", "Critical"},
		{"src/Auth/LoginController.cs", "Critical"},
		{"src/Api/UserController.cs", "Integration"},
		{"src/Controllers/Home.cs", "Integration"},
		{"src/Infra/BlobAdapter.cs", "Integration"},
		{"src/Core/OrderService.cs", "BusinessLogic"},
		{"src/Core/CacheManager.cs", "BusinessLogic"},
		{"src/Models/User.cs", "Dto"},
		{"src/Api/UserDto.cs", "Dto"},
		{"src/Web/HomeViewModel.cs", "Dto"},
		{"src/Util/StringHelpers.cs", SuggestedFallbackProfile},
		{"Program.cs", SuggestedFallbackProfile},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestProfile(tt.path))
		})
	}
}

func TestSuggestProfiles(t *testing.T) {
	got := SuggestProfiles([]string{"a/Security/X.cs", "b/Y.cs"})
	assert.Equal(t, map[string]string{"a/Security/X.cs": "Critical", "b/Y.cs": "Standard"}, got)
}

func TestReadFileList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "files.txt")
	require.NoError(t, os.WriteFile(path, []byte("# changed files\n\nsrc/A.cs\n  src/B.cs  \n"), 0o644))

	files, err := ReadFileList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/A.cs", "src/B.cs"}, files)

	_, err = ReadFileList(filepath.Join(t.TempDir(), "none.txt"))
	assert.ErrorIs(t, err, schema.ErrNotFound)
}
