package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/coverbouncer/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const criticalTag = `// [CoverageProfile("Critical")]`

func readText(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestInsertProfileTag(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "before namespace after blank line",
			content: "using System;\n\nnamespace App;\n\npublic class A {}\n",
			want:    "using System;\n\n" + criticalTag + "\nnamespace App;\n\npublic class A {}\n",
		},
		{
			name:    "before namespace directly after using",
			content: "using System;\nnamespace App;\n",
			want:    "using System;\n\n" + criticalTag + "\nnamespace App;\n",
		},
		{
			name:    "before type without namespace",
			content: "public sealed class A {}\n",
			want:    criticalTag + "\npublic sealed class A {}\n",
		},
		{
			name:    "after last using",
			content: "using System;\nusing System.IO;\n",
			want:    "using System;\nusing System.IO;\n\n" + criticalTag + "\n",
		},
		{
			name:    "top of file",
			content: "// nothing to anchor on\n",
			want:    criticalTag + "\n\n// nothing to anchor on\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, insertProfileTag(tt.content, "Critical"))
		})
	}
}

func TestWriteProfileTag(t *testing.T) {
	dir := t.TempDir()

	t.Run("adds then reports unchanged", func(t *testing.T) {
		path := writeSourceFile(t, dir, "Add.cs", "namespace App;\n")
		changed, err := WriteProfileTag(path, "Critical", false)
		require.NoError(t, err)
		assert.True(t, changed)
		profile, found := ReadProfileMarker(path)
		assert.True(t, found)
		assert.Equal(t, "Critical", profile)

		changed, err = WriteProfileTag(path, "Critical", false)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("replaces existing marker in place", func(t *testing.T) {
		path := writeSourceFile(t, dir, "Replace.cs", "// [CoverageProfile(\"Old\")]\nnamespace App;\n")
		changed, err := WriteProfileTag(path, "Dto", false)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "// [CoverageProfile(\"Dto\")]\nnamespace App;\n", readText(t, path))
	})

	t.Run("writes a backup and keeps the mode", func(t *testing.T) {
		original := "namespace App;\n"
		path := writeSourceFile(t, dir, "Backup.cs", original)
		require.NoError(t, os.Chmod(path, 0o600))

		_, err := WriteProfileTag(path, "Critical", true)
		require.NoError(t, err)
		assert.Equal(t, original, readText(t, path+".backup"))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("rejects invalid profile names", func(t *testing.T) {
		path := writeSourceFile(t, dir, "Invalid.cs", "namespace App;\n")
		_, err := WriteProfileTag(path, "", false)
		assert.Error(t, err)
		_, err = WriteProfileTag(path, `Bad"Name`, false)
		assert.Error(t, err)
		assert.Equal(t, "namespace App;\n", readText(t, path))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := WriteProfileTag(filepath.Join(dir, "Missing.cs"), "Critical", false)
		assert.ErrorIs(t, err, schema.ErrNotFound)
	})
}

func TestRemoveProfileTag(t *testing.T) {
	dir := t.TempDir()

	t.Run("round trip restores the file", func(t *testing.T) {
		original := "using System;\n\nnamespace App;\n\npublic class A {}\n"
		path := writeSourceFile(t, dir, "RoundTrip.cs", original)
		_, err := WriteProfileTag(path, "Critical", false)
		require.NoError(t, err)

		removed, err := RemoveProfileTag(path, false)
		require.NoError(t, err)
		assert.True(t, removed)
		assert.Equal(t, original, readText(t, path))
	})

	t.Run("inline marker keeps the rest of the line", func(t *testing.T) {
		path := writeSourceFile(t, dir, "Inline.cs", "[CoverageProfile(\"Dto\")] public class A {}\n")
		removed, err := RemoveProfileTag(path, false)
		require.NoError(t, err)
		assert.True(t, removed)
		content := readText(t, path)
		assert.NotContains(t, content, "CoverageProfile")
		assert.Contains(t, content, "public class A {}")
	})

	t.Run("no marker", func(t *testing.T) {
		path := writeSourceFile(t, dir, "Plain.cs", "namespace App;\n")
		removed, err := RemoveProfileTag(path, true)
		require.NoError(t, err)
		assert.False(t, removed)
		assert.NoFileExists(t, path+".backup")
	})
}

func TestTagFiles(t *testing.T) {
	dir := t.TempDir()
	plain := writeSourceFile(t, dir, "Plain.cs", "namespace App;\n")
	tagged := writeSourceFile(t, dir, "Tagged.cs", criticalTag+"\nnamespace App;\n")
	missing := filepath.Join(dir, "Missing.cs")

	t.Run("dry run writes nothing", func(t *testing.T) {
		result := TagFiles([]string{plain}, "Critical", TagOptions{DryRun: true})
		assert.Equal(t, []string{plain}, result.Tagged)
		assert.Equal(t, "namespace App;\n", readText(t, plain))
	})

	result := TagFiles([]string{plain, tagged, missing}, "Critical", TagOptions{})
	assert.Equal(t, 3, result.FilesMatched)
	assert.Equal(t, []string{plain}, result.Tagged)
	assert.Equal(t, []string{tagged}, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, TagError{File: missing, Err: "file not found"}, result.Errors[0])

	untagged := UntagFiles([]string{plain, tagged, missing}, TagOptions{})
	assert.ElementsMatch(t, []string{plain, tagged}, untagged.Tagged)
	assert.Empty(t, untagged.Skipped)
	assert.Len(t, untagged.Errors, 1)

	again := UntagFiles([]string{plain}, TagOptions{})
	assert.Equal(t, []string{plain}, again.Skipped)
}

func TestTagDirectory(t *testing.T) {
	root := t.TempDir()
	top := writeSourceFile(t, root, "A.cs", "namespace App;\n")
	nested := writeSourceFile(t, root, "sub/B.CS", "namespace App.Sub;\n")
	writeSourceFile(t, root, "bin/Generated.cs", "namespace App;\n")
	writeSourceFile(t, root, "README.md", "# docs\n")

	opts := TagOptions{DryRun: true, Excludes: DefaultTagExcludes}

	flat, err := TagDirectory(root, "Standard", false, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{top}, flat.Tagged)

	deep, err := TagDirectory(root, "Standard", true, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{top, nested}, deep.Tagged)

	_, err = TagDirectory(filepath.Join(root, "nope"), "Standard", true, opts)
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestTagDirectoryNestedExcludes(t *testing.T) {
	root := t.TempDir()
	kept := writeSourceFile(t, root, "src/Orders/Order.cs", "namespace App.Orders;\n")
	writeSourceFile(t, root, "src/Orders/Generated/Order.g.cs", "namespace App.Orders;\n")
	writeSourceFile(t, root, "a/b/Generated/Client.cs", "namespace App;\n")
	writeSourceFile(t, root, "src/Migrations/Deep/Init.cs", "namespace App;\n")

	excludes := []string{"**/Generated/*.cs", "src/Migrations/**"}
	result, err := TagDirectory(root, "Standard", true, TagOptions{DryRun: true, Excludes: excludes})
	require.NoError(t, err)
	assert.Equal(t, []string{kept}, result.Tagged)
}

func TestTagByPattern(t *testing.T) {
	root := t.TempDir()
	rootSvc := writeSourceFile(t, root, "UserService.cs", "namespace App;\n")
	deepSvc := writeSourceFile(t, root, "src/Orders/OrderService.cs", "namespace App.Orders;\n")
	writeSourceFile(t, root, "src/Orders/Order.cs", "namespace App.Orders;\n")
	writeSourceFile(t, root, "obj/Debug/CachedService.cs", "namespace App;\n")

	files, err := FindByPattern(root, "**/*Service.cs", DefaultTagExcludes)
	require.NoError(t, err)
	assert.Equal(t, []string{rootSvc, deepSvc}, files)

	result, err := TagByPattern(root, "src/**/*.cs", "BusinessLogic", TagOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Tagged, 2)
	profile, _ := ReadProfileMarker(deepSvc)
	assert.Equal(t, "BusinessLogic", profile)
	_, found := ReadProfileMarker(rootSvc)
	assert.False(t, found)

	_, err = FindByPattern(root, "src/[", nil)
	assert.Error(t, err)
}
