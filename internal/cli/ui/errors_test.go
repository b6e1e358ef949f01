package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackageNotFoundError(t *testing.T) {
	out := PackageNotFoundError("qests", []string{"quests"}, true)

	assert.Contains(t, out, `package not found: "qests"`)
	assert.Contains(t, out, "Did you mean: quests?")
	assert.Contains(t, out, "packsmith packages list")
}

func TestPackageNotFoundError_NoSuggestions(t *testing.T) {
	out := PackageNotFoundError("zzz", nil, true)

	assert.NotContains(t, out, "Did you mean")
	assert.Contains(t, out, "packsmith packages list")
}

func TestImportError(t *testing.T) {
	out := ImportError("legacy document is malformed", "No package was created.", true)

	assert.Contains(t, out, "import failed: legacy document is malformed")
	assert.Contains(t, out, "No package was created.")
	assert.Contains(t, out, "packsmith import --help")
}
