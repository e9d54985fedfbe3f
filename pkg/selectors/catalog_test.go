package selectors

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsComplete(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, Version, c.Version)
}

func TestLoadMergesFieldByField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	override := `
version: "2025.04-custom"
add_button:
  - "#btnAddNew"
  - "text=Tambah Logbook"
`
	require.NoError(t, os.WriteFile(path, []byte(override), 0644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "2025.04-custom", c.Version)
	assert.Equal(t, []string{"#btnAddNew", "text=Tambah Logbook"}, c.AddButton)
	assert.Equal(t, Default().Submit, c.Submit, "untouched lists keep their defaults")
	require.NoError(t, c.Validate())
}

func TestLoadWithoutPathReturnsDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateReportsEmptyField(t *testing.T) {
	c := Default()
	c.Submit = nil
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submit")
}

func TestMergeDoesNotAliasOverride(t *testing.T) {
	c := Default()
	o := &Catalog{Date: []string{"#d"}}
	c.Merge(o)
	o.Date[0] = "#changed"
	assert.Equal(t, "#d", c.Date[0])
}
