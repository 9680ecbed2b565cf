package messages

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsComplete(t *testing.T) {
	c := Default()
	assert.NotEmpty(t, c.Welcome)
	assert.NotEmpty(t, c.Archive.Footer)
	assert.NotEmpty(t, c.Errors.DispatchFailed)
	assert.Len(t, c.Kinds, 7)
	assert.Equal(t, "🎤", c.Kind("voice").Icon)
	assert.Equal(t, "✅ Finish and send", c.Button("finish_story"))
	assert.Equal(t, "unknown_action", c.Button("unknown_action"))
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	override := "welcome: \"Hola\"\nbuttons:\n  finish_story: \"Terminar\"\narchive:\n  footer: \"FIN\"\n"
	require.NoError(t, os.WriteFile(path, []byte(override), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Hola", c.Welcome)
	assert.Equal(t, "Terminar", c.Button("finish_story"))
	assert.Equal(t, "FIN", c.Archive.Footer)
	// untouched entries keep their defaults
	assert.Equal(t, Default().Button("add_more"), c.Button("add_more"))
	assert.Equal(t, Default().Archive.Separator, c.Archive.Separator)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
