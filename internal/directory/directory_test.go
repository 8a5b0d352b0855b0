package directory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Default(t *testing.T) {
	d, err := Load("")
	require.NoError(t, err)

	initials, err := d.Initials("성현")
	require.NoError(t, err)
	assert.Equal(t, "KSH", initials)
	assert.Len(t, d.Names(), 18)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "names.yaml")
	require.NoError(t, os.WriteFile(path, []byte("alice: AL\nbob: BO\n"), 0o600))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, d.Names())
	assert.True(t, d.Contains("bob"))

	_, err = d.Initials("mallory")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("- not\n- a map\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("alice: \"\"\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("{}\n"))
	assert.Error(t, err)
}
