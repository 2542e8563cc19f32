package locale

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_English(t *testing.T) {
	b, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "en", b.Language())
	assert.Equal(t, "Local Currency", b.Text("Local Currency"))
	assert.Equal(t, "No results", b.Text("alert.noSearchResultsTitle"))
	assert.Equal(t, "We couldn't find anything for 'zloty'", b.Format("alert.noSearchResultsSubtitle", "zloty"))
}

func TestLoad_UnknownLanguage(t *testing.T) {
	_, err := Load("xx")
	assert.Error(t, err)
}

func TestBundle_MissingKeyEchoesKey(t *testing.T) {
	b, err := Load("en")
	require.NoError(t, err)

	assert.Equal(t, "does.not.exist", b.Text("does.not.exist"))
}

func TestLoadFile_Merge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`"alert.noSearchResultsTitle": "Nothing here"`), 0644))

	base, err := Load("en")
	require.NoError(t, err)
	custom, err := LoadFile("en", path)
	require.NoError(t, err)

	merged := base.Merge(custom)
	assert.Equal(t, "Nothing here", merged.Text("alert.noSearchResultsTitle"))
	assert.Equal(t, "Retry", merged.Text("action.retry"))
	assert.Equal(t, "No results", base.Text("alert.noSearchResultsTitle"), "base bundle is not modified")
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map"), 0644))

	_, err := LoadFile("en", path)
	assert.Error(t, err)

	_, err = LoadFile("en", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
