package migrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFindsEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	all, err := load()
	require.NoError(t, err)
	require.NotEmpty(t, all)

	for i, m := range all {
		require.Equal(t, i+1, m.version, "versions must be dense and sorted")
		require.NotEmpty(t, m.name)
		require.NotEmpty(t, m.sql)
	}

	require.Equal(t, "create_audios", all[0].name)
	require.Equal(t, "create_failed_audio_transcriptions", all[1].name)
}

func TestLoadSkipsDownMigrations(t *testing.T) {
	t.Parallel()

	all, err := load()
	require.NoError(t, err)

	for _, m := range all {
		require.NotContains(t, strings.ToUpper(m.sql), "DROP TABLE", "down migrations must not be applied at startup")
	}
}

func TestUpPattern(t *testing.T) {
	t.Parallel()

	matches := upPattern.FindStringSubmatch("001_create_audios.up.sql")
	require.NotNil(t, matches)
	require.Equal(t, "001", matches[1])
	require.Equal(t, "create_audios", matches[2])

	require.Nil(t, upPattern.FindStringSubmatch("001_create_audios.down.sql"))
	require.Nil(t, upPattern.FindStringSubmatch("notes.txt"))
}
