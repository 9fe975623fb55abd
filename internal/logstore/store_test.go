package logstore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/volcanomonitor/internal/constants"
	"github.com/chrissnell/volcanomonitor/internal/types"
)

func mountedStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, s.Mount())
	return s
}

func readFile(t *testing.T, s *Store) string {
	t.Helper()
	b, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	return string(b)
}

func TestMountCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	s := New(dir)
	require.NoError(t, s.Mount())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "mount probe must not leave files behind")
}

func TestMountFailsOnFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	for _, dir := range []string{file, filepath.Join(file, "sub")} {
		err := New(dir).Mount()
		assert.ErrorIs(t, err, ErrMount)
	}
}

func TestOperationsRequireMount(t *testing.T) {
	s := New(t.TempDir())

	_, err := s.EnsureLogFile()
	assert.ErrorIs(t, err, ErrNotMounted)
	assert.ErrorIs(t, s.Append(types.Record{}), ErrNotMounted)
	_, err = s.ReadAll()
	assert.ErrorIs(t, err, ErrNotMounted)
}

func TestEnsureLogFileWritesHeaderOnce(t *testing.T) {
	s := mountedStore(t)

	created, err := s.EnsureLogFile()
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, constants.LogHeader+"\n", readFile(t, s))

	require.NoError(t, s.Append(types.NewRecord(types.Reading{40, 1, 0.1, 2}, 0.2)))
	before := readFile(t, s)

	created, err = s.EnsureLogFile()
	require.NoError(t, err)
	assert.False(t, created)

	created, err = s.EnsureLogFile()
	require.NoError(t, err)
	assert.False(t, created)

	after := readFile(t, s)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, strings.Count(after, constants.LogHeader))
}

func TestAppendAndReadBackRoundTrip(t *testing.T) {
	s := mountedStore(t)
	_, err := s.EnsureLogFile()
	require.NoError(t, err)

	recs := []types.Record{
		types.NewRecord(types.Reading{30, 0, 0, 0}, 0),
		types.NewRecord(types.Reading{65.4321, 4.5678, 1.23456, 12.34567}, 0.51234),
		types.NewRecord(types.Reading{100, 10, 5, 25}, 0.99999),
	}
	for _, r := range recs {
		require.NoError(t, s.Append(r))
	}

	var buf bytes.Buffer
	n, err := s.CopyTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	want := constants.LogHeader + "\n" +
		"30.00,0.00,0.000,0.000,0.0000,Safe\n" +
		"65.43,4.57,1.235,12.346,0.5123,ERUPTION\n" +
		"100.00,10.00,5.000,25.000,1.0000,ERUPTION\n"
	assert.Equal(t, want, buf.String())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	for i, line := range lines[1:] {
		got, err := ParseRecord(line)
		require.NoError(t, err)
		assert.Equal(t, recs[i].Status, got.Status)
		assert.Equal(t, FormatRecord(recs[i]), FormatRecord(got))
	}
}

func TestAppendMissingFileIsWriteFault(t *testing.T) {
	s := mountedStore(t)
	_, err := s.EnsureLogFile()
	require.NoError(t, err)
	require.NoError(t, os.Remove(s.Path()))

	err = s.Append(types.NewRecord(types.Reading{50, 5, 1, 1}, 0.1))
	assert.ErrorIs(t, err, ErrLogWrite)

	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr), "append must not recreate the file without a header")
}

func TestReadMissingFileIsReadFault(t *testing.T) {
	s := mountedStore(t)

	_, err := s.ReadAll()
	assert.ErrorIs(t, err, ErrLogRead)

	var buf bytes.Buffer
	_, err = s.CopyTo(&buf)
	assert.ErrorIs(t, err, ErrLogRead)
	assert.Zero(t, buf.Len())
}

func TestFormatRecordPrecision(t *testing.T) {
	line := FormatRecord(types.Record{
		Reading: types.Reading{46.127, 3.946, 0.4033, 3.5402},
		Score:   0.123456,
		Status:  types.StatusSafe,
	})
	assert.Equal(t, "46.13,3.95,0.403,3.540,0.1235,Safe\n", line)
}

func TestParseRecordRejectsMalformed(t *testing.T) {
	for _, line := range []string{
		"",
		constants.LogHeader,
		"1,2,3,4,5",
		"1,2,3,4,x,Safe",
		"1,2,3,4,0.5,Maybe",
	} {
		_, err := ParseRecord(line)
		assert.Error(t, err, "line %q", line)
	}
}
