package main_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	main "github.com/fwojciec/medprice/cmd/medprice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindDotEnv(t *testing.T) {
	t.Parallel()

	t.Run("finds file in a parent directory", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		envPath := filepath.Join(root, ".env")
		require.NoError(t, os.WriteFile(envPath, []byte("A=1\n"), 0o600))
		nested := filepath.Join(root, "a", "b")
		require.NoError(t, os.MkdirAll(nested, 0o755))

		got, ok := main.FindDotEnv(nested)

		require.True(t, ok)
		assert.Equal(t, envPath, got)
	})

	t.Run("nearest file wins", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		nested := filepath.Join(root, "a")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), nil, 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(nested, ".env"), nil, 0o600))

		got, ok := main.FindDotEnv(nested)

		require.True(t, ok)
		assert.Equal(t, filepath.Join(nested, ".env"), got)
	})

	t.Run("ignores directories named .env", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".env"), 0o755))

		got, ok := main.FindDotEnv(root)

		if ok {
			assert.NotEqual(t, filepath.Join(root, ".env"), got)
		}
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("MEDPRICE_TEST_FROM_FILE=file\nMEDPRICE_TEST_PRESET=file\n"), 0o600))
	t.Setenv("MEDPRICE_TEST_PRESET", "env")
	t.Setenv("MEDPRICE_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("MEDPRICE_TEST_FROM_FILE"))

	require.NoError(t, main.LoadDotEnv(dir))

	assert.Equal(t, "file", os.Getenv("MEDPRICE_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("MEDPRICE_TEST_PRESET"))
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("json at debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := main.NewLogger(&buf, "json", "debug")
		require.NoError(t, err)

		logger.Debug("hello", "n", 1)

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "hello", line["msg"])
	})

	t.Run("text filters below level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := main.NewLogger(&buf, "text", "warn")
		require.NoError(t, err)

		logger.Info("quiet")
		logger.Warn("loud")

		assert.NotContains(t, buf.String(), "quiet")
		assert.Contains(t, buf.String(), "loud")
	})

	t.Run("rejects unknown values", func(t *testing.T) {
		t.Parallel()

		_, err := main.NewLogger(&bytes.Buffer{}, "xml", "info")
		assert.Error(t, err)

		_, err = main.NewLogger(&bytes.Buffer{}, "text", "loud")
		assert.Error(t, err)
	})
}
