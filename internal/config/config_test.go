package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "HTML", cfg.Title)
	assert.Equal(t, "html_to_epub", cfg.Author)
	assert.Equal(t, "output.epub", cfg.Output)
	assert.Equal(t, "abort", cfg.MissingImages)
	assert.Equal(t, ".", cfg.WorkDir)
	assert.True(t, cfg.Normalize)
	assert.False(t, cfg.CoverPage)
	assert.Empty(t, cfg.Cover)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_TOML(t *testing.T) {
	t.Setenv("HTML2EPUB_TEST_AUTHOR", "Jane")
	path := writeConfig(t, "book.toml", `
title = "My Book"
author = "${HTML2EPUB_TEST_AUTHOR}"
cover_page = true
missing_images = "drop"
normalize = false

[log]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "My Book", cfg.Title)
	assert.Equal(t, "Jane", cfg.Author)
	assert.True(t, cfg.CoverPage)
	assert.Equal(t, "drop", cfg.MissingImages)
	assert.False(t, cfg.Normalize)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, "output.epub", cfg.Output)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "book.yml", `
title: YAML Book
output: ${HTML2EPUB_TEST_UNSET_OUTPUT:-fallback.epub}
keep_images: true
work_dir: /tmp/work
proxy: proxy.local:3128
log:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "YAML Book", cfg.Title)
	assert.Equal(t, "fallback.epub", cfg.Output)
	assert.True(t, cfg.KeepImages)
	assert.Equal(t, "/tmp/work", cfg.WorkDir)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "html_to_epub", cfg.Author)

	proxy, err := cfg.ProxyURL()
	require.NoError(t, err)
	assert.Equal(t, "http://proxy.local:3128", proxy.String())
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := Load(writeConfig(t, "book.json", `{}`))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := Load(writeConfig(t, "book.toml", `title = `))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing config")
	})

	t.Run("validation", func(t *testing.T) {
		_, err := Load(writeConfig(t, "book.toml", "missing_images = \"ignore\"\n[log]\nlevel = \"loud\"\n"))
		require.ErrorIs(t, err, ErrInvalid)

		var cfgErr *Error
		require.True(t, errors.As(err, &cfgErr))
		assert.Len(t, cfgErr.Errors, 2)
		assert.Contains(t, err.Error(), "missing_images")
		assert.Contains(t, err.Error(), "log.level")
	})

	t.Run("unresolved variable", func(t *testing.T) {
		_, err := Load(writeConfig(t, "book.toml", `title = "${HTML2EPUB_TEST_NONEXISTENT_12345}"`))
		require.ErrorIs(t, err, ErrInvalid)

		var cfgErr *Error
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, []string{"HTML2EPUB_TEST_NONEXISTENT_12345"}, cfgErr.Missing)
	})
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("HTML2EPUB_TEST_SET", "value")
	t.Setenv("HTML2EPUB_TEST_EMPTY", "")

	tests := []struct {
		name        string
		in          string
		want        string
		wantMissing []string
	}{
		{"simple", "a = ${HTML2EPUB_TEST_SET}", "a = value", nil},
		{"default unused", "${HTML2EPUB_TEST_SET:-x}", "value", nil},
		{"default for empty", "${HTML2EPUB_TEST_EMPTY:-x}", "x", nil},
		{"empty without default", "[${HTML2EPUB_TEST_EMPTY}]", "[]", nil},
		{"empty default", "[${HTML2EPUB_TEST_NONEXISTENT_1:-}]", "[]", nil},
		{"missing", "${HTML2EPUB_TEST_NONEXISTENT_2}", "${HTML2EPUB_TEST_NONEXISTENT_2}", []string{"HTML2EPUB_TEST_NONEXISTENT_2"}},
		{"no references", "plain $HOME text", "plain $HOME text", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing := substituteEnvVars(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMissing, missing)
		})
	}
}

func TestProxyFromEnv(t *testing.T) {
	t.Run("lowercase wins", func(t *testing.T) {
		t.Setenv("http_proxy", "http://lower:8080")
		t.Setenv("HTTP_PROXY", "http://upper:8080")
		u, err := ProxyFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "lower:8080", u.Host)
	})

	t.Run("uppercase fallback", func(t *testing.T) {
		t.Setenv("http_proxy", "")
		t.Setenv("HTTP_PROXY", "upper:3128")
		u, err := ProxyFromEnv()
		require.NoError(t, err)
		assert.Equal(t, "http://upper:3128", u.String())
	})

	t.Run("unset", func(t *testing.T) {
		t.Setenv("http_proxy", "")
		t.Setenv("HTTP_PROXY", "")
		u, err := ProxyFromEnv()
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("config overrides environment", func(t *testing.T) {
		t.Setenv("http_proxy", "http://env:1")
		cfg := Default()
		cfg.Proxy = "https://configured:2"
		u, err := cfg.ProxyURL()
		require.NoError(t, err)
		assert.Equal(t, "https://configured:2", u.String())
	})
}

func TestParseProxy_Invalid(t *testing.T) {
	_, err := ParseProxy("http://")
	assert.ErrorIs(t, err, ErrInvalid)
}
