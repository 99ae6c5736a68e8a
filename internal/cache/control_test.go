package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30", 30 * time.Second},
		{"30s", 30 * time.Second},
		{"5m", 5 * time.Minute},
		{"2h", 2 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"-1", NoMaxAge},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseDuration("soon")
	assert.Error(t, err)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"100", 100},
		{"4k", 4096},
		{"10m", 10 * 1024 * 1024},
		{"1G", 1024 * 1024 * 1024},
	}
	for _, tt := range tests {
		got, err := ParseSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseSize("")
	assert.Error(t, err)
}

func TestReadControl(t *testing.T) {
	path := filepath.Join(t.TempDir(), "control.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<cache-control xmlns="http://xmlresolver.org/ns/catalog"
    delete-wait="2d" size="50" space="1m" max-age="-1">
  <no-cache uri="^https://internal\."/>
  <cache uri="^https://www\.w3\.org/" max-age="1w" size="10"/>
</cache-control>`), 0o644))

	c, err := readControl(path)
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, 2*24*time.Hour, c.Default.DeleteWait)
	assert.Equal(t, 50, c.Default.MaxCount)
	assert.Equal(t, int64(1024*1024), c.Default.MaxBytes)
	assert.Equal(t, NoMaxAge, c.Default.MaxAge)

	assert.False(t, c.RuleFor("https://internal.example.com/a.dtd").Cache)
	w3c := c.RuleFor("https://www.w3.org/2001/XMLSchema.xsd")
	assert.True(t, w3c.Cache)
	assert.Equal(t, 7*24*time.Hour, w3c.MaxAge)
	assert.Equal(t, 10, w3c.MaxCount)
	assert.Equal(t, int64(1024*1024), w3c.MaxBytes, "unset limits inherit the default")
	assert.False(t, c.RuleFor("file:///etc/xml/catalog").Cache)
	assert.True(t, c.RuleFor("https://example.org/x").Cache)
}

func TestControlRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "control.xml")
	want := DefaultControl()
	want.Default.MaxAge = 3 * time.Hour
	rule, err := want.NewRule("^http://example.com/", true)
	require.NoError(t, err)
	rule.MaxCount = 5
	want.Rules = append([]Rule{rule}, want.Rules...)

	require.NoError(t, writeControl(path, want))
	got, err := readControl(path)
	require.NoError(t, err)

	require.Len(t, got.Rules, len(want.Rules))
	for i := range want.Rules {
		assert.Equal(t, want.Rules[i].Pattern(), got.Rules[i].Pattern())
		assert.Equal(t, want.Rules[i].Cache, got.Rules[i].Cache)
	}
	assert.Equal(t, 5, got.Rules[0].MaxCount)
	assert.Equal(t, want.Default.MaxAge, got.Default.MaxAge)
	assert.Equal(t, want.Default.MaxBytes, got.Default.MaxBytes)
}

func TestReadControlMissing(t *testing.T) {
	c, err := readControl(filepath.Join(t.TempDir(), "absent.xml"))
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestExtension(t *testing.T) {
	tests := []struct {
		contentType string
		uri         string
		want        string
	}{
		{"application/xml-dtd", "http://example.com/x", ".dtd"},
		{"TEXT/XML", "http://example.com/x.dtd", ".xml"},
		{"", "http://example.com/schema.xsd?v=2", ".xsd"},
		{"application/octet-stream", "http://example.com/a.MOD", ".mod"},
		{"", "http://example.com/unknown.foo", defaultExtension},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extension(tt.contentType, tt.uri), tt.uri)
	}
}
