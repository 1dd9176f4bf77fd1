package blob

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/abhisek/brainbrew/internal/tutor"
)

func TestLocal_PutURLDelete(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir)
	require.NoError(t, err)
	ctx := t.Context()

	key := "user-1/1700000000000.pdf"
	require.NoError(t, l.Put(ctx, key, "application/pdf", []byte("%PDF-1.7")))

	data, err := os.ReadFile(filepath.Join(dir, "user-1", "1700000000000.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	u, err := l.URL(ctx, key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "file://"), u)
	assert.True(t, strings.HasSuffix(u, "/user-1/1700000000000.pdf"), u)

	require.NoError(t, l.Delete(ctx, key))
	assert.ErrorIs(t, l.Delete(ctx, key), tutor.ErrNotFound)

	_, err = l.URL(ctx, key)
	assert.ErrorIs(t, err, tutor.ErrNotFound)
}

func TestLocal_RejectsEscapingKeys(t *testing.T) {
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "/etc/passwd", "../x.pdf", `a\b.pdf`} {
		assert.Error(t, l.Put(t.Context(), key, "", []byte("x")), "key %q", key)
	}
}

func TestGCS_URLFallsBackToPublic(t *testing.T) {
	g, err := NewGCS(t.Context(), "study-docs", nil, option.WithoutAuthentication())
	require.NoError(t, err)
	defer g.Close()

	var gotOpts *storage.SignedURLOptions
	g.sign = func(_ string, opts *storage.SignedURLOptions) (string, error) {
		gotOpts = opts
		return "https://signed.example/doc?X-Goog-Signature=abc", nil
	}
	u, err := g.URL(t.Context(), "u1/1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/doc?X-Goog-Signature=abc", u)
	assert.Equal(t, "GET", gotOpts.Method)
	assert.Equal(t, storage.SigningSchemeV4, gotOpts.Scheme)

	g.sign = func(string, *storage.SignedURLOptions) (string, error) {
		return "", errors.New("no private key")
	}
	u, err = g.URL(t.Context(), "u1/1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://storage.googleapis.com/study-docs/u1/1.pdf", u)
}

func TestNewGCS_RequiresBucket(t *testing.T) {
	_, err := NewGCS(t.Context(), "", nil)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open(t.Context(), Config{Backend: "local", Dir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Local{}, s)

	_, err = Open(t.Context(), Config{Backend: "s3"}, nil)
	assert.Error(t, err)
}
