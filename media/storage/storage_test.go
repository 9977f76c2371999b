package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "linen.png", "linen.png", false},
		{"nested", "paper/linen.png", "paper/linen.png", false},
		{"leading slash", "/linen.png", "linen.png", false},
		{"empty", "  ", "", true},
		{"traversal", "../secret.png", "", true},
		{"inner traversal", "paper/../../x.png", "", true},
		{"backslash", `paper\x.png`, "", true},
		{"double slash", "paper//x.png", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanName(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalProviderRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	p, err := NewLocalProvider(dir, "/textures/")
	require.NoError(t, err)

	url, err := p.Upload(ctx, strings.NewReader("canvas"), "paper/canvas.png")
	require.NoError(t, err)
	assert.Equal(t, "/textures/paper/canvas.png", url)

	ok, err := p.Exists(ctx, "paper/canvas.png")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := p.Open(ctx, "paper/canvas.png")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "canvas", string(data))

	_, err = p.Upload(ctx, strings.NewReader("linen"), "linen.jpg")
	require.NoError(t, err)

	all, err := p.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "linen.jpg", all[0].Name)
	assert.Equal(t, "paper/canvas.png", all[1].Name)
	assert.EqualValues(t, 6, all[1].Size)

	paper, err := p.List(ctx, "paper/")
	require.NoError(t, err)
	assert.Len(t, paper, 1)

	require.NoError(t, p.Delete(ctx, "paper/canvas.png"))
	require.NoError(t, p.Delete(ctx, "paper/canvas.png"))
	ok, err = p.Exists(ctx, "paper/canvas.png")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalProviderOpenMissing(t *testing.T) {
	p, err := NewLocalProvider(t.TempDir(), "")
	require.NoError(t, err)

	_, err = p.Open(context.Background(), "nope.png")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLocalProviderRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	p, err := NewLocalProvider(filepath.Join(dir, "lib"), "")
	require.NoError(t, err)

	_, err = p.Upload(context.Background(), strings.NewReader("x"), "../escape.png")
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "escape.png"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewSelectsProvider(t *testing.T) {
	p, err := New(Config{Type: "local", Local: LocalConfig{BasePath: t.TempDir()}})
	require.NoError(t, err)
	assert.Equal(t, "local", p.Name())

	_, err = New(Config{Type: "s3"})
	assert.Error(t, err)
}

func TestPublicDomain(t *testing.T) {
	assert.Equal(t, "https://tex.oss-cn-hangzhou.aliyuncs.com", publicDomain("oss-cn-hangzhou.aliyuncs.com", "tex", ""))
	assert.Equal(t, "https://cdn.example.com", publicDomain("e", "b", "cdn.example.com/"))
	assert.Equal(t, "http://cdn.example.com", publicDomain("e", "b", "http://cdn.example.com"))
}

func TestOSSObjectKey(t *testing.T) {
	p := &OSSProvider{prefix: "textures"}

	key, err := p.objectKey("paper/linen.png")
	require.NoError(t, err)
	assert.Equal(t, "textures/paper/linen.png", key)
	assert.Equal(t, "paper/linen.png", p.assetName(key))

	_, err = p.objectKey("../x")
	assert.Error(t, err)
}
