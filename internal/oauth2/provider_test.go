package oauth2

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{ name string }

func (s stubProvider) Name() string                 { return s.name }
func (s stubProvider) AuthCodeURL(st string) string { return "https://example.com/?state=" + st }
func (s stubProvider) Exchange(context.Context, string) (*Profile, error) {
	return &Profile{Provider: s.name, ID: "1"}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(stubProvider{name: "github"})
	r.Register(stubProvider{name: "gitlab"})

	p, err := r.Get("github")
	require.NoError(t, err)
	assert.Equal(t, "github", p.Name())

	_, err = r.Get("dropbox")
	assert.ErrorIs(t, err, ErrProviderNotFound)

	assert.Equal(t, []string{"github", "gitlab"}, r.List())
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	require.NoError(t, err)
	b, err := GenerateState()
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestProfileExternalID(t *testing.T) {
	p := Profile{Provider: "github", ID: "99"}
	assert.Equal(t, "github:99", p.ExternalID())
}
