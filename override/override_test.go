package override

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archivecrawl/models"
)

type fakeLoader struct {
	overrides []models.DomainOverride
	err       error
}

func (f fakeLoader) LoadDomainOverrides(ctx context.Context) ([]models.DomainOverride, error) {
	return f.overrides, f.err
}

func TestLoad_SnapshotsOnlyEnabledOverrides(t *testing.T) {
	browser := models.FetchBrowser
	loader := fakeLoader{overrides: []models.DomainOverride{
		{Domain: "Example.com", Enabled: true, MainContentSelectors: []string{"#main"}, ForceFetchMode: &browser},
		{Domain: "disabled.com", Enabled: false, MainContentSelectors: []string{"#x"}},
	}}

	c := New()
	require.NoError(t, c.Load(context.Background(), loader))
	require.True(t, c.Loaded())

	sel := c.MainContentSelectors("example.com")
	assert.Equal(t, []string{"#main"}, sel)

	mode, ok := c.ForceFetchMode("example.com")
	require.True(t, ok)
	assert.Equal(t, models.FetchBrowser, mode)

	_, ok = c.Lookup("disabled.com")
	assert.False(t, ok)
}

func TestLookup_UnknownDomainReturnsFalse(t *testing.T) {
	c := New()
	require.NoError(t, c.Load(context.Background(), fakeLoader{}))
	_, ok := c.Lookup("nowhere.com")
	assert.False(t, ok)
	assert.Nil(t, c.MainContentSelectors("nowhere.com"))
	assert.Nil(t, c.RemoveSelectors("nowhere.com"))
}

func TestLoad_IsCaseInsensitiveOnDomain(t *testing.T) {
	loader := fakeLoader{overrides: []models.DomainOverride{
		{Domain: "MixedCase.com", Enabled: true, RemoveSelectors: []string{".ad"}},
	}}
	c := New()
	require.NoError(t, c.Load(context.Background(), loader))
	assert.Equal(t, []string{".ad"}, c.RemoveSelectors("mixedcase.com"))
}
