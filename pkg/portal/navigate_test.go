package portal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logbook-automation/pkg/browser/browsertest"
)

func TestLocateActivityPageThroughMenu(t *testing.T) {
	cfg := testConfig(t)
	fp := newFakePortal()
	for _, path := range cfg.Portal.ActivityPaths {
		fp.page.Route(base+path, func(p *browsertest.Page) {})
	}

	const hidden = base + "/Portal/LogbookHarian"
	fp.page.Route(hidden, func(p *browsertest.Page) {
		p.Set("#tblLogbook", browsertest.Visible(""))
		p.Set("#btnTambah", fp.addButton)
	})
	menu := browsertest.Visible("Logbook Harian")
	menu.OnClick = func(p *browsertest.Page) error {
		return p.Navigate(context.Background(), hidden)
	}
	fp.page.Route(base, func(p *browsertest.Page) {
		p.Set("a[href*='Logbook']", menu)
	})
	o, _ := newOrchestrator(cfg, fp)

	out := o.Run(context.Background(), sampleEntry(), creds)

	require.True(t, out.Succeeded, out.FailureReason)
	assert.Equal(t, 1, menu.Clicks())
	assert.Equal(t, 1, fp.addButton.Clicks())
	assert.Empty(t, out.Screenshots, "fallback inside one attempt, nothing failed")

	navs := fp.page.Navigations()
	require.NotEmpty(t, navs)
	assert.Equal(t, hidden, navs[len(navs)-1])
	for _, path := range cfg.Portal.ActivityPaths {
		assert.Contains(t, navs, base+path, "every candidate URL is tried before the menu")
	}
}

func TestLocateActivityPageSkipsFailedNavigation(t *testing.T) {
	cfg := testConfig(t)
	fp := newFakePortal()
	fp.page.NavigateErr = map[string]error{base + cfg.Portal.ActivityPaths[0]: assert.AnError}
	fp.page.Route(base+cfg.Portal.ActivityPaths[1], func(p *browsertest.Page) {
		p.Set("#tblLogbook", browsertest.Visible(""))
		p.Set("#btnTambah", fp.addButton)
	})
	o, _ := newOrchestrator(cfg, fp)

	out := o.Run(context.Background(), sampleEntry(), creds)

	require.True(t, out.Succeeded, out.FailureReason)
	assert.Contains(t, fp.page.Navigations(), base+cfg.Portal.ActivityPaths[1])
}
