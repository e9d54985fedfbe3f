package portal

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logbook-automation/pkg/browser/browsertest"
)

func TestLoginOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(fp *fakePortal)
		succeeded bool
		permanent bool
		reason    string
		shots     int
		clicks    int
		enters    int
	}{
		{
			name: "enter when no submit control resolves",
			setup: func(fp *fakePortal) {
				fp.page.Route(base+"/Account/Login", func(p *browsertest.Page) {
					p.Set("#Username", browsertest.Input(""))
					p.Set("#Password", browsertest.Input(""))
				})
				fp.page.OnEnter = func(p *browsertest.Page) error {
					if strings.HasSuffix(p.URL(), "/Account/Login") {
						return p.Navigate(context.Background(), base+"/Home/Index")
					}
					return nil
				}
			},
			succeeded: true,
			enters:    1,
		},
		{
			name: "no signal either way is retried",
			setup: func(fp *fakePortal) {
				fp.loginButton.OnClick = func(p *browsertest.Page) error { return nil }
			},
			reason: "login outcome unclear",
			shots:  2,
			clicks: 2,
		},
		{
			name: "error text is final",
			setup: func(fp *fakePortal) {
				fp.loginButton.OnClick = func(p *browsertest.Page) error {
					p.Set(".alert-danger", browsertest.Visible("Akun tidak ditemukan"))
					return nil
				}
			},
			permanent: true,
			reason:    "Akun tidak ditemukan",
			shots:     1,
			clicks:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			fp := newFakePortal()
			tt.setup(fp)
			o, _ := newOrchestrator(cfg, fp)

			out := o.Run(context.Background(), sampleEntry(), creds)

			assert.Equal(t, tt.enters, fp.page.Enters())
			if tt.succeeded {
				require.True(t, out.Succeeded, out.FailureReason)
				assert.Zero(t, fp.loginButton.Clicks())
				return
			}
			assert.False(t, out.Succeeded)
			assert.Equal(t, string(StateLogin), out.FailedState)
			assert.Equal(t, tt.permanent, out.Permanent)
			assert.Contains(t, out.FailureReason, tt.reason)
			assert.Len(t, out.Screenshots, tt.shots)
			assert.Equal(t, tt.clicks, fp.loginButton.Clicks())
		})
	}
}
