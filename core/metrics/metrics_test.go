package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func TestOutcomes_Exposed(t *testing.T) {
	reg := prometheus.NewRegistry()
	outcomes, err := NewOutcomes(reg)
	require.NoError(t, err)

	outcomes.Observe("role", "created")
	outcomes.Observe("role", "created")
	outcomes.Observe("message", "failed")

	var ctx fasthttp.RequestCtx
	ctx.Request.SetRequestURI("/metrics")
	Handler(reg)(&ctx)

	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	body := string(ctx.Response.Body())
	assert.Contains(t, body, `guild_backup_outcomes_total{action="created",kind="role"} 2`)
	assert.Contains(t, body, `guild_backup_outcomes_total{action="failed",kind="message"} 1`)
}

func TestNewOutcomes_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewOutcomes(reg)
	require.NoError(t, err)

	_, err = NewOutcomes(reg)
	assert.Error(t, err)
}
