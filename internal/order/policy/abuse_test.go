package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront-bot/internal/order/policy"
)

func TestAbuseDecide(t *testing.T) {
	a := policy.DefaultAbuse()

	assert.Equal(t, policy.ActionNone, a.Decide(0))
	assert.Equal(t, policy.ActionNone, a.Decide(1))
	assert.Equal(t, policy.ActionWarn, a.Decide(2), "warn threshold is inclusive")
	assert.Equal(t, policy.ActionWarn, a.Decide(14))
	assert.Equal(t, policy.ActionBan, a.Decide(15), "ban threshold is inclusive")
	assert.Equal(t, policy.ActionBan, a.Decide(40))
}

func TestAbuseWindowStart(t *testing.T) {
	a := policy.DefaultAbuse()
	assert.True(t, a.WindowStart(base).Equal(base.Add(-a.Window)))
}
