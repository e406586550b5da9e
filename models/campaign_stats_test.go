package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCampaignStatsRates(t *testing.T) {
	t.Run("ZeroDenominator", func(t *testing.T) {
		s := &CampaignStats{EmailsOpened: 5, Submissions: 2}
		assert.Zero(t, s.EmailOpenRate())
		assert.Zero(t, s.SMSOpenRate())
		assert.Zero(t, s.ConversionRate())
	})

	t.Run("Percentages", func(t *testing.T) {
		s := &CampaignStats{
			TotalRecipients: 200,
			EmailsSent:      100,
			EmailsOpened:    25,
			SMSSent:         80,
			SMSOpened:       40,
			Submissions:     50,
		}
		assert.InDelta(t, 25.0, s.EmailOpenRate(), 0.001)
		assert.InDelta(t, 50.0, s.SMSOpenRate(), 0.001)
		assert.InDelta(t, 25.0, s.ConversionRate(), 0.001)
	})

	t.Run("CappedAtHundred", func(t *testing.T) {
		s := &CampaignStats{EmailsSent: 10, EmailsOpened: 30}
		assert.Equal(t, 100.0, s.EmailOpenRate())
	})
}
