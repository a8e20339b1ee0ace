package campaign

import (
	"testing"
	"time"
	"videogen/gen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refTime = time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

func generate(t *testing.T, seed int64, n int) []Campaign {
	t.Helper()
	campaigns, err := NewGenerator(gen.NewRng(seed), refTime).Generate(n)
	require.NoError(t, err)
	return campaigns
}

func TestGenerateInvariants(t *testing.T) {
	campaigns := generate(t, 42, 1000)
	statuses := map[Status]int{}

	for _, c := range campaigns {
		require.NoError(t, c.Validate(refTime))
		statuses[c.Status]++

		days := int(c.EndDate.Sub(c.StartDate).Hours() / 24)
		assert.GreaterOrEqual(t, days, 7)
		assert.LessOrEqual(t, days, 90)
		assert.InDelta(t, c.DailyBudget*float64(days), c.TotalBudget, 0.01*float64(days)+0.01)

		switch c.Status {
		case StatusScheduled:
			assert.Zero(t, c.Impressions)
			assert.Zero(t, c.Clicks)
			assert.Zero(t, c.Conversions)
			assert.Zero(t, c.SpentAmount)
		case StatusCompleted:
			assert.LessOrEqual(t, c.SpentAmount, c.TotalBudget)
			assert.GreaterOrEqual(t, c.SpentAmount, c.TotalBudget*0.85-0.01)
		}
		assert.LessOrEqual(t, c.UniqueViewers, c.Impressions)
		assert.LessOrEqual(t, c.Conversions, c.Clicks)

		for _, targets := range [][]string{c.TargetAgeGroups, c.TargetGenders, c.TargetCountries, c.TargetGenres, c.TargetSubscriptionTiers} {
			require.NotEmpty(t, targets)
			if len(targets) > 1 {
				assert.NotContains(t, targets, All)
				assert.LessOrEqual(t, len(targets), 3)
			}
		}
		assert.Contains(t, adDurations[c.AdFormat], c.AdDurationSeconds)
		assert.Contains(t, c.CreativeURL, c.CampaignID)
	}

	assert.NotZero(t, statuses[StatusScheduled])
	assert.NotZero(t, statuses[StatusActive])
	assert.NotZero(t, statuses[StatusCompleted])
}

func TestGenerateDeterministic(t *testing.T) {
	assert.Equal(t, generate(t, 11, 30), generate(t, 11, 30))
}

func TestStatusAt(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC) }
	assert.Equal(t, StatusCompleted, StatusAt(day(1), day(10), day(11).Add(time.Hour)))
	assert.Equal(t, StatusActive, StatusAt(day(1), day(10), day(10).Add(23*time.Hour)))
	assert.Equal(t, StatusActive, StatusAt(day(5), day(10), day(5)))
	assert.Equal(t, StatusScheduled, StatusAt(day(6), day(10), day(5).Add(20*time.Hour)))
}

func TestValidateRejectsScheduledSpend(t *testing.T) {
	c := Campaign{
		CampaignID: "CAMP_x",
		Type:       TypeRetention,
		StartDate:  refTime.AddDate(0, 0, 5),
		EndDate:    refTime.AddDate(0, 0, 20),
		Status:     StatusScheduled,
	}
	require.NoError(t, c.Validate(refTime))

	c.SpentAmount = 10
	assert.Error(t, c.Validate(refTime))

	c.SpentAmount = 0
	c.Status = StatusActive
	assert.Error(t, c.Validate(refTime))
}

func TestRow(t *testing.T) {
	c := generate(t, 5, 1)[0]
	r := c.Row()
	assert.Equal(t, c.StartDate.Format("2006-01-02"), r.StartDate)
	assert.Equal(t, string(c.Status), r.Status)
	assert.Equal(t, c.Impressions, r.Impressions)

	topic, key, data := c.ToJson()
	assert.Equal(t, "campaigns", topic)
	assert.Equal(t, c.CampaignID, key)
	assert.Contains(t, string(data), `"campaign_id":"`+c.CampaignID+`"`)
	assert.Contains(t, c.ToPostgresSql(), "INSERT INTO campaigns")
}
