package customer

import (
	"testing"
	"time"
	"videogen/gen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func generate(t *testing.T, seed int64, n int) []Customer {
	t.Helper()
	customers, err := NewGenerator(gen.NewRng(seed), refTime).Generate(n)
	require.NoError(t, err)
	return customers
}

func TestGenerateInvariants(t *testing.T) {
	customers := generate(t, 42, 2000)
	require.Len(t, customers, 2000)

	ids := make(map[string]bool)
	churned := 0
	for _, c := range customers {
		require.NoError(t, c.Validate())
		assert.False(t, ids[c.CustomerID], "duplicate id %s", c.CustomerID)
		ids[c.CustomerID] = true

		if c.IsActive {
			assert.Nil(t, c.SubscriptionEndDate)
		} else {
			churned++
			require.NotNil(t, c.SubscriptionEndDate)
			assert.False(t, c.SubscriptionEndDate.Before(c.SubscriptionStartDate))
			assert.False(t, c.SubscriptionEndDate.After(refTime))
		}
		assert.False(t, c.SubscriptionStartDate.Before(refTime.AddDate(-3, 0, 0)))

		if c.Tier == TierFreeWithAds {
			assert.Zero(t, c.MonthlyRevenue)
			assert.Zero(t, c.LifetimeValue)
		} else {
			assert.Equal(t, c.Tier.Price(), c.MonthlyRevenue)
		}
		assert.GreaterOrEqual(t, len(c.PreferredGenres), 2)
		assert.LessOrEqual(t, len(c.PreferredGenres), 5)
	}
	// Expected churn is about 0.4*0.3 + 0.3*0.2 + 0.2*0.1 + 0.1*0.05 = 0.205.
	assert.InDelta(t, 0.205, float64(churned)/float64(len(customers)), 0.04)
}

func TestGenerateDeterministic(t *testing.T) {
	a := generate(t, 7, 50)
	b := generate(t, 7, 50)
	assert.Equal(t, a, b)

	c := generate(t, 8, 50)
	assert.NotEqual(t, a[0].CustomerID, c[0].CustomerID)
}

func TestAgeWithinGroup(t *testing.T) {
	for _, c := range generate(t, 3, 500) {
		age := refTime.Year() - c.DateOfBirth.Year()
		switch c.AgeGroup {
		case "18-24":
			assert.InDelta(t, 21, age, 4)
		case "65+":
			assert.GreaterOrEqual(t, age, 64)
			assert.LessOrEqual(t, age, 81)
		}
	}
}

func TestValidateRejectsEndDateOnActiveCustomer(t *testing.T) {
	c := generate(t, 1, 1)[0]
	end := refTime
	c.IsActive = true
	c.SubscriptionEndDate = &end
	assert.Error(t, c.Validate())

	c.IsActive = false
	c.SubscriptionEndDate = nil
	assert.Error(t, c.Validate())
}

func TestValidateRejectsRevenueOnFreeTier(t *testing.T) {
	c := generate(t, 1, 1)[0]
	c.Tier = TierFreeWithAds
	c.MonthlyRevenue = 0
	c.LifetimeValue = 12
	assert.Error(t, c.Validate())
}

func TestRowFormatting(t *testing.T) {
	for _, c := range generate(t, 11, 200) {
		r := c.Row()
		_, err := time.Parse(gen.DateTimeLayout, r.SubscriptionStartDate)
		require.NoError(t, err)
		_, err = time.Parse(gen.DateLayout, r.DateOfBirth)
		require.NoError(t, err)
		assert.Equal(t, c.IsActive, r.SubscriptionEndDate == nil)
		assert.Contains(t, r.PreferredGenres, `"`+c.PreferredGenres[0]+`"`)
	}
}

func TestToPostgresSqlEscapesQuotes(t *testing.T) {
	c := generate(t, 1, 1)[0]
	c.LastName = "O'Brien"
	sql := c.ToPostgresSql()
	assert.Contains(t, sql, "'O''Brien'")
	assert.Contains(t, sql, "INSERT INTO customers")
}
