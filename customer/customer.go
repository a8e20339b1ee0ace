package customer

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
	"videogen/gen"
	"videogen/sink"
)

type Tier string

const (
	TierFreeWithAds Tier = "free_with_ads"
	TierBasic       Tier = "basic"
	TierStandard    Tier = "standard"
	TierPremium     Tier = "premium"
)

// Monthly list prices in USD.
var tierPrices = map[Tier]float64{
	TierFreeWithAds: 0,
	TierBasic:       8.99,
	TierStandard:    13.99,
	TierPremium:     19.99,
}

var churnProbability = map[Tier]float64{
	TierFreeWithAds: 0.3,
	TierBasic:       0.2,
	TierStandard:    0.1,
	TierPremium:     0.05,
}

func (t Tier) Price() float64 {
	return tierPrices[t]
}

func (t Tier) Valid() bool {
	_, ok := tierPrices[t]
	return ok
}

// Genres a subscriber can list as preferred.
var Genres = []string{
	"Action", "Comedy", "Drama", "Horror", "Sci-Fi", "Romance",
	"Thriller", "Documentary", "Animation", "Fantasy", "Crime", "Mystery",
}

type ageGroup struct {
	label    string
	min, max int
}

type country struct {
	name     string
	timezone string
	states   []string
}

var (
	tierTable = []gen.Choice[Tier]{
		{Value: TierFreeWithAds, Weight: 0.4},
		{Value: TierBasic, Weight: 0.3},
		{Value: TierStandard, Weight: 0.2},
		{Value: TierPremium, Weight: 0.1},
	}
	ageGroupTable = []gen.Choice[ageGroup]{
		{Value: ageGroup{"18-24", 18, 24}, Weight: 0.15},
		{Value: ageGroup{"25-34", 25, 34}, Weight: 0.25},
		{Value: ageGroup{"35-44", 35, 44}, Weight: 0.25},
		{Value: ageGroup{"45-54", 45, 54}, Weight: 0.20},
		{Value: ageGroup{"55-64", 55, 64}, Weight: 0.10},
		{Value: ageGroup{"65+", 65, 80}, Weight: 0.05},
	}
	paymentMethodTable = []gen.Choice[string]{
		{Value: "credit_card", Weight: 0.6},
		{Value: "debit_card", Weight: 0.2},
		{Value: "paypal", Weight: 0.15},
		{Value: "apple_pay", Weight: 0.03},
		{Value: "google_pay", Weight: 0.02},
	}
	acquisitionChannelTable = []gen.Choice[string]{
		{Value: "organic_search", Weight: 0.25},
		{Value: "social_media", Weight: 0.20},
		{Value: "referral", Weight: 0.15},
		{Value: "paid_search", Weight: 0.15},
		{Value: "email", Weight: 0.10},
		{Value: "partner", Weight: 0.10},
		{Value: "other", Weight: 0.05},
	}
	countryTable = []gen.Choice[country]{
		{Value: country{"United States", "America/New_York", []string{"California", "Texas", "New York", "Florida", "Illinois"}}, Weight: 0.35},
		{Value: country{"Canada", "America/Toronto", []string{"Ontario", "Quebec", "British Columbia", "Alberta"}}, Weight: 0.10},
		{Value: country{"United Kingdom", "Europe/London", []string{"England", "Scotland", "Wales", "Northern Ireland"}}, Weight: 0.15},
		{Value: country{"Germany", "Europe/Berlin", []string{"Bavaria", "Berlin", "Hamburg", "Hesse"}}, Weight: 0.10},
		{Value: country{"France", "Europe/Paris", []string{"Île-de-France", "Provence", "Normandy", "Brittany"}}, Weight: 0.08},
		{Value: country{"Japan", "Asia/Tokyo", []string{"Tokyo", "Osaka", "Kyoto", "Hokkaido"}}, Weight: 0.07},
		{Value: country{"Australia", "Australia/Sydney", []string{"New South Wales", "Victoria", "Queensland", "Western Australia"}}, Weight: 0.08},
		{Value: country{"Brazil", "America/Sao_Paulo", []string{"São Paulo", "Rio de Janeiro", "Minas Gerais", "Bahia"}}, Weight: 0.07},
	}
)

// Customer is one subscriber. Records are never modified after Generate
// returns them.
type Customer struct {
	sink.BaseSinkRecord

	CustomerID            string
	Email                 string
	FirstName             string
	LastName              string
	DateOfBirth           time.Time
	AgeGroup              string
	Tier                  Tier
	SubscriptionStartDate time.Time
	// Set exactly when the customer has churned.
	SubscriptionEndDate *time.Time
	Country             string
	State               string
	City                string
	Timezone            string
	PaymentMethod       string
	MonthlyRevenue      float64
	LifetimeValue       float64
	IsActive            bool
	AcquisitionChannel  string
	PreferredGenres     []string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (c *Customer) Validate() error {
	if !c.Tier.Valid() {
		return fmt.Errorf("customer %s: unknown subscription tier %q", c.CustomerID, c.Tier)
	}
	if c.IsActive != (c.SubscriptionEndDate == nil) {
		return fmt.Errorf("customer %s: subscription end date must be set iff the customer churned", c.CustomerID)
	}
	if n := len(c.PreferredGenres); n < 2 || n > 5 {
		return fmt.Errorf("customer %s: %d preferred genres, want 2-5", c.CustomerID, n)
	}
	seen := make(map[string]bool, len(c.PreferredGenres))
	for _, g := range c.PreferredGenres {
		if seen[g] {
			return fmt.Errorf("customer %s: duplicate preferred genre %q", c.CustomerID, g)
		}
		seen[g] = true
	}
	if c.Tier.Price() == 0 && (c.MonthlyRevenue != 0 || c.LifetimeValue != 0) {
		return fmt.Errorf("customer %s: free tier with non-zero revenue", c.CustomerID)
	}
	return nil
}

// PrefersGenre reports whether genre is one of the customer's preferred genres.
func (c *Customer) PrefersGenre(genre string) bool {
	for _, g := range c.PreferredGenres {
		if g == genre {
			return true
		}
	}
	return false
}

type Generator struct {
	rng *gen.Rng
	now time.Time

	tiers    *gen.Categorical[Tier]
	ages     *gen.Categorical[ageGroup]
	payments *gen.Categorical[string]
	channels *gen.Categorical[string]
	country  *gen.Categorical[country]
}

// NewGenerator returns a generator whose dates are relative to now.
func NewGenerator(rng *gen.Rng, now time.Time) *Generator {
	return &Generator{
		rng:      rng,
		now:      now.UTC(),
		tiers:    gen.NewCategorical(tierTable, rng.Rand),
		ages:     gen.NewCategorical(ageGroupTable, rng.Rand),
		payments: gen.NewCategorical(paymentMethodTable, rng.Rand),
		channels: gen.NewCategorical(acquisitionChannelTable, rng.Rand),
		country:  gen.NewCategorical(countryTable, rng.Rand),
	}
}

func (g *Generator) generate(index int) Customer {
	r := g.rng
	age := g.ages.Draw()
	years := r.IntRange(age.min, age.max)
	dob := g.now.AddDate(0, 0, -years*365)

	c := g.country.Draw()
	tier := g.tiers.Draw()
	payment := g.payments.Draw()
	channel := g.channels.Draw()

	start := r.TimeBetween(g.now.AddDate(-3, 0, 0), g.now)
	active := !r.Chance(churnProbability[tier])
	var end *time.Time
	if !active {
		e := r.TimeBetween(start, g.now)
		end = &e
	}

	monthsActive := math.Floor(g.now.Sub(start).Hours()/24) / 30
	price := tier.Price()

	genres := gen.Sample(r, Genres, r.IntRange(2, 5))

	return Customer{
		CustomerID:            fmt.Sprintf("CUST_%s_%06d", r.ShortID(), index),
		Email:                 r.Faker.Email(),
		FirstName:             r.Faker.FirstName(),
		LastName:              r.Faker.LastName(),
		DateOfBirth:           time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC),
		AgeGroup:              age.label,
		Tier:                  tier,
		SubscriptionStartDate: start,
		SubscriptionEndDate:   end,
		Country:               c.name,
		State:                 gen.Pick(r, c.states),
		City:                  r.Faker.City(),
		Timezone:              c.timezone,
		PaymentMethod:         payment,
		MonthlyRevenue:        price,
		LifetimeValue:         gen.Round(price*monthsActive, 2),
		IsActive:              active,
		AcquisitionChannel:    channel,
		PreferredGenres:       genres,
		CreatedAt:             start,
		UpdatedAt:             r.TimeBetween(start, g.now),
	}
}

// Generate returns n customers. The sequence is fully determined by the
// generator's seed and reference time.
func (g *Generator) Generate(n int) ([]Customer, error) {
	customers := make([]Customer, 0, n)
	for i := 0; i < n; i++ {
		c := g.generate(i)
		if err := c.Validate(); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, nil
}

// Active returns the customers that have not churned.
func Active(customers []Customer) []Customer {
	var out []Customer
	for _, c := range customers {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out
}

// Row is the columnar form of a Customer.
type Row struct {
	CustomerID            string  `parquet:"customer_id" json:"customer_id"`
	Email                 string  `parquet:"email" json:"email"`
	FirstName             string  `parquet:"first_name" json:"first_name"`
	LastName              string  `parquet:"last_name" json:"last_name"`
	DateOfBirth           string  `parquet:"date_of_birth" json:"date_of_birth"`
	AgeGroup              string  `parquet:"age_group" json:"age_group"`
	SubscriptionTier      string  `parquet:"subscription_tier" json:"subscription_tier"`
	SubscriptionStartDate string  `parquet:"subscription_start_date" json:"subscription_start_date"`
	SubscriptionEndDate   *string `parquet:"subscription_end_date,optional" json:"subscription_end_date"`
	Country               string  `parquet:"country" json:"country"`
	State                 string  `parquet:"state" json:"state"`
	City                  string  `parquet:"city" json:"city"`
	Timezone              string  `parquet:"timezone" json:"timezone"`
	PaymentMethod         string  `parquet:"payment_method" json:"payment_method"`
	MonthlyRevenue        float64 `parquet:"monthly_revenue" json:"monthly_revenue"`
	LifetimeValue         float64 `parquet:"lifetime_value" json:"lifetime_value"`
	IsActive              bool    `parquet:"is_active" json:"is_active"`
	AcquisitionChannel    string  `parquet:"acquisition_channel" json:"acquisition_channel"`
	// JSON-encoded list.
	PreferredGenres string `parquet:"preferred_genres" json:"preferred_genres"`
	CreatedAt       string `parquet:"created_at" json:"created_at"`
	UpdatedAt       string `parquet:"updated_at" json:"updated_at"`
}

func (c *Customer) Row() Row {
	var end *string
	if c.SubscriptionEndDate != nil {
		s := c.SubscriptionEndDate.Format(gen.DateTimeLayout)
		end = &s
	}
	genres, _ := json.Marshal(c.PreferredGenres)
	return Row{
		CustomerID:            c.CustomerID,
		Email:                 c.Email,
		FirstName:             c.FirstName,
		LastName:              c.LastName,
		DateOfBirth:           c.DateOfBirth.Format(gen.DateLayout),
		AgeGroup:              c.AgeGroup,
		SubscriptionTier:      string(c.Tier),
		SubscriptionStartDate: c.SubscriptionStartDate.Format(gen.DateTimeLayout),
		SubscriptionEndDate:   end,
		Country:               c.Country,
		State:                 c.State,
		City:                  c.City,
		Timezone:              c.Timezone,
		PaymentMethod:         c.PaymentMethod,
		MonthlyRevenue:        c.MonthlyRevenue,
		LifetimeValue:         c.LifetimeValue,
		IsActive:              c.IsActive,
		AcquisitionChannel:    c.AcquisitionChannel,
		PreferredGenres:       string(genres),
		CreatedAt:             c.CreatedAt.Format(gen.DateTimeLayout),
		UpdatedAt:             c.UpdatedAt.Format(gen.DateTimeLayout),
	}
}

func Rows(customers []Customer) []Row {
	rows := make([]Row, len(customers))
	for i := range customers {
		rows[i] = customers[i].Row()
	}
	return rows
}

func (c *Customer) ToPostgresSql() string {
	r := c.Row()
	return fmt.Sprintf(`INSERT INTO %s
(customer_id, email, first_name, last_name, date_of_birth, age_group, subscription_tier, subscription_start_date, subscription_end_date, country, state, city, timezone, payment_method, monthly_revenue, lifetime_value, is_active, acquisition_channel, preferred_genres, created_at, updated_at)
values (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %.2f, %.2f, %t, %s, %s, %s, %s)`,
		"customers",
		sink.Quote(r.CustomerID), sink.Quote(r.Email), sink.Quote(r.FirstName), sink.Quote(r.LastName),
		sink.Quote(r.DateOfBirth), sink.Quote(r.AgeGroup), sink.Quote(r.SubscriptionTier),
		sink.Quote(r.SubscriptionStartDate), sink.NullableQuote(r.SubscriptionEndDate),
		sink.Quote(r.Country), sink.Quote(r.State), sink.Quote(r.City), sink.Quote(r.Timezone),
		sink.Quote(r.PaymentMethod), r.MonthlyRevenue, r.LifetimeValue, r.IsActive,
		sink.Quote(r.AcquisitionChannel), sink.Quote(r.PreferredGenres),
		sink.Quote(r.CreatedAt), sink.Quote(r.UpdatedAt))
}

func (c *Customer) ToJson() (topic string, key string, data []byte) {
	data, _ = json.Marshal(c.Row())
	return "customers", c.CustomerID, data
}

func (c *Customer) ToProtobuf() (topic string, key string, data []byte) {
	topic, key, data = c.ToJson()
	return topic, key, sink.JsonToProtobuf(data)
}
