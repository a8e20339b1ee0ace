package campaign

import (
	"encoding/json"
	"fmt"
	"time"
	"videogen/gen"
	"videogen/sink"
)

type Type string

const (
	TypeBrandAwareness Type = "brand_awareness"
	TypeConversion     Type = "conversion"
	TypeRetention      Type = "retention"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

const (
	FormatVideo       = "video"
	FormatDisplay     = "display"
	FormatInteractive = "interactive"
)

// All is the targeting value that matches every option.
const All = "All"

type typeProfile struct {
	objectives  []string
	dailyBudget [2]float64
	cpm         [2]float64
	ctr         [2]float64
	conversion  [2]float64
}

var profiles = map[Type]typeProfile{
	TypeBrandAwareness: {
		objectives:  []string{"Increase brand recognition", "Build brand equity", "Reach new audiences"},
		dailyBudget: [2]float64{1000, 10000},
		cpm:         [2]float64{5, 15},
		ctr:         [2]float64{0.001, 0.005},
		conversion:  [2]float64{0.0001, 0.0005},
	},
	TypeConversion: {
		objectives:  []string{"Drive sales", "Generate leads", "Increase app downloads", "Boost subscriptions"},
		dailyBudget: [2]float64{2000, 20000},
		cpm:         [2]float64{10, 25},
		ctr:         [2]float64{0.005, 0.02},
		conversion:  [2]float64{0.001, 0.01},
	},
	TypeRetention: {
		objectives:  []string{"Reduce churn", "Increase engagement", "Promote loyalty program"},
		dailyBudget: [2]float64{500, 5000},
		cpm:         [2]float64{8, 20},
		ctr:         [2]float64{0.003, 0.01},
		conversion:  [2]float64{0.0005, 0.005},
	},
}

var (
	industryTable = []gen.Choice[string]{
		{Value: "Technology", Weight: 0.20},
		{Value: "Retail", Weight: 0.15},
		{Value: "Automotive", Weight: 0.15},
		{Value: "Financial Services", Weight: 0.10},
		{Value: "Healthcare", Weight: 0.08},
		{Value: "Food & Beverage", Weight: 0.12},
		{Value: "Entertainment", Weight: 0.08},
		{Value: "Travel", Weight: 0.07},
		{Value: "Fashion", Weight: 0.05},
	}
	typeTable = []gen.Choice[Type]{
		{Value: TypeBrandAwareness, Weight: 0.35},
		{Value: TypeConversion, Weight: 0.40},
		{Value: TypeRetention, Weight: 0.25},
	}
	formatTable = []gen.Choice[string]{
		{Value: FormatVideo, Weight: 0.60},
		{Value: FormatDisplay, Weight: 0.25},
		{Value: FormatInteractive, Weight: 0.15},
	}
	placementTable = []gen.Choice[string]{
		{Value: "pre-roll", Weight: 0.50},
		{Value: "mid-roll", Weight: 0.30},
		{Value: "post-roll", Weight: 0.20},
	}

	adDurations = map[string][]int{
		FormatVideo:       {15, 30, 60},
		FormatDisplay:     {0},
		FormatInteractive: {30, 45, 60},
	}

	ageGroups         = []string{"18-24", "25-34", "35-44", "45-54", "55-64", "65+", All}
	genders           = []string{"Male", "Female", All}
	countries         = []string{"United States", "Canada", "United Kingdom", "Germany", "France", All}
	genres            = []string{"Action", "Comedy", "Drama", "Horror", "Sci-Fi", "Romance", All}
	subscriptionTiers = []string{"free_with_ads", "basic", All}

	companies = []string{
		"TechCorp", "MegaRetail", "AutoDrive", "FinanceFirst", "HealthPlus",
		"FoodDelight", "EntertainMax", "TravelEasy", "FashionForward", "SportsPro",
		"BeautyGlow", "HomeComfort", "EduLearn", "GreenEnergy", "CryptoTrade",
	}
)

// Performance holds delivery metrics. All zero for a scheduled campaign.
type Performance struct {
	Impressions       int64
	UniqueViewers     int64
	Clicks            int64
	Conversions       int64
	ViewThroughRate   float64
	ClickThroughRate  float64
	ConversionRate    float64
	CostPerMille      float64
	CostPerClick      float64
	CostPerConversion float64
}

type Campaign struct {
	sink.BaseSinkRecord
	Performance

	CampaignID              string
	Name                    string
	AdvertiserID            string
	AdvertiserName          string
	Industry                string
	Type                    Type
	Objective               string
	StartDate               time.Time
	EndDate                 time.Time
	Status                  Status
	DailyBudget             float64
	TotalBudget             float64
	SpentAmount             float64
	TargetAgeGroups         []string
	TargetGenders           []string
	TargetCountries         []string
	TargetGenres            []string
	TargetSubscriptionTiers []string
	AdFormat                string
	AdDurationSeconds       int
	PlacementType           string
	CreativeURL             string
	LandingPageURL          string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StatusAt derives the campaign status on the day containing now.
func StatusAt(start, end, now time.Time) Status {
	today := truncateDay(now)
	switch {
	case end.Before(today):
		return StatusCompleted
	case start.After(today):
		return StatusScheduled
	default:
		return StatusActive
	}
}

// Validate checks c as of now.
func (c *Campaign) Validate(now time.Time) error {
	if _, ok := profiles[c.Type]; !ok {
		return fmt.Errorf("campaign %s: unknown campaign type %q", c.CampaignID, c.Type)
	}
	if c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("campaign %s: ends before it starts", c.CampaignID)
	}
	if want := StatusAt(c.StartDate, c.EndDate, now); c.Status != want {
		return fmt.Errorf("campaign %s: status %s, dates imply %s", c.CampaignID, c.Status, want)
	}
	if c.Status == StatusScheduled && (c.Impressions != 0 || c.SpentAmount != 0) {
		return fmt.Errorf("campaign %s: scheduled campaign has %d impressions and %.2f spend", c.CampaignID, c.Impressions, c.SpentAmount)
	}
	if c.Clicks > c.Impressions {
		return fmt.Errorf("campaign %s: %d clicks exceed %d impressions", c.CampaignID, c.Clicks, c.Impressions)
	}
	return nil
}

type Generator struct {
	rng *gen.Rng
	now time.Time

	industries *gen.Categorical[string]
	types      *gen.Categorical[Type]
	formats    *gen.Categorical[string]
	placements *gen.Categorical[string]
}

func NewGenerator(rng *gen.Rng, now time.Time) *Generator {
	return &Generator{
		rng:        rng,
		now:        now.UTC(),
		industries: gen.NewCategorical(industryTable, rng.Rand),
		types:      gen.NewCategorical(typeTable, rng.Rand),
		formats:    gen.NewCategorical(formatTable, rng.Rand),
		placements: gen.NewCategorical(placementTable, rng.Rand),
	}
}

// selectTargets returns [All] with probability allProb, else 1-3 distinct
// concrete options.
func (g *Generator) selectTargets(options []string, allProb float64) []string {
	hasAll := false
	concrete := make([]string, 0, len(options))
	for _, o := range options {
		if o == All {
			hasAll = true
		} else {
			concrete = append(concrete, o)
		}
	}
	if hasAll && g.rng.Chance(allProb) {
		return []string{All}
	}
	k := g.rng.IntRange(1, min(3, len(concrete)))
	return gen.Sample(g.rng, concrete, k)
}

func (g *Generator) performance(typ Type, format string, spent float64) Performance {
	r := g.rng
	p := profiles[typ]
	cpmBase := r.Uniform(p.cpm[0], p.cpm[1])
	ctrBase := r.Uniform(p.ctr[0], p.ctr[1])
	conversionBase := r.Uniform(p.conversion[0], p.conversion[1])

	var ctrMultiplier, vtr float64
	switch format {
	case FormatVideo:
		ctrMultiplier, vtr = 1.2, r.Uniform(0.6, 0.9)
	case FormatInteractive:
		ctrMultiplier, vtr = 1.5, r.Uniform(0.7, 0.95)
	default:
		ctrMultiplier, vtr = 0.8, 1.0
	}

	cpm := cpmBase * r.Uniform(0.8, 1.2)
	impressions := int64(spent / cpm * 1000)
	uniqueViewers := int64(float64(impressions) * r.Uniform(0.6, 0.9))
	ctr := ctrBase * ctrMultiplier * r.Uniform(0.8, 1.2)
	clicks := int64(float64(impressions) * ctr)
	conversionRate := conversionBase * r.Uniform(0.8, 1.2)
	conversions := int64(float64(clicks) * conversionRate * 10)

	var cpc, cpa float64
	if clicks > 0 {
		cpc = spent / float64(clicks)
	}
	if conversions > 0 {
		cpa = spent / float64(conversions)
	}
	return Performance{
		Impressions:       impressions,
		UniqueViewers:     uniqueViewers,
		Clicks:            clicks,
		Conversions:       conversions,
		ViewThroughRate:   gen.Round(vtr, 4),
		ClickThroughRate:  gen.Round(ctr, 4),
		ConversionRate:    gen.Round(conversionRate, 4),
		CostPerMille:      gen.Round(cpm, 2),
		CostPerClick:      gen.Round(cpc, 2),
		CostPerConversion: gen.Round(cpa, 2),
	}
}

func (g *Generator) generate(index int) Campaign {
	r := g.rng
	id := fmt.Sprintf("CAMP_%s_%06d", r.ShortID(), index)
	advertiserID := "ADV_" + r.ShortID()
	industry := g.industries.Draw()
	typ := g.types.Draw()
	p := profiles[typ]
	objective := gen.Pick(r, p.objectives)

	today := truncateDay(g.now)
	days := r.IntRange(7, 90)
	start := today.AddDate(0, 0, r.IntRange(-180, 30))
	end := start.AddDate(0, 0, days)
	status := StatusAt(start, end, g.now)

	daily := r.Uniform(p.dailyBudget[0], p.dailyBudget[1])
	total := daily * float64(days)
	var spent float64
	switch status {
	case StatusCompleted:
		spent = total * r.Uniform(0.85, 1.0)
	case StatusActive:
		elapsed := int(today.Sub(start).Hours() / 24)
		spent = daily * float64(elapsed) * r.Uniform(0.9, 1.1)
	}

	targetTiers := []string{"free_with_ads"}
	ageTargets := g.selectTargets(ageGroups, 0.6)
	genderTargets := g.selectTargets(genders, 0.7)
	countryTargets := g.selectTargets(countries, 0.5)
	genreTargets := g.selectTargets(genres, 0.4)
	if !r.Chance(0.9) {
		targetTiers = g.selectTargets(subscriptionTiers, 0.5)
	}

	format := g.formats.Draw()
	adDuration := gen.Pick(r, adDurations[format])
	placement := g.placements.Draw()

	advertiser := gen.Pick(r, companies) + " " + industry
	quarter := (int(start.Month())-1)/3 + 1

	var perf Performance
	if status != StatusScheduled {
		perf = g.performance(typ, format, spent)
	}

	return Campaign{
		Performance:             perf,
		CampaignID:              id,
		Name:                    fmt.Sprintf("%s - %s - Q%d %d", advertiser, objective, quarter, start.Year()),
		AdvertiserID:            advertiserID,
		AdvertiserName:          advertiser,
		Industry:                industry,
		Type:                    typ,
		Objective:               objective,
		StartDate:               start,
		EndDate:                 end,
		Status:                  status,
		DailyBudget:             gen.Round(daily, 2),
		TotalBudget:             gen.Round(total, 2),
		SpentAmount:             gen.Round(spent, 2),
		TargetAgeGroups:         ageTargets,
		TargetGenders:           genderTargets,
		TargetCountries:         countryTargets,
		TargetGenres:            genreTargets,
		TargetSubscriptionTiers: targetTiers,
		AdFormat:                format,
		AdDurationSeconds:       adDuration,
		PlacementType:           placement,
		CreativeURL:             fmt.Sprintf("https://cdn.acmecorp.com/ads/%s/creative.mp4", id),
		LandingPageURL:          fmt.Sprintf("https://track.acmecorp.com/click/%s", id),
		CreatedAt:               r.TimeBetween(start.AddDate(0, 0, -7), start),
		UpdatedAt:               r.TimeBetween(start, g.now),
	}
}

func (g *Generator) Generate(n int) ([]Campaign, error) {
	campaigns := make([]Campaign, 0, n)
	for i := 0; i < n; i++ {
		c := g.generate(i)
		if err := c.Validate(g.now); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, nil
}

type Row struct {
	CampaignID              string  `parquet:"campaign_id" json:"campaign_id"`
	CampaignName            string  `parquet:"campaign_name" json:"campaign_name"`
	AdvertiserID            string  `parquet:"advertiser_id" json:"advertiser_id"`
	AdvertiserName          string  `parquet:"advertiser_name" json:"advertiser_name"`
	Industry                string  `parquet:"industry" json:"industry"`
	CampaignType            string  `parquet:"campaign_type" json:"campaign_type"`
	Objective               string  `parquet:"objective" json:"objective"`
	StartDate               string  `parquet:"start_date" json:"start_date"`
	EndDate                 string  `parquet:"end_date" json:"end_date"`
	Status                  string  `parquet:"status" json:"status"`
	DailyBudget             float64 `parquet:"daily_budget" json:"daily_budget"`
	TotalBudget             float64 `parquet:"total_budget" json:"total_budget"`
	SpentAmount             float64 `parquet:"spent_amount" json:"spent_amount"`
	TargetAgeGroups         string  `parquet:"target_age_groups" json:"target_age_groups"`
	TargetGenders           string  `parquet:"target_genders" json:"target_genders"`
	TargetCountries         string  `parquet:"target_countries" json:"target_countries"`
	TargetGenres            string  `parquet:"target_genres" json:"target_genres"`
	TargetSubscriptionTiers string  `parquet:"target_subscription_tiers" json:"target_subscription_tiers"`
	AdFormat                string  `parquet:"ad_format" json:"ad_format"`
	AdDurationSeconds       int64   `parquet:"ad_duration_seconds" json:"ad_duration_seconds"`
	PlacementType           string  `parquet:"placement_type" json:"placement_type"`
	CreativeURL             string  `parquet:"creative_url" json:"creative_url"`
	LandingPageURL          string  `parquet:"landing_page_url" json:"landing_page_url"`
	Impressions             int64   `parquet:"impressions" json:"impressions"`
	UniqueViewers           int64   `parquet:"unique_viewers" json:"unique_viewers"`
	Clicks                  int64   `parquet:"clicks" json:"clicks"`
	Conversions             int64   `parquet:"conversions" json:"conversions"`
	ViewThroughRate         float64 `parquet:"view_through_rate" json:"view_through_rate"`
	ClickThroughRate        float64 `parquet:"click_through_rate" json:"click_through_rate"`
	ConversionRate          float64 `parquet:"conversion_rate" json:"conversion_rate"`
	CostPerMille            float64 `parquet:"cost_per_mille" json:"cost_per_mille"`
	CostPerClick            float64 `parquet:"cost_per_click" json:"cost_per_click"`
	CostPerConversion       float64 `parquet:"cost_per_conversion" json:"cost_per_conversion"`
	CreatedAt               string  `parquet:"created_at" json:"created_at"`
	UpdatedAt               string  `parquet:"updated_at" json:"updated_at"`
}

func jsonList(v []string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func (c *Campaign) Row() Row {
	return Row{
		CampaignID:              c.CampaignID,
		CampaignName:            c.Name,
		AdvertiserID:            c.AdvertiserID,
		AdvertiserName:          c.AdvertiserName,
		Industry:                c.Industry,
		CampaignType:            string(c.Type),
		Objective:               c.Objective,
		StartDate:               c.StartDate.Format(gen.DateLayout),
		EndDate:                 c.EndDate.Format(gen.DateLayout),
		Status:                  string(c.Status),
		DailyBudget:             c.DailyBudget,
		TotalBudget:             c.TotalBudget,
		SpentAmount:             c.SpentAmount,
		TargetAgeGroups:         jsonList(c.TargetAgeGroups),
		TargetGenders:           jsonList(c.TargetGenders),
		TargetCountries:         jsonList(c.TargetCountries),
		TargetGenres:            jsonList(c.TargetGenres),
		TargetSubscriptionTiers: jsonList(c.TargetSubscriptionTiers),
		AdFormat:                c.AdFormat,
		AdDurationSeconds:       int64(c.AdDurationSeconds),
		PlacementType:           c.PlacementType,
		CreativeURL:             c.CreativeURL,
		LandingPageURL:          c.LandingPageURL,
		Impressions:             c.Impressions,
		UniqueViewers:           c.UniqueViewers,
		Clicks:                  c.Clicks,
		Conversions:             c.Conversions,
		ViewThroughRate:         c.ViewThroughRate,
		ClickThroughRate:        c.ClickThroughRate,
		ConversionRate:          c.ConversionRate,
		CostPerMille:            c.CostPerMille,
		CostPerClick:            c.CostPerClick,
		CostPerConversion:       c.CostPerConversion,
		CreatedAt:               c.CreatedAt.Format(gen.DateTimeLayout),
		UpdatedAt:               c.UpdatedAt.Format(gen.DateTimeLayout),
	}
}

func Rows(campaigns []Campaign) []Row {
	rows := make([]Row, len(campaigns))
	for i := range campaigns {
		rows[i] = campaigns[i].Row()
	}
	return rows
}

func (c *Campaign) ToPostgresSql() string {
	r := c.Row()
	return fmt.Sprintf(`INSERT INTO %s
(campaign_id, campaign_name, advertiser_id, advertiser_name, industry, campaign_type, objective, start_date, end_date, status, daily_budget, total_budget, spent_amount, target_age_groups, target_genders, target_countries, target_genres, target_subscription_tiers, ad_format, ad_duration_seconds, placement_type, creative_url, landing_page_url, impressions, unique_viewers, clicks, conversions, view_through_rate, click_through_rate, conversion_rate, cost_per_mille, cost_per_click, cost_per_conversion, created_at, updated_at)
values (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %.2f, %.2f, %.2f, %s, %s, %s, %s, %s, %s, %d, %s, %s, %s, %d, %d, %d, %d, %.4f, %.4f, %.4f, %.2f, %.2f, %.2f, %s, %s)`,
		"campaigns",
		sink.Quote(r.CampaignID), sink.Quote(r.CampaignName), sink.Quote(r.AdvertiserID),
		sink.Quote(r.AdvertiserName), sink.Quote(r.Industry), sink.Quote(r.CampaignType),
		sink.Quote(r.Objective), sink.Quote(r.StartDate), sink.Quote(r.EndDate), sink.Quote(r.Status),
		r.DailyBudget, r.TotalBudget, r.SpentAmount,
		sink.Quote(r.TargetAgeGroups), sink.Quote(r.TargetGenders), sink.Quote(r.TargetCountries),
		sink.Quote(r.TargetGenres), sink.Quote(r.TargetSubscriptionTiers), sink.Quote(r.AdFormat),
		r.AdDurationSeconds, sink.Quote(r.PlacementType), sink.Quote(r.CreativeURL), sink.Quote(r.LandingPageURL),
		r.Impressions, r.UniqueViewers, r.Clicks, r.Conversions,
		r.ViewThroughRate, r.ClickThroughRate, r.ConversionRate,
		r.CostPerMille, r.CostPerClick, r.CostPerConversion,
		sink.Quote(r.CreatedAt), sink.Quote(r.UpdatedAt))
}

func (c *Campaign) ToJson() (topic string, key string, data []byte) {
	data, _ = json.Marshal(c.Row())
	return "campaigns", c.CampaignID, data
}

func (c *Campaign) ToProtobuf() (topic string, key string, data []byte) {
	topic, key, data = c.ToJson()
	return topic, key, sink.JsonToProtobuf(data)
}
