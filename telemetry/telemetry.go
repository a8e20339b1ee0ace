package telemetry

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"
	"videogen/customer"
	"videogen/gen"
	"videogen/sink"
	"videogen/title"

	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrNoActiveCustomers = errors.New("telemetry: no active customers to draw from")
	ErrNoTitles          = errors.New("telemetry: no titles to draw from")
)

const (
	EventStart    = "start"
	EventPause    = "pause"
	EventResume   = "resume"
	EventStop     = "stop"
	EventComplete = "complete"
)

var eventTypes = []string{EventStart, EventPause, EventResume, EventStop, EventComplete}

const (
	Quality4K = "4K"
	QualityHD = "HD"
	QualitySD = "SD"
)

// Share of events that pick a title from the viewer's preferred genres.
const preferredGenreShare = 0.8

type device struct {
	kind string
	os   []string
}

type qualityProfile struct {
	bandwidth [2]float64
	// Buffering events per watched minute.
	bufferingRate float64
	errorProb     float64
}

var (
	deviceTable = []gen.Choice[device]{
		{Value: device{"tv", []string{"Roku OS", "Fire TV", "Apple TV", "Android TV", "Smart TV OS"}}, Weight: 0.40},
		{Value: device{"mobile", []string{"iOS", "Android"}}, Weight: 0.30},
		{Value: device{"tablet", []string{"iOS", "Android"}}, Weight: 0.15},
		{Value: device{"web", []string{"Windows", "macOS", "Linux", "ChromeOS"}}, Weight: 0.15},
	}
	qualityByTier = map[customer.Tier][]gen.Choice[string]{
		customer.TierFreeWithAds: {{Value: QualitySD, Weight: 0.7}, {Value: QualityHD, Weight: 0.3}, {Value: Quality4K, Weight: 0}},
		customer.TierBasic:       {{Value: QualitySD, Weight: 0.3}, {Value: QualityHD, Weight: 0.7}, {Value: Quality4K, Weight: 0}},
		customer.TierStandard:    {{Value: QualitySD, Weight: 0.1}, {Value: QualityHD, Weight: 0.6}, {Value: Quality4K, Weight: 0.3}},
		customer.TierPremium:     {{Value: QualitySD, Weight: 0.05}, {Value: QualityHD, Weight: 0.35}, {Value: Quality4K, Weight: 0.6}},
	}
	qualities = map[string]qualityProfile{
		QualitySD: {bandwidth: [2]float64{2, 5}, bufferingRate: 0.02, errorProb: 0.005},
		QualityHD: {bandwidth: [2]float64{5, 10}, bufferingRate: 0.05, errorProb: 0.01},
		Quality4K: {bandwidth: [2]float64{15, 30}, bufferingRate: 0.1, errorProb: 0.02},
	}
	connectionTable = []gen.Choice[string]{
		{Value: "fiber", Weight: 0.25},
		{Value: "cable", Weight: 0.35},
		{Value: "dsl", Weight: 0.20},
		{Value: "mobile", Weight: 0.15},
		{Value: "satellite", Weight: 0.05},
	}
	completionRate = map[title.Type]float64{
		title.TypeMovie:       0.7,
		title.TypeSeries:      0.8,
		title.TypeDocumentary: 0.6,
	}

	isps = []string{
		"Comcast", "AT&T", "Verizon", "Spectrum", "Cox", "CenturyLink",
		"Frontier", "Optimum", "Mediacom", "Windstream",
	}
	appVersions = []string{"5.2.1", "5.2.0", "5.1.9", "5.1.8", "5.0.0", "4.9.5"}
)

func gaussian(x, mu, sigma float64) float64 {
	return math.Exp(-0.5 * math.Pow((x-mu)/sigma, 2))
}

// HourlyWeights returns the normalized probability of an event starting in
// each hour of the day: a small morning peak, the evening prime-time peak
// and a late-night tail.
func HourlyWeights() []float64 {
	weights := make([]float64, 24)
	total := 0.0
	for h := range weights {
		x := float64(h)
		weights[h] = 0.3*gaussian(x, 7, 2) + 1.0*gaussian(x, 20, 3) + 0.4*gaussian(x, 23, 2)
		total += weights[h]
	}
	for h := range weights {
		weights[h] /= total
	}
	return weights
}

// Event is one playback telemetry record.
type Event struct {
	sink.BaseSinkRecord

	EventID                  string
	CustomerID               string
	TitleID                  string
	SessionID                string
	EventType                string
	Timestamp                time.Time
	WatchDurationSeconds     int
	PositionSeconds          int
	CompletionPercentage     float64
	DeviceType               string
	DeviceID                 string
	DeviceOS                 string
	AppVersion               string
	Quality                  string
	BandwidthMbps            float64
	BufferingEvents          int
	BufferingDurationSeconds int
	ErrorCount               int
	IPAddress                string
	Country                  string
	State                    string
	City                     string
	ISP                      string
	ConnectionType           string
}

func (e *Event) EventTime() time.Time {
	return e.Timestamp
}

// Validate checks e against the duration of the title it refers to.
func (e *Event) Validate(titleSeconds int) error {
	if !slices.Contains(eventTypes, e.EventType) {
		return fmt.Errorf("event %s: unknown event type %q", e.EventID, e.EventType)
	}
	if e.CompletionPercentage < 0 || e.CompletionPercentage > 100 {
		return fmt.Errorf("event %s: completion %.2f outside [0, 100]", e.EventID, e.CompletionPercentage)
	}
	if e.EventType == EventComplete && e.CompletionPercentage < 85 {
		return fmt.Errorf("event %s: complete event at %.2f%%", e.EventID, e.CompletionPercentage)
	}
	if e.WatchDurationSeconds < 0 || e.WatchDurationSeconds > titleSeconds {
		return fmt.Errorf("event %s: watched %ds of a %ds title", e.EventID, e.WatchDurationSeconds, titleSeconds)
	}
	if e.BufferingEvents < 0 || e.BufferingDurationSeconds < 0 || e.ErrorCount < 0 {
		return fmt.Errorf("event %s: negative counter", e.EventID)
	}
	return nil
}

type Option func(*Generator)

// WithBufferingDist draws buffering counts from d instead of a Poisson
// with the quality's rate.
func WithBufferingDist(d gen.RandDist) Option {
	return func(g *Generator) {
		g.buffering = d
	}
}

// Generator draws events for a fixed customer and title set. It is not safe
// for concurrent use.
type Generator struct {
	rng *gen.Rng
	now time.Time

	customers []customer.Customer
	titles    []title.Title
	// Title indices per genre, and the genres in sorted order.
	byGenre map[string][]int
	genres  []string

	hours       *gen.Categorical[int]
	devices     *gen.Categorical[device]
	quality     map[customer.Tier]*gen.Categorical[string]
	connections *gen.Categorical[string]
	buffering   gen.RandDist
}

// NewGenerator builds a generator over the active subset of customers.
func NewGenerator(rng *gen.Rng, customers []customer.Customer, titles []title.Title, now time.Time, opts ...Option) (*Generator, error) {
	active := customer.Active(customers)
	if len(active) == 0 {
		return nil, ErrNoActiveCustomers
	}
	if len(titles) == 0 {
		return nil, ErrNoTitles
	}

	byGenre := make(map[string][]int)
	for i, t := range titles {
		byGenre[t.Genre] = append(byGenre[t.Genre], i)
	}
	genres := make([]string, 0, len(byGenre))
	for g := range byGenre {
		genres = append(genres, g)
	}
	sort.Strings(genres)

	hourChoices := make([]gen.Choice[int], 24)
	for h, w := range HourlyWeights() {
		hourChoices[h] = gen.Choice[int]{Value: h, Weight: w}
	}
	quality := make(map[customer.Tier]*gen.Categorical[string], len(qualityByTier))
	for tier, table := range qualityByTier {
		quality[tier] = gen.NewCategorical(table, rng.Rand)
	}

	g := &Generator{
		rng:         rng,
		now:         now.UTC(),
		customers:   active,
		titles:      titles,
		byGenre:     byGenre,
		genres:      genres,
		hours:       gen.NewCategorical(hourChoices, rng.Rand),
		devices:     gen.NewCategorical(deviceTable, rng.Rand),
		quality:     quality,
		connections: gen.NewCategorical(connectionTable, rng.Rand),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// pickTitle draws from the customer's preferred genres with probability
// preferredGenreShare, else from the remaining genres. Either pool falls
// back to the other when empty.
func (g *Generator) pickTitle(c *customer.Customer) *title.Title {
	preferred := make(map[string]bool, len(c.PreferredGenres))
	nPreferred := 0
	for _, genre := range c.PreferredGenres {
		if !preferred[genre] {
			preferred[genre] = true
			nPreferred += len(g.byGenre[genre])
		}
	}
	nOther := len(g.titles) - nPreferred

	fromPreferred := g.rng.Chance(preferredGenreShare)
	if nPreferred == 0 {
		fromPreferred = false
	} else if nOther == 0 {
		fromPreferred = true
	}

	var k int
	if fromPreferred {
		k = g.rng.Intn(nPreferred)
	} else {
		k = g.rng.Intn(nOther)
	}
	for _, genre := range g.genres {
		if preferred[genre] != fromPreferred {
			continue
		}
		idx := g.byGenre[genre]
		if k < len(idx) {
			return &g.titles[idx[k]]
		}
		k -= len(idx)
	}
	panic("telemetry: title pool index out of range")
}

func (g *Generator) timestamp(rangeDays int) time.Time {
	r := g.rng
	day := r.TimeBetween(g.now.AddDate(0, 0, -rangeDays), g.now)
	return time.Date(day.Year(), day.Month(), day.Day(), g.hours.Draw(), r.Intn(60), r.Intn(60), 0, time.UTC)
}

func (g *Generator) poisson(lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	return int(distuv.Poisson{Lambda: lambda, Src: g.rng.Rand}.Rand())
}

type playback struct {
	eventType  string
	watched    int
	position   int
	completion float64
}

// progress places a viewer in the title for the given event type. An empty
// event type ends the session as complete or stop per the title type's
// completion rate.
func (g *Generator) progress(t *title.Title, eventType string) playback {
	r := g.rng
	duration := t.DurationSeconds()
	if eventType == "" {
		eventType = EventStop
		if r.Chance(completionRate[t.Type]) {
			eventType = EventComplete
		}
	}
	switch eventType {
	case EventStart:
		return playback{eventType: eventType}
	case EventComplete:
		u := r.Uniform(0.85, 1.0)
		return playback{
			eventType:  eventType,
			watched:    int(float64(duration) * u),
			position:   duration,
			completion: gen.Round(u*100, 2),
		}
	default:
		u := r.Uniform(0.1, 0.8)
		watched := int(float64(duration) * u)
		return playback{
			eventType:  eventType,
			watched:    watched,
			position:   watched,
			completion: gen.Round(u*100, 2),
		}
	}
}

// event returns a new event along with the duration in seconds of the
// title it refers to.
func (g *Generator) event(ts time.Time, eventType string) (Event, int) {
	r := g.rng
	c := &g.customers[r.Intn(len(g.customers))]
	t := g.pickTitle(c)

	d := g.devices.Draw()
	deviceOS := gen.Pick(r, d.os)
	quality := g.quality[c.Tier].Draw()
	profile := qualities[quality]
	bandwidth := r.Uniform(profile.bandwidth[0], profile.bandwidth[1])
	sessionID := "SESSION_" + r.ShortID()

	p := g.progress(t, eventType)
	lambda := profile.bufferingRate * float64(p.watched) / 60
	var buffering int
	if g.buffering != nil {
		buffering = int(g.buffering.Rand(2 * lambda))
	} else {
		buffering = g.poisson(lambda)
	}
	bufferingSeconds := 0
	if buffering > 0 {
		bufferingSeconds = buffering * r.IntRange(2, 10)
	}
	errs := 0
	if r.Chance(profile.errorProb) {
		errs = 1
	}
	connection := g.connections.Draw()

	return Event{
		EventID:                  "EVENT_" + r.UUID(),
		CustomerID:               c.CustomerID,
		TitleID:                  t.TitleID,
		SessionID:                sessionID,
		EventType:                p.eventType,
		Timestamp:                ts,
		WatchDurationSeconds:     p.watched,
		PositionSeconds:          p.position,
		CompletionPercentage:     p.completion,
		DeviceType:               d.kind,
		DeviceID:                 "DEVICE_" + r.ShortID(),
		DeviceOS:                 deviceOS,
		AppVersion:               gen.Pick(r, appVersions),
		Quality:                  quality,
		BandwidthMbps:            gen.Round(bandwidth, 2),
		BufferingEvents:          buffering,
		BufferingDurationSeconds: bufferingSeconds,
		ErrorCount:               errs,
		IPAddress:                r.Faker.IPv4Address(),
		Country:                  c.Country,
		State:                    c.State,
		City:                     c.City,
		ISP:                      gen.Pick(r, isps),
		ConnectionType:           connection,
	}, t.DurationSeconds()
}

// Generate returns n end-of-session events spread over the rangeDays days
// before the reference time, sorted by timestamp.
func (g *Generator) Generate(n, rangeDays int) ([]Event, error) {
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		ts := g.timestamp(rangeDays)
		e, seconds := g.event(ts, "")
		if err := e.Validate(seconds); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	slices.SortStableFunc(events, func(a, b Event) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return events, nil
}
