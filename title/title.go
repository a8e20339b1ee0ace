package title

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"videogen/gen"
	"videogen/sink"

	"gonum.org/v1/gonum/stat/distuv"
)

type Type string

const (
	TypeMovie       Type = "movie"
	TypeSeries      Type = "series"
	TypeDocumentary Type = "documentary"
)

// Minutes per movie, per episode for series.
var durationRange = map[Type][2]int{
	TypeMovie:       {80, 180},
	TypeSeries:      {20, 60},
	TypeDocumentary: {45, 120},
}

const (
	originalStudio = "Acme Original Studios"
	// Popularity above which a title is treated as a blockbuster.
	blockbusterPopularity = 70
)

type genre struct {
	name      string
	subGenres []string
	templates []string
}

var (
	typeTable = []gen.Choice[Type]{
		{Value: TypeMovie, Weight: 0.6},
		{Value: TypeSeries, Weight: 0.3},
		{Value: TypeDocumentary, Weight: 0.1},
	}
	genreTable = []gen.Choice[genre]{
		{Value: genre{"Action", []string{"Superhero", "Martial Arts", "War", "Spy"}, []string{"The {0} {1}", "{0} of {1}", "{0}: {1} Rising"}}, Weight: 0.15},
		{Value: genre{"Comedy", []string{"Romantic Comedy", "Dark Comedy", "Satire", "Slapstick"}, []string{"{0} and {1}", "The {0} Life", "Adventures in {1}"}}, Weight: 0.15},
		{Value: genre{"Drama", []string{"Crime Drama", "Legal Drama", "Medical Drama", "Period Drama"}, []string{"The {0}", "{0} of the {1}", "Beyond {0}"}}, Weight: 0.20},
		{Value: genre{"Horror", []string{"Supernatural", "Slasher", "Psychological", "Zombie"}, []string{"The {0} Within", "{0} at {1}", "Night of the {0}"}}, Weight: 0.08},
		{Value: genre{"Sci-Fi", []string{"Space Opera", "Cyberpunk", "Time Travel", "Dystopian"}, []string{"{0} {1}", "Project {0}", "{0}: Year {1}"}}, Weight: 0.10},
		{Value: genre{"Romance", []string{"Contemporary", "Historical", "Teen", "LGBTQ+"}, []string{"Love in {0}", "The {0} of {1}", "Forever {0}"}}, Weight: 0.10},
		{Value: genre{"Thriller", []string{"Psychological", "Crime", "Political", "Techno"}, []string{"{0} Game", "The {0} Protocol", "{0} Hour"}}, Weight: 0.12},
		{Value: genre{"Documentary", []string{"Nature", "True Crime", "Biography", "History"}, []string{"The {0} Story", "Inside {0}", "Truth About {0}"}}, Weight: 0.05},
		{Value: genre{"Animation", []string{"Family", "Anime", "Adult", "Musical"}, []string{"{0} Adventures", "The {0} Kingdom", "{0} Friends"}}, Weight: 0.05},
	}
	contentRatingTable = []gen.Choice[string]{
		{Value: "G", Weight: 0.05},
		{Value: "PG", Weight: 0.15},
		{Value: "PG-13", Weight: 0.35},
		{Value: "R", Weight: 0.35},
		{Value: "NC-17", Weight: 0.10},
	}
	productionCountryTable = []gen.Choice[string]{
		{Value: "United States", Weight: 0.50},
		{Value: "United Kingdom", Weight: 0.15},
		{Value: "Canada", Weight: 0.08},
		{Value: "France", Weight: 0.06},
		{Value: "Germany", Weight: 0.05},
		{Value: "Japan", Weight: 0.06},
		{Value: "South Korea", Weight: 0.05},
		{Value: "India", Weight: 0.05},
	}
	languageTable = []gen.Choice[string]{
		{Value: "English", Weight: 0.60},
		{Value: "Spanish", Weight: 0.10},
		{Value: "French", Weight: 0.08},
		{Value: "German", Weight: 0.05},
		{Value: "Japanese", Weight: 0.07},
		{Value: "Korean", Weight: 0.05},
		{Value: "Hindi", Weight: 0.05},
	}

	studios = []string{
		"Paramount Pictures", "Warner Bros", "Universal Studios",
		"Sony Pictures", "20th Century Studios", "Disney Studios", "Netflix Studios",
		"Amazon Studios", "A24", "Lionsgate", "MGM", "DreamWorks", "Pixar",
	}
	titleWords = []string{
		"Shadow", "Legacy", "Chronicles", "Rising", "Fall", "Last", "First", "Dark", "Light",
		"Lost", "Found", "Secret", "Hidden", "Beyond", "Edge", "Heart", "Soul", "Mind",
		"Dream", "Night", "Day", "Winter", "Summer", "Storm", "Fire", "Ice", "Wind",
		"Earth", "Sky", "Star", "Moon", "Sun", "Ocean", "Mountain", "Valley", "City",
		"Kingdom", "Empire", "Quest", "Journey", "Path", "Road", "Bridge", "Gate",
	}
	firstNames = []string{"John", "Jane", "Michael", "Sarah", "David", "Emma", "Robert", "Lisa"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis"}
)

// Genres returns the genres titles are drawn from.
func Genres() []string {
	names := make([]string, len(genreTable))
	for i, g := range genreTable {
		names[i] = g.Value.name
	}
	return names
}

// Title is one catalog entry.
type Title struct {
	sink.BaseSinkRecord

	TitleID       string
	Name          string
	Type          Type
	Genre         string
	SubGenre      string
	ContentRating string
	ReleaseDate   time.Time
	// Minutes; per episode for series.
	DurationMinutes int
	// Present only for series.
	SeasonNumber       *int
	EpisodeNumber      *int
	ProductionCountry  string
	OriginalLanguage   string
	AvailableLanguages []string
	Director           string
	Cast               []string
	ProductionStudio   string
	PopularityScore    float64
	CriticalRating     float64
	ViewerRating       float64
	BudgetMillions     float64
	RevenueMillions    float64
	AwardsCount        int
	IsOriginal         bool
	LicensingCost      float64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (t *Title) DurationSeconds() int {
	return t.DurationMinutes * 60
}

func (t *Title) Validate() error {
	rng, ok := durationRange[t.Type]
	if !ok {
		return fmt.Errorf("title %s: unknown title type %q", t.TitleID, t.Type)
	}
	if t.DurationMinutes < rng[0] || t.DurationMinutes > rng[1] {
		return fmt.Errorf("title %s: %d minutes outside %v for %s", t.TitleID, t.DurationMinutes, rng, t.Type)
	}
	series := t.Type == TypeSeries
	if series != (t.SeasonNumber != nil) || series != (t.EpisodeNumber != nil) {
		return fmt.Errorf("title %s: season and episode numbers must be set only for series", t.TitleID)
	}
	if t.PopularityScore < 0 || t.PopularityScore > 100 {
		return fmt.Errorf("title %s: popularity %.2f outside [0, 100]", t.TitleID, t.PopularityScore)
	}
	return nil
}

type Generator struct {
	rng *gen.Rng
	now time.Time

	types      *gen.Categorical[Type]
	genres     *gen.Categorical[genre]
	ratings    *gen.Categorical[string]
	countries  *gen.Categorical[string]
	languages  *gen.Categorical[string]
	popularity distuv.Beta
	critics    distuv.Beta
	awards     distuv.Exponential
}

func NewGenerator(rng *gen.Rng, now time.Time) *Generator {
	return &Generator{
		rng:       rng,
		now:       now.UTC(),
		types:     gen.NewCategorical(typeTable, rng.Rand),
		genres:    gen.NewCategorical(genreTable, rng.Rand),
		ratings:   gen.NewCategorical(contentRatingTable, rng.Rand),
		countries: gen.NewCategorical(productionCountryTable, rng.Rand),
		languages: gen.NewCategorical(languageTable, rng.Rand),
		// Most titles are niche; ratings lean favourable.
		popularity: distuv.Beta{Alpha: 2, Beta: 5, Src: rng.Rand},
		critics:    distuv.Beta{Alpha: 3, Beta: 2, Src: rng.Rand},
		// Scale 0.5.
		awards: distuv.Exponential{Rate: 2, Src: rng.Rand},
	}
}

func (g *Generator) personName() string {
	return gen.Pick(g.rng, firstNames) + " " + gen.Pick(g.rng, lastNames)
}

func (g *Generator) name(gr genre) string {
	r := g.rng
	template := gen.Pick(r, gr.templates)
	words := gen.Sample(r, titleWords, 2)
	second := words[1]
	if gr.name == "Sci-Fi" && strings.Contains(template, "Year {1}") {
		second = strconv.Itoa(r.IntRange(2050, 3000))
	}
	name := strings.ReplaceAll(template, "{0}", words[0])
	return strings.ReplaceAll(name, "{1}", second)
}

func (g *Generator) otherLanguages(original string) []string {
	var others []string
	for _, l := range g.languages.Values() {
		if l != original {
			others = append(others, l)
		}
	}
	return gen.Sample(g.rng, others, g.rng.IntRange(1, 4))
}

func (g *Generator) generate(index int) Title {
	r := g.rng
	typ := g.types.Draw()
	gr := g.genres.Draw()
	subGenre := gen.Pick(r, gr.subGenres)
	rating := g.ratings.Draw()
	country := g.countries.Draw()
	language := g.languages.Draw()
	available := append([]string{language}, g.otherLanguages(language)...)

	dr := durationRange[typ]
	duration := r.IntRange(dr[0], dr[1])
	var season, episode *int
	if typ == TypeSeries {
		s, e := r.IntRange(1, 8), r.IntRange(1, 24)
		season, episode = &s, &e
	}

	original := r.Chance(0.3)
	studio := originalStudio
	if !original {
		studio = gen.Pick(r, studios)
	}

	popularity := g.popularity.Rand() * 100
	critical := g.critics.Rand() * 10
	viewer := g.critics.Rand() * 10

	var budget, revenue float64
	if popularity > blockbusterPopularity {
		budget = r.Uniform(50, 300)
		revenue = budget * r.Uniform(1.5, 5)
	} else {
		budget = r.Uniform(5, 50)
		revenue = budget * r.Uniform(0.5, 3)
	}

	awards := 0
	if critical > 7 {
		awards = int(math.Floor(g.awards.Rand()))
	}

	licensing := 0.0
	if !original {
		licensing = r.Uniform(0.5, 10) * (popularity / 10)
	}

	release := r.TimeBetween(g.now.AddDate(-20, 0, 0), g.now)
	release = time.Date(release.Year(), release.Month(), release.Day(), 0, 0, 0, 0, time.UTC)

	cast := make([]string, r.IntRange(3, 8))
	director := g.personName()
	for i := range cast {
		cast[i] = g.personName()
	}

	return Title{
		TitleID:            fmt.Sprintf("TITLE_%s_%06d", r.ShortID(), index),
		Name:               g.name(gr),
		Type:               typ,
		Genre:              gr.name,
		SubGenre:           subGenre,
		ContentRating:      rating,
		ReleaseDate:        release,
		DurationMinutes:    duration,
		SeasonNumber:       season,
		EpisodeNumber:      episode,
		ProductionCountry:  country,
		OriginalLanguage:   language,
		AvailableLanguages: available,
		Director:           director,
		Cast:               cast,
		ProductionStudio:   studio,
		PopularityScore:    gen.Round(popularity, 2),
		CriticalRating:     gen.Round(critical, 1),
		ViewerRating:       gen.Round(viewer, 1),
		BudgetMillions:     gen.Round(budget, 2),
		RevenueMillions:    gen.Round(revenue, 2),
		AwardsCount:        awards,
		IsOriginal:         original,
		LicensingCost:      gen.Round(licensing, 2),
		CreatedAt:          r.TimeBetween(release, g.now),
		UpdatedAt:          r.TimeBetween(release, g.now),
	}
}

func (g *Generator) Generate(n int) ([]Title, error) {
	titles := make([]Title, 0, n)
	for i := 0; i < n; i++ {
		t := g.generate(i)
		if err := t.Validate(); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, nil
}

// Row is the columnar form of a Title.
type Row struct {
	TitleID            string  `parquet:"title_id" json:"title_id"`
	TitleName          string  `parquet:"title_name" json:"title_name"`
	TitleType          string  `parquet:"title_type" json:"title_type"`
	Genre              string  `parquet:"genre" json:"genre"`
	SubGenre           string  `parquet:"sub_genre" json:"sub_genre"`
	ContentRating      string  `parquet:"content_rating" json:"content_rating"`
	ReleaseDate        string  `parquet:"release_date" json:"release_date"`
	DurationMinutes    int64   `parquet:"duration_minutes" json:"duration_minutes"`
	SeasonNumber       *int64  `parquet:"season_number,optional" json:"season_number"`
	EpisodeNumber      *int64  `parquet:"episode_number,optional" json:"episode_number"`
	ProductionCountry  string  `parquet:"production_country" json:"production_country"`
	OriginalLanguage   string  `parquet:"original_language" json:"original_language"`
	AvailableLanguages string  `parquet:"available_languages" json:"available_languages"`
	Director           string  `parquet:"director" json:"director"`
	Cast               string  `parquet:"cast" json:"cast"`
	ProductionStudio   string  `parquet:"production_studio" json:"production_studio"`
	PopularityScore    float64 `parquet:"popularity_score" json:"popularity_score"`
	CriticalRating     float64 `parquet:"critical_rating" json:"critical_rating"`
	ViewerRating       float64 `parquet:"viewer_rating" json:"viewer_rating"`
	BudgetMillions     float64 `parquet:"budget_millions" json:"budget_millions"`
	RevenueMillions    float64 `parquet:"revenue_millions" json:"revenue_millions"`
	AwardsCount        int64   `parquet:"awards_count" json:"awards_count"`
	IsOriginal         bool    `parquet:"is_original" json:"is_original"`
	LicensingCost      float64 `parquet:"licensing_cost" json:"licensing_cost"`
	CreatedAt          string  `parquet:"created_at" json:"created_at"`
	UpdatedAt          string  `parquet:"updated_at" json:"updated_at"`
}

func optionalInt(v *int) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func (t *Title) Row() Row {
	languages, _ := json.Marshal(t.AvailableLanguages)
	cast, _ := json.Marshal(t.Cast)
	return Row{
		TitleID:            t.TitleID,
		TitleName:          t.Name,
		TitleType:          string(t.Type),
		Genre:              t.Genre,
		SubGenre:           t.SubGenre,
		ContentRating:      t.ContentRating,
		ReleaseDate:        t.ReleaseDate.Format(gen.DateLayout),
		DurationMinutes:    int64(t.DurationMinutes),
		SeasonNumber:       optionalInt(t.SeasonNumber),
		EpisodeNumber:      optionalInt(t.EpisodeNumber),
		ProductionCountry:  t.ProductionCountry,
		OriginalLanguage:   t.OriginalLanguage,
		AvailableLanguages: string(languages),
		Director:           t.Director,
		Cast:               string(cast),
		ProductionStudio:   t.ProductionStudio,
		PopularityScore:    t.PopularityScore,
		CriticalRating:     t.CriticalRating,
		ViewerRating:       t.ViewerRating,
		BudgetMillions:     t.BudgetMillions,
		RevenueMillions:    t.RevenueMillions,
		AwardsCount:        int64(t.AwardsCount),
		IsOriginal:         t.IsOriginal,
		LicensingCost:      t.LicensingCost,
		CreatedAt:          t.CreatedAt.Format(gen.DateTimeLayout),
		UpdatedAt:          t.UpdatedAt.Format(gen.DateTimeLayout),
	}
}

func Rows(titles []Title) []Row {
	rows := make([]Row, len(titles))
	for i := range titles {
		rows[i] = titles[i].Row()
	}
	return rows
}

func nullableInt(v *int64) string {
	if v == nil {
		return "NULL"
	}
	return strconv.FormatInt(*v, 10)
}

// cast is reserved in both dialects and each quotes identifiers differently.
const (
	postgresCastColumn = `"cast"`
	mysqlCastColumn    = "`cast`"
)

func (t *Title) ToPostgresSql() string {
	return t.insertSql(postgresCastColumn)
}

// ToMySql is the MySQL form of ToPostgresSql.
func (t *Title) ToMySql() string {
	return t.insertSql(mysqlCastColumn)
}

func (t *Title) insertSql(castColumn string) string {
	r := t.Row()
	return fmt.Sprintf(`INSERT INTO %s
(title_id, title_name, title_type, genre, sub_genre, content_rating, release_date, duration_minutes, season_number, episode_number, production_country, original_language, available_languages, director, %s, production_studio, popularity_score, critical_rating, viewer_rating, budget_millions, revenue_millions, awards_count, is_original, licensing_cost, created_at, updated_at)
values (%s, %s, %s, %s, %s, %s, %s, %d, %s, %s, %s, %s, %s, %s, %s, %s, %.2f, %.1f, %.1f, %.2f, %.2f, %d, %t, %.2f, %s, %s)`,
		"titles", castColumn,
		sink.Quote(r.TitleID), sink.Quote(r.TitleName), sink.Quote(r.TitleType), sink.Quote(r.Genre),
		sink.Quote(r.SubGenre), sink.Quote(r.ContentRating), sink.Quote(r.ReleaseDate), r.DurationMinutes,
		nullableInt(r.SeasonNumber), nullableInt(r.EpisodeNumber), sink.Quote(r.ProductionCountry),
		sink.Quote(r.OriginalLanguage), sink.Quote(r.AvailableLanguages), sink.Quote(r.Director),
		sink.Quote(r.Cast), sink.Quote(r.ProductionStudio), r.PopularityScore, r.CriticalRating,
		r.ViewerRating, r.BudgetMillions, r.RevenueMillions, r.AwardsCount, r.IsOriginal,
		r.LicensingCost, sink.Quote(r.CreatedAt), sink.Quote(r.UpdatedAt))
}

func (t *Title) ToJson() (topic string, key string, data []byte) {
	data, _ = json.Marshal(t.Row())
	return "titles", t.TitleID, data
}

func (t *Title) ToProtobuf() (topic string, key string, data []byte) {
	topic, key, data = t.ToJson()
	return topic, key, sink.JsonToProtobuf(data)
}
