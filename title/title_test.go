package title

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"
	"time"
	"videogen/gen"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refTime = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func generate(t *testing.T, seed int64, n int) []Title {
	t.Helper()
	titles, err := NewGenerator(gen.NewRng(seed), refTime).Generate(n)
	require.NoError(t, err)
	return titles
}

func TestGenerateInvariants(t *testing.T) {
	titles := generate(t, 42, 1000)
	idPattern := regexp.MustCompile(`^TITLE_[0-9a-f]{8}_\d{6}$`)
	genres := map[string]bool{}
	for _, g := range Genres() {
		genres[g] = true
	}

	for _, ti := range titles {
		require.NoError(t, ti.Validate())
		assert.Regexp(t, idPattern, ti.TitleID)
		assert.True(t, genres[ti.Genre], ti.Genre)
		assert.GreaterOrEqual(t, ti.PopularityScore, 0.0)
		assert.LessOrEqual(t, ti.PopularityScore, 100.0)
		assert.Equal(t, ti.OriginalLanguage, ti.AvailableLanguages[0])
		assert.GreaterOrEqual(t, len(ti.AvailableLanguages), 2)
		assert.LessOrEqual(t, len(ti.AvailableLanguages), 5)
		assert.GreaterOrEqual(t, len(ti.Cast), 3)
		assert.LessOrEqual(t, len(ti.Cast), 8)
		assert.False(t, ti.ReleaseDate.After(refTime))
		assert.False(t, ti.CreatedAt.Before(ti.ReleaseDate))

		if ti.IsOriginal {
			assert.Equal(t, originalStudio, ti.ProductionStudio)
			assert.Zero(t, ti.LicensingCost)
		} else {
			assert.NotEqual(t, originalStudio, ti.ProductionStudio)
		}
		if ti.CriticalRating <= 7 {
			assert.Zero(t, ti.AwardsCount)
		}
		if ti.Type == TypeSeries {
			require.NotNil(t, ti.SeasonNumber)
			assert.LessOrEqual(t, *ti.SeasonNumber, 8)
			assert.LessOrEqual(t, *ti.EpisodeNumber, 24)
		} else {
			assert.Nil(t, ti.SeasonNumber)
			assert.Nil(t, ti.EpisodeNumber)
		}
		if ti.Genre == "Sci-Fi" && strings.Contains(ti.Name, "Year") {
			assert.Regexp(t, `: Year \d{4}$`, ti.Name)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	assert.Equal(t, generate(t, 3, 40), generate(t, 3, 40))
}

func TestValidateRejects(t *testing.T) {
	ti := generate(t, 1, 1)[0]
	ti.Type = TypeMovie
	ti.SeasonNumber, ti.EpisodeNumber = nil, nil
	ti.DurationMinutes = 90
	require.NoError(t, ti.Validate())

	bad := ti
	bad.DurationMinutes = 20
	assert.Error(t, bad.Validate())

	bad = ti
	season := 1
	bad.SeasonNumber = &season
	assert.Error(t, bad.Validate())

	bad = ti
	bad.Type = "podcast"
	assert.Error(t, bad.Validate())
}

func TestRow(t *testing.T) {
	season, episode := 2, 5
	ti := Title{
		TitleID:            "TITLE_abcdef01_000001",
		Name:               "Storm Hour",
		Type:               TypeSeries,
		ReleaseDate:        time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC),
		DurationMinutes:    42,
		SeasonNumber:       &season,
		EpisodeNumber:      &episode,
		AvailableLanguages: []string{"English", "French"},
		Cast:               []string{"Jane O'Neil"},
		CreatedAt:          time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	r := ti.Row()
	assert.Equal(t, "2020-03-04", r.ReleaseDate)
	assert.Equal(t, "2021-01-02 03:04:05", r.CreatedAt)
	require.NotNil(t, r.SeasonNumber)
	assert.EqualValues(t, 2, *r.SeasonNumber)

	var langs []string
	require.NoError(t, json.Unmarshal([]byte(r.AvailableLanguages), &langs))
	assert.Equal(t, []string{"English", "French"}, langs)

	sql := ti.ToPostgresSql()
	assert.Contains(t, sql, "'[\"Jane O''Neil\"]'")
	assert.Contains(t, sql, "42, 2, 5,")
	assert.Contains(t, sql, `director, "cast", production_studio`)

	mysql := ti.ToMySql()
	assert.Contains(t, mysql, "director, `cast`, production_studio")
	assert.Equal(t, strings.Replace(sql, `"cast"`, "`cast`", 1), mysql)

	topic, key, _ := ti.ToJson()
	assert.Equal(t, "titles", topic)
	assert.Equal(t, ti.TitleID, key)
}
