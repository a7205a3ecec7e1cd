package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	at    time.Time
	score *int
}

func (s sample) AssessedAt() time.Time { return s.at }

func (s sample) Score() (int, bool) {
	if s.score == nil {
		return 0, false
	}
	return *s.score, true
}

func intp(v int) *int { return &v }

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ago(days float64) time.Time {
	return now.Add(-time.Duration(days * float64(day)))
}

func TestAgeWeight_Buckets(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"future", -time.Hour, 1.0},
		{"fresh", 0, 1.0},
		{"exactly one day", day, 1.0},
		{"just over one day", day + time.Second, 0.7},
		{"exactly seven days", 7 * day, 0.7},
		{"two weeks", 14 * day, 0.4},
		{"exactly thirty days", 30 * day, 0.4},
		{"forty days", 40 * day, 0.2},
		{"a year", 365 * day, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgeWeight(tt.age))
		})
	}
}

func TestAgeWeight_NonIncreasing(t *testing.T) {
	prev := AgeWeight(0)
	for h := 0; h <= 24*60; h++ {
		w := AgeWeight(time.Duration(h) * time.Hour)
		assert.LessOrEqual(t, w, prev, "weight increased at %d hours", h)
		prev = w
	}
}

func TestComputeWeightedScore_Empty(t *testing.T) {
	assert.Equal(t, 0, ComputeWeightedScore([]sample{}, now))
	assert.Equal(t, 0, ComputeWeightedScore[sample](nil, now))
}

func TestComputeWeightedScore_AllUnscored(t *testing.T) {
	history := []sample{{at: ago(0)}, {at: ago(3)}}
	assert.Equal(t, 0, ComputeWeightedScore(history, now))
}

func TestComputeWeightedScore_SingleFresh(t *testing.T) {
	assert.Equal(t, 80, ComputeWeightedScore([]sample{{at: now, score: intp(80)}}, now))
}

func TestComputeWeightedScore_DecayMix(t *testing.T) {
	history := []sample{
		{at: ago(0), score: intp(100)},
		{at: ago(40), score: intp(0)},
	}
	// (100*1.0 + 0*0.2) / 1.2 = 83.33
	assert.Equal(t, 83, ComputeWeightedScore(history, now))
}

func TestComputeWeightedScore_SkipsUnscored(t *testing.T) {
	history := []sample{
		{at: ago(0), score: intp(60)},
		{at: ago(2)},
		{at: ago(40)},
	}
	assert.Equal(t, 60, ComputeWeightedScore(history, now))
}

func TestComputeWeightedScore_RoundsHalfUp(t *testing.T) {
	history := []sample{
		{at: ago(0), score: intp(50)},
		{at: ago(0), score: intp(51)},
	}
	assert.Equal(t, 51, ComputeWeightedScore(history, now))
}

func TestComputeWeightedScore_ClampsInputs(t *testing.T) {
	history := []sample{
		{at: ago(0), score: intp(250)},
		{at: ago(0), score: intp(-40)},
	}
	assert.Equal(t, 50, ComputeWeightedScore(history, now))

	assert.Equal(t, 100, ComputeWeightedScore([]sample{{at: now, score: intp(1000)}}, now))
	assert.Equal(t, 0, ComputeWeightedScore([]sample{{at: now, score: intp(-5)}}, now))
}

func TestComputeWeightedScore_OlderNeverOutweighs(t *testing.T) {
	for _, older := range []float64{0.5, 3, 10, 45} {
		newer := older / 2
		history := []sample{
			{at: ago(newer), score: intp(90)},
			{at: ago(older), score: intp(10)},
		}
		assert.GreaterOrEqual(t, ComputeWeightedScore(history, now), 50, "older=%v", older)
	}
}

func TestComputeWeightedScore_AlwaysInRange(t *testing.T) {
	scores := []int{-100, 0, 1, 37, 99, 100, 400}
	ages := []float64{0, 0.5, 2, 8, 31, 200}
	for _, s1 := range scores {
		for _, s2 := range scores {
			for _, a := range ages {
				got := ComputeWeightedScore([]sample{
					{at: ago(a), score: intp(s1)},
					{at: ago(a * 2), score: intp(s2)},
				}, now)
				assert.GreaterOrEqual(t, got, 0)
				assert.LessOrEqual(t, got, 100)
			}
		}
	}
}
