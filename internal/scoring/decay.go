// MIT License
//
// Copyright (c) 2026 Kolin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//

// Package scoring turns a history of risk assessments into one current score.
//
// Older assessments count for less. Ages fall into fixed buckets:
//
//	age <= 1 day    weight 1.0
//	age <= 7 days   weight 0.7
//	age <= 30 days  weight 0.4
//	older           weight 0.2
//
// The result is the weighted mean of all scored assessments, rounded half up
// and clamped to [0,100]. It is recomputed over the full history on every
// write, so cost grows linearly with the number of assessments per IP.
package scoring

import (
	"math"
	"time"
)

const (
	MinScore = 0
	MaxScore = 100

	day = 24 * time.Hour
)

// Assessment is anything carrying a timestamp and an optional score.
type Assessment interface {
	AssessedAt() time.Time
	Score() (int, bool)
}

// AgeWeight returns the decay weight for an assessment of the given age.
// Negative ages (clock skew) count as fresh.
func AgeWeight(age time.Duration) float64 {
	days := age.Hours() / 24
	switch {
	case days <= 1:
		return 1.0
	case days <= 7:
		return 0.7
	case days <= 30:
		return 0.4
	default:
		return 0.2
	}
}

// ComputeWeightedScore returns the time-decayed score of assessments as of now.
// Assessments without a score are skipped entirely. An empty or unscored
// history yields 0.
func ComputeWeightedScore[A Assessment](assessments []A, now time.Time) int {
	var weighted, total float64
	for _, a := range assessments {
		score, ok := a.Score()
		if !ok {
			continue
		}
		w := AgeWeight(now.Sub(a.AssessedAt()))
		weighted += float64(Clamp(score)) * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return Clamp(int(math.Floor(weighted/total + 0.5)))
}

// Clamp bounds v to [MinScore, MaxScore].
func Clamp(v int) int {
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}
