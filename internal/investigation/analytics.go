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
package investigation

import "strings"

// ApplyAssessment folds one assessment into the global rollups.
//
// Counters only ever grow: there is no removal path, and applying the same
// assessment twice counts it twice.
func ApplyAssessment(a *Analytics, assessment RiskAssessment) {
	if a.BehaviorStats == nil {
		a.BehaviorStats = make(map[string]*BehaviorStat)
	}
	if a.ClientStats == nil {
		a.ClientStats = make(map[string]*ClientStat)
	}

	behaviors := dedupe(assessment.Behaviors)
	for _, behavior := range behaviors {
		stat, ok := a.BehaviorStats[behavior]
		if !ok {
			stat = &BehaviorStat{ByClient: make(map[string]int)}
			a.BehaviorStats[behavior] = stat
		}
		if stat.ByClient == nil {
			stat.ByClient = make(map[string]int)
		}
		stat.Occurrences++
		stat.LastSeen = assessment.Timestamp
		if assessment.Client != "" {
			stat.ByClient[assessment.Client]++
		}
	}

	if assessment.Client == "" || assessment.ClientImpact == "" {
		return
	}

	cs, ok := a.ClientStats[assessment.Client]
	if !ok {
		cs = &ClientStat{
			ImpactLevels:    make(map[ClientImpact]int),
			CommonBehaviors: make(map[string]int),
		}
		a.ClientStats[assessment.Client] = cs
	}
	if cs.ImpactLevels == nil {
		cs.ImpactLevels = make(map[ClientImpact]int)
	}
	if cs.CommonBehaviors == nil {
		cs.CommonBehaviors = make(map[string]int)
	}
	cs.TotalAssessments++
	cs.ImpactLevels[assessment.ClientImpact]++
	for _, behavior := range behaviors {
		cs.CommonBehaviors[behavior]++
	}
}

// dedupe drops blanks and repeats, keeping first-seen order. Never returns nil.
func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
