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

import (
	"sort"
	"time"
)

// IPAnalytics is the read model for one address. HasData is false for
// addresses that were never recorded; see NoData.
type IPAnalytics struct {
	IP               string          `json:"ip"`
	HasData          bool            `json:"hasData"`
	CurrentRiskScore int             `json:"currentRiskScore"`
	LatestScore      int             `json:"latestScore"`
	AssessmentCount  int             `json:"assessmentCount"`
	LastAssessment   *RiskAssessment `json:"lastAssessment"`
	RiskTrend        []TrendPoint    `json:"riskTrend"`
	BehaviorHistory  []BehaviorEvent `json:"behaviorHistory"`
}

// BehaviorEvent is one tag projected for charting.
type BehaviorEvent struct {
	Timestamp     time.Time    `json:"timestamp"`
	Behaviors     []string     `json:"behaviors"`
	Impact        ClientImpact `json:"impact"`
	RawScore      int          `json:"rawScore"`
	WeightedScore int          `json:"weightedScore"`
}

// NoData is the result for an address with no record.
func NoData(ip string) IPAnalytics {
	return IPAnalytics{
		IP:              ip,
		RiskTrend:       []TrendPoint{},
		BehaviorHistory: []BehaviorEvent{},
	}
}

// Overview summarises the whole store for a dashboard.
type Overview struct {
	TotalIPs             int            `json:"totalIPs"`
	TotalSearches        int            `json:"totalSearches"`
	TotalAssessments     int            `json:"totalAssessments"`
	ActiveTickets        int            `json:"activeTickets"`
	MonitoredIPs         int            `json:"monitoredIPs"`
	MostSearched         []SearchCount  `json:"mostSearched"`
	RecentInvestigations []RecentLookup `json:"recentInvestigations"`
}

type SearchCount struct {
	IP          string `json:"ip"`
	SearchCount int    `json:"searchCount"`
}

type RecentLookup struct {
	IP           string    `json:"ip"`
	LastSearched time.Time `json:"lastSearched"`
	SearchCount  int       `json:"searchCount"`
	LatestTicket string    `json:"latestTicket"`
	CurrentScore int       `json:"currentRiskScore"`
}

// Record returns a copy of the record for ip.
func (s *Store) Record(ip string) (IPRecord, bool) {
	key, err := NormalizeIP(ip)
	if err != nil {
		return IPRecord{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.doc.IPHistory[key]
	if !ok {
		return IPRecord{}, false
	}
	return rec.clone(), true
}

// GetRiskTrend returns the trend points of ip no older than days, oldest
// first. days <= 0 means the retention window. Unknown addresses yield an
// empty series.
func (s *Store) GetRiskTrend(ip string, days int) ([]TrendPoint, error) {
	key, err := NormalizeIP(ip)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.riskTrendLocked(key, days), nil
}

func (s *Store) riskTrendLocked(key string, days int) []TrendPoint {
	window := s.retention
	if days > 0 {
		window = time.Duration(days) * 24 * time.Hour
	}
	return withinWindow(s.doc.Analytics.RiskTrends[key], s.now().UTC(), window)
}

// GetIPAnalytics composes the current posture of ip. It never fails for an
// unknown address; it returns NoData instead.
func (s *Store) GetIPAnalytics(ip string) (IPAnalytics, error) {
	key, err := NormalizeIP(ip)
	if err != nil {
		return IPAnalytics{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.doc.IPHistory[key]
	if !ok {
		return NoData(key), nil
	}

	out := IPAnalytics{
		IP:               key,
		HasData:          true,
		CurrentRiskScore: rec.CurrentRiskScore,
		LatestScore:      rec.LatestScore,
		AssessmentCount:  len(rec.RiskAssessments),
		RiskTrend:        s.riskTrendLocked(key, 0),
		BehaviorHistory:  make([]BehaviorEvent, 0, len(rec.Tags)),
	}
	if len(rec.RiskAssessments) > 0 {
		last := rec.RiskAssessments[0]
		out.LastAssessment = &last
	}
	// Tags are newest first; history reads oldest first.
	for i := len(rec.Tags) - 1; i >= 0; i-- {
		tag := rec.Tags[i]
		raw := 0
		if tag.CalculatedScore != nil {
			raw = clampScore(*tag.CalculatedScore)
		}
		out.BehaviorHistory = append(out.BehaviorHistory, BehaviorEvent{
			Timestamp:     tag.CreatedAt,
			Behaviors:     tag.Behaviors,
			Impact:        tag.ClientImpact,
			RawScore:      raw,
			WeightedScore: tag.WeightedScore,
		})
	}
	return out, nil
}

// BehaviorStats returns a copy of the behavior rollup.
func (s *Store) BehaviorStats() map[string]BehaviorStat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]BehaviorStat, len(s.doc.Analytics.BehaviorStats))
	for name, stat := range s.doc.Analytics.BehaviorStats {
		c := *stat
		c.ByClient = make(map[string]int, len(stat.ByClient))
		for k, v := range stat.ByClient {
			c.ByClient[k] = v
		}
		out[name] = c
	}
	return out
}

// ClientStats returns a copy of the client rollup.
func (s *Store) ClientStats() map[string]ClientStat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]ClientStat, len(s.doc.Analytics.ClientStats))
	for name, stat := range s.doc.Analytics.ClientStats {
		c := ClientStat{
			TotalAssessments: stat.TotalAssessments,
			ImpactLevels:     make(map[ClientImpact]int, len(stat.ImpactLevels)),
			CommonBehaviors:  make(map[string]int, len(stat.CommonBehaviors)),
		}
		for k, v := range stat.ImpactLevels {
			c.ImpactLevels[k] = v
		}
		for k, v := range stat.CommonBehaviors {
			c.CommonBehaviors[k] = v
		}
		out[name] = c
	}
	return out
}

// TicketRelationship returns the addresses linked to ticket.
func (s *Store) TicketRelationship(ticket string) (TicketRelationship, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rel, ok := s.doc.TicketRelationships[ticket]
	if !ok {
		return TicketRelationship{}, false
	}
	out := *rel
	out.RelatedIPs = append([]string{}, rel.RelatedIPs...)
	return out, true
}

// MonitoredIPs lists flagged addresses in sorted order.
func (s *Store) MonitoredIPs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []string{}
	for ip, rec := range s.doc.IPHistory {
		if rec.IsMonitored {
			out = append(out, ip)
		}
	}
	sort.Strings(out)
	return out
}

// Overview builds the dashboard summary; limit caps both top lists.
func (s *Store) Overview(limit int) Overview {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ov := Overview{
		TotalIPs:      len(s.doc.IPHistory),
		ActiveTickets: len(s.doc.TicketRelationships),
	}
	searched := make([]SearchCount, 0, len(s.doc.IPHistory))
	recent := make([]RecentLookup, 0, len(s.doc.IPHistory))
	for ip, rec := range s.doc.IPHistory {
		ov.TotalSearches += rec.SearchCount
		ov.TotalAssessments += len(rec.RiskAssessments)
		if rec.IsMonitored {
			ov.MonitoredIPs++
		}
		if rec.SearchCount > 0 {
			searched = append(searched, SearchCount{IP: ip, SearchCount: rec.SearchCount})
		}
		if !rec.LastSearched.IsZero() {
			r := RecentLookup{
				IP:           ip,
				LastSearched: rec.LastSearched,
				SearchCount:  rec.SearchCount,
				CurrentScore: rec.CurrentRiskScore,
			}
			if len(rec.Investigations) > 0 {
				r.LatestTicket = rec.Investigations[0].TicketNumber
			}
			recent = append(recent, r)
		}
	}

	sort.Slice(searched, func(i, j int) bool {
		if searched[i].SearchCount != searched[j].SearchCount {
			return searched[i].SearchCount > searched[j].SearchCount
		}
		return searched[i].IP < searched[j].IP
	})
	sort.Slice(recent, func(i, j int) bool {
		if !recent[i].LastSearched.Equal(recent[j].LastSearched) {
			return recent[i].LastSearched.After(recent[j].LastSearched)
		}
		return recent[i].IP < recent[j].IP
	})

	if len(searched) > limit {
		searched = searched[:limit]
	}
	if len(recent) > limit {
		recent = recent[:limit]
	}
	ov.MostSearched = searched
	ov.RecentInvestigations = recent
	return ov
}
