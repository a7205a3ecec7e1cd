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
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"ipdossier/internal/scoring"
)

// decodeDocument parses stored bytes, upgrading older layouts to the current
// schema. The bool reports whether a migration ran.
func decodeDocument(body []byte, now time.Time) (*Document, bool, error) {
	var header struct {
		SchemaVersion *int `json:"schemaVersion"`
	}
	if err := json.Unmarshal(body, &header); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	version := 0
	if header.SchemaVersion != nil {
		version = *header.SchemaVersion
	}

	switch {
	case version > CurrentSchemaVersion || version < 0:
		return nil, false, fmt.Errorf("%w: %w: %d", ErrCorruptDocument, ErrUnsupportedSchema, version)
	case version == CurrentSchemaVersion:
		var doc Document
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}
		if err := normalize(&doc); err != nil {
			return nil, false, err
		}
		return &doc, false, nil
	default:
		doc, err := migrateLegacy(body, now)
		if err != nil {
			return nil, false, err
		}
		return doc, true, nil
	}
}

// normalize fills nil containers and checks that no entry is null.
func normalize(doc *Document) error {
	if doc.IPHistory == nil {
		doc.IPHistory = make(map[string]*IPRecord)
	}
	if doc.TicketRelationships == nil {
		doc.TicketRelationships = make(map[string]*TicketRelationship)
	}
	if doc.Analytics.BehaviorStats == nil {
		doc.Analytics.BehaviorStats = make(map[string]*BehaviorStat)
	}
	if doc.Analytics.ClientStats == nil {
		doc.Analytics.ClientStats = make(map[string]*ClientStat)
	}
	if doc.Analytics.RiskTrends == nil {
		doc.Analytics.RiskTrends = make(map[string][]TrendPoint)
	}

	for ip, rec := range doc.IPHistory {
		if rec == nil {
			return fmt.Errorf("%w: null record for %s", ErrCorruptDocument, ip)
		}
		rec.IP = ip
		if rec.Investigations == nil {
			rec.Investigations = []Investigation{}
		}
		if rec.Tags == nil {
			rec.Tags = []Tag{}
		}
		if rec.RiskAssessments == nil {
			rec.RiskAssessments = []RiskAssessment{}
		}
	}
	for ticket, rel := range doc.TicketRelationships {
		if rel == nil {
			return fmt.Errorf("%w: null ticket relationship %s", ErrCorruptDocument, ticket)
		}
		if rel.RelatedIPs == nil {
			rel.RelatedIPs = []string{}
		}
	}
	for behavior, stat := range doc.Analytics.BehaviorStats {
		if stat == nil {
			return fmt.Errorf("%w: null behavior stat %s", ErrCorruptDocument, behavior)
		}
		if stat.ByClient == nil {
			stat.ByClient = make(map[string]int)
		}
	}
	for client, stat := range doc.Analytics.ClientStats {
		if stat == nil {
			return fmt.Errorf("%w: null client stat %s", ErrCorruptDocument, client)
		}
		if stat.ImpactLevels == nil {
			stat.ImpactLevels = make(map[ClientImpact]int)
		}
		if stat.CommonBehaviors == nil {
			stat.CommonBehaviors = make(map[string]int)
		}
	}
	return nil
}

// Unversioned documents: the score lived in one of three places and
// responseActions was sometimes an object instead of a list.
type legacyDocument struct {
	IPHistory           map[string]*legacyIPRecord     `json:"ipHistory"`
	TicketRelationships map[string]*TicketRelationship `json:"ticketRelationships"`
	Analytics           struct {
		BehaviorStats map[string]*BehaviorStat `json:"behaviorStats"`
		ClientStats   map[string]*ClientStat   `json:"clientStats"`
		RiskTrends    map[string][]TrendPoint  `json:"riskTrends"`
	} `json:"analytics"`
}

type legacyIPRecord struct {
	SearchCount     int                `json:"searchCount"`
	LastSearched    *time.Time         `json:"lastSearched"`
	Investigations  []Investigation    `json:"investigations"`
	Tags            []legacyTag        `json:"tags"`
	RiskAssessments []legacyAssessment `json:"riskAssessments"`
	LatestScore     *int               `json:"latestScore"`
	IsMonitored     bool               `json:"isMonitored"`
	Alerts          []Alert            `json:"alerts"`
}

type legacyAssessment struct {
	Timestamp          time.Time          `json:"timestamp"`
	Analyst            string             `json:"analyst"`
	TicketNumber       string             `json:"ticketNumber"`
	Client             string             `json:"client"`
	Notes              string             `json:"notes"`
	Behaviors          []string           `json:"behaviors"`
	ClientImpact       ClientImpact       `json:"clientImpact"`
	ResponseActions    json.RawMessage    `json:"responseActions"`
	InfrastructureType InfrastructureType `json:"infrastructureType"`
	CalculatedScore    *int               `json:"calculatedScore"`
	AnalystRiskScore   *int               `json:"analystRiskScore"`
	Details            json.RawMessage    `json:"details"`
}

type legacyTag struct {
	TicketNumber     string            `json:"ticketNumber"`
	Client           string            `json:"client"`
	Notes            string            `json:"notes"`
	Behaviors        []string          `json:"behaviors"`
	ClientImpact     ClientImpact      `json:"clientImpact"`
	CalculatedScore  *int              `json:"calculatedScore"`
	AnalystRiskScore *int              `json:"analystRiskScore"`
	WeightedScore    int               `json:"weightedScore"`
	CreatedAt        time.Time         `json:"createdAt"`
	CreatedBy        string            `json:"createdBy"`
	Assessment       *legacyAssessment `json:"assessment"`
}

func migrateLegacy(body []byte, now time.Time) (*Document, error) {
	var legacy legacyDocument
	if err := json.Unmarshal(body, &legacy); err != nil {
		return nil, fmt.Errorf("%w: legacy layout: %v", ErrCorruptDocument, err)
	}

	doc := NewDocument()
	for ticket, rel := range legacy.TicketRelationships {
		if rel != nil {
			doc.TicketRelationships[ticket] = rel
		}
	}
	for k, v := range legacy.Analytics.BehaviorStats {
		if v != nil {
			doc.Analytics.BehaviorStats[k] = v
		}
	}
	for k, v := range legacy.Analytics.ClientStats {
		if v != nil {
			doc.Analytics.ClientStats[k] = v
		}
	}
	for k, v := range legacy.Analytics.RiskTrends {
		doc.Analytics.RiskTrends[k] = v
	}

	for ip, old := range legacy.IPHistory {
		if old == nil {
			return nil, fmt.Errorf("%w: null record for %s", ErrCorruptDocument, ip)
		}
		rec := newIPRecord(ip)
		rec.SearchCount = old.SearchCount
		rec.IsMonitored = old.IsMonitored
		if old.LastSearched != nil {
			rec.LastSearched = old.LastSearched.UTC()
		}
		if old.Investigations != nil {
			rec.Investigations = old.Investigations
		}
		for _, alert := range old.Alerts {
			alert.CreatedAt = alert.CreatedAt.UTC()
			if alert.Status == "" {
				alert.Status = AlertStatusActive
			}
			rec.Alerts = append(rec.Alerts, alert)
		}

		for _, la := range old.RiskAssessments {
			a, err := la.upgrade()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", ip, err)
			}
			rec.RiskAssessments = append(rec.RiskAssessments, a)
		}
		for _, lt := range old.Tags {
			tag, err := lt.upgrade()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", ip, err)
			}
			rec.Tags = append(rec.Tags, tag)
		}

		rec.CurrentRiskScore = scoring.ComputeWeightedScore(rec.RiskAssessments, now)
		switch {
		case old.LatestScore != nil:
			rec.LatestScore = clampScore(*old.LatestScore)
		case len(rec.RiskAssessments) > 0:
			rec.LatestScore, _ = rec.RiskAssessments[0].Score()
		}
		doc.IPHistory[ip] = rec
	}

	if err := normalize(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (la legacyAssessment) upgrade() (RiskAssessment, error) {
	actions, nestedScore, err := legacyResponseActions(la.ResponseActions)
	if err != nil {
		return RiskAssessment{}, err
	}

	a := RiskAssessment{
		Timestamp:          la.Timestamp.UTC(),
		Analyst:            la.Analyst,
		TicketNumber:       la.TicketNumber,
		Client:             la.Client,
		Notes:              la.Notes,
		Behaviors:          dedupe(la.Behaviors),
		ClientImpact:       la.ClientImpact,
		ResponseActions:    actions,
		InfrastructureType: la.InfrastructureType,
		CalculatedScore:    firstScore(la.CalculatedScore, nestedScore, la.AnalystRiskScore),
	}
	if len(la.Details) > 0 && !bytes.Equal(bytes.TrimSpace(la.Details), []byte("null")) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, la.Details); err != nil {
			return RiskAssessment{}, fmt.Errorf("%w: details: %v", ErrCorruptDocument, err)
		}
		a.Details = buf.Bytes()
	}
	return a, nil
}

func (lt legacyTag) upgrade() (Tag, error) {
	var a RiskAssessment
	if lt.Assessment != nil {
		var err error
		if a, err = lt.Assessment.upgrade(); err != nil {
			return Tag{}, err
		}
	} else {
		// Tags written before assessments existed carry only ticket metadata.
		a = RiskAssessment{
			Timestamp:       lt.CreatedAt.UTC(),
			Analyst:         lt.CreatedBy,
			TicketNumber:    lt.TicketNumber,
			Client:          lt.Client,
			Notes:           lt.Notes,
			Behaviors:       dedupe(lt.Behaviors),
			ClientImpact:    lt.ClientImpact,
			ResponseActions: []string{},
			CalculatedScore: firstScore(lt.CalculatedScore, lt.AnalystRiskScore),
		}
	}

	tag := newTag(a, lt.WeightedScore)
	tag.CreatedAt = lt.CreatedAt.UTC()
	tag.CreatedBy = lt.CreatedBy
	return tag, nil
}

// legacyResponseActions accepts either a list of action ids or an object
// that also carried the score.
func legacyResponseActions(raw json.RawMessage) ([]string, *int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []string{}, nil, nil
	}

	if trimmed[0] == '[' {
		var actions []string
		if err := json.Unmarshal(trimmed, &actions); err != nil {
			return nil, nil, fmt.Errorf("%w: responseActions: %v", ErrCorruptDocument, err)
		}
		return dedupe(actions), nil, nil
	}

	var nested struct {
		CalculatedScore *int     `json:"calculatedScore"`
		Actions         []string `json:"actions"`
	}
	if err := json.Unmarshal(trimmed, &nested); err != nil {
		return nil, nil, fmt.Errorf("%w: responseActions: %v", ErrCorruptDocument, err)
	}
	return dedupe(nested.Actions), nested.CalculatedScore, nil
}

func firstScore(candidates ...*int) *int {
	for _, c := range candidates {
		if c != nil {
			v := clampScore(*c)
			return &v
		}
	}
	return nil
}
