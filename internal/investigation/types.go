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
	"encoding/json"
	"time"
)

// CurrentSchemaVersion is the document layout written by this build.
const CurrentSchemaVersion = 1

// DefaultNamespace is the key the document is stored under.
const DefaultNamespace = "ip_analysis_data"

// ClientImpact is the severity class applied to a client's exposure.
type ClientImpact string

const (
	ImpactLow      ClientImpact = "Low"
	ImpactMedium   ClientImpact = "Medium"
	ImpactHigh     ClientImpact = "High"
	ImpactCritical ClientImpact = "Critical"
)

// Valid reports whether the impact is empty or one of the known levels.
func (c ClientImpact) Valid() bool {
	switch c {
	case "", ImpactLow, ImpactMedium, ImpactHigh, ImpactCritical:
		return true
	}
	return false
}

// InfrastructureType classifies what kind of network sits behind an address.
type InfrastructureType string

const (
	InfraResidential InfrastructureType = "Residential"
	InfraDatacenter  InfrastructureType = "Datacenter"
	InfraHosting     InfrastructureType = "Hosting"
	InfraCDN         InfrastructureType = "CDN"
	InfraVPN         InfrastructureType = "VPN"
	InfraProxy       InfrastructureType = "Proxy"
	InfraTorExit     InfrastructureType = "Tor_Exit"
	InfraMobile      InfrastructureType = "Mobile"
	InfraUnknown     InfrastructureType = "Unknown"
)

func (i InfrastructureType) Valid() bool {
	switch i {
	case "", InfraResidential, InfraDatacenter, InfraHosting, InfraCDN, InfraVPN,
		InfraProxy, InfraTorExit, InfraMobile, InfraUnknown:
		return true
	}
	return false
}

// AlertType is the activity on an address an alert subscribes to.
type AlertType string

const (
	AlertNewSearch        AlertType = "new_search"
	AlertNewTag           AlertType = "new_tag"
	AlertNewInvestigation AlertType = "new_investigation"
)

func (t AlertType) Valid() bool {
	switch t {
	case AlertNewSearch, AlertNewTag, AlertNewInvestigation:
		return true
	}
	return false
}

const AlertStatusActive = "active"

// Alert is an email subscription to activity on one address.
type Alert struct {
	Email     string    `json:"email"`
	Type      AlertType `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Document is the single persisted unit. Every write replaces it as a whole.
type Document struct {
	SchemaVersion       int                            `json:"schemaVersion"`
	IPHistory           map[string]*IPRecord           `json:"ipHistory"`
	TicketRelationships map[string]*TicketRelationship `json:"ticketRelationships"`
	Analytics           Analytics                      `json:"analytics"`
}

// Analytics holds the global rollups and the per-IP trend series.
type Analytics struct {
	BehaviorStats map[string]*BehaviorStat `json:"behaviorStats"`
	ClientStats   map[string]*ClientStat   `json:"clientStats"`
	RiskTrends    map[string][]TrendPoint  `json:"riskTrends"`
}

// IPRecord is everything known about one investigated address.
type IPRecord struct {
	IP               string           `json:"ip"`
	SearchCount      int              `json:"searchCount"`
	LastSearched     time.Time        `json:"lastSearched,omitzero"`
	Investigations   []Investigation  `json:"investigations"`
	Tags             []Tag            `json:"tags"`
	RiskAssessments  []RiskAssessment `json:"riskAssessments"`
	CurrentRiskScore int              `json:"currentRiskScore"`
	LatestScore      int              `json:"latestScore"`
	IsMonitored      bool             `json:"isMonitored,omitempty"`
	Geo              *GeoInfo         `json:"geo,omitempty"`
	Alerts           []Alert          `json:"alerts,omitempty"`
}

// Investigation is a lightweight lookup-log entry.
type Investigation struct {
	Timestamp    time.Time `json:"timestamp"`
	Analyst      string    `json:"analyst"`
	TicketNumber string    `json:"ticketNumber"`
	Notes        string    `json:"notes,omitempty"`
}

// GeoInfo is the location/network annotation attached on first lookup.
type GeoInfo struct {
	Country     string  `json:"country,omitempty"`
	CountryName string  `json:"countryName,omitempty"`
	City        string  `json:"city,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	ASN         int     `json:"asn,omitempty"`
	ASNOrg      string  `json:"asnOrg,omitempty"`
}

// RiskAssessment is one analyst evaluation. It is never modified once stored.
type RiskAssessment struct {
	Timestamp          time.Time          `json:"timestamp"`
	Analyst            string             `json:"analyst"`
	TicketNumber       string             `json:"ticketNumber"`
	Client             string             `json:"client"`
	Notes              string             `json:"notes"`
	Behaviors          []string           `json:"behaviors"`
	ClientImpact       ClientImpact       `json:"clientImpact"`
	ResponseActions    []string           `json:"responseActions"`
	InfrastructureType InfrastructureType `json:"infrastructureType"`
	CalculatedScore    *int               `json:"calculatedScore"`
	Details            json.RawMessage    `json:"details,omitempty"`
}

// Score returns the clamped calculated score, or false when none was recorded.
func (a RiskAssessment) Score() (int, bool) {
	if a.CalculatedScore == nil {
		return 0, false
	}
	return clampScore(*a.CalculatedScore), true
}

// AssessedAt is the decay basis.
func (a RiskAssessment) AssessedAt() time.Time {
	return a.Timestamp
}

// Tag is the analyst-facing log entry derived from an assessment.
type Tag struct {
	TicketNumber       string             `json:"ticketNumber"`
	Client             string             `json:"client"`
	Notes              string             `json:"notes"`
	Behaviors          []string           `json:"behaviors"`
	ClientImpact       ClientImpact       `json:"clientImpact"`
	ResponseActions    []string           `json:"responseActions"`
	InfrastructureType InfrastructureType `json:"infrastructureType"`
	CalculatedScore    *int               `json:"calculatedScore"`
	WeightedScore      int                `json:"weightedScore"`
	CreatedAt          time.Time          `json:"createdAt"`
	CreatedBy          string             `json:"createdBy"`
	Assessment         RiskAssessment     `json:"assessment"`
}

// TrendPoint is one sample of an IP's risk history.
type TrendPoint struct {
	Timestamp     time.Time       `json:"timestamp"`
	RawScore      int             `json:"rawScore"`
	WeightedScore int             `json:"weightedScore"`
	Behaviors     []string        `json:"behaviors"`
	ClientImpact  ClientImpact    `json:"clientImpact"`
	Details       json.RawMessage `json:"details,omitempty"`
}

// BehaviorStat counts how often a behavior has been assessed, overall and per client.
type BehaviorStat struct {
	Occurrences int            `json:"occurrences"`
	LastSeen    time.Time      `json:"lastSeen"`
	ByClient    map[string]int `json:"byClient"`
}

// ClientStat counts assessments attributed to one client.
type ClientStat struct {
	TotalAssessments int                  `json:"totalAssessments"`
	ImpactLevels     map[ClientImpact]int `json:"impactLevels"`
	CommonBehaviors  map[string]int       `json:"commonBehaviors"`
}

// TicketRelationship groups the addresses handled under one ticket.
type TicketRelationship struct {
	RelatedIPs  []string  `json:"relatedIPs"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
	Notes       string    `json:"notes"`
}

// Submission is what an analyst (or the inbox) hands to RecordAssessment.
type Submission struct {
	Analyst            string             `json:"analyst"`
	TicketNumber       string             `json:"ticketNumber"`
	Client             string             `json:"client"`
	Notes              string             `json:"notes"`
	Behaviors          []string           `json:"behaviors"`
	ClientImpact       ClientImpact       `json:"clientImpact"`
	ResponseActions    []string           `json:"responseActions"`
	InfrastructureType InfrastructureType `json:"infrastructureType"`
	CalculatedScore    *int               `json:"calculatedScore"`
	Details            json.RawMessage    `json:"details,omitempty"`
}

// NewDocument returns an empty document at the current schema version.
func NewDocument() *Document {
	return &Document{
		SchemaVersion:       CurrentSchemaVersion,
		IPHistory:           make(map[string]*IPRecord),
		TicketRelationships: make(map[string]*TicketRelationship),
		Analytics: Analytics{
			BehaviorStats: make(map[string]*BehaviorStat),
			ClientStats:   make(map[string]*ClientStat),
			RiskTrends:    make(map[string][]TrendPoint),
		},
	}
}

func newIPRecord(ip string) *IPRecord {
	return &IPRecord{
		IP:              ip,
		Investigations:  []Investigation{},
		Tags:            []Tag{},
		RiskAssessments: []RiskAssessment{},
	}
}

// clone copies the record and its top-level sequences. Entries are shared;
// they are never mutated after insertion.
func (r *IPRecord) clone() IPRecord {
	out := *r
	out.Investigations = make([]Investigation, len(r.Investigations))
	copy(out.Investigations, r.Investigations)
	out.Tags = make([]Tag, len(r.Tags))
	copy(out.Tags, r.Tags)
	out.RiskAssessments = make([]RiskAssessment, len(r.RiskAssessments))
	copy(out.RiskAssessments, r.RiskAssessments)
	if r.Alerts != nil {
		out.Alerts = make([]Alert, len(r.Alerts))
		copy(out.Alerts, r.Alerts)
	}
	if r.Geo != nil {
		geo := *r.Geo
		out.Geo = &geo
	}
	return out
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
