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
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"net/netip"
	"strings"
	"time"

	"ipdossier/internal/scoring"
)

// NormalizeIP validates an IPv4/IPv6 literal and returns its canonical key.
func NormalizeIP(ip string) (string, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return "", fmt.Errorf("%w: ip is required", ErrInvalidInput)
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "", fmt.Errorf("%w: %q is not an IP address", ErrInvalidInput, ip)
	}
	return addr.WithZone("").Unmap().String(), nil
}

// Validate checks the submission on its own, without touching any store.
func (sub Submission) Validate() error {
	if strings.TrimSpace(sub.Analyst) == "" {
		return fmt.Errorf("%w: analyst is required", ErrInvalidInput)
	}
	if !sub.ClientImpact.Valid() {
		return fmt.Errorf("%w: unknown client impact %q", ErrInvalidInput, sub.ClientImpact)
	}
	if !sub.InfrastructureType.Valid() {
		return fmt.Errorf("%w: unknown infrastructure type %q", ErrInvalidInput, sub.InfrastructureType)
	}
	if len(sub.Details) > 0 && !json.Valid(sub.Details) {
		return fmt.Errorf("%w: details is not valid JSON", ErrInvalidInput)
	}
	return nil
}

// assessment builds the stored assessment. A missing score is stored as 0.
func (sub Submission) assessment(now time.Time) RiskAssessment {
	score := 0
	if sub.CalculatedScore != nil {
		score = scoring.Clamp(*sub.CalculatedScore)
	}

	a := RiskAssessment{
		Timestamp:          now,
		Analyst:            strings.TrimSpace(sub.Analyst),
		TicketNumber:       strings.TrimSpace(sub.TicketNumber),
		Client:             strings.TrimSpace(sub.Client),
		Notes:              sub.Notes,
		Behaviors:          dedupe(sub.Behaviors),
		ClientImpact:       sub.ClientImpact,
		ResponseActions:    dedupe(sub.ResponseActions),
		InfrastructureType: sub.InfrastructureType,
		CalculatedScore:    &score,
	}
	if len(sub.Details) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, sub.Details); err == nil && buf.String() != "null" {
			a.Details = buf.Bytes()
		}
	}
	return a
}

func newTag(a RiskAssessment, weighted int) Tag {
	return Tag{
		TicketNumber:       a.TicketNumber,
		Client:             a.Client,
		Notes:              a.Notes,
		Behaviors:          a.Behaviors,
		ClientImpact:       a.ClientImpact,
		ResponseActions:    a.ResponseActions,
		InfrastructureType: a.InfrastructureType,
		CalculatedScore:    a.CalculatedScore,
		WeightedScore:      weighted,
		CreatedAt:          a.Timestamp,
		CreatedBy:          a.Analyst,
		Assessment:         a,
	}
}

func (d *Document) record(ip string) *IPRecord {
	rec, ok := d.IPHistory[ip]
	if !ok {
		rec = newIPRecord(ip)
		d.IPHistory[ip] = rec
	}
	return rec
}

// RecordAssessment stores a new assessment for ip and refreshes its score,
// trend and the global rollups in one write.
//
// If the write fails the change is still applied in memory and the returned
// record reflects it, together with ErrPersistenceUnavailable.
func (s *Store) RecordAssessment(ctx context.Context, ip string, sub Submission) (IPRecord, error) {
	key, err := NormalizeIP(ip)
	if err != nil {
		return IPRecord{}, err
	}
	if err := sub.Validate(); err != nil {
		return IPRecord{}, err
	}

	var out IPRecord
	var raw int
	err = s.update(ctx, func(doc *Document, now time.Time) error {
		a := sub.assessment(now)
		raw, _ = a.Score()

		rec := doc.record(key)
		rec.RiskAssessments = append([]RiskAssessment{a}, rec.RiskAssessments...)
		rec.CurrentRiskScore = scoring.ComputeWeightedScore(rec.RiskAssessments, now)
		rec.LatestScore = raw
		rec.Tags = append([]Tag{newTag(a, rec.CurrentRiskScore)}, rec.Tags...)

		doc.Analytics.RiskTrends[key] = AppendAndPrune(doc.Analytics.RiskTrends[key], TrendPoint{
			Timestamp:     now,
			RawScore:      raw,
			WeightedScore: rec.CurrentRiskScore,
			Behaviors:     a.Behaviors,
			ClientImpact:  a.ClientImpact,
			Details:       a.Details,
		}, now, s.retention)

		ApplyAssessment(&doc.Analytics, a)
		out = rec.clone()
		return nil
	})
	if out.IP == "" {
		return IPRecord{}, err
	}

	s.recorder.AssessmentRecorded(out.RiskAssessments[0].Client, sub.ClientImpact, raw)
	s.logger.Debug("Recorded risk assessment",
		s.logger.Args(
			"ip", key,
			"analyst", sub.Analyst,
			"score", raw,
			"weighted_score", out.CurrentRiskScore,
			"assessments", len(out.RiskAssessments),
		))
	return out, err
}

// RecordLookup counts a lookup of ip. A log entry is added only when a
// ticket number is given. New addresses are enriched when an Enricher is set.
func (s *Store) RecordLookup(ctx context.Context, ip, analyst, ticketNumber, notes string) (IPRecord, error) {
	key, err := NormalizeIP(ip)
	if err != nil {
		return IPRecord{}, err
	}
	analyst = strings.TrimSpace(analyst)
	if analyst == "" {
		return IPRecord{}, fmt.Errorf("%w: analyst is required", ErrInvalidInput)
	}
	ticketNumber = strings.TrimSpace(ticketNumber)

	geo := s.enrich(key)

	var out IPRecord
	err = s.update(ctx, func(doc *Document, now time.Time) error {
		rec := doc.record(key)
		rec.SearchCount++
		if now.After(rec.LastSearched) {
			rec.LastSearched = now
		}
		if ticketNumber != "" {
			rec.Investigations = append([]Investigation{{
				Timestamp:    now,
				Analyst:      analyst,
				TicketNumber: ticketNumber,
				Notes:        notes,
			}}, rec.Investigations...)
		}
		if rec.Geo == nil && geo != nil {
			rec.Geo = geo
		}
		out = rec.clone()
		return nil
	})
	if out.IP == "" {
		return IPRecord{}, err
	}

	s.recorder.LookupRecorded()
	s.logger.Trace("Recorded lookup", s.logger.Args("ip", key, "search_count", out.SearchCount))
	return out, err
}

func (s *Store) enrich(ip string) *GeoInfo {
	if s.enricher == nil {
		return nil
	}

	s.mu.RLock()
	rec, ok := s.doc.IPHistory[ip]
	known := ok && rec.Geo != nil
	s.mu.RUnlock()
	if known {
		return nil
	}

	geo, err := s.enricher.Lookup(ip)
	if err != nil {
		s.logger.Debug("Enrichment failed", s.logger.Args("ip", ip, "error", err))
		return nil
	}
	return geo
}

// UpdateTicketRelationship links ips to ticket, replacing the previous list.
// The creation time of an existing relationship is kept.
func (s *Store) UpdateTicketRelationship(ctx context.Context, ticket string, ips []string, notes string) (TicketRelationship, error) {
	ticket = strings.TrimSpace(ticket)
	if ticket == "" {
		return TicketRelationship{}, fmt.Errorf("%w: ticket number is required", ErrInvalidInput)
	}
	keys := make([]string, 0, len(ips))
	for _, ip := range ips {
		key, err := NormalizeIP(ip)
		if err != nil {
			return TicketRelationship{}, err
		}
		keys = append(keys, key)
	}
	keys = dedupe(keys)

	var out TicketRelationship
	err := s.update(ctx, func(doc *Document, now time.Time) error {
		rel, ok := doc.TicketRelationships[ticket]
		if !ok {
			rel = &TicketRelationship{CreatedAt: now}
			doc.TicketRelationships[ticket] = rel
		}
		rel.RelatedIPs = keys
		rel.LastUpdated = now
		rel.Notes = notes
		out = *rel
		return nil
	})
	if out.LastUpdated.IsZero() {
		return TicketRelationship{}, err
	}
	return out, err
}

// SetMonitored flags or unflags a known address for monitoring.
func (s *Store) SetMonitored(ctx context.Context, ip string, monitored bool) (IPRecord, error) {
	key, err := NormalizeIP(ip)
	if err != nil {
		return IPRecord{}, err
	}

	var out IPRecord
	err = s.update(ctx, func(doc *Document, _ time.Time) error {
		rec, ok := doc.IPHistory[key]
		if !ok {
			return fmt.Errorf("%w: %s has not been investigated", ErrInvalidInput, key)
		}
		rec.IsMonitored = monitored
		out = rec.clone()
		return nil
	})
	if out.IP == "" {
		return IPRecord{}, err
	}
	return out, err
}

// AddAlert subscribes email to activity of the given type on a known address.
// Subscribing the same email to the same type twice is a no-op.
func (s *Store) AddAlert(ctx context.Context, ip, email string, alertType AlertType) (IPRecord, error) {
	key, err := NormalizeIP(ip)
	if err != nil {
		return IPRecord{}, err
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return IPRecord{}, fmt.Errorf("%w: %q is not an email address", ErrInvalidInput, email)
	}
	if !alertType.Valid() {
		return IPRecord{}, fmt.Errorf("%w: unknown alert type %q", ErrInvalidInput, alertType)
	}

	var out IPRecord
	err = s.update(ctx, func(doc *Document, now time.Time) error {
		rec, ok := doc.IPHistory[key]
		if !ok {
			return fmt.Errorf("%w: %s has not been investigated", ErrInvalidInput, key)
		}
		for _, a := range rec.Alerts {
			if strings.EqualFold(a.Email, addr.Address) && a.Type == alertType {
				out = rec.clone()
				return nil
			}
		}
		rec.Alerts = append(rec.Alerts, Alert{
			Email:     addr.Address,
			Type:      alertType,
			Status:    AlertStatusActive,
			CreatedAt: now,
		})
		out = rec.clone()
		return nil
	})
	if out.IP == "" {
		return IPRecord{}, err
	}
	return out, err
}
