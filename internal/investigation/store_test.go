package investigation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_InitializesEmptyDocumentOnce(t *testing.T) {
	adapter := &memAdapter{}
	clock := newTestClock()

	openTestStore(t, adapter, clock)
	body, version, saves := adapter.snapshot()
	require.Equal(t, int64(1), version)
	require.Equal(t, 1, saves)

	var doc Document
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, CurrentSchemaVersion, doc.SchemaVersion)

	openTestStore(t, adapter, clock)
	_, version, saves = adapter.snapshot()
	assert.Equal(t, int64(1), version, "second open must not rewrite the document")
	assert.Equal(t, 1, saves)
}

func TestOpen_RequiresAdapterAndLogger(t *testing.T) {
	_, err := Open(context.Background(), nil, testLogger())
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Open(context.Background(), &memAdapter{}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecordAssessment_SingleFreshScore(t *testing.T) {
	s := openTestStore(t, &memAdapter{}, newTestClock())

	rec, err := s.RecordAssessment(context.Background(), "203.0.113.7", submission("alice", 80))
	require.NoError(t, err)

	assert.Equal(t, 80, rec.CurrentRiskScore)
	assert.Equal(t, 80, rec.LatestScore)
	assert.Len(t, rec.RiskAssessments, 1)
	assert.Len(t, rec.Tags, 1)
	assert.Equal(t, "alice", rec.Tags[0].CreatedBy)
}

func TestRecordAssessment_TimeDecayAcrossHistory(t *testing.T) {
	clock := newTestClock()
	s := openTestStore(t, &memAdapter{}, clock)
	ctx := context.Background()

	_, err := s.RecordAssessment(ctx, "198.51.100.4", submission("alice", 0))
	require.NoError(t, err)

	clock.Advance(40 * day)
	rec, err := s.RecordAssessment(ctx, "198.51.100.4", submission("bob", 100))
	require.NoError(t, err)

	assert.Equal(t, 83, rec.CurrentRiskScore)
	assert.Equal(t, 100, rec.LatestScore)
	assert.Equal(t, "bob", rec.RiskAssessments[0].Analyst, "newest first")
	assert.Equal(t, "alice", rec.RiskAssessments[1].Analyst)
	assert.Equal(t, "bob", rec.Tags[0].CreatedBy)
}

func TestRecordAssessment_ClientAndBehaviorRollups(t *testing.T) {
	s := openTestStore(t, &memAdapter{}, newTestClock())
	ctx := context.Background()

	for _, behaviors := range [][]string{
		{"Port_Scan"},
		{"Port_Scan", "SQL_Injection"},
		{},
	} {
		_, err := s.RecordAssessment(ctx, "192.0.2.10", Submission{
			Analyst:         "alice",
			Client:          "HANZA",
			ClientImpact:    ImpactCritical,
			Behaviors:       behaviors,
			CalculatedScore: score(50),
		})
		require.NoError(t, err)
	}

	behaviors := s.BehaviorStats()
	clients := s.ClientStats()
	assert.Equal(t, 2, behaviors["Port_Scan"].Occurrences)
	assert.Equal(t, 2, behaviors["Port_Scan"].ByClient["HANZA"])
	assert.Equal(t, 1, behaviors["SQL_Injection"].Occurrences)
	assert.Equal(t, 3, clients["HANZA"].TotalAssessments)
	assert.Equal(t, 3, clients["HANZA"].ImpactLevels[ImpactCritical])
	assert.Equal(t, 2, clients["HANZA"].CommonBehaviors["Port_Scan"])
}

func TestGetRiskTrend_NarrowWindow(t *testing.T) {
	clock := newTestClock()
	now := clock.Now()
	s := openTestStore(t, &memAdapter{}, clock)
	ctx := context.Background()

	for _, age := range []int{40, 10, 1} {
		clock.Set(now.Add(-time.Duration(age) * day))
		_, err := s.RecordAssessment(ctx, "192.0.2.55", submission("alice", age))
		require.NoError(t, err)
	}
	clock.Set(now)

	trend, err := s.GetRiskTrend("192.0.2.55", 7)
	require.NoError(t, err)
	require.Len(t, trend, 1)
	assert.Equal(t, 1, trend[0].RawScore)

	all, err := s.GetRiskTrend("192.0.2.55", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.True(t, all[0].Timestamp.Before(all[2].Timestamp), "oldest first")
}

func TestGetIPAnalytics_UnknownIPReturnsNoData(t *testing.T) {
	s := openTestStore(t, &memAdapter{}, newTestClock())

	got, err := s.GetIPAnalytics("10.9.8.7")
	require.NoError(t, err)
	assert.False(t, got.HasData)
	assert.Equal(t, NoData("10.9.8.7"), got)
	assert.Nil(t, got.LastAssessment)
}

func TestGetIPAnalytics_Composition(t *testing.T) {
	clock := newTestClock()
	s := openTestStore(t, &memAdapter{}, clock)
	ctx := context.Background()

	_, err := s.RecordAssessment(ctx, "192.0.2.1", Submission{
		Analyst: "alice", CalculatedScore: score(20), Behaviors: []string{"Port_Scan"}, ClientImpact: ImpactLow,
	})
	require.NoError(t, err)
	clock.Advance(2 * day)
	_, err = s.RecordAssessment(ctx, "192.0.2.1", Submission{
		Analyst: "bob", CalculatedScore: score(90), Behaviors: []string{"C2_Communication"}, ClientImpact: ImpactHigh,
	})
	require.NoError(t, err)

	got, err := s.GetIPAnalytics("192.0.2.1")
	require.NoError(t, err)
	assert.True(t, got.HasData)
	assert.Equal(t, 2, got.AssessmentCount)
	assert.Equal(t, 90, got.LatestScore)
	// (90*1.0 + 20*0.7) / 1.7 = 61.18
	assert.Equal(t, 61, got.CurrentRiskScore)
	require.NotNil(t, got.LastAssessment)
	assert.Equal(t, "bob", got.LastAssessment.Analyst)
	assert.Len(t, got.RiskTrend, 2)

	require.Len(t, got.BehaviorHistory, 2)
	assert.Equal(t, []string{"Port_Scan"}, got.BehaviorHistory[0].Behaviors, "chronological order")
	assert.Equal(t, ImpactLow, got.BehaviorHistory[0].Impact)
	assert.Equal(t, 20, got.BehaviorHistory[0].RawScore)
	assert.Equal(t, 20, got.BehaviorHistory[0].WeightedScore)
	assert.Equal(t, 61, got.BehaviorHistory[1].WeightedScore)
}

func TestRecordAssessment_InvalidInputLeavesStoreUntouched(t *testing.T) {
	adapter := &memAdapter{}
	s := openTestStore(t, adapter, newTestClock())
	ctx := context.Background()
	_, _, savesBefore := adapter.snapshot()

	cases := []struct {
		name string
		ip   string
		sub  Submission
	}{
		{"empty ip", "", submission("alice", 10)},
		{"blank ip", "   ", submission("alice", 10)},
		{"malformed ip", "999.1.1.1", submission("alice", 10)},
		{"hostname", "example.com", submission("alice", 10)},
		{"missing analyst", "192.0.2.1", submission("", 10)},
		{"unknown impact", "192.0.2.1", Submission{Analyst: "a", ClientImpact: "Apocalyptic"}},
		{"unknown infrastructure", "192.0.2.1", Submission{Analyst: "a", InfrastructureType: "Satellite"}},
		{"bad details", "192.0.2.1", Submission{Analyst: "a", Details: json.RawMessage(`{nope`)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.RecordAssessment(ctx, tc.ip, tc.sub)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, _, savesAfter := adapter.snapshot()
	assert.Equal(t, savesBefore, savesAfter)
	assert.Equal(t, 0, s.Len())
}

func TestRecordAssessment_MissingScoreIsZero(t *testing.T) {
	s := openTestStore(t, &memAdapter{}, newTestClock())

	rec, err := s.RecordAssessment(context.Background(), "192.0.2.8", Submission{Analyst: "alice"})
	require.NoError(t, err)

	require.NotNil(t, rec.RiskAssessments[0].CalculatedScore)
	assert.Equal(t, 0, *rec.RiskAssessments[0].CalculatedScore)
	assert.Equal(t, 0, rec.LatestScore)
	assert.Equal(t, 0, rec.CurrentRiskScore)
}

func TestRecordAssessment_ClampsSubmittedScore(t *testing.T) {
	s := openTestStore(t, &memAdapter{}, newTestClock())

	rec, err := s.RecordAssessment(context.Background(), "192.0.2.9", submission("alice", 140))
	require.NoError(t, err)
	assert.Equal(t, 100, rec.LatestScore)
	assert.Equal(t, 100, rec.CurrentRiskScore)
}

func TestRecordAssessment_CanonicalKey(t *testing.T) {
	s := openTestStore(t, &memAdapter{}, newTestClock())
	ctx := context.Background()

	_, err := s.RecordAssessment(ctx, "2001:DB8::1", submission("alice", 10))
	require.NoError(t, err)
	_, err = s.RecordAssessment(ctx, " 2001:db8:0::1 ", submission("alice", 30))
	require.NoError(t, err)
	_, err = s.RecordAssessment(ctx, "::ffff:192.0.2.44", submission("alice", 30))
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	rec, ok := s.Record("2001:db8::1")
	require.True(t, ok)
	assert.Len(t, rec.RiskAssessments, 2)
	_, ok = s.Record("192.0.2.44")
	assert.True(t, ok)
}

func TestRecordAssessment_PrunesExpiredTrendPoints(t *testing.T) {
	clock := newTestClock()
	s := openTestStore(t, &memAdapter{}, clock)
	ctx := context.Background()

	_, err := s.RecordAssessment(ctx, "192.0.2.20", submission("alice", 70))
	require.NoError(t, err)

	// Without a new ingestion the expired point is still stored.
	clock.Advance(91 * day)
	s.mu.RLock()
	stored := len(s.doc.Analytics.RiskTrends["192.0.2.20"])
	s.mu.RUnlock()
	assert.Equal(t, 1, stored)

	_, err = s.RecordAssessment(ctx, "192.0.2.20", submission("alice", 10))
	require.NoError(t, err)

	s.mu.RLock()
	series := s.doc.Analytics.RiskTrends["192.0.2.20"]
	s.mu.RUnlock()
	require.Len(t, series, 1)
	assert.Equal(t, 10, series[0].RawScore)

	rec, _ := s.Record("192.0.2.20")
	assert.Len(t, rec.RiskAssessments, 2, "assessments are never pruned")
}

func TestRecordAssessment_PersistenceFailureKeepsChangeInMemory(t *testing.T) {
	adapter := &memAdapter{}
	s := openTestStore(t, adapter, newTestClock())
	ctx := context.Background()

	adapter.setSaveErr(errBackendDown)
	rec, err := s.RecordAssessment(ctx, "192.0.2.30", submission("alice", 40))
	require.ErrorIs(t, err, ErrPersistenceUnavailable)
	assert.Equal(t, 40, rec.CurrentRiskScore)
	assert.True(t, s.Dirty())

	_, ok := s.Record("192.0.2.30")
	assert.True(t, ok)

	require.Error(t, s.Flush(ctx))

	adapter.setSaveErr(nil)
	require.NoError(t, s.Flush(ctx))
	assert.False(t, s.Dirty())

	reopened := openTestStore(t, adapter, newTestClock())
	_, ok = reopened.Record("192.0.2.30")
	assert.True(t, ok)
}

func TestFlush_ConflictAdoptsStoredDocument(t *testing.T) {
	adapter := &memAdapter{}
	clock := newTestClock()
	s := openTestStore(t, adapter, clock)
	other := openTestStore(t, adapter, clock)
	ctx := context.Background()

	adapter.setSaveErr(errBackendDown)
	_, err := s.RecordAssessment(ctx, "192.0.2.31", submission("alice", 40))
	require.ErrorIs(t, err, ErrPersistenceUnavailable)

	adapter.setSaveErr(nil)
	_, err = other.RecordAssessment(ctx, "192.0.2.32", submission("bob", 60))
	require.NoError(t, err)

	require.ErrorIs(t, s.Flush(ctx), ErrPersistenceUnavailable)
	assert.False(t, s.Dirty())
	_, ok := s.Record("192.0.2.32")
	assert.True(t, ok)
	_, ok = s.Record("192.0.2.31")
	assert.False(t, ok)
	assert.NoError(t, s.Flush(ctx))
}

func TestOpen_LoadFailureFallsBackToEmptyDocument(t *testing.T) {
	adapter := &memAdapter{loadErr: errBackendDown}
	s := openTestStore(t, adapter, newTestClock())

	assert.ErrorIs(t, s.Recovery(), ErrPersistenceUnavailable)
	assert.Equal(t, 0, s.Len())

	got, err := s.GetIPAnalytics("192.0.2.1")
	require.NoError(t, err)
	assert.False(t, got.HasData)
}

func TestOpen_CorruptDocumentFallsBackAndIsOverwritten(t *testing.T) {
	adapter := &memAdapter{body: []byte(`{"ipHistory": [1,2`), version: 7}
	s := openTestStore(t, adapter, newTestClock())

	assert.ErrorIs(t, s.Recovery(), ErrCorruptDocument)
	_, version, saves := adapter.snapshot()
	assert.Equal(t, int64(7), version, "corrupt document is kept until the next write")
	assert.Equal(t, 0, saves)

	_, err := s.RecordAssessment(context.Background(), "192.0.2.3", submission("alice", 5))
	require.NoError(t, err)
	_, version, _ = adapter.snapshot()
	assert.Equal(t, int64(8), version)
}

func TestOpen_NullRecordIsCorrupt(t *testing.T) {
	adapter := &memAdapter{body: []byte(`{"schemaVersion":1,"ipHistory":{"192.0.2.1":null}}`), version: 1}
	s := openTestStore(t, adapter, newTestClock())
	assert.ErrorIs(t, s.Recovery(), ErrCorruptDocument)
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	adapter := &memAdapter{body: []byte(`{"schemaVersion": 99, "ipHistory": {}}`), version: 3}
	s := openTestStore(t, adapter, newTestClock())

	err := s.Recovery()
	assert.ErrorIs(t, err, ErrCorruptDocument)
	assert.ErrorIs(t, err, ErrUnsupportedSchema)
}

func TestStore_ConcurrentWritersReplayOnConflict(t *testing.T) {
	adapter := &memAdapter{}
	clock := newTestClock()
	ctx := context.Background()

	first := openTestStore(t, adapter, clock)
	second := openTestStore(t, adapter, clock)

	_, err := first.RecordAssessment(ctx, "192.0.2.100", submission("alice", 60))
	require.NoError(t, err)

	// second still holds version 1 and must reload before writing.
	_, err = second.RecordAssessment(ctx, "192.0.2.101", submission("bob", 20))
	require.NoError(t, err)

	reopened := openTestStore(t, adapter, clock)
	_, ok := reopened.Record("192.0.2.100")
	assert.True(t, ok, "first writer's change survives")
	_, ok = reopened.Record("192.0.2.101")
	assert.True(t, ok)
}

func TestStore_SaveLoadRoundTripIsByteStable(t *testing.T) {
	adapter := &memAdapter{}
	clock := newTestClock()
	s := openTestStore(t, adapter, clock)
	ctx := context.Background()

	_, err := s.RecordLookup(ctx, "192.0.2.77", "alice", "SOCSI-1", "first look")
	require.NoError(t, err)
	_, err = s.RecordAssessment(ctx, "192.0.2.77", Submission{
		Analyst:            "alice",
		TicketNumber:       "SOCSI-1",
		Client:             "LHV",
		Behaviors:          []string{"Port_Scan", "Port_Scan", "API_Enumeration"},
		ClientImpact:       ImpactMedium,
		ResponseActions:    []string{"Blocked_Firewall"},
		InfrastructureType: InfraVPN,
		CalculatedScore:    score(64),
		Details:            json.RawMessage(`{ "behaviorWeight": 40, "infraModifier": 1.2 }`),
	})
	require.NoError(t, err)
	_, err = s.UpdateTicketRelationship(ctx, "SOCSI-1", []string{"192.0.2.77"}, "")
	require.NoError(t, err)

	stored, _, _ := adapter.snapshot()
	reopened := openTestStore(t, adapter, clock)
	exported, err := reopened.Export()
	require.NoError(t, err)
	assert.Equal(t, string(stored), string(exported))
}

func TestRecordLookup(t *testing.T) {
	clock := newTestClock()
	s := openTestStore(t, &memAdapter{}, clock)
	ctx := context.Background()

	rec, err := s.RecordLookup(ctx, "192.0.2.60", "alice", "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.SearchCount)
	assert.Empty(t, rec.Investigations)
	assert.Equal(t, clock.Now(), rec.LastSearched)

	clock.Advance(time.Hour)
	rec, err = s.RecordLookup(ctx, "192.0.2.60", "bob", "SOCSI-42", "escalated")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.SearchCount)
	require.Len(t, rec.Investigations, 1)
	assert.Equal(t, "SOCSI-42", rec.Investigations[0].TicketNumber)
	latest := rec.LastSearched

	clock.Advance(-3 * time.Hour)
	rec, err = s.RecordLookup(ctx, "192.0.2.60", "carol", "SOCSI-43", "")
	require.NoError(t, err)
	assert.Equal(t, latest, rec.LastSearched, "lastSearched never moves backwards")
	assert.Equal(t, "SOCSI-43", rec.Investigations[0].TicketNumber, "newest first")

	_, err = s.RecordLookup(ctx, "192.0.2.60", " ", "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

type stubEnricher struct {
	calls int
	err   error
}

func (e *stubEnricher) Lookup(ip string) (*GeoInfo, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return &GeoInfo{Country: "EE", ASN: 3249, ASNOrg: "Telia"}, nil
}

func TestRecordLookup_EnrichesOnce(t *testing.T) {
	enricher := &stubEnricher{}
	s := openTestStore(t, &memAdapter{}, newTestClock(), WithEnricher(enricher))
	ctx := context.Background()

	rec, err := s.RecordLookup(ctx, "192.0.2.61", "alice", "", "")
	require.NoError(t, err)
	require.NotNil(t, rec.Geo)
	assert.Equal(t, "EE", rec.Geo.Country)

	_, err = s.RecordLookup(ctx, "192.0.2.61", "alice", "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, enricher.calls)
}

func TestRecordLookup_EnrichmentFailureIsIgnored(t *testing.T) {
	s := openTestStore(t, &memAdapter{}, newTestClock(), WithEnricher(&stubEnricher{err: errors.New("no db")}))

	rec, err := s.RecordLookup(context.Background(), "192.0.2.62", "alice", "", "")
	require.NoError(t, err)
	assert.Nil(t, rec.Geo)
}

func TestUpdateTicketRelationship_KeepsCreatedAt(t *testing.T) {
	clock := newTestClock()
	s := openTestStore(t, &memAdapter{}, clock)
	ctx := context.Background()

	first, err := s.UpdateTicketRelationship(ctx, "SOCSI-7", []string{"192.0.2.1", "192.0.2.1"}, "initial")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.1"}, first.RelatedIPs)

	clock.Advance(time.Hour)
	second, err := s.UpdateTicketRelationship(ctx, "SOCSI-7", []string{"192.0.2.1", "192.0.2.2"}, "more")
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.LastUpdated.After(first.LastUpdated))
	assert.Equal(t, "more", second.Notes)

	_, err = s.UpdateTicketRelationship(ctx, "", nil, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.UpdateTicketRelationship(ctx, "SOCSI-8", []string{"not-an-ip"}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSetMonitored(t *testing.T) {
	s := openTestStore(t, &memAdapter{}, newTestClock())
	ctx := context.Background()

	_, err := s.SetMonitored(ctx, "192.0.2.70", true)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.RecordLookup(ctx, "192.0.2.70", "alice", "", "")
	require.NoError(t, err)
	rec, err := s.SetMonitored(ctx, "192.0.2.70", true)
	require.NoError(t, err)
	assert.True(t, rec.IsMonitored)
	assert.Equal(t, []string{"192.0.2.70"}, s.MonitoredIPs())

	_, err = s.SetMonitored(ctx, "192.0.2.70", false)
	require.NoError(t, err)
	assert.Empty(t, s.MonitoredIPs())
}

func TestAddAlert(t *testing.T) {
	adapter := &memAdapter{}
	clock := newTestClock()
	s := openTestStore(t, adapter, clock)
	ctx := context.Background()

	_, err := s.AddAlert(ctx, "192.0.2.71", "soc@example.com", AlertNewTag)
	assert.ErrorIs(t, err, ErrInvalidInput, "unknown address")

	_, err = s.RecordLookup(ctx, "192.0.2.71", "alice", "", "")
	require.NoError(t, err)

	tests := []struct {
		name  string
		email string
		typ   AlertType
	}{
		{"bad email", "not-an-address", AlertNewTag},
		{"empty email", "", AlertNewTag},
		{"unknown type", "soc@example.com", AlertType("daily_digest")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddAlert(ctx, "192.0.2.71", tt.email, tt.typ)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	rec, err := s.AddAlert(ctx, "192.0.2.71", " SOC <soc@example.com> ", AlertNewTag)
	require.NoError(t, err)
	require.Len(t, rec.Alerts, 1)
	assert.Equal(t, Alert{
		Email:     "soc@example.com",
		Type:      AlertNewTag,
		Status:    AlertStatusActive,
		CreatedAt: clock.Now(),
	}, rec.Alerts[0])

	rec, err = s.AddAlert(ctx, "192.0.2.71", "SOC@example.com", AlertNewTag)
	require.NoError(t, err)
	assert.Len(t, rec.Alerts, 1, "same subscription twice")

	_, err = s.AddAlert(ctx, "192.0.2.71", "soc@example.com", AlertNewSearch)
	require.NoError(t, err)

	reopened := openTestStore(t, adapter, clock)
	stored, ok := reopened.Record("192.0.2.71")
	require.True(t, ok)
	assert.Len(t, stored.Alerts, 2)
}

func TestOverview(t *testing.T) {
	clock := newTestClock()
	s := openTestStore(t, &memAdapter{}, clock)
	ctx := context.Background()

	for i, ip := range []string{"192.0.2.1", "192.0.2.2", "192.0.2.2", "192.0.2.3", "192.0.2.3", "192.0.2.3"} {
		clock.Advance(time.Minute)
		_, err := s.RecordLookup(ctx, ip, "alice", "", "")
		require.NoError(t, err, "lookup %d", i)
	}
	_, err := s.RecordAssessment(ctx, "192.0.2.4", submission("alice", 10))
	require.NoError(t, err)
	_, err = s.UpdateTicketRelationship(ctx, "SOCSI-1", []string{"192.0.2.1"}, "")
	require.NoError(t, err)

	ov := s.Overview(2)
	assert.Equal(t, 4, ov.TotalIPs)
	assert.Equal(t, 6, ov.TotalSearches)
	assert.Equal(t, 1, ov.TotalAssessments)
	assert.Equal(t, 1, ov.ActiveTickets)
	require.Len(t, ov.MostSearched, 2)
	assert.Equal(t, SearchCount{IP: "192.0.2.3", SearchCount: 3}, ov.MostSearched[0])
	assert.Equal(t, SearchCount{IP: "192.0.2.2", SearchCount: 2}, ov.MostSearched[1])
	require.Len(t, ov.RecentInvestigations, 2)
	assert.Equal(t, "192.0.2.3", ov.RecentInvestigations[0].IP)
}
