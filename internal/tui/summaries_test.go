package tui

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bmbranch/branchdesk/pkg/client"
	"github.com/bmbranch/branchdesk/pkg/domain"
)

var march2024 = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func TestSummariesTotalsFromServer(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"date":"2024-03-01","totalRuns":5,"totalRunsCompleted":4,"totalAmount":1000,"totalAmountCompleted":800}]`))
	}))
	defer srv.Close()

	m := newSummariesModel(client.New(srv.URL, nil), march2024)
	m.user = testUser
	m, cmd := m.reload()
	m, _ = m.Update(cmd())

	for _, want := range []string{"year=2024", "month=3", "branchId=7"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("expected query to contain %q, got %q", want, gotQuery)
		}
	}
	view := m.View()
	if !strings.Contains(view, "total runs 5") {
		t.Errorf("expected total runs 5, got:\n%s", view)
	}
	if !strings.Contains(view, "1000.00") {
		t.Errorf("expected total amount 1000.00, got:\n%s", view)
	}
	if !strings.Contains(view, "March 2024") {
		t.Errorf("expected period header, got:\n%s", view)
	}
}

func TestSummariesTimeoutKeepsSession(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	store, _ := newSignedInStore(t)
	c := client.New(srv.URL, store, client.WithTimeout(50*time.Millisecond))
	m := newSummariesModel(c, march2024)
	m, cmd := m.reload()
	m, _ = m.Update(cmd())

	if m.err != client.MsgTimeout {
		t.Errorf("expected timeout message, got %q", m.err)
	}
	if !strings.Contains(m.View(), client.MsgTimeout) {
		t.Errorf("expected timeout banner, got:\n%s", m.View())
	}
	if !store.IsAuthenticated() {
		t.Error("expected session kept after timeout")
	}
	select {
	case ev := <-c.AuthFailures():
		t.Errorf("expected no auth event, got %+v", ev)
	default:
	}
}

func TestSummariesMonthNavigation(t *testing.T) {
	tests := []struct {
		name      string
		start     time.Month
		key       string
		wantMonth int
	}{
		{"next", time.March, "l", 4},
		{"prev", time.March, "h", 2},
		{"wrap forward", time.December, "l", 1},
		{"wrap back", time.January, "h", 12},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := newFakeAPI()
			m := newSummariesModel(api, time.Date(2024, tc.start, 10, 0, 0, 0, 0, time.UTC))
			m, cmd := m.Update(key(tc.key))
			if cmd == nil {
				t.Fatal("expected reload")
			}
			cmd()
			q := api.lastQuery()
			if q.Month != tc.wantMonth || q.Year != 2024 {
				t.Errorf("expected 2024-%02d, got %d-%02d", tc.wantMonth, q.Year, q.Month)
			}
			if m.month != tc.wantMonth {
				t.Errorf("expected model month %d, got %d", tc.wantMonth, m.month)
			}
		})
	}
}

func TestSummariesYearToggle(t *testing.T) {
	m := newSummariesModel(newFakeAPI(), march2024)
	m, _ = m.Update(key("y"))
	if m.year != 2023 {
		t.Errorf("expected previous year, got %d", m.year)
	}
	m, _ = m.Update(key("y"))
	if m.year != 2024 {
		t.Errorf("expected current year, got %d", m.year)
	}
}

func TestSummariesDropsStaleResults(t *testing.T) {
	m := newSummariesModel(newFakeAPI(), march2024)
	m, _ = m.reload()
	stale := m.gen
	m, _ = m.reload()

	m, _ = m.Update(summariesLoadedMsg{gen: stale, summaries: []domain.RunSummary{{Date: "2024-02-01", TotalRuns: 9}}})
	if len(m.summaries) != 0 {
		t.Errorf("expected stale result dropped, got %d rows", len(m.summaries))
	}
	if !m.loading {
		t.Error("expected still loading")
	}
}

func TestSummariesClientFilter(t *testing.T) {
	api := newFakeAPI()
	m := newSummariesModel(api, march2024)
	m.user = testUser

	m, _ = m.Update(summaryFilterMsg{clientID: 3, name: "Acme"})
	_, cmd := m.reload()
	cmd()
	if q := api.lastQuery(); q.ClientID != 3 || q.BranchID != 7 {
		t.Errorf("expected client 3 branch 7, got %+v", q)
	}
	if !strings.Contains(m.View(), "Acme") {
		t.Errorf("expected client name in header, got:\n%s", m.View())
	}

	m, cmd = m.Update(key("c"))
	cmd()
	if q := api.lastQuery(); q.ClientID != 0 {
		t.Errorf("expected filter cleared, got %+v", q)
	}
}

func TestSummariesEnterOpensRuns(t *testing.T) {
	m := newSummariesModel(newFakeAPI(), march2024)
	m, _ = m.Update(summariesLoadedMsg{gen: m.gen, summaries: []domain.RunSummary{
		{Date: "2024-03-01T00:00:00.000Z", TotalRuns: 2},
		{Date: "2024-03-02T00:00:00.000Z", TotalRuns: 3},
	}})
	m, _ = m.Update(key("j"))
	_, cmd := m.Update(key("enter"))
	if cmd == nil {
		t.Fatal("expected open command")
	}
	msg, ok := cmd().(openRunsMsg)
	if !ok || msg.day != "2024-03-02" {
		t.Errorf("expected openRunsMsg for 2024-03-02, got %#v", msg)
	}
}

func TestSummariesGraphMode(t *testing.T) {
	m := newSummariesModel(newFakeAPI(), march2024)
	m.width = 60
	m, _ = m.Update(summariesLoadedMsg{gen: m.gen, summaries: []domain.RunSummary{
		{Date: "2024-03-01", TotalRuns: 4, TotalRunsCompleted: 2},
	}})
	m, _ = m.Update(key("g"))
	view := m.View()
	if !strings.Contains(view, "█") || !strings.Contains(view, "Mar 01") {
		t.Errorf("expected bar graph, got:\n%s", view)
	}
}

func TestSummariesEmptyMonth(t *testing.T) {
	m := newSummariesModel(newFakeAPI(), march2024)
	m, _ = m.Update(summariesLoadedMsg{gen: m.gen})
	if !strings.Contains(m.View(), "no runs this month") {
		t.Errorf("expected empty message, got:\n%s", m.View())
	}
	if !strings.Contains(m.View(), "total amount 0.00") {
		t.Errorf("expected zero totals, got:\n%s", m.View())
	}
}
