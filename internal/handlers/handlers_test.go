package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/handlers"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/league"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/settler"
	"github.com/XavierBriggs/fortuna/services/spread-settler/internal/store"
	"github.com/XavierBriggs/fortuna/services/spread-settler/pkg/models"
	"github.com/go-chi/chi/v5"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

type fakeRunner struct {
	calls  int
	report *settler.CycleReport
	err    error
}

func (f *fakeRunner) RunOnce(ctx context.Context) (*settler.CycleReport, error) {
	f.calls++
	return f.report, f.err
}

func (f *fakeRunner) LastReport() *settler.CycleReport {
	return f.report
}

type downStore struct {
	store.Store
}

func (downStore) Ping(ctx context.Context) error {
	return context.DeadlineExceeded
}

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newRouter(t *testing.T, st store.Store, runner handlers.Runner) http.Handler {
	t.Helper()
	return newRouterWith(t, handlers.Config{Store: st, Runner: runner})
}

func newRouterWith(t *testing.T, cfg handlers.Config) http.Handler {
	t.Helper()

	l, err := league.Load()
	if err != nil {
		t.Fatalf("load league: %v", err)
	}
	cfg.League = l
	if cfg.Season == nil {
		cfg.Season = func() int { return 2025 }
	}

	h := handlers.NewHandler(cfg)
	r := chi.NewRouter()
	h.Mount(r)
	return r
}

func do(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	w := do(t, newRouter(t, newStore(t), nil), "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)
	if response["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %v", response["status"])
	}
}

func TestHealthCheck_DatabaseUnhealthy(t *testing.T) {
	w := do(t, newRouter(t, downStore{}, nil), "GET", "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestSettleSpread(t *testing.T) {
	router := newRouter(t, newStore(t), nil)

	tests := []struct {
		name        string
		body        interface{}
		wantStatus  int
		wantOutcome string
		wantFav     string
		wantField   string
	}{
		{
			name:        "home favorite covers",
			body:        map[string]interface{}{"actual_margin": 10, "spread": -6.1, "home_team": "HOU", "away_team": "BUF"},
			wantStatus:  http.StatusOK,
			wantOutcome: "FAVORITE_COVERED",
			wantFav:     "HOU by 6.1",
		},
		{
			name:        "alias is canonicalized",
			body:        map[string]interface{}{"actual_margin": -3, "spread": 3, "home_team": "wsh", "away_team": "PHI"},
			wantStatus:  http.StatusOK,
			wantOutcome: "PUSH",
			wantFav:     "PHI by 3",
		},
		{
			name:        "away favorite fails",
			body:        map[string]interface{}{"actual_margin": -2, "spread": 3.5},
			wantStatus:  http.StatusOK,
			wantOutcome: "FAVORITE_FAILED",
		},
		{
			name:       "missing spread",
			body:       map[string]interface{}{"actual_margin": 3},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       "{",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, "POST", "/api/v1/settle/spread", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp handlers.SpreadResponse
			decode(t, w, &resp)
			if string(resp.Outcome) != tt.wantOutcome {
				t.Errorf("outcome = %s, want %s", resp.Outcome, tt.wantOutcome)
			}
			if tt.wantFav == "" {
				if resp.Favorite != nil {
					t.Errorf("expected no favorite, got %+v", resp.Favorite)
				}
				return
			}
			if resp.Favorite == nil || resp.Favorite.Display != tt.wantFav {
				t.Errorf("favorite = %+v, want %s", resp.Favorite, tt.wantFav)
			}
		})
	}
}

func TestSettleTotal(t *testing.T) {
	router := newRouter(t, newStore(t), nil)

	w := do(t, router, "POST", "/api/v1/settle/total", map[string]float64{"actual_total": 48, "total_line": 47.5})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp handlers.TotalResponse
	decode(t, w, &resp)
	if resp.Outcome != "OVER" {
		t.Errorf("outcome = %s, want OVER", resp.Outcome)
	}

	w = do(t, router, "POST", "/api/v1/settle/total", map[string]float64{"actual_total": 48})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing line: status = %d, want 400", w.Code)
	}
}

func TestSettleGame(t *testing.T) {
	router := newRouter(t, newStore(t), nil)

	body := map[string]interface{}{
		"home_team":  "HOU",
		"away_team":  "BUF",
		"home_score": 24,
		"away_score": 21,
		"spreads": []map[string]interface{}{
			{"source": "VEGAS", "value": -3},
			{"source": "MODEL_A", "value": -1.5},
		},
		"totals": []map[string]interface{}{{"source": "VEGAS", "value": 44.5}},
	}

	w := do(t, router, "POST", "/api/v1/settle/game", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp handlers.GameResponse
	decode(t, w, &resp)
	if resp.Winner != "HOU" {
		t.Errorf("winner = %s, want HOU", resp.Winner)
	}
	if len(resp.Settlement.Spreads) != 2 {
		t.Fatalf("expected 2 settled spreads, got %d", len(resp.Settlement.Spreads))
	}
	if resp.Settlement.Spreads[0].Outcome != "PUSH" || resp.Settlement.Spreads[1].Outcome != "FAVORITE_COVERED" {
		t.Errorf("spreads = %+v", resp.Settlement.Spreads)
	}
	if resp.Settlement.Totals[0].Outcome != "OVER" {
		t.Errorf("total = %s, want OVER", resp.Settlement.Totals[0].Outcome)
	}
	if resp.HeadToHead != "AI" {
		t.Errorf("head to head = %s, want AI", resp.HeadToHead)
	}
	if len(resp.Favorites) != 2 || resp.Favorites[0].Display != "HOU by 3" {
		t.Errorf("favorites = %+v", resp.Favorites)
	}
}

func TestSettleGame_InvalidInput(t *testing.T) {
	router := newRouter(t, newStore(t), nil)

	tests := []struct {
		name      string
		body      map[string]interface{}
		wantField string
	}{
		{
			name:      "missing score",
			body:      map[string]interface{}{"home_team": "HOU", "away_team": "BUF", "home_score": 24},
			wantField: "away_score",
		},
		{
			name:      "negative score",
			body:      map[string]interface{}{"home_team": "HOU", "away_team": "BUF", "home_score": -1, "away_score": 3},
			wantField: "home_score",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, "POST", "/api/v1/settle/game", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			var resp handlers.ErrorResponse
			decode(t, w, &resp)
			if resp.Field != tt.wantField {
				t.Errorf("field = %q, want %q", resp.Field, tt.wantField)
			}
		})
	}
}

func TestFavorite(t *testing.T) {
	router := newRouter(t, newStore(t), nil)

	tests := []struct {
		query      string
		wantStatus int
		wantTeam   string
		wantPickEm bool
	}{
		{query: "spread=-6.1&home=HOU&away=BUF", wantStatus: http.StatusOK, wantTeam: "HOU"},
		{query: "spread=2.5&home=HOU&away=BUF", wantStatus: http.StatusOK, wantTeam: "BUF"},
		{query: "spread=0&home=HOU&away=BUF", wantStatus: http.StatusOK, wantTeam: "BUF", wantPickEm: true},
		{query: "spread=NaN&home=HOU&away=BUF", wantStatus: http.StatusBadRequest},
		{query: "spread=abc&home=HOU&away=BUF", wantStatus: http.StatusBadRequest},
		{query: "spread=-3", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(t, router, "GET", "/api/v1/favorite?"+tt.query, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp handlers.FavoriteResponse
			decode(t, w, &resp)
			if resp.Team != tt.wantTeam || resp.PickEm != tt.wantPickEm {
				t.Errorf("favorite = %+v", resp)
			}
		})
	}
}

func seedFinalGame(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()

	games := []models.Game{
		{GameID: "2025_01_LAR_HOU", Season: 2025, Week: 1, GameDate: "2025-09-07", HomeTeam: "HOU", AwayTeam: "LAR",
			HomeScore: intPtr(9), AwayScore: intPtr(14), SpreadLine: floatPtr(-2.5), ClosingSpread: floatPtr(-3), TotalLine: floatPtr(44.5)},
		{GameID: "2025_02_KC_PHI", Season: 2025, Week: 2, GameDate: "2025-09-14", HomeTeam: "PHI", AwayTeam: "KC",
			SpreadLine: floatPtr(-1.5)},
	}
	for i := range games {
		if err := st.UpsertGame(ctx, &games[i]); err != nil {
			t.Fatalf("seed game: %v", err)
		}
	}

	if _, err := st.SavePredictions(ctx, []models.Prediction{
		{GameID: "2025_01_LAR_HOU", Season: 2025, Week: 1, HomeTeam: "HOU", AwayTeam: "LAR",
			PredictedWinner: "LAR", AISpread: floatPtr(2), PredictedMargin: floatPtr(-2)},
	}); err != nil {
		t.Fatalf("seed prediction: %v", err)
	}
}

func TestGameSettlement(t *testing.T) {
	st := newStore(t)
	seedFinalGame(t, st)
	router := newRouter(t, st, nil)

	w := do(t, router, "GET", "/api/v1/games/2025_01_LAR_HOU/settlement", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		GameID     string                `json:"game_id"`
		Settlement handlers.GameResponse `json:"settlement"`
	}
	decode(t, w, &resp)

	s := resp.Settlement
	if s.Winner != "LAR" || s.Settlement.Margin != -5 {
		t.Errorf("winner %s margin %d, want LAR -5", s.Winner, s.Settlement.Margin)
	}
	if len(s.Settlement.Spreads) != 2 {
		t.Fatalf("expected Vegas and AI spreads, got %+v", s.Settlement.Spreads)
	}
	vegas, ai := s.Settlement.Spreads[0], s.Settlement.Spreads[1]
	if vegas.Line.Value != -3 || vegas.Outcome != "FAVORITE_FAILED" {
		t.Errorf("vegas = %+v, want closing -3 failed", vegas)
	}
	if ai.Line.Value != 2 || ai.Outcome != "FAVORITE_COVERED" {
		t.Errorf("ai = %+v, want +2 covered", ai)
	}
	if s.HeadToHead != "AI" {
		t.Errorf("head to head = %s, want AI", s.HeadToHead)
	}

	if w := do(t, router, "GET", "/api/v1/games/2025_02_KC_PHI/settlement", nil); w.Code != http.StatusConflict {
		t.Errorf("scheduled game: status = %d, want 409", w.Code)
	}
	if w := do(t, router, "GET", "/api/v1/games/nope/settlement", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown game: status = %d, want 404", w.Code)
	}
}

func TestUpdateResultsAndStats(t *testing.T) {
	st := newStore(t)
	seedFinalGame(t, st)

	s := settler.New(settler.Config{Store: st})
	router := newRouter(t, st, s)

	w := do(t, router, "POST", "/api/v1/ml/update-results", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update-results status = %d: %s", w.Code, w.Body.String())
	}
	var update map[string]interface{}
	decode(t, w, &update)
	if update["updated"] != float64(1) {
		t.Errorf("updated = %v, want 1", update["updated"])
	}

	w = do(t, router, "GET", "/api/v1/ml/season-ai-vs-vegas/2025", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("season-ai-vs-vegas status = %d", w.Code)
	}
	var h2h models.SeasonHeadToHead
	decode(t, w, &h2h)
	if h2h.AIWins != 1 || h2h.TotalGames != 1 || h2h.AIPercentage != 100 {
		t.Errorf("h2h = %+v", h2h)
	}

	w = do(t, router, "GET", "/api/v1/ml/performance-stats?season=2025&week=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("performance-stats status = %d", w.Code)
	}
	var stats models.PerformanceStats
	decode(t, w, &stats)
	if stats.Overall.TotalGames != 1 || stats.Overall.CorrectPredictions != 1 {
		t.Errorf("overall = %+v", stats.Overall)
	}
	if stats.Overall.AvgMarginError != 3 {
		t.Errorf("AvgMarginError = %v, want 3", stats.Overall.AvgMarginError)
	}

	if w := do(t, router, "GET", "/api/v1/ml/season-ai-vs-vegas/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad season: status = %d, want 400", w.Code)
	}
}

func TestUpdateResults_Errors(t *testing.T) {
	st := newStore(t)

	if w := do(t, newRouter(t, st, nil), "POST", "/api/v1/ml/update-results", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("no runner: status = %d, want 503", w.Code)
	}

	runner := &fakeRunner{err: errors.New("boom")}
	if w := do(t, newRouter(t, st, runner), "POST", "/api/v1/ml/update-results", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("failing runner: status = %d, want 500", w.Code)
	}
	if runner.calls != 1 {
		t.Errorf("runner calls = %d, want 1", runner.calls)
	}
}

func TestSavePredictions(t *testing.T) {
	st := newStore(t)
	router := newRouter(t, st, nil)

	body := map[string]interface{}{
		"predictions": []map[string]interface{}{
			{"game_id": "2025_03_JAC_HOU", "season": 2025, "week": 3, "home_team": "HOU", "away_team": "JAC",
				"predicted_winner": "jac", "ai_spread": 1.5},
		},
	}
	w := do(t, router, "POST", "/api/v1/ml/save-predictions", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	decode(t, w, &resp)
	if resp["saved"] != float64(1) {
		t.Errorf("saved = %v, want 1", resp["saved"])
	}

	p, err := st.GetPrediction(context.Background(), "2025_03_JAC_HOU")
	if err != nil {
		t.Fatalf("GetPrediction: %v", err)
	}
	if p.AwayTeam != "JAX" || p.PredictedWinner != "JAX" {
		t.Errorf("aliases not canonicalized: away=%s winner=%s", p.AwayTeam, p.PredictedWinner)
	}

	if w := do(t, router, "POST", "/api/v1/ml/save-predictions", map[string]interface{}{"predictions": []interface{}{}}); w.Code != http.StatusBadRequest {
		t.Errorf("empty: status = %d, want 400", w.Code)
	}
	if w := do(t, router, "POST", "/api/v1/ml/save-predictions", map[string]interface{}{
		"predictions": []map[string]interface{}{{"game_id": "x"}},
	}); w.Code != http.StatusBadRequest {
		t.Errorf("incomplete: status = %d, want 400", w.Code)
	}
}

func TestTeamsAndMetrics(t *testing.T) {
	runner := &fakeRunner{report: &settler.CycleReport{Settled: 4, StartedAt: time.Now()}}
	router := newRouter(t, newStore(t), runner)

	w := do(t, router, "GET", "/api/v1/teams", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("teams status = %d", w.Code)
	}
	var teams struct {
		Teams []league.Team `json:"teams"`
		Count int           `json:"count"`
	}
	decode(t, w, &teams)
	if teams.Count != 32 || len(teams.Teams) != 32 {
		t.Errorf("count = %d, want 32", teams.Count)
	}

	w = do(t, router, "GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"settled":4`) {
		t.Errorf("metrics missing last cycle: %s", w.Body.String())
	}
}
