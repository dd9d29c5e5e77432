package app

import (
	"context"
	"fmt"
	"sync"

	"polyedge/clients/notifier"
	"polyedge/clients/polymarketapi"
)

// mockAPIClient is a mock implementation of the API interfaces the trackers
// and monitors consume.
type mockAPIClient struct {
	mu sync.Mutex

	leaderboards    map[string][]polymarketapi.LeaderboardEntry
	leaderboardErr  map[string]error
	closedPositions map[string][]polymarketapi.ClosedPosition
	closedErr       map[string]error
	positions       map[string][]polymarketapi.Position
	positionsErr    map[string]error
	activity        map[string][]polymarketapi.Activity
	activityErr     map[string]error
	markets         map[string]*polymarketapi.GammaMarket

	leaderboardCalls int
	closedCalls      int
	positionsCalls   int
	activityCalls    int
}

func newMockAPIClient() *mockAPIClient {
	return &mockAPIClient{
		leaderboards:    make(map[string][]polymarketapi.LeaderboardEntry),
		leaderboardErr:  make(map[string]error),
		closedPositions: make(map[string][]polymarketapi.ClosedPosition),
		closedErr:       make(map[string]error),
		positions:       make(map[string][]polymarketapi.Position),
		positionsErr:    make(map[string]error),
		activity:        make(map[string][]polymarketapi.Activity),
		activityErr:     make(map[string]error),
		markets:         make(map[string]*polymarketapi.GammaMarket),
	}
}

func (m *mockAPIClient) GetLeaderboard(ctx context.Context, window string, limit int) ([]polymarketapi.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaderboardCalls++
	if err := m.leaderboardErr[window]; err != nil {
		return nil, err
	}
	return m.leaderboards[window], nil
}

func (m *mockAPIClient) GetClosedPositions(ctx context.Context, wallet string, limit, offset int) ([]polymarketapi.ClosedPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closedCalls++
	if err := m.closedErr[wallet]; err != nil {
		return nil, err
	}
	all := m.closedPositions[wallet]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *mockAPIClient) GetPositions(ctx context.Context, wallet string, market string, limit int) ([]polymarketapi.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positionsCalls++
	if err := m.positionsErr[wallet]; err != nil {
		return nil, err
	}
	return m.positions[wallet], nil
}

func (m *mockAPIClient) GetUserActivity(ctx context.Context, wallet string, limit int) ([]polymarketapi.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activityCalls++
	if err := m.activityErr[wallet]; err != nil {
		return nil, err
	}
	return m.activity[wallet], nil
}

func (m *mockAPIClient) GetMarketByConditionID(ctx context.Context, conditionID string) (*polymarketapi.GammaMarket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mkt, ok := m.markets[conditionID]; ok {
		return mkt, nil
	}
	return nil, fmt.Errorf("market not found: %s", conditionID)
}

// mockAlertSink records alerts for assertions. Implements notifier.Notifier.
type mockAlertSink struct {
	mu         sync.Mutex
	candidates []notifier.CandidateAlert
	signals    []notifier.SignalAlert
	whales     []notifier.WhaleAlert
}

func (m *mockAlertSink) SendCandidateAlert(alert notifier.CandidateAlert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates = append(m.candidates, alert)
}

func (m *mockAlertSink) SendSignalAlert(alert notifier.SignalAlert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, alert)
}

func (m *mockAlertSink) SendWhaleAlert(alert notifier.WhaleAlert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.whales = append(m.whales, alert)
}

func (m *mockAlertSink) Close() error {
	return nil
}

func (m *mockAlertSink) candidateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.candidates)
}

func (m *mockAlertSink) signalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.signals)
}

func (m *mockAlertSink) whaleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.whales)
}
