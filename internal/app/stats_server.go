package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket upgrader for real-time stats
var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startHealthServer starts an HTTP server for health checks and stats.
func (r *Runner) startHealthServer(port int) {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// JSON stats endpoint
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		stats := r.GetStats()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(stats)
	})

	// Current candidate ranking
	mux.HandleFunc("/candidates", func(w http.ResponseWriter, _ *http.Request) {
		var ranked []TraderScore
		if r.scanner != nil {
			ranked = r.scanner.Ranked()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(ranked)
	})

	// WebSocket endpoint for real-time stats
	mux.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, req, nil)
		if err != nil {
			r.clients.Logger.Error("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			stats := r.GetStats()
			if err := conn.WriteJSON(stats); err != nil {
				return // Client disconnected
			}
		}
	})

	// HTML dashboard
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(dashboardHTML))
	})

	r.healthServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		if err := r.healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.clients.Logger.Error("health server error", zap.Error(err))
		}
	}()
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Polyedge Stats</title>
    <style>
        :root {
            --bg-primary: #0d1117;
            --bg-secondary: #161b22;
            --bg-tertiary: #21262d;
            --border-color: #30363d;
            --text-primary: #c9d1d9;
            --text-secondary: #8b949e;
            --text-heading: #f0f6fc;
            --accent-blue: #58a6ff;
            --accent-green: #3fb950;
            --accent-red: #f85149;
            --accent-yellow: #d29922;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, monospace;
            background: var(--bg-primary);
            color: var(--text-primary);
            padding: 20px;
            line-height: 1.5;
        }
        h1 { color: var(--accent-blue); margin-bottom: 20px; font-size: 24px; }
        h2 { color: var(--text-secondary); font-size: 14px; text-transform: uppercase; margin: 20px 0 10px; letter-spacing: 1px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(300px, 1fr)); gap: 20px; }
        .card {
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 16px;
        }
        .card h3 { color: var(--accent-blue); font-size: 16px; margin-bottom: 12px; }
        .stat-row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid var(--bg-tertiary); }
        .stat-row:last-child { border-bottom: none; }
        .stat-label { color: var(--text-secondary); }
        .stat-value { color: var(--text-heading); font-weight: 600; }
        .stat-value.green { color: var(--accent-green); }
        .stat-value.red { color: var(--accent-red); }
        .stat-value.yellow { color: var(--accent-yellow); }
        .stat-value.blue { color: var(--accent-blue); }
        .connected { color: var(--accent-green); }
        .disconnected { color: var(--accent-red); }
        .header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 20px; }
        .status { display: flex; align-items: center; gap: 8px; }
        .status-dot { width: 10px; height: 10px; border-radius: 50%; }
        .status-dot.connected { background: var(--accent-green); }
        .status-dot.disconnected { background: var(--accent-red); animation: blink 1s infinite; }
        @keyframes blink { 50% { opacity: 0.5; } }
        .candidate-row { display: flex; justify-content: space-between; padding: 8px 0; border-bottom: 1px solid var(--bg-tertiary); }
        .candidate-row:last-child { border-bottom: none; }
        .candidate-addr { font-family: monospace; color: var(--accent-blue); font-size: 13px; }
        .candidate-score { font-weight: bold; color: var(--accent-green); }
        .footer { margin-top: 30px; padding: 20px; text-align: center; border-top: 1px solid var(--border-color); color: var(--text-secondary); font-size: 13px; }
    </style>
</head>
<body>
    <div class="header">
        <h1>📊 Polyedge Dashboard</h1>
        <div class="status">
            <div id="wsDot" class="status-dot disconnected"></div>
            <span id="wsStatus">Connecting...</span>
        </div>
    </div>

    <div class="grid" style="margin-bottom: 20px;">
        <div class="card">
            <div class="stat-row">
                <span class="stat-label">Started</span>
                <span id="startTime" class="stat-value">-</span>
            </div>
            <div class="stat-row">
                <span class="stat-label">Uptime</span>
                <span id="uptime" class="stat-value blue" style="font-size: 24px;">-</span>
            </div>
        </div>
        <div class="card">
            <h3>🏆 Top Candidates</h3>
            <div id="candidates">
                <div style="color: var(--text-secondary); text-align: center; padding: 20px;">No scan yet</div>
            </div>
        </div>
    </div>

    <h2>📡 Pipeline</h2>
    <div class="grid">
        <div class="card">
            <h3>🔍 Scanner</h3>
            <div class="stat-row"><span class="stat-label">Ranked Candidates</span><span id="ranked" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Followed Traders</span><span id="followed" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Score Cache</span><span id="scoreCache" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Candidate Alerts</span><span id="candidateAlerts" class="stat-value green">-</span></div>
            <div class="stat-row"><span class="stat-label">Last Scan</span><span id="lastScan" class="stat-value">-</span></div>
        </div>
        <div class="card">
            <h3>📶 Signals</h3>
            <div class="stat-row"><span class="stat-label">Signals Emitted</span><span id="signalsEmitted" class="stat-value green">-</span></div>
            <div class="stat-row"><span class="stat-label">Dedup Book</span><span id="bookSize" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Last Poll</span><span id="signalPoll" class="stat-value">-</span></div>
        </div>
        <div class="card">
            <h3>🐋 Whale Watcher</h3>
            <div class="stat-row"><span class="stat-label">Whale Alerts</span><span id="whaleAlerts" class="stat-value green">-</span></div>
            <div class="stat-row"><span class="stat-label">Watched Wallets</span><span id="watchedWallets" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Last Poll</span><span id="watcherPoll" class="stat-value">-</span></div>
        </div>
        <div class="card">
            <h3>📡 Trade Stream</h3>
            <div class="stat-row"><span class="stat-label">Mode</span><span id="streamMode" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Connected</span><span id="streamConnected" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Messages</span><span id="streamMsgs" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Subscribed Assets</span><span id="streamAssets" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Trades Alerted</span><span id="streamTrades" class="stat-value">-</span></div>
        </div>
        <div class="card">
            <h3>📢 Notifications</h3>
            <div class="stat-row"><span class="stat-label">Discord</span><span id="discordStatus" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Telegram</span><span id="telegramStatus" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Webhook</span><span id="webhookStatus" class="stat-value">-</span></div>
        </div>
        <div class="card">
            <h3>⚙️ Runtime</h3>
            <div class="stat-row"><span class="stat-label">Goroutines</span><span id="goroutines" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Heap Allocated</span><span id="heapAlloc" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">GC Cycles</span><span id="numGC" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Go Version</span><span id="goVersion" class="stat-value">-</span></div>
        </div>
    </div>

    <script>
        function connect() {
            const protocol = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
            const ws = new WebSocket(protocol + '//' + window.location.host + '/ws');
            const dot = document.getElementById('wsDot');
            const status = document.getElementById('wsStatus');

            ws.onopen = () => {
                dot.className = 'status-dot connected';
                status.textContent = 'Live';
                status.className = 'connected';
            };

            ws.onclose = () => {
                dot.className = 'status-dot disconnected';
                status.textContent = 'Reconnecting...';
                status.className = 'disconnected';
                setTimeout(connect, 2000);
            };

            ws.onerror = () => ws.close();

            ws.onmessage = (e) => {
                const s = JSON.parse(e.data);

                document.getElementById('startTime').textContent = new Date(s.start_time).toLocaleString();
                document.getElementById('uptime').textContent = s.uptime;

                document.getElementById('ranked').textContent = s.scanner.ranked_candidates;
                document.getElementById('followed').textContent = s.scanner.followed_traders;
                document.getElementById('scoreCache').textContent = s.scanner.score_cache_size;
                document.getElementById('candidateAlerts').textContent = s.scanner.candidate_alerts;
                document.getElementById('lastScan').textContent = s.scanner.last_scan_ago || 'Never';

                document.getElementById('signalsEmitted').textContent = s.signals.emitted;
                document.getElementById('bookSize').textContent = s.signals.book_size;
                document.getElementById('signalPoll').textContent = s.signals.last_poll_at ? new Date(s.signals.last_poll_at).toLocaleTimeString() : 'Never';

                document.getElementById('whaleAlerts').textContent = s.watcher.whale_alerts;
                document.getElementById('watchedWallets').textContent = s.watcher.watched_wallets;
                document.getElementById('watcherPoll').textContent = s.watcher.last_poll_at ? new Date(s.watcher.last_poll_at).toLocaleTimeString() : 'Never';

                document.getElementById('streamMode').textContent = s.websocket.enabled ? '📡 WebSocket' : '🔄 Polling';
                document.getElementById('streamConnected').textContent = s.websocket.enabled ? (s.websocket.connected ? '✅ Yes' : '❌ No') : 'N/A';
                document.getElementById('streamMsgs').textContent = (s.websocket.message_count || 0).toLocaleString();
                document.getElementById('streamAssets').textContent = s.websocket.subscribed_assets || 0;
                document.getElementById('streamTrades').textContent = s.websocket.trades_seen_via_ws || 0;

                const badge = (on) => on ? '✓ Enabled' : '✗ Disabled';
                document.getElementById('discordStatus').textContent = badge(s.notifications.discord_enabled);
                document.getElementById('telegramStatus').textContent = badge(s.notifications.telegram_enabled);
                document.getElementById('webhookStatus').textContent = badge(s.notifications.webhook_enabled);

                const formatBytes = (bytes) => {
                    if (bytes < 1024 * 1024) return (bytes / 1024).toFixed(1) + ' KB';
                    return (bytes / (1024 * 1024)).toFixed(1) + ' MB';
                };
                document.getElementById('goroutines').textContent = s.runtime.goroutines;
                document.getElementById('heapAlloc').textContent = formatBytes(s.runtime.heap_alloc);
                document.getElementById('numGC').textContent = s.runtime.num_gc;
                document.getElementById('goVersion').textContent = s.runtime.go_version;
            };
        }

        function refreshCandidates() {
            fetch('/candidates')
                .then(r => r.json())
                .then(ranked => {
                    const el = document.getElementById('candidates');
                    if (!ranked || ranked.length === 0) {
                        el.innerHTML = '<div style="color: var(--text-secondary); text-align: center; padding: 20px;">No scan yet</div>';
                        return;
                    }
                    el.innerHTML = ranked.slice(0, 10).map((c, i) => {
                        const medal = i === 0 ? '🥇 ' : i === 1 ? '🥈 ' : i === 2 ? '🥉 ' : (i + 1) + '. ';
                        const short = c.wallet.substring(0, 8) + '...' + c.wallet.substring(c.wallet.length - 6);
                        const name = c.name || short;
                        const url = 'https://polymarket.com/profile/' + c.wallet;
                        return '<div class="candidate-row">' +
                            '<a href="' + url + '" target="_blank" class="candidate-addr" style="text-decoration: none;">' + medal + name + ' ↗</a>' +
                            '<span class="candidate-score">' + c.edge.score.toFixed(1) + '</span>' +
                            '</div>';
                    }).join('');
                })
                .catch(() => {});
        }

        refreshCandidates();
        setInterval(refreshCandidates, 30000);
        connect();
    </script>

    <div class="footer">
        <span>Build: <code id="commitHash">-</code></span>
    </div>
</body>
</html>
`
