// Command agitator is a websocket load generator for industry-server.
// Every client builds its own production line and then keeps sending a mix
// of player actions, timing each round trip by request id.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	Output         string
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Results          int64
	Failures         int64
	Errors           int64

	mu        sync.Mutex
	latencies []float64 // Milliseconds, send to matching ACTION_RESULT
}

func (s *Stats) observe(d time.Duration) {
	s.mu.Lock()
	s.latencies = append(s.latencies, float64(d)/float64(time.Millisecond))
	s.mu.Unlock()
}

// Report is the JSON written after a run.
type Report struct {
	Sent       int64   `json:"messages_sent"`
	Received   int64   `json:"messages_received"`
	Results    int64   `json:"action_results"`
	Failures   int64   `json:"action_failures"`
	Errors     int64   `json:"errors"`
	Throughput float64 `json:"throughput_per_sec"`
	LatencyP50 float64 `json:"latency_p50_ms"`
	LatencyP95 float64 `json:"latency_p95_ms"`
	LatencyP99 float64 `json:"latency_p99_ms"`
	LatencyAvg float64 `json:"latency_mean_ms"`
	Clients    int     `json:"clients"`
	Interval   string  `json:"interval"`
	Duration   string  `json:"duration"`
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type actionResult struct {
	RequestID string `json:"requestId"`
	OK        bool   `json:"ok"`
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := Config{}

	cmd := &cobra.Command{
		Use:          "agitator",
		Short:        "Stress an industry-server websocket with concurrent players",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.NumClients <= 0 {
				return fmt.Errorf("--clients must be positive")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.TestDuration)
			defer cancel()
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Server: %s  Clients: %d  Interval: %v  Duration: %v\n",
				cfg.ServerURL, cfg.NumClients, cfg.ActionInterval, cfg.TestDuration)

			start := time.Now()
			stats := runStressTest(ctx, cfg, out)
			report := buildReport(stats, cfg, time.Since(start))
			printResults(out, report)

			if cfg.Output == "" {
				return nil
			}
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(cfg.Output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(out, "Results saved to %s\n", cfg.Output)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.ServerURL, "url", "ws://localhost:8080/ws", "WebSocket server URL")
	cmd.Flags().IntVar(&cfg.NumClients, "clients", 50, "Number of concurrent clients")
	cmd.Flags().DurationVar(&cfg.ActionInterval, "interval", 100*time.Millisecond, "Action interval per client")
	cmd.Flags().DurationVar(&cfg.TestDuration, "duration", 60*time.Second, "Test duration")
	cmd.Flags().StringVar(&cfg.Output, "out", "stress_test_results.json", "JSON results file, empty to skip")

	return cmd
}

func runStressTest(ctx context.Context, cfg Config, out io.Writer) *Stats {
	stats := &Stats{}
	var wg sync.WaitGroup

	for i := 0; i < cfg.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, cfg, stats)
		}(i)

		// Stagger client starts to avoid a thundering herd
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Millisecond):
		}
	}

	progress := time.NewTicker(5 * time.Second)
	defer progress.Stop()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		select {
		case <-done:
			return stats
		case <-progress.C:
			fmt.Fprintf(out, "Progress: sent=%d recv=%d results=%d errors=%d\n",
				atomic.LoadInt64(&stats.MessagesSent), atomic.LoadInt64(&stats.MessagesReceived),
				atomic.LoadInt64(&stats.Results), atomic.LoadInt64(&stats.Errors))
		}
	}
}

func runClient(ctx context.Context, clientID int, cfg Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.ServerURL, nil)
	if err != nil {
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	var pending sync.Map // requestId -> send time
	go readLoop(conn, &pending, stats)

	lineID := fmt.Sprintf("agitator-%03d", clientID)
	script := setupActions(lineID)
	rng := rand.New(rand.NewSource(int64(clientID) + time.Now().UnixNano()))

	ticker := time.NewTicker(cfg.ActionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case <-ticker.C:
			var action map[string]interface{}
			if len(script) > 0 {
				action, script = script[0], script[1:]
			} else {
				action = randomAction(rng, lineID)
			}
			id := uuid.NewString()
			action["requestId"] = id

			pending.Store(id, time.Now())
			if err := conn.WriteJSON(action); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.MessagesSent, 1)
		}
	}
}

// readLoop matches ACTION_RESULT frames to their send time. The server may
// batch several messages into one frame separated by newlines.
func readLoop(conn *websocket.Conn, pending *sync.Map, stats *Stats) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		for _, frame := range bytes.Split(data, []byte{'\n'}) {
			if len(frame) == 0 {
				continue
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)
			var env envelope
			if err := json.Unmarshal(frame, &env); err != nil || env.Type != "ACTION_RESULT" {
				continue
			}
			var res actionResult
			if err := json.Unmarshal(env.Payload, &res); err != nil {
				continue
			}
			if sent, ok := pending.LoadAndDelete(res.RequestID); ok {
				stats.observe(time.Since(sent.(time.Time)))
			}
			atomic.AddInt64(&stats.Results, 1)
			if !res.OK {
				atomic.AddInt64(&stats.Failures, 1)
			}
		}
	}
}

func setupActions(lineID string) []map[string]interface{} {
	return []map[string]interface{}{
		{"type": "ADD_LINE", "lineId": lineID, "name": lineID},
		{"type": "SET_RECIPE", "lineId": lineID, "recipe": "water_pump"},
		{"type": "SET_OUTPUT_TARGET", "lineId": lineID, "target": "SELL"},
		{"type": "TOGGLE_PRODUCTION", "lineId": lineID},
	}
}

func randomAction(rng *rand.Rand, lineID string) map[string]interface{} {
	switch rng.Intn(6) {
	case 0:
		return map[string]interface{}{"type": "CAN_START", "lineId": lineID}
	case 1:
		targets := []string{"STORE", "SELL"}
		return map[string]interface{}{"type": "SET_OUTPUT_TARGET", "lineId": lineID, "target": targets[rng.Intn(2)]}
	case 2:
		return map[string]interface{}{"type": "RENAME_LINE", "lineId": lineID, "name": fmt.Sprintf("%s #%d", lineID, rng.Intn(1000))}
	case 3:
		return map[string]interface{}{"type": "EVALUATE_MISSION", "mission": "first_harvest"}
	case 4:
		return map[string]interface{}{"type": "ADD_CREDITS", "amount": "1"}
	default:
		return map[string]interface{}{"type": "TOGGLE_PRODUCTION", "lineId": lineID}
	}
}

func buildReport(stats *Stats, cfg Config, elapsed time.Duration) Report {
	r := Report{
		Sent:     atomic.LoadInt64(&stats.MessagesSent),
		Received: atomic.LoadInt64(&stats.MessagesReceived),
		Results:  atomic.LoadInt64(&stats.Results),
		Failures: atomic.LoadInt64(&stats.Failures),
		Errors:   atomic.LoadInt64(&stats.Errors),
		Clients:  cfg.NumClients,
		Interval: cfg.ActionInterval.String(),
		Duration: cfg.TestDuration.String(),
	}
	if elapsed > 0 {
		r.Throughput = float64(r.Sent) / elapsed.Seconds()
	}

	stats.mu.Lock()
	lat := append([]float64(nil), stats.latencies...)
	stats.mu.Unlock()
	if len(lat) > 0 {
		sort.Float64s(lat)
		r.LatencyAvg = stat.Mean(lat, nil)
		r.LatencyP50 = stat.Quantile(0.50, stat.Empirical, lat, nil)
		r.LatencyP95 = stat.Quantile(0.95, stat.Empirical, lat, nil)
		r.LatencyP99 = stat.Quantile(0.99, stat.Empirical, lat, nil)
	}
	return r
}

func printResults(out io.Writer, r Report) {
	fmt.Fprintln(out, "=========================================")
	fmt.Fprintf(out, "Messages sent:     %d\n", r.Sent)
	fmt.Fprintf(out, "Messages received: %d\n", r.Received)
	fmt.Fprintf(out, "Action results:    %d (%d failed)\n", r.Results, r.Failures)
	fmt.Fprintf(out, "Errors:            %d\n", r.Errors)
	fmt.Fprintf(out, "Throughput:        %.2f msg/sec\n", r.Throughput)
	fmt.Fprintf(out, "Latency ms:        mean %.2f  p50 %.2f  p95 %.2f  p99 %.2f\n",
		r.LatencyAvg, r.LatencyP50, r.LatencyP95, r.LatencyP99)

	errRate := float64(r.Errors) / float64(r.Sent+1)
	switch {
	case r.Errors == 0 && r.Results > 0:
		fmt.Fprintln(out, "PASSED: system handled the load")
	case errRate < 0.05:
		fmt.Fprintln(out, "WARNING: some errors detected")
	default:
		fmt.Fprintln(out, "FAILED: high error rate")
	}
}
