// Command sse_load opens many selection stream subscribers against a running
// api and, optionally, drives selection changes so every subscriber receives
// events.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type counters struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	events      atomic.Int64
	dispatched  atomic.Int64
}

func main() {
	var (
		baseURL     string
		connections int
		duration    time.Duration
		rampUp      time.Duration
		drive       time.Duration
		assets      string
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "api base URL")
	flag.IntVar(&connections, "conns", 500, "number of concurrent stream subscribers")
	flag.DurationVar(&duration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&rampUp, "ramp", 0, "spread subscriber starts across this window")
	flag.DurationVar(&drive, "drive", time.Second, "interval between driven selections (0 disables)")
	flag.StringVar(&assets, "assets", "WETH:collateral,USDC:borrow,WBTC:collateral,DAI:borrow", "asset:side pairs to cycle through")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if connections <= 0 {
		logger.Fatal("invalid conns", zap.Int("conns", connections))
	}
	if rampUp == 0 && connections > 100 {
		rampUp = time.Duration(connections/500+1) * time.Second
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     connections + 100,
			MaxIdleConns:        connections + 100,
			MaxIdleConnsPerHost: connections + 100,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	logger.Info("starting selection stream load",
		zap.String("url", baseURL),
		zap.Int("conns", connections),
		zap.Duration("dur", duration),
		zap.Duration("ramp", rampUp),
	)

	var c counters
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	var interval time.Duration
	if rampUp > 0 {
		interval = rampUp / time.Duration(connections)
	}
	g.Go(func() error {
		for i := 0; i < connections; i++ {
			if i > 0 && interval > 0 {
				select {
				case <-gctx.Done():
					return nil
				case <-time.After(interval):
				}
			}
			g.Go(func() error {
				subscribe(gctx, client, baseURL+"/api/selection/stream", &c)
				return nil
			})
		}
		return nil
	})

	if drive > 0 {
		g.Go(func() error {
			driveSelections(gctx, logger, client, baseURL, parsePairs(assets), drive, &c)
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				report(logger, "status", &c, time.Since(start))
			}
		}
	})

	_ = g.Wait()
	report(logger, "done", &c, time.Since(start))
}

func subscribe(ctx context.Context, client *http.Client, url string, c *counters) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.connectErrs.Add(1)
		return
	}

	c.connected.Add(1)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "event: selection") {
			c.events.Add(1)
		}
	}
	if ctx.Err() == nil {
		c.streamErrs.Add(1)
	}
}

type selectRequest struct {
	Asset string `json:"asset"`
	Side  string `json:"side"`
}

func driveSelections(ctx context.Context, l *zap.Logger, client *http.Client, baseURL string, pairs []selectRequest, every time.Duration, c *counters) {
	if len(pairs) == 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		body, _ := json.Marshal(pairs[i%len(pairs)])
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/selection/select", bytes.NewReader(body))
		if err != nil {
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() == nil {
				l.Warn("select failed", zap.Error(err))
			}
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			c.dispatched.Add(1)
		} else {
			l.Warn("select rejected", zap.Int("status", resp.StatusCode), zap.String("request_id", resp.Header.Get("X-Request-ID")))
		}
	}
}

func parsePairs(raw string) []selectRequest {
	var out []selectRequest
	for _, item := range strings.Split(raw, ",") {
		asset, side, ok := strings.Cut(strings.TrimSpace(item), ":")
		if !ok || asset == "" {
			continue
		}
		out = append(out, selectRequest{Asset: asset, Side: side})
	}
	return out
}

func report(l *zap.Logger, msg string, c *counters, elapsed time.Duration) {
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	events := c.events.Load()
	l.Info(msg,
		zap.Int64("connected", c.connected.Load()),
		zap.Int64("connect_errs", c.connectErrs.Load()),
		zap.Int64("stream_errs", c.streamErrs.Load()),
		zap.Int64("dispatched", c.dispatched.Load()),
		zap.Int64("events", events),
		zap.Float64("events_per_sec", float64(events)/elapsed.Seconds()),
		zap.Duration("elapsed", elapsed.Truncate(time.Second)),
	)
}
