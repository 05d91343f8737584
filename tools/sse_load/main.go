// Command sse_load opens many concurrent subscriptions to the market stream
// and reports connection and event counts.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

type stats struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	market      atomic.Int64
	trade       atomic.Int64
	pings       atomic.Int64
}

func (s *stats) String() string {
	return fmt.Sprintf("connected=%d connect_errs=%d stream_errs=%d market=%d trade=%d pings=%d",
		s.connected.Load(), s.connectErrs.Load(), s.streamErrs.Load(),
		s.market.Load(), s.trade.Load(), s.pings.Load())
}

func main() {
	var (
		targetURL   string
		connections int
		duration    time.Duration
		rampUp      time.Duration
	)

	flag.StringVar(&targetURL, "url", "http://localhost:8000/api/market/stream", "market stream URL")
	flag.IntVar(&connections, "conns", 500, "number of concurrent subscriptions")
	flag.DurationVar(&duration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&rampUp, "ramp", 0, "spread connection starts across this window")
	flag.Parse()

	if connections <= 0 {
		log.Fatalf("invalid conns: %d", connections)
	}
	if rampUp == 0 && connections > 100 {
		rampUp = max(time.Duration(connections/500)*time.Second, time.Second)
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
			MaxIdleConnsPerHost: connections + 100,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	log.Printf("starting stream load: url=%s conns=%d duration=%s ramp=%s", targetURL, connections, duration, rampUp)

	var (
		st    stats
		wg    sync.WaitGroup
		start = time.Now()
		step  time.Duration
	)
	if rampUp > 0 {
		step = rampUp / time.Duration(connections)
	}

	go report(ctx, &st, start)

	for i := 0; i < connections && ctx.Err() == nil; i++ {
		if i > 0 && step > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(step):
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			subscribe(ctx, client, targetURL, &st)
		}()
	}

	wg.Wait()
	fmt.Printf("done: %s elapsed=%s\n", st.String(), time.Since(start).Truncate(time.Millisecond))
}

func subscribe(ctx context.Context, client *http.Client, url string, st *stats) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		st.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		st.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		st.connectErrs.Add(1)
		return
	}
	st.connected.Add(1)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, ":"):
			st.pings.Add(1)
		case strings.HasPrefix(line, "event:"):
			switch strings.TrimSpace(strings.TrimPrefix(line, "event:")) {
			case "market":
				st.market.Add(1)
			case "trade":
				st.trade.Add(1)
			}
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		st.streamErrs.Add(1)
	}
}

func report(ctx context.Context, st *stats, start time.Time) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("status: %s elapsed=%s", st.String(), time.Since(start).Truncate(time.Second))
		}
	}
}
