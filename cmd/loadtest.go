package main

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type streamLoadOptions struct {
	url         string
	token       string
	connections int
	duration    time.Duration
	rampUp      time.Duration
	report      time.Duration
}

type streamLoadStats struct {
	Connected   int64
	ConnectErrs int64
	StreamErrs  int64
	Events      int64
	Elapsed     time.Duration
}

func newLoadTestCmd() *cobra.Command {
	opts := streamLoadOptions{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Hold many balance stream connections open and count events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.connections <= 0 {
				return errors.Errorf("invalid conns: %d", opts.connections)
			}
			if opts.rampUp == 0 && opts.connections > 100 {
				// one second per 500 connections, at least one
				opts.rampUp = time.Duration(opts.connections/500) * time.Second
				if opts.rampUp < time.Second {
					opts.rampUp = time.Second
				}
			}

			ctx := cmd.Context()
			if opts.duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.duration)
				defer cancel()
			}

			cmd.Printf("starting stream load: url=%s conns=%d duration=%s ramp=%s\n",
				opts.url, opts.connections, opts.duration, opts.rampUp)

			stats := runStreamLoad(ctx, opts, func(s streamLoadStats) {
				cmd.Printf("status: connected=%d connect_errs=%d stream_errs=%d events=%d elapsed=%s\n",
					s.Connected, s.ConnectErrs, s.StreamErrs, s.Events, s.Elapsed.Truncate(time.Second))
			})

			elapsed := stats.Elapsed
			if elapsed <= 0 {
				elapsed = time.Millisecond
			}
			cmd.Printf("done: connected=%d connect_errs=%d stream_errs=%d events=%d elapsed=%s events/s=%.2f\n",
				stats.Connected, stats.ConnectErrs, stats.StreamErrs, stats.Events,
				elapsed.Truncate(time.Millisecond), float64(stats.Events)/elapsed.Seconds())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "http://localhost:8000/api/balance/stream", "balance stream URL")
	cmd.Flags().StringVar(&opts.token, "token", "", "bearer token sent by every connection")
	cmd.Flags().IntVar(&opts.connections, "conns", 1000, "number of concurrent connections")
	cmd.Flags().DurationVar(&opts.duration, "dur", time.Minute, "test duration, 0 runs until interrupted")
	cmd.Flags().DurationVar(&opts.rampUp, "ramp", 0, "spread connection starts across this window")
	cmd.Flags().DurationVar(&opts.report, "report", 5*time.Second, "status report interval")
	return cmd
}

// runStreamLoad opens opts.connections streams and reads them until ctx ends.
// Heartbeat comments and blank lines are not counted as events.
func runStreamLoad(ctx context.Context, opts streamLoadOptions, report func(streamLoadStats)) streamLoadStats {
	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     opts.connections + 100,
			MaxIdleConns:        opts.connections + 100,
			MaxIdleConnsPerHost: opts.connections + 100,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	var (
		connected, connectErrs, streamErrs, events atomic.Int64
		wg                                         sync.WaitGroup
	)
	start := time.Now()
	snapshot := func() streamLoadStats {
		return streamLoadStats{
			Connected:   connected.Load(),
			ConnectErrs: connectErrs.Load(),
			StreamErrs:  streamErrs.Load(),
			Events:      events.Load(),
			Elapsed:     time.Since(start),
		}
	}

	if report != nil && opts.report > 0 {
		go func() {
			ticker := time.NewTicker(opts.report)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					report(snapshot())
				}
			}
		}()
	}

	var interval time.Duration
	if opts.rampUp > 0 {
		interval = opts.rampUp / time.Duration(opts.connections)
	}

	for i := 0; i < opts.connections && ctx.Err() == nil; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.url, nil)
			if err != nil {
				connectErrs.Add(1)
				return
			}
			req.Header.Set("Accept", "text/event-stream")
			if opts.token != "" {
				req.Header.Set("Authorization", "Bearer "+opts.token)
			}

			resp, err := client.Do(req)
			if err != nil {
				connectErrs.Add(1)
				return
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				connectErrs.Add(1)
				return
			}
			connected.Add(1)

			reader := bufio.NewReader(resp.Body)
			for {
				line, err := reader.ReadString('\n')
				if err != nil {
					if ctx.Err() == nil {
						streamErrs.Add(1)
					}
					return
				}
				if len(line) > 0 && line[0] != ':' && line != "\n" && line != "\r\n" {
					events.Add(1)
				}
			}
		}()
	}

	wg.Wait()
	return snapshot()
}
