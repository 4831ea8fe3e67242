// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command rtosdemo runs a producer and a receiver task over a one-slot queue.
//
// After a settle period the main goroutine sends count messages of
// {value, reserved}; the receiver task prints each as "value, reserved"
// and then suspends until it is resumed.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code.hybscloud.com/iox"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"code.hybscloud.com/rtos"
)

// message is the 8-byte queue item.
type message struct {
	Value    uint32
	Reserved uint32
}

type config struct {
	settle   rtos.Ticks
	interval rtos.Ticks
	count    int
	tick     time.Duration
}

func main() {
	var (
		settle   = flag.Uint("settle", 5000, "Ticks to wait before the first send.")
		interval = flag.Uint("interval", 2, "Receiver delay after each message, in ticks.")
		count    = flag.Int("count", 1, "Number of messages to send.")
		tick     = flag.Duration("tick", rtos.DefaultTickPeriod, "Tick period.")
		verbose  = flag.Bool("verbose", false, "Log kernel debug events.")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().
		Logger()

	if *count < 1 || *tick <= 0 {
		log.Error().Int("count", *count).Dur("tick", *tick).Msg("count must be >= 1 and tick > 0")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config{
		settle:   rtos.Ticks(*settle),
		interval: rtos.Ticks(*interval),
		count:    *count,
		tick:     *tick,
	}
	if err := run(ctx, log, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("interrupted")
			return
		}
		log.Error().Err(err).Msg("demo failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, log zerolog.Logger, cfg config) error {
	sys := rtos.New().
		MaxHandles(16).
		TickPeriod(cfg.tick).
		Logger(log).
		Init()

	q, err := sys.CreateQueue(1, 8)
	if err != nil {
		return err
	}

	rx, err := sys.Spawn(receiver, "rx", 1024, receiverArgs{q: q, n: cfg.count, interval: cfg.interval, log: log}, rtos.PriorityIdle)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(cfg.settle) * sys.TickPeriod()):
		}
		for i := range cfg.count {
			msg := message{Value: 0x111 + uint32(i), Reserved: 0xAAA}
			if err := send(ctx, q, msg); err != nil {
				return err
			}
		}
		log.Info().Int("sent", cfg.count).Msg("resuming receiver")
		rx.Resume()
		return nil
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rx.Done():
			return nil
		}
	})
	if err := g.Wait(); err != nil {
		return err
	}
	q.Destroy()

	st := sys.Stats()
	log.Info().Int("queues", st.Queues).Int("tasks", st.Tasks).Msg("done")
	return nil
}

// send retries a try-once send until the single slot frees or ctx ends.
func send(ctx context.Context, q *rtos.BoundedQueue, msg message) error {
	backoff := iox.Backoff{}
	for {
		err := rtos.SendValue(q, msg, rtos.TryOnce)
		if err == nil {
			return nil
		}
		if !rtos.IsWouldBlock(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		backoff.Wait()
	}
}

type receiverArgs struct {
	q        *rtos.BoundedQueue
	n        int
	interval rtos.Ticks
	log      zerolog.Logger
}

func receiver(t *rtos.Task, arg any) {
	a := arg.(receiverArgs)
	for range a.n {
		msg, err := rtos.ReceiveValue[message](a.q, rtos.WaitForever)
		if err != nil {
			a.log.Error().Err(err).Str("task", t.Name()).Msg("receive")
			return
		}
		a.log.Info().Msgf("%d, %x", msg.Value, msg.Reserved)
		t.Delay(a.interval)
	}
	t.Suspend()
}
