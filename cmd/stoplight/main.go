// Package main provides stoplight, a demo that runs one traffic signal and a
// few simulated vehicles waiting for it to turn green.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"

	"github.com/creachadair/stoplight"
	"github.com/creachadair/stoplight/config"
)

// opts holds all command-line options. Options left unset fall back to the
// config file, then to the defaults.
type opts struct {
	Config      string        `short:"c" long:"config" env:"STOPLIGHT_CONFIG" description:"path to YAML config file"`
	Initial     string        `short:"i" long:"initial" choice:"red" choice:"green" description:"initial phase"`
	Min         time.Duration `long:"min" description:"minimum cycle duration"`
	Max         time.Duration `long:"max" description:"maximum cycle duration (exclusive)"`
	Seed        uint64        `long:"seed" description:"random seed for cycle durations (0 is nondeterministic)"`
	Waiters     int           `short:"w" long:"waiters" default:"2" description:"number of vehicles waiting at the signal"`
	Transitions int           `short:"n" long:"transitions" description:"stop after this many transitions (0 runs until interrupted)"`
	NoColor     bool          `long:"no-color" description:"disable color output"`
	Debug       bool          `short:"d" long:"debug" env:"STOPLIGHT_DEBUG" description:"enable debug logging"`
}

func main() {
	var o opts
	parser := flags.NewParser(&o, flags.Default)

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, o, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts, stdout, stderr io.Writer) error {
	cfg, err := config.Load(o.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyFlags(cfg, o); err != nil {
		return err
	}
	if o.Waiters < 0 {
		return fmt.Errorf("invalid number of waiters: %d", o.Waiters)
	}
	if o.NoColor {
		color.NoColor = true
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := &printer{w: stdout}
	var seen atomic.Int64

	sopts := cfg.Options()
	sopts.OnChange = func(old, cur stoplight.Phase) {
		n := seen.Add(1)
		p.transition(n, old, cur)
		if o.Transitions > 0 && n >= int64(o.Transitions) {
			cancel()
		}
	}
	if o.Debug {
		sopts.Logf = log.New(stderr, "[debug] ", log.Ltime|log.Lmicroseconds).Printf
	}

	sig := stoplight.New(sopts)
	p.printf(phaseColor(sig.Phase()), "signal is %v; cycle %v–%v\n",
		sig.Phase(), time.Duration(cfg.Cycle.Min), time.Duration(cfg.Cycle.Max))
	if err := sig.Start(ctx); err != nil {
		return fmt.Errorf("start signal: %w", err)
	}

	var wg sync.WaitGroup
	for id := range o.Waiters {
		wg.Go(func() { drive(ctx, sig, id+1, p) })
	}

	<-sig.Done()
	wg.Wait()

	p.printf(summaryColor, "stopped after %d transitions, %d crossings\n", seen.Load(), p.crossings.Load())
	return nil
}

// applyFlags overrides the settings in cfg with any flags that were set.
func applyFlags(cfg *config.Config, o opts) error {
	if o.Initial != "" {
		ph, err := stoplight.ParsePhase(o.Initial)
		if err != nil {
			return err
		}
		cfg.Initial = ph
	}
	if o.Min != 0 {
		cfg.Cycle.Min = config.Duration(o.Min)
	}
	if o.Max != 0 {
		cfg.Cycle.Max = config.Duration(o.Max)
	}
	if o.Seed != 0 {
		cfg.Cycle.Seed = o.Seed
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// drive simulates a vehicle that repeatedly waits for green and crosses,
// until ctx ends or the signal stops.
func drive(ctx context.Context, sig *stoplight.Controller, id int, p *printer) {
	for {
		if err := sig.WaitForGreen(ctx); err != nil {
			return
		}
		p.crossed(id)
	}
}

var (
	redColor     = color.New(color.FgRed, color.Bold)
	greenColor   = color.New(color.FgGreen, color.Bold)
	vehicleColor = color.New(color.FgCyan)
	summaryColor = color.New(color.FgWhite)
)

func phaseColor(p stoplight.Phase) *color.Color {
	if p == stoplight.Green {
		return greenColor
	}
	return redColor
}

// printer serializes output from the signal and the vehicles.
type printer struct {
	μ         sync.Mutex
	w         io.Writer
	crossings atomic.Int64
}

func (p *printer) printf(c *color.Color, format string, args ...any) {
	p.μ.Lock()
	defer p.μ.Unlock()
	c.Fprintf(p.w, format, args...)
}

func (p *printer) transition(n int64, old, cur stoplight.Phase) {
	p.printf(phaseColor(cur), "[%s] #%d %v -> %v\n", time.Now().Format("15:04:05.000"), n, old, cur)
}

func (p *printer) crossed(id int) {
	p.crossings.Add(1)
	p.printf(vehicleColor, "  vehicle %d crossed on green\n", id)
}
