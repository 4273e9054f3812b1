package stoplight_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/creachadair/stoplight"
)

func ExampleController() {
	c := stoplight.New(&stoplight.Options{
		// Real signals hold each phase for 4–6 seconds (the default).
		Cycle: stoplight.Fixed(10 * time.Millisecond),
	})

	// A new signal starts out red, and stays that way until started.
	fmt.Println("signal is", c.Phase())

	if err := c.Start(context.Background()); err != nil {
		log.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	// Waiters block until the phase they want is published.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.WaitForGreen(ctx); err != nil {
		log.Fatalf("WaitForGreen: %v", err)
	}
	fmt.Println("go")

	if err := c.WaitFor(ctx, stoplight.Red); err != nil {
		log.Fatalf("WaitFor: %v", err)
	}
	fmt.Println("stop")

	// Output:
	// signal is red
	// go
	// stop
}

func ExampleStarter() {
	// Anything that only needs to start a signal can accept a Starter.
	startAll := func(ctx context.Context, ss ...stoplight.Starter) error {
		for _, s := range ss {
			if err := s.Start(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	c := stoplight.New(nil)
	defer c.Stop()
	if err := startAll(context.Background(), c, c); err != nil {
		fmt.Println(err)
	}

	// Output:
	// controller already started
}
