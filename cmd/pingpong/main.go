// Example: Ping-Pong Messaging
//
// This example demonstrates the core synchronous-message-passing path: two
// processes, A and B, exchange 10,000 round trips. A calls SendWait, which
// parks A on a reply future until B's handler increments the payload and
// writes it back. A checks every reply equals payload+1 and accumulates a
// running counter, which should land on 20,000 once both processes finish.
// A also calls CheckEpoch on every round, the cooperative-preemption
// checkpoint an Entry is expected to hit on loop back-edges.
//
// Run with: go run ./cmd/pingpong/
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/inko-lang/rt"
)

const rounds = 10000

func main() {
	runtime, err := rt.New()
	if err != nil {
		log.Fatalf("rt.New: %v", err)
	}
	defer runtime.Close()

	b, err := runtime.Spawn(func(ctx *rt.Process) {
		for i := 0; i < rounds; i++ {
			msg := ctx.ReceiveWait()
			msg.Reply.Write(msg.Value.(int) + 1)
		}
	})
	if err != nil {
		log.Fatalf("spawn B: %v", err)
	}

	counters := make(chan int, 1)

	a, err := runtime.Spawn(func(ctx *rt.Process) {
		counter := 0
		for i := 0; i < rounds; i++ {
			ctx.CheckEpoch()

			value, err := b.SendWait(1, ctx)
			if err != nil {
				log.Fatalf("sendwait round %d: %v", i, err)
			}
			if got := value.(int); got != 2 {
				log.Fatalf("round %d: want 2, got %d", i, got)
			}
			counter += value.(int)
		}
		counters <- counter
	})
	if err != nil {
		log.Fatalf("spawn A: %v", err)
	}

	counter := <-counters

	// B's last reply.Write happens just before its loop condition re-checks
	// and its entry returns, so give its goroutine a moment to land on
	// ProcessFinished before reporting both processes done.
	for a.State() != rt.ProcessFinished || b.State() != rt.ProcessFinished {
		time.Sleep(time.Millisecond)
	}

	fmt.Printf("final counter: %d\n", counter)
	fmt.Printf("A finished: %v, B finished: %v\n", a.State() == rt.ProcessFinished, b.State() == rt.ProcessFinished)
}
