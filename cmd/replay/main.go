// Command replay prints a recorded match and checks that its round sequence
// is complete. It reads both .jsonl.zst streams and SQLite replay databases.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gridclash/arena/internal/persist"
	"github.com/gridclash/arena/internal/replay"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	rounds := flag.Bool("rounds", false, "print one line per round")
	events := flag.Bool("events", false, "print every event (implies -rounds)")
	flag.Parse()
	if flag.NArg() != 1 {
		return fmt.Errorf("usage: replay [-rounds] [-events] <file%s|file.db>", replay.Ext)
	}
	path := flag.Arg(0)

	var (
		r   *replay.Replay
		err error
	)
	if strings.HasSuffix(path, ".db") {
		r, err = persist.LoadReplay(context.Background(), path)
	} else {
		r, err = replay.Load(path)
	}
	if err != nil {
		return err
	}

	h := r.Header
	fmt.Printf("match     %s\n", h.MatchID)
	fmt.Printf("map       %s (%dx%d, %s, origin %s)\n", h.Map, h.Width, h.Height, h.Symmetry, h.Origin)
	fmt.Printf("seed      %d\n", h.Seed)
	fmt.Printf("limit     %d rounds\n", h.Rounds)
	fmt.Printf("spawns    A %s  B %s\n", h.Spawns[0], h.Spawns[1])
	fmt.Printf("initial   %d events\n", len(h.Initial))
	fmt.Printf("recorded  %d rounds\n", len(r.Rounds))

	if *rounds || *events {
		for _, rr := range r.Rounds {
			fmt.Printf("  round %5d  digest %-16s  events %4d  A %+d/%+d  B %+d/%+d\n",
				rr.Round, rr.Digest, len(rr.Events),
				rr.Teams[0].ReserveDelta, rr.Teams[0].HarvestedDelta,
				rr.Teams[1].ReserveDelta, rr.Teams[1].HarvestedDelta)
			if !*events {
				continue
			}
			for _, ev := range rr.Events {
				fmt.Printf("      %-16s %+v\n", ev.Type, ev.Data)
			}
		}
	}

	if f := r.Footer; f != nil {
		out := f.Outcome
		if out.Aborted {
			fmt.Printf("outcome   aborted in round %d: %s\n", out.Round, out.Reason)
		} else {
			fmt.Printf("outcome   %s wins by %s in round %d\n", out.Winner, out.Factor, out.Round)
		}
	}

	if err := r.Verify(); err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	fmt.Println("verify    ok")
	return nil
}
