package main

import (
	"flag"
	"fmt"
	"os"

	"hexplan.ai/internal/persistence/log"
	"hexplan.ai/internal/persistence/snapshot"
	"hexplan.ai/internal/sim/runner"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to the starting .snap.zst")
		eventsDir = flag.String("events", "", "events dir containing events-*.jsonl.zst (optional)")
		runID     = flag.String("run", "", "only replay this run (default: the snapshot's run id)")
		expect    = flag.String("expect", "", "snapshot whose digest the replay must reach (optional)")
	)
	flag.Parse()

	if *snapPath == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot")
		os.Exit(2)
	}

	snap, err := snapshot.ReadSnapshot(*snapPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot v%d scenario=%s run=%s tick=%d facts=%d digest=%s\n",
		snap.Header.Version, snap.Header.ScenarioID, snap.Header.RunID, snap.Header.Tick, len(snap.Facts), snap.Header.Digest)

	if *eventsDir == "" {
		return
	}

	files, err := log.EventFiles(*eventsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *eventsDir)
		os.Exit(1)
	}
	events, err := log.ReadEvents(files...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read events:", err)
		os.Exit(1)
	}

	run := *runID
	if run == "" {
		run = snap.Header.RunID
	}
	world := snap.World()
	applied := runner.Replay(world, events, run, snap.Header.Tick)
	digest := world.Digest()
	fmt.Printf("replayed %d complete events (of %d) digest=%s\n", applied, len(events), digest)

	if *expect == "" {
		return
	}
	want, err := snapshot.ReadHeader(*expect)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read expected snapshot:", err)
		os.Exit(1)
	}
	if want.Digest != digest {
		fmt.Fprintf(os.Stderr, "digest mismatch: got=%s want=%s (tick %d)\n", digest, want.Digest, want.Tick)
		os.Exit(1)
	}
	fmt.Println("replay ok")
}
