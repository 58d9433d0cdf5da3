// Hazel CLI - exercises the engine and the WeakRef bridge.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/tliron/commonlog"

	"github.com/chazu/hazel/config"
	"github.com/chazu/hazel/engine"
	"github.com/chazu/hazel/weakref"

	_ "github.com/tliron/commonlog/simple"
)

const historyFile = ".hazel_history"

func main() {
	interactive := flag.Bool("i", false, "Start interactive session")
	configDir := flag.String("C", ".", "Directory containing hazel.toml")
	count := flag.Int("count", 1000, "Number of WeakRef instances for the scripted run")
	cycles := flag.Int("cycles", 4, "Number of collection cycles for the scripted run")
	snapshotPath := flag.String("snapshot", "", "Write a CBOR heap snapshot to this file after the run")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hazel [options]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a scripted weak-reference exercise, or an interactive session with -i.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  hazel -count 10000 -cycles 8   # Stress the finalization protocol\n")
		fmt.Fprintf(os.Stderr, "  hazel -snapshot heap.cbor      # Dump collector state after the run\n")
		fmt.Fprintf(os.Stderr, "  hazel -i                       # Poke at the engine interactively\n")
	}
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	verbosity := cfg.Log.Verbosity
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	eng := engine.NewEngineWithOptions(engine.Options{
		DeferralWarning: cfg.Collector.DeferralWarning,
	})
	bridge := weakref.NewBridge()
	bridge.Init(eng)

	interval, _ := cfg.AutoInterval()
	if interval > 0 {
		ac := engine.NewAutoCollector(eng, interval)
		ac.Start()
		defer ac.Stop()
	}

	if *interactive {
		if err := repl(eng, bridge); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := scripted(eng, bridge, *count, *cycles, *snapshotPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// scripted constructs count WeakRef instances, drops every target and
// every other wrapper, and runs the collector for the given number of
// cycles, reporting convergence of the finalization protocol.
func scripted(eng *engine.Engine, bridge *weakref.Bridge, count, cycles int, snapshotPath string) error {
	ctor := eng.Global("WeakRef")

	wrappers := make([]*engine.Object, 0, count)
	for i := 0; i < count; i++ {
		target := engine.NewObject()
		target.Set("index", engine.FromNumber(float64(i)))

		wv, err := eng.Construct(ctor, engine.FromObject(target))
		if err != nil {
			return fmt.Errorf("construct %d: %w", i, err)
		}
		w := wv.Object()

		// Every other wrapper stays script-reachable; the rest die with
		// their targets, exercising both finalization orders.
		if i%2 == 0 {
			eng.Retain(w)
			wrappers = append(wrappers, w)
		}
	}

	for i := 0; i < cycles; i++ {
		stats := eng.Collect()
		fmt.Printf("cycle %d: marked=%d finalized=%d deferred=%d swept=%d (%s)\n",
			stats.Cycle, stats.Marked, stats.Finalized, stats.Deferred, stats.Swept, stats.Duration)
	}

	nulled := 0
	for _, w := range wrappers {
		v, err := eng.CallMethod(w, "get")
		if err != nil {
			return err
		}
		if v.IsNull() {
			nulled++
		}
	}
	fmt.Printf("surviving wrappers: %d, nulled: %d, outstanding coordinators: %d\n",
		len(wrappers), nulled, bridge.Outstanding())

	if snapshotPath != "" {
		data, err := engine.MarshalSnapshot(engine.TakeSnapshot(eng))
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		if err := os.WriteFile(snapshotPath, data, 0o644); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		fmt.Printf("wrote snapshot to %s (%d bytes)\n", snapshotPath, len(data))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Interactive session
// ---------------------------------------------------------------------------

const replHelp = `Commands:
  new NAME              Create and retain an object
  wr NAME TARGET        Create a WeakRef to TARGET, retained under NAME
  get NAME              Call get() on a WeakRef
  clear NAME            Call clear() on a WeakRef
  drop NAME             Release a retained object or WeakRef
  gc                    Run one collection cycle
  stats                 Show last collection stats
  snap FILE             Write a CBOR heap snapshot
  ls                    List retained names
  help                  Show this help
  quit                  Exit
`

func repl(eng *engine.Engine, bridge *weakref.Bridge) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := filepath.Join(os.TempDir(), historyFile)
	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("Hazel interactive session. Type 'help' for commands, Ctrl+D to exit.")

	objects := make(map[string]*engine.Object)
	refs := make(map[string]*engine.Object)

	for {
		// Service any collection the AutoCollector requested while we
		// were idle; between commands no script frame is active.
		if stats := eng.CollectIfRequested(); stats != nil {
			fmt.Printf("auto gc: marked=%d finalized=%d deferred=%d swept=%d\n",
				stats.Marked, stats.Finalized, stats.Deferred, stats.Swept)
		}

		line, err := ln.Prompt("hz> ")
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Print(replHelp)
		case "new":
			if len(args) != 1 {
				fmt.Println("usage: new NAME")
				continue
			}
			obj := engine.NewObject()
			obj.Set("name", engine.FromString(args[0]))
			eng.Retain(obj)
			objects[args[0]] = obj
		case "wr":
			if len(args) != 2 {
				fmt.Println("usage: wr NAME TARGET")
				continue
			}
			target, ok := objects[args[1]]
			if !ok {
				fmt.Printf("no object %q\n", args[1])
				continue
			}
			wv, err := eng.Construct(eng.Global("WeakRef"), engine.FromObject(target))
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			w := wv.Object()
			eng.Retain(w)
			refs[args[0]] = w
		case "get", "clear":
			if len(args) != 1 {
				fmt.Printf("usage: %s NAME\n", cmd)
				continue
			}
			w, ok := refs[args[0]]
			if !ok {
				fmt.Printf("no weakref %q\n", args[0])
				continue
			}
			v, err := eng.CallMethod(w, cmd)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Println(v)
		case "drop":
			if len(args) != 1 {
				fmt.Println("usage: drop NAME")
				continue
			}
			if obj, ok := objects[args[0]]; ok {
				eng.Release(obj)
				delete(objects, args[0])
			} else if w, ok := refs[args[0]]; ok {
				eng.Release(w)
				delete(refs, args[0])
			} else {
				fmt.Printf("no such name %q\n", args[0])
			}
		case "gc":
			stats := eng.Collect()
			fmt.Printf("marked=%d finalized=%d deferred=%d swept=%d outstanding=%d\n",
				stats.Marked, stats.Finalized, stats.Deferred, stats.Swept, bridge.Outstanding())
		case "stats":
			if stats := eng.LastCollectStats(); stats != nil {
				fmt.Printf("cycle=%d marked=%d finalized=%d deferred=%d faults=%d swept=%d duration=%s\n",
					stats.Cycle, stats.Marked, stats.Finalized, stats.Deferred, stats.Faults, stats.Swept, stats.Duration)
			} else {
				fmt.Println("no collection has run yet")
			}
		case "snap":
			if len(args) != 1 {
				fmt.Println("usage: snap FILE")
				continue
			}
			data, err := engine.MarshalSnapshot(engine.TakeSnapshot(eng))
			if err == nil {
				err = os.WriteFile(args[0], data, 0o644)
			}
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("wrote %d bytes\n", len(data))
		case "ls":
			for name := range objects {
				fmt.Printf("object  %s\n", name)
			}
			for name := range refs {
				fmt.Printf("weakref %s\n", name)
			}
		default:
			fmt.Printf("unknown command %q (try 'help')\n", cmd)
		}
	}
}
