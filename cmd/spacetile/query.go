package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/1broseidon/spacetile/internal/ipc"
	"github.com/1broseidon/spacetile/internal/platform"
	"github.com/1broseidon/spacetile/internal/tiling"
)

func printQueryUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: spacetile query <displays|workspaces|windows|window|layout|apps|metrics|dump> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --space N    Restrict to one space (layout requires it)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "'query window' takes a window id as PID:IDX.")
}

func runQuery(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printQueryUsage(os.Stderr)
		return 2
	}
	what := args[0]

	fs := flag.NewFlagSet("query "+what, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	space := fs.Uint64("space", 0, "Space id (see 'spacetile query displays')")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	client := ipc.NewClient()
	var (
		result any
		err    error
	)
	switch what {
	case "displays":
		result, err = client.Displays()
	case "workspaces":
		result, err = client.Workspaces(platform.SpaceID(*space))
	case "windows":
		result, err = client.Windows(platform.SpaceID(*space))
	case "window":
		if fs.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "query window requires PID:IDX")
			return 2
		}
		wid, perr := parseWindowID(fs.Arg(0))
		if perr != nil {
			fmt.Fprintln(os.Stderr, perr)
			return 2
		}
		result, err = client.Window(wid)
	case "layout":
		if *space == 0 {
			fmt.Fprintln(os.Stderr, "query layout requires --space")
			return 2
		}
		result, err = client.Layout(platform.SpaceID(*space))
	case "apps":
		result, err = client.Applications()
	case "metrics":
		result, err = client.Metrics()
	case "dump":
		dump, derr := client.Dump()
		if derr != nil {
			fmt.Fprintln(os.Stderr, derr)
			return 1
		}
		fmt.Print(dump)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown query: %s\n\n", what)
		printQueryUsage(os.Stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return writeJSON(os.Stdout, result)
}

// writeJSON indents output for terminals and keeps it compact for pipes.
func writeJSON(w io.Writer, v any) int {
	indent := false
	if f, ok := w.(*os.File); ok {
		indent = term.IsTerminal(int(f.Fd()))
	}
	if err := encodeJSON(w, v, indent); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func encodeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func parseWindowID(s string) (platform.WindowID, error) {
	pidStr, idxStr, ok := strings.Cut(s, ":")
	if !ok {
		return platform.WindowID{}, fmt.Errorf("window id %q must be PID:IDX", s)
	}
	pid, err := strconv.ParseInt(pidStr, 10, 32)
	if err != nil || pid <= 0 {
		return platform.WindowID{}, fmt.Errorf("invalid pid %q", pidStr)
	}
	idx, err := strconv.ParseUint(idxStr, 0, 32)
	if err != nil {
		return platform.WindowID{}, fmt.Errorf("invalid window index %q", idxStr)
	}
	return platform.WindowID{PID: int32(pid), Idx: uint32(idx)}, nil
}

func runCommand(args []string) int {
	fs := flag.NewFlagSet("cmd", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	space := fs.Uint64("space", 0, "Space to run on (default: the space under the cursor)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: spacetile cmd [--space N] <name> [args...]")
		fmt.Fprintln(os.Stderr, "       spacetile cmd list")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	if fs.Arg(0) == "list" {
		for _, name := range tiling.CommandNames() {
			fmt.Println(name)
		}
		fmt.Println("toggle_space")
		return 0
	}

	if err := ipc.NewClient().RunCommand(fs.Arg(0), fs.Args()[1:], platform.SpaceID(*space)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runState(args []string) int {
	if len(args) == 0 || args[0] != "save" {
		fmt.Fprintln(os.Stderr, "Usage: spacetile state save [--path PATH]")
		return 2
	}
	fs := flag.NewFlagSet("state save", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	path := fs.String("path", "", "File to write (default: the configured state file)")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}
	written, err := ipc.NewClient().SaveState(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("state: saved to %s\n", written)
	return 0
}
