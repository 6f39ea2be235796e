package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/leafo/midimerge/internal/merger"
)

const (
	exitOK    = 0
	exitMerge = 1 // input unreadable, malformed or not encodable
	exitUsage = 2
	exitWrite = 3 // output could not be written
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("midimerge", flag.ContinueOnError)
	flags.SetOutput(stderr)

	showInfo := flags.Bool("info", false, "Print a summary of the input and merged output")
	jsonOutput := flags.Bool("json", false, "Output the summary as JSON")
	dumpEvents := flags.Bool("dump", false, "List every merged event with its absolute tick")
	runningStatus := flags.Bool("running-status", false, "Omit repeated channel status bytes in the output")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: midimerge [flags] <input.mid> <output.mid>\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitUsage
	}

	if flags.NArg() != 2 {
		flags.Usage()
		return exitUsage
	}

	logger := log.New(stderr, "", log.LstdFlags)
	st := newStyles(stdout)

	inputPath := flags.Arg(0)
	outputPath := flags.Arg(1)

	result, err := merger.MergeToFile(inputPath, outputPath, merger.Options{RunningStatus: *runningStatus})
	if err != nil {
		logger.Printf("Error merging MIDI file: %v\n", err)
		if merger.KindOf(err) == merger.KindIOWrite {
			return exitWrite
		}
		return exitMerge
	}

	// The merged file is written at this point, so summary output never
	// changes the exit status.
	if *jsonOutput {
		jsonData, err := json.MarshalIndent(buildReport(inputPath, outputPath, result), "", "  ")
		if err != nil {
			logger.Printf("Error marshaling to JSON: %v\n", err)
			return exitOK
		}
		fmt.Fprintln(stdout, string(jsonData))
		return exitOK
	}

	if *dumpEvents {
		dumpTrack(stdout, result)
		fmt.Fprintln(stdout)
	}

	if *showInfo {
		report := buildReport(inputPath, outputPath, result)
		printMidiInfo(stdout, st, report.Input)
		printMidiInfo(stdout, st, report.Output)
	}

	fmt.Fprintf(stdout, "%s %s\n", st.success.Render("Merged"), outputPath)
	fmt.Fprintln(stdout, st.dim.Render(fmt.Sprintf("  %d tracks, %d events -> 1 track, %d events (%d end-of-track markers dropped)",
		result.InputTracks, result.InputEvents, result.OutputEvents, result.DroppedEndOfTrack)))

	return exitOK
}

type styles struct {
	success lipgloss.Style
	heading lipgloss.Style
	dim     lipgloss.Style
}

// newStyles renders for w, so colors are dropped when w is not a terminal
func newStyles(w io.Writer) styles {
	renderer := lipgloss.NewRenderer(w)
	return styles{
		success: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		heading: renderer.NewStyle().Bold(true),
		dim:     renderer.NewStyle().Faint(true),
	}
}
