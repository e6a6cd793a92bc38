package main

import (
	"fmt"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

var (
	flagConfig     string
	flagInput      string
	flagWidth      int
	flagHeight     int
	flagSlotSize   int
	flagSlots      int
	flagFrameRate  float64
	flagCarry      bool
	flagMaxCarry   int
	flagScale      string
	flagCacheSize  int
	flagListen     string
	flagMaxClients int
	flagQuality    int
	flagLoop       bool
	flagHelp       bool
	flagVersion    bool
)

func init() {
	flag.StringVarP(&flagConfig, "config", "c", "", "YAML config file")
	flag.StringVarP(&flagInput, "input", "i", "", "Container source")
	flag.IntVarP(&flagWidth, "width", "x", 1280, "Canvas width")
	flag.IntVarP(&flagHeight, "height", "y", 720, "Canvas height")
	flag.IntVarP(&flagSlotSize, "slot-size", "", 100<<10, "Slot size, in bytes")
	flag.IntVarP(&flagSlots, "slots", "", 3, "Number of slots")
	flag.Float64VarP(&flagFrameRate, "frame-rate", "r", 0, "Playback rate, in frames per second")
	flag.BoolVarP(&flagCarry, "carry", "", false, "Recover frames spanning slot boundaries")
	flag.IntVarP(&flagMaxCarry, "max-carry", "", 0, "Largest frame carried across slots")
	flag.StringVarP(&flagScale, "scale", "", "origin", "Frame placement")
	flag.IntVarP(&flagCacheSize, "cache-size", "", 0, "Decoded frame cache entries")
	flag.StringVarP(&flagListen, "listen", "l", ":8000", "Viewer address")
	flag.IntVarP(&flagMaxClients, "max-clients", "", 16, "Viewer connection limit")
	flag.IntVarP(&flagQuality, "quality", "q", 75, "Viewer JPEG quality")
	flag.BoolVarP(&flagLoop, "loop", "", false, "Restart playback when the source ends")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Streaming playback of 00dc-chunked image containers

Usage: alohaplay [OPTION]... -i SOURCE
       alohaplay pack OUTPUT IMAGE...

Source:
  -i, --input=SPEC       Container source: a path, or one of
                           file:PATH, mem:PATH, zstd:PATH, tcp:HOST:PORT
  -c, --config=FILE      Read settings from a YAML file. Flags take precedence.
      --loop             Restart playback when the source ends

Playback:
  -x, --width=NUM        Canvas width (default: 1280)
  -y, --height=NUM       Canvas height (default: 720)
  -r, --frame-rate=NUM   Frames per second, 0 for unpaced (default: 0)
      --scale=MODE       origin or fit (default: origin)
      --cache-size=NUM   Remember NUM decoded frames (default: 0)

Buffering:
      --slot-size=NUM    Slot size, in bytes (default: 102400)
      --slots=NUM        Number of slots (default: 3)
      --carry            Recover frames spanning slot boundaries
      --max-carry=NUM    Largest frame carried across slots (default: 8388608)

Viewer:
  -l, --listen=ADDR      HTTP address for the viewer and /metrics (default: :8000)
      --max-clients=NUM  Concurrent viewer connections (default: 16)
  -q, --quality=NUM      JPEG quality of viewer frames (default: 75)

Miscellaneous:
  -h, --help             Prints this help message and exits
  -v, --version          Prints version information and exits

Logging is configured through LOGLEVEL, e.g. LOGLEVEL=info,extract=debug

Please report bugs to: aloha@lanikailabs.com`

// Help information is printed and program exits
func help() {
	r := color.New(color.FgRed)
	y := color.New(color.FgYellow)
	b := color.New(color.FgCyan)

	// Print banner

	// Line 1
	r.Printf("       ")
	y.Printf(" _ ")
	b.Printf("       ")
	y.Printf(" _     ")
	r.Printf("       ")
	b.Printf("       ")
	y.Printf(" _ ")
	r.Printf("       ")
	y.Println("       ")

	// Line 2
	r.Printf("  __ _ ")
	y.Printf("| |")
	b.Printf("  ___  ")
	y.Printf("| |__  ")
	r.Printf("  __ _ ")
	b.Printf(" _ __  ")
	y.Printf("| |")
	r.Printf("  __ _ ")
	y.Println(" _   _ ")

	// Line 3
	r.Printf(" / _` |")
	y.Printf("| |")
	b.Printf(" / _ \\ ")
	y.Printf("| '_ \\ ")
	r.Printf(" / _` |")
	b.Printf("| '_ \\ ")
	y.Printf("| |")
	r.Printf(" / _` |")
	y.Println("| | | |")

	// Line 4
	r.Printf("| (_| |")
	y.Printf("| |")
	b.Printf("| (_) |")
	y.Printf("| | | |")
	r.Printf("| (_| |")
	b.Printf("| |_) |")
	y.Printf("| |")
	r.Printf("| (_| |")
	y.Println("| |_| |")

	// Line 5
	r.Printf(" \\__,_|")
	y.Printf("|_|")
	b.Printf(" \\___/ ")
	y.Printf("|_| |_|")
	r.Printf(" \\__,_|")
	b.Printf("| .__/ ")
	y.Printf("|_|")
	r.Printf(" \\__,_|")
	y.Println(" \\__, |")

	// Line 6
	r.Printf("       ")
	y.Printf("   ")
	b.Printf("       ")
	y.Printf("       ")
	r.Printf("       ")
	b.Printf("|_|    ")
	y.Printf("   ")
	r.Printf("       ")
	y.Println(" |___/ ")

	fmt.Println(helpString)
}

// Populated via -ldflags="-X main.GitRevisionId=...".
var GitRevisionId string

func version() {
	fmt.Println("alohaplay", GitRevisionId)
	fmt.Println("Copyright 2019 Lanikai Labs LLC. All rights reserved.")
}
