package main

import (
	"fmt"
	"log"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"github.com/leafo/midimerge/internal/config"
	"github.com/leafo/midimerge/internal/ui"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "com.leafo.midimerge"
	AppName = "MIDI Merge"

	WindowWidth  = 560
	WindowHeight = 260
)

func main() {
	log.Printf("%s v%s starting...\n", AppName, version)

	myApp := app.NewWithID(AppID)

	windowTitle := fmt.Sprintf("%s v%s", AppName, version)
	myWindow := myApp.NewWindow(windowTitle)
	myWindow.Resize(fyne.NewSize(WindowWidth, WindowHeight))

	settings := config.NewSettings(myApp)
	mergeWindow := ui.NewMergeWindow(myWindow, settings)

	// a file passed on the command line is loaded straight away
	if len(os.Args) > 1 {
		if err := mergeWindow.LoadInput(os.Args[1]); err != nil {
			log.Printf("Error loading %s: %v\n", os.Args[1], err)
		}
	}

	myWindow.ShowAndRun()
}
