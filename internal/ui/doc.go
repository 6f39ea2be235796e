package ui

// Package ui contains the Fyne-based desktop front end. It lets the user pick
// a MIDI file, shows what the merger reports about it, and saves the merged
// single-track file. The window holds no MIDI state beyond the input path.
