package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/leafo/midimerge/internal/config"
	"github.com/leafo/midimerge/internal/merger"
)

// Dialog titles
const (
	TitleMergeComplete = "Merge complete"
	TitleReadFailed    = "Could not read input"
	TitleEncodeFailed  = "Could not encode merged file"
	TitleWriteFailed   = "Could not write output"
)

const noFileText = "No MIDI file loaded"

var errNoInput = errors.New("no input loaded")

var midiExtensions = []string{".mid", ".midi"}

// MergeWindow is the single window of the desktop front end
type MergeWindow struct {
	window   fyne.Window
	settings *config.Settings

	inputPath string

	pathLabel    *widget.Label
	infoLabel    *widget.Label
	statusLabel  *widget.Label
	openBtn      *widget.Button
	mergeBtn     *widget.Button
	runningCheck *widget.Check
}

// NewMergeWindow builds the UI and sets it as the window content
func NewMergeWindow(window fyne.Window, settings *config.Settings) *MergeWindow {
	mw := &MergeWindow{
		window:   window,
		settings: settings,
	}

	mw.buildUI()
	return mw
}

func (mw *MergeWindow) buildUI() {
	mw.pathLabel = widget.NewLabel(noFileText)
	mw.pathLabel.Wrapping = fyne.TextWrapBreak
	mw.infoLabel = widget.NewLabel("")
	mw.statusLabel = widget.NewLabel("")

	mw.openBtn = widget.NewButtonWithIcon("Open MIDI file", theme.FolderOpenIcon(), mw.onOpen)
	mw.mergeBtn = widget.NewButtonWithIcon("Merge and save", theme.DocumentSaveIcon(), mw.onMerge)
	mw.mergeBtn.Importance = widget.HighImportance
	mw.mergeBtn.Disable()

	mw.runningCheck = widget.NewCheck("Use running status", nil)
	mw.runningCheck.SetChecked(mw.settings.GetRunningStatus())
	mw.runningCheck.OnChanged = mw.settings.SetRunningStatus

	buttons := container.NewHBox(mw.openBtn, mw.mergeBtn)

	mw.window.SetContent(container.NewPadded(container.NewVBox(
		mw.pathLabel,
		mw.infoLabel,
		widget.NewSeparator(),
		mw.runningCheck,
		buttons,
		mw.statusLabel,
	)))
}

// LoadInput parses path and shows its track count. On failure the error is
// shown in a dialog and the previous input is cleared.
func (mw *MergeWindow) LoadInput(path string) error {
	file, err := merger.Load(path)
	if err != nil {
		mw.clearInput()
		mw.showError(err)
		return err
	}

	mw.inputPath = path
	mw.settings.SetLastDirectory(filepath.Dir(path))

	mw.pathLabel.SetText(path)
	mw.infoLabel.SetText(fmt.Sprintf("%d tracks, %d events, format %d, %s",
		len(file.Tracks), file.EventCount(), file.Format, file.Division))
	mw.statusLabel.SetText("")

	if file.SharedTimeline() {
		mw.mergeBtn.Enable()
	} else {
		mw.mergeBtn.Disable()
		mw.statusLabel.SetText("Format 2 files hold independent sequences and cannot be merged")
	}

	return nil
}

// SaveMerged merges the loaded input into outputPath and reports the outcome
// in a dialog
func (mw *MergeWindow) SaveMerged(outputPath string) (*merger.Result, error) {
	result, err := mw.prepareMerge()
	if err != nil {
		return nil, err
	}
	if err := mw.writeMerged(outputPath, result); err != nil {
		return nil, err
	}
	return result, nil
}

// prepareMerge merges the loaded input in memory. Read and encode failures
// are reported here, before any output path is chosen.
func (mw *MergeWindow) prepareMerge() (*merger.Result, error) {
	if mw.inputPath == "" {
		return nil, errNoInput
	}

	opts := merger.Options{RunningStatus: mw.settings.GetRunningStatus()}
	result, err := merger.Merge(mw.inputPath, opts)
	if err != nil {
		mw.statusLabel.SetText("Merge failed")
		mw.showError(err)
		return nil, err
	}
	return result, nil
}

// writeMerged saves a merged result. A failed write never removes anything
// at outputPath.
func (mw *MergeWindow) writeMerged(outputPath string, result *merger.Result) error {
	if err := merger.WriteFile(outputPath, result); err != nil {
		mw.statusLabel.SetText("Merge failed")
		dialog.ShowInformation(ErrorTitle(err), err.Error()+leftoverNote(outputPath), mw.window)
		return err
	}

	message := fmt.Sprintf("Merged %d tracks into one track of %d events.\nSaved to %s",
		result.InputTracks, result.OutputEvents, outputPath)
	mw.statusLabel.SetText("Saved " + outputPath)
	dialog.ShowInformation(TitleMergeComplete, message, mw.window)

	return nil
}

// leftoverNote mentions the empty file the save dialog leaves behind when it
// created or truncated outputPath and the write then failed
func leftoverNote(outputPath string) string {
	info, err := os.Stat(outputPath)
	if err != nil || !info.Mode().IsRegular() || info.Size() != 0 {
		return ""
	}
	return "\nAn empty file was left at " + outputPath
}

func (mw *MergeWindow) clearInput() {
	mw.inputPath = ""
	mw.pathLabel.SetText(noFileText)
	mw.infoLabel.SetText("")
	mw.mergeBtn.Disable()
}

func (mw *MergeWindow) onOpen() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, mw.window)
			return
		}
		if reader == nil {
			return
		}

		path := reader.URI().Path()
		reader.Close()

		mw.LoadInput(path)
	}, mw.window)

	fd.SetFilter(storage.NewExtensionFileFilter(midiExtensions))
	if location := mw.lastLocation(); location != nil {
		fd.SetLocation(location)
	}
	fd.Show()
}

func (mw *MergeWindow) onMerge() {
	if mw.inputPath == "" {
		return
	}

	result, err := mw.prepareMerge()
	if err != nil {
		return
	}

	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, mw.window)
			return
		}
		if writer == nil {
			return
		}

		// the dialog has already created the file; the merged data replaces it
		uri := writer.URI()
		writer.Close()

		mw.writeMerged(uri.Path(), result)
	}, mw.window)

	fd.SetFileName(mw.settings.MergedFileName(mw.inputPath))
	fd.SetFilter(storage.NewExtensionFileFilter(midiExtensions))
	if location := mw.lastLocation(); location != nil {
		fd.SetLocation(location)
	}
	fd.Show()
}

func (mw *MergeWindow) lastLocation() fyne.ListableURI {
	dir := mw.settings.GetLastDirectory()
	if dir == "" {
		return nil
	}

	lister, err := storage.ListerForURI(storage.NewFileURI(dir))
	if err != nil {
		return nil
	}
	return lister
}

func (mw *MergeWindow) showError(err error) {
	dialog.ShowInformation(ErrorTitle(err), err.Error(), mw.window)
}

// ErrorTitle names the side of the merge that failed
func ErrorTitle(err error) string {
	switch merger.KindOf(err) {
	case merger.KindIOWrite:
		return TitleWriteFailed
	case merger.KindEncode:
		return TitleEncodeFailed
	}
	return TitleReadFailed
}
