// Package merger collapses the tracks of a Standard MIDI File into a single
// track, keeping every event at its absolute time.
//
// The functions here run the whole pipeline: read the input, parse it,
// merge the tracks, encode the result and optionally write it out. Every
// failure comes back as a *MergeError whose Kind says which stage failed,
// so front ends can tell a bad input file from an unwritable destination.
package merger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/leafo/midimerge/internal/midifile"
)

// Kind identifies the stage a merge failed in
type Kind int

const (
	KindNone    Kind = iota
	KindIORead       // input missing or unreadable
	KindFormat       // input is not a mergeable SMF
	KindEncode       // merged track could not be encoded
	KindIOWrite      // output could not be written
)

func (k Kind) String() string {
	switch k {
	case KindIORead:
		return "read error"
	case KindFormat:
		return "format error"
	case KindEncode:
		return "encode error"
	case KindIOWrite:
		return "write error"
	}
	return "no error"
}

// MergeError is returned by every function in this package
type MergeError struct {
	Kind Kind
	Path string // file the failing stage was working on, if any
	Err  error
}

func (e *MergeError) Error() string {
	name := e.Path
	if name == "" {
		name = "input"
	}

	switch e.Kind {
	case KindIORead:
		return fmt.Sprintf("could not read %s: %v", name, e.Err)
	case KindFormat:
		return fmt.Sprintf("could not parse %s: %v", name, e.Err)
	case KindEncode:
		return fmt.Sprintf("could not encode merged track of %s: %v", name, e.Err)
	case KindIOWrite:
		if e.Path == "" {
			return fmt.Sprintf("could not write output: %v", e.Err)
		}
		return fmt.Sprintf("could not write %s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// KindOf returns the failing stage of err, or KindNone if err did not come
// from this package
func KindOf(err error) Kind {
	var mergeErr *MergeError
	if errors.As(err, &mergeErr) {
		return mergeErr.Kind
	}
	return KindNone
}

// Options controls how the merged file is encoded
type Options struct {
	RunningStatus bool // omit repeated channel status bytes
}

// Result is a successful merge
type Result struct {
	Data     []byte            // complete encoded SMF
	Format   uint16            // format of the input, kept in the output
	Division midifile.Division // time division of the input, kept in the output
	Track    midifile.Track    // the merged track
	Input    *midifile.File    // the input as parsed, before merging
	Stats
}

// Load reads and parses an SMF without merging it
func Load(path string) (*midifile.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &MergeError{Kind: KindIORead, Path: path, Err: err}
	}

	file, err := midifile.Parse(data)
	if err != nil {
		return nil, &MergeError{Kind: KindFormat, Path: path, Err: err}
	}

	return file, nil
}

// Merge reads the SMF at path and returns it re-encoded with all tracks
// merged into one
func Merge(path string, opts Options) (*Result, error) {
	file, err := Load(path)
	if err != nil {
		return nil, err
	}

	return mergeFile(file, path, opts)
}

// MergeBytes merges an SMF held in memory
func MergeBytes(data []byte, opts Options) (*Result, error) {
	file, err := midifile.Parse(data)
	if err != nil {
		return nil, &MergeError{Kind: KindFormat, Err: err}
	}

	return mergeFile(file, "", opts)
}

// MergeTo merges the SMF at path and writes the result to w
func MergeTo(path string, w io.Writer, opts Options) (*Result, error) {
	result, err := Merge(path, opts)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(result.Data); err != nil {
		return nil, &MergeError{Kind: KindIOWrite, Err: err}
	}

	return result, nil
}

// MergeToFile merges inputPath and writes the result to outputPath. The
// output is written to a temporary file in the same directory and renamed
// into place, so a failed merge never leaves a partial file behind.
func MergeToFile(inputPath, outputPath string, opts Options) (*Result, error) {
	result, err := Merge(inputPath, opts)
	if err != nil {
		return nil, err
	}

	if err := WriteFile(outputPath, result); err != nil {
		return nil, err
	}

	return result, nil
}

// WriteFile writes an already merged result to path with the same temporary
// file and rename as MergeToFile
func WriteFile(path string, result *Result) error {
	if err := writeFileAtomic(path, result.Data); err != nil {
		return &MergeError{Kind: KindIOWrite, Path: path, Err: err}
	}
	return nil
}

func mergeFile(file *midifile.File, path string, opts Options) (*Result, error) {
	input := &midifile.File{
		Format:   file.Format,
		Division: file.Division,
		Tracks:   file.Tracks,
	}

	stats, err := MergeFile(file)
	if err != nil {
		kind := KindEncode
		if errors.Is(err, midifile.ErrUnmergeableFormat) {
			kind = KindFormat
		}
		return nil, &MergeError{Kind: kind, Path: path, Err: err}
	}

	writer := midifile.Writer{RunningStatus: opts.RunningStatus}
	data, err := writer.Encode(file)
	if err != nil {
		return nil, &MergeError{Kind: KindEncode, Path: path, Err: err}
	}

	return &Result{
		Data:     data,
		Format:   file.Format,
		Division: file.Division,
		Track:    file.Tracks[0],
		Input:    input,
		Stats:    stats,
	}, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmpPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+tempSuffix()+".tmp")

	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}

// tempSuffix returns a unique, time ordered name component
func tempSuffix() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return id.String()
}
