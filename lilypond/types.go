// Package lilypond lowers measured music into an engraving-ready tree and
// serialises it as LilyPond source.
package lilypond

import (
	"io"

	"github.com/jsphweid/engrave/model"
	"github.com/jsphweid/engrave/rat"
)

// Clef is a clef choice, possibly octave-displaced.
type Clef uint8

const (
	ClefNone Clef = iota
	ClefBass8vb
	ClefBass
	ClefTreble
	ClefTreble8va
)

// TupletPosition marks where a chord sits within its tuplet bracket.
type TupletPosition uint8

const (
	TupletNone TupletPosition = iota
	TupletHead
	TupletLast
)

// TupletAttributes carry a chord's tuplet ratio and bracket position.
type TupletAttributes struct {
	Ratio rat.Rat
	Pos   TupletPosition
}

// LyChord is one event in an engraved voice. A nil Chord is a spacer; a
// chord with no notes is a rest. Unlike the parser's chords, Sustained on
// the inner chord here means that it ties into the next event.
type LyChord struct {
	Start      rat.Rat // offset within the measure, in 1/denominator beats
	Tuplet     TupletAttributes
	Chord      *model.Chord
	ClefChange Clef
}

// LyVoice is an engraved voice, ordered by start offset.
type LyVoice []LyChord

// LyMeasure is one measure of an engraved staff.
type LyMeasure struct {
	CurrentTime    model.Time
	CurrentPartial model.Time
	Attributes     model.MeasureAttributes
	Voices         []LyVoice
}

// LyStaff is the engraved measures of one staff.
type LyStaff []LyMeasure

// LyMusic is the whole engraved score, one staff per entry.
type LyMusic []LyStaff

// Export lowers music and writes it as LilyPond source.
func Export(w io.Writer, music model.Music) error {
	return writeLy(w, ConvertToLy(music))
}
