package lilypond

import (
	"testing"

	"github.com/jsphweid/engrave/model"
	"github.com/stretchr/testify/assert"
)

func TestPreferredClefForSingleNotes(t *testing.T) {
	cases := []struct {
		note model.Note
		clef Clef
	}{
		{model.Note{Base: model.C, Octave: 7}, ClefTreble8va},
		{model.Note{Base: model.C, Octave: 6}, ClefTreble8va},
		{model.Note{Base: model.B, Octave: 5}, ClefTreble},
		{model.Note{Base: model.C, Octave: 4}, ClefTreble},
		{model.Note{Base: model.B, Octave: 3}, ClefBass},
		{model.Note{Base: model.C, Octave: 2}, ClefBass},
		{model.Note{Base: model.B, Octave: 1}, ClefBass8vb},
		{model.Note{Base: model.C, Octave: 0}, ClefBass8vb},
	}
	assert := assert.New(t)
	for _, c := range cases {
		assert.Equal(preferredClefNote(c.note), c.clef, "%v", c.note)
	}
}

func TestClefAcceptableRanges(t *testing.T) {
	assert := assert.New(t)
	// Nothing is acceptable before a clef is set
	assert.False(clefAcceptableNote(model.Note{Base: model.C, Octave: 4}, ClefNone))
	// Treble reaches three ledger lines either side
	assert.True(clefAcceptableNote(model.Note{Base: model.E, Octave: 3}, ClefTreble))
	assert.True(clefAcceptableNote(model.Note{Base: model.F, Octave: 6}, ClefTreble))
	assert.False(clefAcceptableNote(model.Note{Base: model.D, Octave: 3}, ClefTreble))
	assert.False(clefAcceptableNote(model.Note{Base: model.G, Octave: 6}, ClefTreble))
}

func TestLedgerLines(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(ledgerLineInStaff(model.Note{Base: model.C, Octave: 4}, ClefTreble), 1)
	assert.Equal(ledgerLineInStaff(model.Note{Base: model.G, Octave: 4}, ClefTreble), 0)
	assert.Equal(ledgerLineInStaff(model.Note{Base: model.A, Octave: 5}, ClefTreble), 1)
}

func TestClefPlacedOnFirstChord(t *testing.T) {
	ly := mustConvert(t, "C2,D2,E2,F2,")
	voice := ly[0][0].Voices[0]
	assert.Equal(t, voice[0].ClefChange, ClefBass)
}

func TestHighMusicGetsOttavaClef(t *testing.T) {
	ly := mustConvert(t, "C7,D7,E7,F7,")
	voice := ly[0][0].Voices[0]
	assert.Equal(t, voice[0].ClefChange, ClefTreble8va)
}

func TestNoRedundantClefChanges(t *testing.T) {
	assert := assert.New(t)
	ly := mustConvert(t, "C4,D4,E4,F4,G4,A4,B4,C5,")
	count := 0
	for _, measure := range ly[0] {
		for _, voice := range measure.Voices {
			for _, ch := range voice {
				if ch.ClefChange != ClefNone {
					count++
				}
			}
		}
	}
	assert.Equal(count, 1)
}

func TestAlternatingRegisters(t *testing.T) {
	assert := assert.New(t)
	ly := mustConvert(t, "C2,C6,C2,C6,")

	var clefs []Clef
	for _, ch := range ly[0][0].Voices[0] {
		clefs = append(clefs, ch.ClefChange)
	}
	assert.Equal(clefs, []Clef{ClefBass, ClefTreble8va, ClefBass, ClefTreble8va})
}

func TestClefMovedToMeasureStartOverRests(t *testing.T) {
	assert := assert.New(t)
	ly := mustConvert(t, ".,C6,D6,E6,")

	voice := ly[0][0].Voices[0]
	// The leading rest carries the clef change decided for the first
	// sounding chord
	assert.Empty(voice[0].Chord.Notes)
	assert.Equal(voice[0].ClefChange, ClefTreble8va)
	assert.Equal(voice[1].ClefChange, ClefNone)
}

func TestWideChordUsesAverage(t *testing.T) {
	// A chord spanning C2..C6 fits no clef; the average (around C4)
	// selects treble
	ly := mustConvert(t, "(C2C6),.,.,.,")
	voice := ly[0][0].Voices[0]
	assert.Equal(t, voice[0].ClefChange, ClefTreble)
}
