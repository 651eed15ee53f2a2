package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// soundingPitch is the actual chromatic pitch, accidental included.
func soundingPitch(n Note) int {
	return baseSemitones[n.Base] + n.Accidental + (n.Octave+1)*12
}

func TestPitchID(t *testing.T) {
	assert := assert.New(t)

	id, err := Note{Base: C, Octave: 4}.PitchID()
	assert.NoError(err)
	assert.Equal(id, 60)

	id, err = Note{Base: A, Octave: 0}.PitchID()
	assert.NoError(err)
	assert.Equal(id, 21)

	_, err = Note{Base: C, Octave: 11}.PitchID()
	assert.ErrorIs(err, ErrPitchRange)
	_, err = Note{Base: B, Octave: -2}.PitchID()
	assert.ErrorIs(err, ErrPitchRange)
}

func TestTransposedUpSpelling(t *testing.T) {
	assert := assert.New(t)
	c4 := Note{Base: C, Octave: 4}

	assert.Equal(c4.TransposedUp(0), c4)
	assert.Equal(c4.TransposedUp(1), Note{Base: C, Octave: 4, Accidental: 1})
	assert.Equal(c4.TransposedUp(2), Note{Base: D, Octave: 4})
	assert.Equal(c4.TransposedUp(7), Note{Base: G, Octave: 4})
	assert.Equal(c4.TransposedUp(12), Note{Base: C, Octave: 5})
	// A chromatic step up keeps the letter name
	assert.Equal(Note{Base: B, Octave: 3}.TransposedUp(1), Note{Base: B, Octave: 3, Accidental: 1})
}

func TestTransposedDownSpelling(t *testing.T) {
	assert := assert.New(t)
	c4 := Note{Base: C, Octave: 4}

	assert.Equal(c4.TransposedDown(1), Note{Base: B, Octave: 3})
	assert.Equal(c4.TransposedDown(2), Note{Base: B, Octave: 3, Accidental: -1})
	assert.Equal(c4.TransposedDown(12), Note{Base: C, Octave: 3})
	assert.Equal(c4.TransposedDown(-2), Note{Base: D, Octave: 4})
}

func TestTransposeRoundTripKeepsPitch(t *testing.T) {
	assert := assert.New(t)
	for _, base := range []NoteBase{C, D, E, F, G, A, B} {
		start := Note{Base: base, Octave: 4}
		for n := 0; n <= 88; n++ {
			up := start.TransposedUp(n)
			if p := soundingPitch(up); p < 0 || p > 127 {
				continue
			}
			down := up.TransposedDown(n)
			assert.Equal(soundingPitch(down), soundingPitch(start),
				"base %v, %d semitones", base, n)
		}
	}
}

func TestTransposedByInterval(t *testing.T) {
	assert := assert.New(t)
	c4 := Note{Base: C, Octave: 4}

	assert.Equal(c4.TransposedUpByInterval(Interval{Number: 2, Quality: Major}), Note{Base: D, Octave: 4})
	assert.Equal(c4.TransposedUpByInterval(Interval{Number: 3, Quality: Minor}),
		Note{Base: E, Octave: 4, Accidental: -1})
	assert.Equal(c4.TransposedUpByInterval(Interval{Number: 4, Quality: Augmented}),
		Note{Base: F, Octave: 4, Accidental: 1})
	assert.Equal(c4.TransposedUpByInterval(Interval{Number: 5, Quality: Perfect}), Note{Base: G, Octave: 4})
	assert.Equal(c4.TransposedUpByInterval(Interval{Number: 8, Quality: Perfect}), Note{Base: C, Octave: 5})

	assert.Equal(c4.TransposedDownByInterval(Interval{Number: 2, Quality: Major}),
		Note{Base: B, Octave: 3, Accidental: -1})
	assert.Equal(c4.TransposedDownByInterval(Interval{Number: 5, Quality: Perfect}), Note{Base: F, Octave: 3})
	assert.Equal(c4.TransposedDownByInterval(Interval{Number: 8, Quality: Perfect}), Note{Base: C, Octave: 3})
}

func TestNormalizeMultiAccidentals(t *testing.T) {
	assert := assert.New(t)
	// E triple-sharp respells to an F variant at the same pitch
	triple := Note{Base: E, Octave: 4, Accidental: 3}
	normalized := normalizeMultiAccidentals(triple)
	assert.True(normalized.Accidental < 3)
	assert.Equal(soundingPitch(normalized), soundingPitch(triple))
}
