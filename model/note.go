package model

import "errors"

// NoteBase is one of the seven letter names.
type NoteBase uint8

const (
	C NoteBase = iota
	D
	E
	F
	G
	A
	B
)

// Semitone offsets of C, D, E, F, G, A, B above the octave's C.
var baseSemitones = [7]int{0, 2, 4, 5, 7, 9, 11}

// Note is a written pitch: letter name, octave and accidental
// (+1 per sharp, -1 per flat).
type Note struct {
	Base       NoteBase
	Octave     int
	Accidental int
}

// ErrPitchRange reports a note whose pitch id falls outside 0..127.
var ErrPitchRange = errors.New("note value must be between 0 and 127")

// transposedPure moves the note by the given diatonic step count, adjusting
// the accidental so that the result sounds `semitones` away from the input.
func (n Note) transposedPure(semitones, diatonic int) Note {
	oldBase := int(n.Base)
	sum := oldBase + diatonic
	newBase := ((sum % 7) + 7) % 7
	diffOctave := (sum - newBase) / 7
	diffAccidental := baseSemitones[oldBase] + semitones - baseSemitones[newBase] - diffOctave*12
	return Note{
		Base:       NoteBase(newBase),
		Octave:     n.Octave + diffOctave,
		Accidental: n.Accidental + diffAccidental,
	}
}

// normalizeMultiAccidentals respells triple (or worse) accidentals onto the
// neighboring letter name.
func normalizeMultiAccidentals(n Note) Note {
	if n.Accidental >= 3 {
		return n.transposedPure(0, 1)
	}
	if n.Accidental <= -3 {
		return n.transposedPure(0, -1)
	}
	return n
}

// Diatonic step counts used when transposing up/down by raw semitones.
var (
	upDiatonic   = [12]int{0, 0, 1, 1, 2, 3, 3, 4, 4, 5, 5, 6}
	downDiatonic = [12]int{0, -1, -1, -2, -2, -3, -3, -4, -5, -5, -6, -6}
)

// TransposedUp returns the note raised by the given number of semitones.
func (n Note) TransposedUp(semitones int) Note {
	if semitones == 0 {
		return n
	}
	if semitones < 0 {
		return n.TransposedDown(-semitones)
	}
	res := n
	res.Octave += semitones / 12
	semitones %= 12
	return normalizeMultiAccidentals(res.transposedPure(semitones, upDiatonic[semitones]))
}

// TransposedDown returns the note lowered by the given number of semitones.
func (n Note) TransposedDown(semitones int) Note {
	if semitones == 0 {
		return n
	}
	if semitones < 0 {
		return n.TransposedUp(-semitones)
	}
	res := n
	res.Octave -= semitones / 12
	semitones %= 12
	return normalizeMultiAccidentals(res.transposedPure(-semitones, downDiatonic[semitones]))
}

// TransposedUpByInterval transposes up by a diatonic interval, keeping the
// spelling implied by the interval's number.
func (n Note) TransposedUpByInterval(iv Interval) Note {
	return normalizeMultiAccidentals(n.transposedPure(iv.Semitones(), iv.Number-1))
}

// TransposedDownByInterval transposes down by a diatonic interval.
func (n Note) TransposedDownByInterval(iv Interval) Note {
	return normalizeMultiAccidentals(n.transposedPure(-iv.Semitones(), -(iv.Number - 1)))
}

// PitchID returns the MIDI note number of the letter name and octave
// (accidentals are not applied here; they only affect spelling).
func (n Note) PitchID() (int, error) {
	value := baseSemitones[n.Base] + (n.Octave+1)*12
	if value < 0 || value > 127 {
		return 0, ErrPitchRange
	}
	return value, nil
}
