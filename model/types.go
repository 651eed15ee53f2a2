// Package model holds the data structures shared by the notation compiler
// stages: written notes, chords, beats, and the measured music tree.
package model

// Time is a time signature. The denominator is always a power of two.
type Time struct {
	Numerator   int
	Denominator int
}

// ChordAttributes are per-chord annotations. A Tempo of 0 means no tempo
// mark (valid tempi are 10 to 1000).
type ChordAttributes struct {
	Tempo float64
}

// Chord is a vertical group of notes struck together. An empty Notes list
// is a rest. Sustained marks a chord that extends the chord before it.
type Chord struct {
	Notes      []Note
	Sustained  bool
	Attributes ChordAttributes
}

// Clone returns a deep copy of the chord.
func (c Chord) Clone() Chord {
	res := c
	if c.Notes != nil {
		res.Notes = append([]Note(nil), c.Notes...)
	}
	return res
}

// Voice is the ordered chords of one monophonic line within a beat.
type Voice []Chord

// Beat is the parallel voices sounding within one beat.
type Beat []Voice

// MeasureAttributes are the measure-level announcements a beat may carry.
// Key counts sharps (positive) or flats (negative).
type MeasureAttributes struct {
	Key     *int
	Time    *Time
	Partial *Time
}

// IsNull reports whether no field is set.
func (a MeasureAttributes) IsNull() bool {
	return a.Key == nil && a.Time == nil && a.Partial == nil
}

// MergeWith overwrites each field that is set in other.
func (a *MeasureAttributes) MergeWith(other MeasureAttributes) {
	if other.Key != nil {
		a.Key = other.Key
	}
	if other.Time != nil {
		a.Time = other.Time
	}
	if other.Partial != nil {
		a.Partial = other.Partial
	}
}

// Measure marks where a measure starts within a section's beats.
type Measure struct {
	StartBeat  int
	Attributes MeasureAttributes
}

// Staff is an ordered run of beats.
type Staff []Beat

// Section is a group of parallel staves sharing one measure structure.
type Section struct {
	Staves   []Staff
	Measures []Measure
}

// BeatIndexRangeOfMeasure returns the half-open beat range of a measure.
func (s *Section) BeatIndexRangeOfMeasure(measure int) (int, int) {
	start := s.Measures[measure].StartBeat
	stop := 0
	if measure+1 == len(s.Measures) {
		stop = len(s.Staves[0])
	} else {
		stop = s.Measures[measure+1].StartBeat
	}
	return start, stop
}

// Music is the measured music: an ordered list of sections.
type Music []Section
