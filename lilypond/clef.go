package lilypond

import (
	"sort"

	"github.com/jsphweid/engrave/model"
)

// Clef placement works on staff positions: octave and letter name only,
// accidentals ignored.

func staffPos(n model.Note) int { return n.Octave*7 + int(n.Base) }

func noteFromStaffPos(v int) model.Note {
	return model.Note{Base: model.NoteBase(v % 7), Octave: v / 7}
}

func averageNote(lhs, rhs model.Note) model.Note {
	return noteFromStaffPos((staffPos(lhs) + staffPos(rhs)) / 2)
}

// cmpNoteStaffPos reports whether lhs sits below rhs on the staff.
func cmpNoteStaffPos(lhs, rhs model.Note) bool {
	if lhs.Octave != rhs.Octave {
		return lhs.Octave < rhs.Octave
	}
	return lhs.Base < rhs.Base
}

type noteRange struct {
	low  model.Note
	high model.Note
}

func mergeRange(lhs, rhs noteRange) noteRange {
	res := noteRange{low: rhs.low, high: rhs.high}
	if cmpNoteStaffPos(lhs.low, rhs.low) {
		res.low = lhs.low
	}
	if cmpNoteStaffPos(rhs.high, lhs.high) {
		res.high = lhs.high
	}
	return res
}

func noteInStaffRange(note model.Note, rng noteRange) bool {
	return !cmpNoteStaffPos(note, rng.low) && !cmpNoteStaffPos(rng.high, note)
}

// inStaffRange is the five-line window of each clef. The "none" clef is
// never acceptable.
func inStaffRange(clef Clef) noteRange {
	switch clef {
	case ClefBass8vb:
		return noteRange{model.Note{Base: model.G, Octave: 1}, model.Note{Base: model.A, Octave: 2}}
	case ClefBass:
		return noteRange{model.Note{Base: model.G, Octave: 2}, model.Note{Base: model.A, Octave: 3}}
	case ClefTreble:
		return noteRange{model.Note{Base: model.E, Octave: 4}, model.Note{Base: model.F, Octave: 5}}
	case ClefTreble8va:
		return noteRange{model.Note{Base: model.E, Octave: 5}, model.Note{Base: model.F, Octave: 6}}
	default:
		return noteRange{model.Note{Base: model.D}, model.Note{Base: model.C}}
	}
}

func ledgerLineInStaff(note model.Note, clef Clef) int {
	rng := inStaffRange(clef)
	notePos := staffPos(note)
	if low := staffPos(rng.low); notePos < low {
		return (low - notePos) / 2
	}
	if high := staffPos(rng.high); notePos > high {
		return (notePos - high) / 2
	}
	return 0
}

// clefAcceptableRangeOf is the range of pitches needing at most 3 ledger
// lines in that clef, with the ottava clefs not extending away from the
// octave alteration direction. MIDI 0..127 corresponds to C-1..G9.
func clefAcceptableRangeOf(clef Clef) noteRange {
	switch clef {
	case ClefBass8vb:
		return noteRange{model.Note{Base: model.C, Octave: -1}, model.Note{Base: model.B, Octave: 2}}
	case ClefBass:
		return noteRange{model.Note{Base: model.G, Octave: 1}, model.Note{Base: model.A, Octave: 4}}
	case ClefTreble:
		return noteRange{model.Note{Base: model.E, Octave: 3}, model.Note{Base: model.F, Octave: 6}}
	case ClefTreble8va:
		return noteRange{model.Note{Base: model.D, Octave: 5}, model.Note{Base: model.G, Octave: 9}}
	default:
		return noteRange{model.Note{Base: model.D}, model.Note{Base: model.C}}
	}
}

func clefAcceptableNote(note model.Note, clef Clef) bool {
	return noteInStaffRange(note, clefAcceptableRangeOf(clef))
}

func clefAcceptable(rng noteRange, clef Clef) bool {
	return (clefAcceptableNote(rng.low, clef) && clefAcceptableNote(rng.high, clef)) ||
		clefAcceptableNote(averageNote(rng.low, rng.high), clef)
}

func preferredClefNote(note model.Note) Clef {
	switch {
	case cmpNoteStaffPos(model.Note{Base: model.B, Octave: 5}, note): // C6 and up
		return ClefTreble8va
	case cmpNoteStaffPos(model.Note{Base: model.B, Octave: 3}, note): // C4 and up
		return ClefTreble
	case cmpNoteStaffPos(model.Note{Base: model.B, Octave: 1}, note): // C2 and up
		return ClefBass
	default: // up to B1
		return ClefBass8vb
	}
}

func preferredClef(rng noteRange) Clef {
	if rng.low == rng.high {
		return preferredClefNote(rng.low)
	}
	lowPref := preferredClefNote(rng.low)
	highPref := preferredClefNote(rng.high)
	if lowPref == highPref {
		return lowPref
	}
	lowAcceptable := clefAcceptableNote(rng.high, lowPref)
	highAcceptable := clefAcceptableNote(rng.low, highPref)
	if lowAcceptable != highAcceptable { // exactly one works for the whole range
		if lowAcceptable {
			return lowPref
		}
		return highPref
	}
	if !lowAcceptable { // neither works; fall back to the average
		return preferredClefNote(averageNote(rng.low, rng.high))
	}
	// Both work; pick the one needing fewer ledger lines
	ledgerLow := ledgerLineInStaff(rng.low, lowPref) + ledgerLineInStaff(rng.high, lowPref)
	ledgerHigh := ledgerLineInStaff(rng.low, highPref) + ledgerLineInStaff(rng.high, highPref)
	if ledgerLow < ledgerHigh {
		return lowPref
	}
	return highPref
}

type chordInfo struct {
	chord *LyChord
	rng   noteRange
}

type measureNotesInfo struct {
	measure *LyMeasure
	chords  []chordInfo
}

// placeClefChanges decides and anchors clef changes for one staff. It runs
// in two passes: extract a side list of sounding chords with their staff
// ranges, then scan and write the decisions back.
func placeClefChanges(staff LyStaff) {
	p := &clefPlacer{staff: staff}
	p.extractAndSortChords()
	p.mergeSimultaneousChords()
	p.findClefChanges()
	p.adjustClefChanges()
}

type clefPlacer struct {
	staff    LyStaff
	measures []measureNotesInfo
}

func (p *clefPlacer) extractAndSortChords() {
	for i := range p.staff {
		inMeasure := &p.staff[i]
		info := measureNotesInfo{measure: inMeasure}
		for v := range inMeasure.Voices {
			voice := inMeasure.Voices[v]
			for k := range voice {
				ch := &voice[k]
				if ch.Chord == nil || len(ch.Chord.Notes) == 0 {
					continue
				}
				low, high := ch.Chord.Notes[0], ch.Chord.Notes[0]
				for _, note := range ch.Chord.Notes[1:] {
					if cmpNoteStaffPos(note, low) {
						low = note
					}
					if cmpNoteStaffPos(high, note) {
						high = note
					}
				}
				info.chords = append(info.chords, chordInfo{chord: ch, rng: noteRange{low, high}})
			}
		}
		sort.SliceStable(info.chords, func(a, b int) bool {
			return info.chords[a].chord.Start.Less(info.chords[b].chord.Start)
		})
		p.measures = append(p.measures, info)
	}
}

func (p *clefPlacer) mergeSimultaneousChords() {
	for i := range p.measures {
		chords := p.measures[i].chords
		out := 0
		for j := range chords {
			if out > 0 && chords[out-1].chord.Start.Equal(chords[j].chord.Start) {
				chords[out-1].rng = mergeRange(chords[out-1].rng, chords[j].rng)
				continue
			}
			chords[out] = chords[j]
			out++
		}
		p.measures[i].chords = chords[:out]
	}
}

func (p *clefPlacer) findClefChanges() {
	current := ClefNone
	for i := range p.measures {
		measure := &p.measures[i]
		for j := range measure.chords {
			chord := &measure.chords[j]
			// Only grant a clef change when the former clef no longer
			// accommodates some notes
			if clefAcceptable(chord.rng, current) {
				continue
			}
			current = preferredClef(chord.rng)
			p.findAnchor(i, j, current).chord.ClefChange = current
		}
	}
}

// findAnchor picks where to attach a new clef change, preferring (highest
// first): an earlier chord already carrying a clef change, a whole-beat (or
// first) position within this measure, or the chord itself.
func (p *clefPlacer) findAnchor(i, j int, clef Clef) *chordInfo {
	measure := &p.measures[i]
	info := &measure.chords[j]
	for k := j; k >= 0; k-- {
		ch := &measure.chords[k]
		if !clefAcceptable(ch.rng, clef) {
			return info
		}
		if ch.chord.ClefChange != ClefNone {
			return ch
		}
		// k == 0 means this chord is the first sounding chord of the
		// measure, maybe preceded by rests
		if k == 0 || ch.chord.Start.IsInt() {
			info = ch
		}
	}
	for m := i - 1; m >= 0; m-- {
		chords := p.measures[m].chords
		for k := len(chords) - 1; k >= 0; k-- {
			ch := &chords[k]
			if !clefAcceptable(ch.rng, clef) {
				return info
			}
			if ch.chord.ClefChange != ClefNone {
				return ch
			}
		}
	}
	return info
}

// adjustClefChanges moves a clef change to the very start of its measure
// when the carrying chord is only preceded by rests or spacers.
func (p *clefPlacer) adjustClefChanges() {
	for i := range p.measures {
		measure := &p.measures[i]
		if len(measure.chords) == 0 {
			continue
		}
		if first := measure.chords[0].chord; !first.Start.IsZero() {
			clef := first.ClefChange
			first.ClefChange = ClefNone
			for v := range measure.measure.Voices {
				if voice := measure.measure.Voices[v]; len(voice) != 0 {
					measure.measure.Voices[v][0].ClefChange = clef
					break
				}
			}
		}
	}
}
