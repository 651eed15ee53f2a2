package lilypond

import (
	"io"
	"strings"

	"github.com/jsphweid/engrave/model"
	"github.com/jsphweid/engrave/rat"
)

func ottavaMarking(clef Clef) int {
	switch clef {
	case ClefBass8vb:
		return -1
	case ClefTreble8va:
		return 1
	default:
		return 0
	}
}

func derivedFromTreble(clef Clef) bool {
	return clef == ClefTreble || clef == ClefTreble8va
}

// writeLy serialises the engraving tree as LilyPond 2.22.1 source.
func writeLy(w io.Writer, music LyMusic) error {
	f := &formatter{file: newLyWriter(w, 4)}
	f.write(music)
	return f.file.err
}

type formatter struct {
	file        *lyWriter
	currentClef Clef
}

func (f *formatter) write(music LyMusic) {
	file := f.file
	file.Println(`\version "2.22.1"`)
	file.Println(`\language "english"`)
	file.Scope("singleVoice = ", func() {
		file.Println(`\stemNeutral`)
		file.Println(`\tieNeutral`)
		file.Println(`\dotsNeutral`)
		file.Println(`\tupletNeutral`)
		file.Println(`\override Rest.voiced-position = 0`)
	})
	file.Scope(`\score`, func() {
		file.Scope(`\layout`, func() {
			file.Scope(`\context`, func() {
				file.Println(`\Staff`)
				file.Println(`\override VerticalAxisGroup #'remove-first = ##t`)
				file.Println(`\consists "Merge_rests_engraver"`)
			})
			file.Scope(`\context`, func() {
				file.Println(`\PianoStaff`)
				file.Println(`\remove "Keep_alive_together_engraver"`)
			})
		})
		file.Scope(`\midi`, func() {})
		file.Scope("", func() {
			file.Scope(`\new PianoStaff`, func() {
				file.Println("<<")
				for _, staff := range music {
					file.Scope(`\new Staff`, func() {
						file.Println(`\numericTimeSignature`)
						f.writeStaff(staff)
					})
				}
				file.Println(">>")
			})
		})
	})
}

func (f *formatter) writeStaff(staff LyStaff) {
	f.currentClef = ClefNone
	nMaxVoices := 0
	for i := range staff {
		if n := len(staff[i].Voices); n > nMaxVoices {
			nMaxVoices = n
		}
	}
	for i := range staff {
		f.writeMeasureAttributes(staff[i].Attributes)
		f.writeMeasure(&staff[i], nMaxVoices)
	}
}

// keyNames is indexed by key + 7: 7 flats up to 7 sharps.
var keyNames = [15]string{
	"cf", "gf", "df", "af", "ef", "bf", "f",
	"c", "g", "d", "a", "e", "b", "fs", "cs",
}

func (f *formatter) writeMeasureAttributes(attrs model.MeasureAttributes) {
	if attrs.Time != nil {
		f.file.Println(`\time %d/%d`, attrs.Time.Numerator, attrs.Time.Denominator)
	}
	if attrs.Partial != nil {
		f.file.Println(`\partial %d*%d`, attrs.Partial.Denominator, attrs.Partial.Numerator)
	}
	if attrs.Key != nil {
		f.file.Println(`\key %s \major`, keyNames[*attrs.Key+7])
	}
}

func isNonEmptyVoice(voice LyVoice) bool {
	for i := range voice {
		if voice[i].Chord != nil && len(voice[i].Chord.Notes) > 0 {
			return true
		}
	}
	return false
}

func countNonEmptyVoices(measure *LyMeasure) int {
	res := 0
	for _, voice := range measure.Voices {
		if isNonEmptyVoice(voice) {
			res++
		}
	}
	return res
}

func (f *formatter) writeMeasure(measure *LyMeasure, nMaxVoices int) {
	nNonEmpty := countNonEmptyVoices(measure)
	if nNonEmpty == 0 { // just rests
		f.file.Println(`R%d*%d`, measure.CurrentPartial.Denominator, measure.CurrentPartial.Numerator)
		return
	}

	f.file.Printf("<< ")
	for i, voice := range measure.Voices {
		if i != 0 {
			f.file.Println(`\\`)
		}
		f.file.Printf("{ ")
		if isNonEmptyVoice(voice) {
			if nNonEmpty == 1 {
				f.file.Printf(`\singleVoice `)
			}
			f.writeVoice(voice, measure.CurrentPartial)
		} else {
			f.file.Printf("s%d*%d", measure.CurrentPartial.Denominator, measure.CurrentPartial.Numerator)
		}
		f.file.Printf("} ")
	}
	// Pad with empty voice separators so voice numbering stays stable
	// across measures
	f.file.Println("%s>>", strings.Repeat(`\`, 2*(nMaxVoices-len(measure.Voices))))
}

func (f *formatter) writeVoice(voice LyVoice, measureTime model.Time) {
	chordEnd := func(i int) rat.Rat {
		if i+1 == len(voice) {
			return rat.FromInt(measureTime.Numerator)
		}
		return voice[i+1].Start
	}

	inTuplet := false
	for i := range voice {
		chord := &voice[i]
		f.writeClef(chord.ClefChange)

		if chord.Tuplet.Pos == TupletHead && !inTuplet {
			inTuplet = true
			ratio := chord.Tuplet.Ratio
			if !isPowerOfTwo(ratio.Den()) {
				f.file.Printf(`\once \override TupletNumber.text = #tuplet-number::calc-fraction-text `)
			}
			f.file.Printf(`\tuplet %d/%d { `, ratio.Num(), ratio.Den())
		}

		duration := chordEnd(i).Sub(chord.Start).DivInt(measureTime.Denominator).Mul(chord.Tuplet.Ratio)
		f.writeChordWithDuration(chord.Chord, duration)

		if chord.Tuplet.Pos == TupletLast {
			f.file.Printf("} ")
			inTuplet = false
		}
	}
}

func (f *formatter) writeClef(clef Clef) {
	if clef == ClefNone {
		return
	}
	isTreble := derivedFromTreble(clef)
	if f.currentClef == ClefNone || isTreble != derivedFromTreble(f.currentClef) {
		name := "bass"
		if isTreble {
			name = "treble"
		}
		f.file.Printf(`\clef %s `, name)
	}
	if ottava := ottavaMarking(clef); ottava != ottavaMarking(f.currentClef) {
		f.file.Printf(`\ottava #%d `, ottava)
	}
	f.currentClef = clef
}

func (f *formatter) writeChordWithDuration(chord *model.Chord, duration rat.Rat) {
	f.writeChordNotes(chord)
	f.writeDuration(duration)
	if chord != nil && chord.Sustained {
		f.file.Printf("~ ")
	}
}

func (f *formatter) writeChordNotes(chord *model.Chord) {
	if chord == nil { // spacer
		f.file.Printf("s")
		return
	}

	if chord.Attributes.Tempo != 0 {
		f.file.Printf(`\tempo 4=%d `, int(chord.Attributes.Tempo))
	}

	if len(chord.Notes) == 0 { // rest
		f.file.Printf("r")
		return
	}

	if len(chord.Notes) > 1 {
		f.file.Printf("< ")
	}
	for _, note := range chord.Notes {
		f.writeNote(note)
	}
	if len(chord.Notes) > 1 {
		f.file.Printf("> ")
	}
}

// accidentalNames is indexed by accidental + 2.
var accidentalNames = [5]string{"ff", "f", "", "s", "ss"}

func (f *formatter) writeNote(note model.Note) {
	f.file.Printf("%c%s", "cdefgab"[note.Base], accidentalNames[note.Accidental+2])
	if delta := note.Octave - 3; delta > 0 {
		f.file.Printf("%s ", strings.Repeat("'", delta))
	} else {
		f.file.Printf("%s ", strings.Repeat(",", -delta))
	}
}

// longDurationNames is indexed by the duration in whole notes; 5 whole
// notes cannot be spelled as one dotted note and must have been split
// earlier by the partitioner.
var longDurationNames = [8]string{"", "1", `\breve`, `\breve.`, `\longa`, "", `\longa.`, `\longa..`}

func (f *formatter) writeDuration(duration rat.Rat) {
	if !f.writeValidatedDuration(duration) {
		// An unspellable duration here means the partitioner failed to
		// decompose something; emit a scaled whole note so that the
		// output still compiles.
		f.file.Printf("1*%d/%d ", duration.Num(), duration.Den())
	}
}

func (f *formatter) writeValidatedDuration(duration rat.Rat) bool {
	if !isPowerOfTwo(duration.Den()) {
		return false
	}

	// Notes no shorter than a whole note
	if duration.Den() == 1 {
		value := duration.Num()
		if value > 7 || longDurationNames[value] == "" {
			return false
		}
		f.file.Printf("%s ", longDurationNames[value])
		return true
	}

	// Plain lengths of 1/2^n
	if duration.Num() == 1 {
		f.file.Printf("%d ", duration.Den())
		return true
	}

	// Dotted notes of base * (2 - 2^-d)
	delta := rat.New(1, duration.Den())
	rounded := duration.Add(delta).DivInt(2)
	multi := rounded.Div(delta)
	if !multi.IsInt() || !isPowerOfTwo(multi.Num()) {
		return false
	}
	dots := 0
	for n := multi.Num(); n > 1; n >>= 1 {
		dots++
	}

	if rounded.Den() == 1 {
		value := rounded.Num()
		if value > 7 || longDurationNames[value] == "" {
			return false
		}
		f.file.Printf("%s", longDurationNames[value])
	} else {
		f.file.Printf("%d", rounded.Den())
	}
	f.file.Printf("%s ", strings.Repeat(".", dots))
	return true
}
