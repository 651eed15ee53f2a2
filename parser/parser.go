// Package parser turns notation text into measured music. It drives the
// preprocessor, parses the flat text into an unmeasured voice/beat
// structure, and finally groups beats into measures.
package parser

import (
	"strconv"

	"github.com/jsphweid/engrave/apperr"
	"github.com/jsphweid/engrave/model"
	"github.com/jsphweid/engrave/preproc"
)

// ParseMusic compiles notation text into measured music.
func ParseMusic(text string) (model.Music, error) {
	pre, err := preproc.Process(text)
	if err != nil {
		return nil, err
	}
	p := newParser(pre)
	unmeasured, err := p.parse()
	if err != nil {
		return nil, err
	}
	return measurify(unmeasured)
}

// beatWithAttrs is one beat of parallel voices plus any measure attributes
// announced at its start. A beat whose voices are all empty is a "null
// beat": a placeholder that only carries attributes.
type beatWithAttrs struct {
	beat  model.Beat
	attrs model.MeasureAttributes
}

func (b *beatWithAttrs) isNull() bool {
	for _, voice := range b.beat {
		if len(voice) != 0 {
			return false
		}
	}
	return true
}

func (b *beatWithAttrs) replaceNullsWithRests() {
	for i, voice := range b.beat {
		if len(voice) == 0 {
			b.beat[i] = model.Voice{model.Chord{}}
		}
	}
}

type unmeasuredStaff []beatWithAttrs
type unmeasuredSection []unmeasuredStaff
type unmeasuredMusic []unmeasuredSection

// transposition is the running transposition applied to parsed notes.
type transposition struct {
	interval model.Interval
	up       bool
}

// span is a half-open byte range into the preprocessed text.
type span struct{ lo, hi int }

func (v span) empty() bool { return v.lo >= v.hi }
func (v span) len() int    { return v.hi - v.lo }

type parser struct {
	content   []byte
	positions []preproc.Position

	music         unmeasuredMusic
	measureAttrs  model.MeasureAttributes
	chordAttrs    model.ChordAttributes
	transposition transposition
	octave        int
}

func newParser(text *preproc.Text) *parser {
	return &parser{
		content:       text.Main.Content,
		positions:     text.Main.Positions,
		transposition: transposition{interval: model.Interval{Number: 1, Quality: model.Perfect}, up: true},
		octave:        4,
	}
}

func (p *parser) str(v span) string { return string(p.content[v.lo:v.hi]) }

func (p *parser) posAt(i int) preproc.Position { return p.positions[i] }

func (p *parser) curSection() *unmeasuredSection { return &p.music[len(p.music)-1] }

func (p *parser) curStaff() *unmeasuredStaff {
	sec := p.curSection()
	return &(*sec)[len(*sec)-1]
}

func (p *parser) takeChordAttrs() model.ChordAttributes {
	attrs := p.chordAttrs
	p.chordAttrs = model.ChordAttributes{}
	return attrs
}

func (p *parser) takeMeasureAttrs() model.MeasureAttributes {
	attrs := p.measureAttrs
	p.measureAttrs = model.MeasureAttributes{}
	return attrs
}

func (p *parser) parse() (unmeasuredMusic, error) {
	p.measureAttrs.Time = &model.Time{Numerator: 4, Denominator: 4}
	v := span{0, len(p.content)}
	for !v.empty() {
		sec, rest, err := p.isolateCurrentSection(v)
		if err != nil {
			return nil, err
		}
		v = rest
		if err := p.parseSection(sec); err != nil {
			return nil, err
		}
	}
	return p.music, nil
}

// indexOfAny returns the first index of any byte of chars in v, or -1.
func (p *parser) indexOfAny(v span, chars string) int {
	for i := v.lo; i < v.hi; i++ {
		for j := 0; j < len(chars); j++ {
			if p.content[i] == chars[j] {
				return i
			}
		}
	}
	return -1
}

func (p *parser) indexOf(v span, ch byte) int {
	return p.indexOfAny(v, string(ch))
}

// splitOn cuts v at every occurrence of sep. An empty v yields one empty
// piece, matching how attribute and voice lists treat empty segments.
func (p *parser) splitOn(v span, sep byte) []span {
	var res []span
	lo := v.lo
	for i := v.lo; i < v.hi; i++ {
		if p.content[i] == sep {
			res = append(res, span{lo, i})
			lo = i + 1
		}
	}
	return append(res, span{lo, v.hi})
}

// Sections

func (p *parser) isolateCurrentSection(v span) (sec, rest span, err error) {
	if p.content[v.lo] == '{' {
		idx := p.indexOf(v, '}')
		if idx < 0 {
			return span{}, span{}, apperr.Newf(apperr.UnclosedBlock,
				"A section is not closed by a right curly brace '}', starting %s", p.posAt(v.lo))
		}
		return span{v.lo + 1, idx}, span{idx + 1, v.hi}, nil
	}
	idx := p.indexOf(v, '{')
	if idx < 0 {
		idx = v.hi
	}
	return span{v.lo, idx}, span{idx, v.hi}, nil
}

func (p *parser) parseSection(v span) error {
	if idx := p.indexOf(v, '{'); idx >= 0 {
		return apperr.Newf(apperr.NestedBlock,
			"Sections are not nestable, but found '{' in a section %s", p.posAt(idx))
	}
	p.music = append(p.music, unmeasuredSection{})
	for !v.empty() {
		staff, rest, err := p.isolateCurrentStaff(v)
		if err != nil {
			return err
		}
		v = rest
		if err := p.parseStaff(staff); err != nil {
			return err
		}
	}
	// A section with no staves (only attributes) is dropped.
	if sec := p.curSection(); len(*sec) == 0 {
		p.music = p.music[:len(p.music)-1]
	}
	return nil
}

// Staves

func (p *parser) isolateCurrentStaff(v span) (staff, rest span, err error) {
	idx := v.lo
	for {
		found := p.indexOfAny(span{idx, v.hi}, "[;")
		if found < 0 {
			return v, span{v.hi, v.hi}, nil
		}
		if p.content[found] == '[' {
			closing := p.indexOfAny(span{found + 1, v.hi}, "[]")
			if closing < 0 {
				return span{}, span{}, apperr.Newf(apperr.UnclosedBlock,
					"A voiced segment is not closed by ']', starting %s", p.posAt(found))
			}
			if p.content[closing] == '[' {
				return span{}, span{}, apperr.Newf(apperr.NestedBlock,
					"Voices are not nestable, but found '[' in a voice %s", p.posAt(found))
			}
			idx = closing + 1
			continue
		}
		// Found a semicolon separating staves
		return span{v.lo, found}, span{found + 1, v.hi}, nil
	}
}

func (p *parser) parseStaff(v span) error {
	sec := p.curSection()
	*sec = append(*sec, unmeasuredStaff{})
	for !v.empty() {
		seg, rest := p.isolateCurrentVoicedSegment(v)
		v = rest
		if err := p.parseVoicedSegment(seg); err != nil {
			return err
		}
	}
	// Drop the staff if it only ever contained null beats of attributes;
	// those have been absorbed into the parser state by now.
	sec = p.curSection()
	if staff := p.curStaff(); len(*staff) == 0 || len((*staff)[0].beat) == 0 {
		*sec = (*sec)[:len(*sec)-1]
	}
	return nil
}

// Voiced segments

func (p *parser) isolateCurrentVoicedSegment(v span) (seg, rest span) {
	if p.content[v.lo] == '[' {
		idx := p.indexOf(v, ']') // validated in isolateCurrentStaff
		return span{v.lo + 1, idx}, span{idx + 1, v.hi}
	}
	idx := p.indexOf(v, '[')
	if idx < 0 {
		idx = v.hi
	}
	return span{v.lo, idx}, span{idx, v.hi}
}

func (p *parser) parseVoicedSegment(v span) error {
	staff := p.curStaff()
	startingBeat := len(*staff)
	for i, sub := range p.splitOn(v, ';') {
		if err := p.parseVoice(sub, startingBeat, i); err != nil {
			return err
		}
	}
	staff = p.curStaff()
	if len(*staff) > 0 {
		// A trailing null beat only holds end-of-segment attributes; pull
		// them back into the parser state and drop the beat.
		if last := &(*staff)[len(*staff)-1]; last.isNull() {
			p.measureAttrs = last.attrs
			*staff = (*staff)[:len(*staff)-1]
		}
	}
	for i := startingBeat; i < len(*staff); i++ {
		(*staff)[i].replaceNullsWithRests()
	}
	return nil
}

func (p *parser) parseVoice(v span, startingBeat, voiceIdx int) error {
	staff := p.curStaff()
	beatIdx := startingBeat
	shouldAddNullBeat := false

	getBeat := func(idx int) *beatWithAttrs {
		if idx >= len(*staff) {
			*staff = append(*staff, beatWithAttrs{})
		}
		beat := &(*staff)[idx]
		// Pad earlier voices with null voices to line this voice up
		for i := len(beat.beat); i <= voiceIdx; i++ {
			beat.beat = append(beat.beat, nil)
		}
		return beat
	}

	for !v.empty() {
		bt, rest, err := p.isolateCurrentBeatInVoice(v)
		if err != nil {
			return err
		}
		v = rest
		beat := getBeat(beatIdx)
		if err := p.parseBeatInVoice(bt, beat, voiceIdx); err != nil {
			return err
		}
		// Only a normal beat at the end calls for a null beat to hold
		// whatever attributes are still pending
		shouldAddNullBeat = len(beat.beat[voiceIdx]) != 0
		beatIdx++
	}

	if shouldAddNullBeat && !p.measureAttrs.IsNull() {
		beat := getBeat(beatIdx)
		beatIdx++
		beat.attrs.MergeWith(p.takeMeasureAttrs())
	}

	// Fill up the current voice with null beats
	for ; beatIdx < len(*staff); beatIdx++ {
		beat := &(*staff)[beatIdx]
		beat.beat = append(beat.beat, nil)
	}
	return nil
}

// Beats

func (p *parser) isolateCurrentBeatInVoice(v span) (beat, rest span, err error) {
	idx := v.lo
	for {
		// Commas also appear inside attribute blocks; skip those
		found := p.indexOfAny(span{idx, v.hi}, "%,")
		if found < 0 {
			return v, span{v.hi, v.hi}, nil
		}
		if p.content[found] == '%' {
			closing := p.indexOf(span{found + 1, v.hi}, '%')
			if closing < 0 {
				return span{}, span{}, apperr.Newf(apperr.UnclosedBlock,
					"Attribute specification block is not closed with another '%%', beginning %s",
					p.posAt(found))
			}
			idx = closing + 1
			continue
		}
		// Keep the comma inside the beat's view
		return span{v.lo, found + 1}, span{found + 1, v.hi}, nil
	}
}

func (p *parser) parseBeatInVoice(v span, beat *beatWithAttrs, voiceIdx int) error {
	voice := &beat.beat[voiceIdx]
	for !(v.empty() || p.str(v) == ",") {
		consumed, rest, err := p.parseAttributes(v)
		if err != nil {
			return err
		}
		if consumed {
			v = rest
			continue
		}
		chord, rest2, err := p.parseChord(v)
		if err != nil {
			return err
		}
		v = rest2
		*voice = append(*voice, chord)
		if len(*voice) == 1 {
			// Chord at the start of a beat takes the pending attributes
			beat.attrs.MergeWith(p.takeMeasureAttrs())
		} else if err := p.ensureNoMeasureAttributes(v.lo); err != nil {
			return err
		}
	}

	if p.str(v) == "," && len(*voice) == 0 {
		// Delimited empty beat: fill with a rest
		*voice = append(*voice, model.Chord{Attributes: p.takeChordAttrs()})
		beat.attrs.MergeWith(p.takeMeasureAttrs())
	} else if v.empty() {
		if len(*voice) != 0 {
			return apperr.Newf(apperr.BeatUnterminated,
				"A beat should end with a comma, but a beat ends unexpectedly without the comma %s",
				p.posAt(v.lo))
		}
		// Null beat: just record the attributes
		beat.attrs.MergeWith(p.takeMeasureAttrs())
	}
	return nil
}

// Attributes

func (p *parser) parseAttributes(v span) (bool, span, error) {
	if p.content[v.lo] != '%' {
		return false, v, nil
	}
	idx := p.indexOf(span{v.lo + 1, v.hi}, '%')
	if idx < 0 {
		return false, v, apperr.Newf(apperr.UnclosedBlock,
			"Attribute specification block is not closed with another '%%', beginning %s",
			p.posAt(v.lo))
	}
	for _, attr := range p.splitOn(span{v.lo + 1, idx}, ',') {
		if err := p.parseOneAttribute(attr); err != nil {
			return false, v, err
		}
	}
	return true, span{idx + 1, v.hi}, nil
}

func (p *parser) parseOneAttribute(v span) error {
	if v.empty() {
		return apperr.Newf(apperr.EmptyAttribute, "Empty attribute found %s", p.posAt(v.lo))
	}
	switch {
	case p.content[v.lo] == '+' || p.content[v.lo] == '-':
		return p.parseTransposition(v)
	case p.indexOf(v, '/') >= 0:
		return p.parseTimeSignature(v)
	case p.content[v.hi-1] == 's' || p.content[v.hi-1] == 'f':
		return p.parseKeySignature(v)
	default:
		return p.parseTempo(v)
	}
}

func (p *parser) parseTransposition(v span) error {
	up := p.content[v.lo] == '+'
	v.lo++
	if v.empty() {
		return apperr.Newf(apperr.BadTransposition,
			"Transposition specifier unexpectedly ends %s", p.posAt(v.lo))
	}

	var quality model.IntervalQuality
	switch p.content[v.lo] {
	case 'd':
		quality = model.Diminished
	case 'm':
		quality = model.Minor
	case 'P':
		quality = model.Perfect
	case 'M':
		quality = model.Major
	case 'A':
		quality = model.Augmented
	default:
		return apperr.Newf(apperr.BadTransposition,
			"Expecting interval quality abbreviation, only 'd' for diminished, "+
				"'m' for minor, 'P' for perfect, 'M' for major, and 'A' for "+
				"augmented is accepted, but found '%c' %s",
			p.content[v.lo], p.posAt(v.lo))
	}
	v.lo++

	number, ok := parseInt(p.str(v))
	if !ok || number < 1 || number > 8 {
		return apperr.Newf(apperr.BadTransposition,
			"Expecting an integer between 1 and 8 for the diatonic number of "+
				"the transposition interval, but found '%s' %s",
			p.str(v), p.posAt(v.lo))
	}
	interval := model.Interval{Number: number, Quality: quality}
	if err := interval.Validate(); err != nil {
		return apperr.Newf(apperr.BadTransposition,
			"Invalid transposition interval: %s, %s", err, p.posAt(v.lo))
	}
	p.transposition = transposition{interval: interval, up: up}
	return nil
}

func (p *parser) parseTimeSignature(v span) error {
	slash := p.indexOf(v, '/') // not negative, checked by the caller
	partial := v.hi > slash+2 && p.content[slash+1] == '/'
	numView := span{v.lo, slash}
	denView := span{slash + 1, v.hi}
	if partial {
		denView.lo++
	}

	checkNumber := func(view span, name string) (int, error) {
		n, ok := parseInt(p.str(view))
		if !ok || n <= 0 || n > 128 {
			return 0, apperr.Newf(apperr.BadTimeSignature,
				"The %s of a time signature should be a positive integer no "+
					"greater than 128, but got '%s' %s",
				name, p.str(view), p.posAt(view.lo))
		}
		return n, nil
	}

	num, err := checkNumber(numView, "numerator")
	if err != nil {
		return err
	}
	den, err := checkNumber(denView, "denominator")
	if err != nil {
		return err
	}
	if !isPowerOfTwo(den) {
		return apperr.Newf(apperr.BadTimeSignature,
			"The denominator of a time signature should be a power of 2, but got %d %s",
			den, p.posAt(denView.lo))
	}

	if partial {
		p.measureAttrs.Partial = &model.Time{Numerator: num, Denominator: den}
	} else {
		p.measureAttrs.Time = &model.Time{Numerator: num, Denominator: den}
	}
	return nil
}

func (p *parser) parseKeySignature(v span) error {
	sign := 1
	if p.content[v.hi-1] == 'f' {
		sign = -1
	}
	numView := span{v.lo, v.hi - 1}
	num, ok := parseInt(p.str(numView))
	if !ok {
		return apperr.Newf(apperr.BadKeySignature,
			"A key signature specification should be a number followed by 's' "+
				"or 'f' to indicate the amount of sharps or flats in that key "+
				"signature, but got %s %s",
			p.str(v), p.posAt(v.lo))
	}
	if num < 0 || num > 7 {
		return apperr.Newf(apperr.BadKeySignature,
			"The amount of sharps or flats in a key signature should be "+
				"between 0 and 7, but got %d %s",
			num, p.posAt(v.lo))
	}
	key := num * sign
	p.measureAttrs.Key = &key
	return nil
}

func (p *parser) parseTempo(v span) error {
	tempo, err := strconv.ParseFloat(p.str(v), 64)
	if err != nil {
		return apperr.Newf(apperr.BadTempo,
			"Unknown attribute '%s' %s", p.str(v), p.posAt(v.lo))
	}
	if tempo > 1000 || tempo < 10 {
		return apperr.Newf(apperr.BadTempo,
			"Tempo markings should be between 10 and 1000, but got %v %s",
			tempo, p.posAt(v.lo))
	}
	p.chordAttrs.Tempo = tempo
	return nil
}

func (p *parser) ensureNoMeasureAttributes(posIdx int) error {
	if p.measureAttrs.Time != nil || p.measureAttrs.Partial != nil {
		return apperr.Newf(apperr.AttributeMisplaced,
			"Time signatures should only appear at the beginning of bars, but "+
				"got a time signature before a chord in the middle of a beat %s",
			p.posAt(posIdx))
	}
	if p.measureAttrs.Key != nil {
		return apperr.Newf(apperr.AttributeMisplaced,
			"Key signatures should only appear at the beginning of bars, but "+
				"got a key signature before a chord in the middle of a beat %s",
			p.posAt(posIdx))
	}
	return nil
}

// Chords and notes

func (p *parser) parseChord(v span) (model.Chord, span, error) {
	chord := model.Chord{Attributes: p.takeChordAttrs()}
	switch p.content[v.lo] {
	case '.': // rest
		return chord, span{v.lo + 1, v.hi}, nil
	case '-': // sustain
		chord.Sustained = true
		return chord, span{v.lo + 1, v.hi}, nil
	case '(': // multi-note chord
		v.lo++
		for {
			if !v.empty() && p.content[v.lo] == ')' {
				return chord, span{v.lo + 1, v.hi}, nil
			}
			note, rest, err := p.parseNote(v)
			if err != nil {
				return model.Chord{}, span{}, err
			}
			chord.Notes = append(chord.Notes, note)
			v = rest
		}
	default:
		note, rest, err := p.parseNote(v)
		if err != nil {
			return model.Chord{}, span{}, err
		}
		chord.Notes = append(chord.Notes, note)
		return chord, rest, nil
	}
}

func (p *parser) parseNote(v span) (model.Note, span, error) {
	if v.empty() {
		return model.Note{}, span{}, apperr.Newf(apperr.BeatUnterminated,
			"Expecting a note in the chord, but the beat unexpectedly ends %s", p.posAt(v.lo))
	}
	if p.content[v.lo] == '.' || p.content[v.lo] == '-' {
		return model.Note{}, span{}, apperr.Newf(apperr.ParensInRestOrSustain,
			"A chord enclosed with parentheses '()' should not contain rests '.' "+
				"or sustain markings '-', but got one %s",
			p.posAt(v.lo))
	}
	if p.content[v.lo] < 'A' || p.content[v.lo] > 'G' {
		return model.Note{}, span{}, apperr.Newf(apperr.BadNoteBase,
			"The base of a note should be an upper-cased letter from A to G, but got %c %s",
			p.content[v.lo], p.posAt(v.lo))
	}

	full := v
	bases := [7]model.NoteBase{model.A, model.B, model.C, model.D, model.E, model.F, model.G}
	base := bases[p.content[v.lo]-'A']
	v.lo++

	accidental := 0
	switch {
	case p.consumeIf(&v, 'x'):
		accidental = 2
	case p.consumeIf(&v, '#'):
		accidental = 1
	case p.consumeIfStr(&v, "bb"):
		accidental = -2
	case p.consumeIf(&v, 'b'):
		accidental = -1
	}

	if oct, rest, ok := parseConsumeInt(p.str(v)); ok {
		if oct > 10 || oct < -2 {
			return model.Note{}, span{}, apperr.Newf(apperr.BadOctave,
				"Octave specifier should be an integer between -2 and 10, but got %d %s",
				oct, p.posAt(full.lo))
		}
		p.octave = oct
		v.lo = v.hi - len(rest)
	}

	octaveDiff := 0
	for !v.empty() && (p.content[v.lo] == '<' || p.content[v.lo] == '>') {
		if p.content[v.lo] == '<' {
			octaveDiff--
		} else {
			octaveDiff++
		}
		v.lo++
	}

	written := model.Note{Base: base, Octave: p.octave + octaveDiff, Accidental: accidental}
	var note model.Note
	if p.transposition.up {
		note = written.TransposedUpByInterval(p.transposition.interval)
	} else {
		note = written.TransposedDownByInterval(p.transposition.interval)
	}
	if _, err := note.PitchID(); err != nil {
		direction := "downwards"
		if p.transposition.up {
			direction = "upwards"
		}
		return model.Note{}, span{}, apperr.Newf(apperr.NoteOutOfRange,
			"The note %s applied with a transposition of %d semitone(s) %s gets "+
				"a pitch id out of the range 0 to 127, %s",
			p.content[full.lo:v.lo], p.transposition.interval.Semitones(), direction,
			p.posAt(full.lo))
	}
	return note, v, nil
}

func (p *parser) consumeIf(v *span, ch byte) bool {
	if !v.empty() && p.content[v.lo] == ch {
		v.lo++
		return true
	}
	return false
}

func (p *parser) consumeIfStr(v *span, prefix string) bool {
	if v.len() >= len(prefix) && string(p.content[v.lo:v.lo+len(prefix)]) == prefix {
		v.lo += len(prefix)
		return true
	}
	return false
}

// parseInt parses a full decimal integer (optionally signed).
func parseInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseConsumeInt parses a leading decimal integer (optionally signed) and
// returns the unconsumed remainder. It consumes nothing when no digit
// follows the optional sign.
func parseConsumeInt(s string) (int, string, bool) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := i
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits == i {
		return 0, s, false
	}
	n, err := strconv.Atoi(s[:digits])
	if err != nil {
		return 0, s, false
	}
	return n, s[digits:], true
}

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }
