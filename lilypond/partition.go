package lilypond

import (
	"math/bits"

	"github.com/jsphweid/engrave/model"
	"github.com/jsphweid/engrave/rat"
)

func timeRat(t model.Time) rat.Rat { return rat.New(t.Numerator, t.Denominator) }

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

func withoutTrailingZeros(n int) int { return n >> bits.TrailingZeros(uint(n)) }

func bitFloor(n int) int { return 1 << (bits.Len(uint(n)) - 1) }

func bitCeil(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func bothRestOrSpacer(lhs, rhs *LyChord) bool {
	if (lhs.Chord == nil) != (rhs.Chord == nil) {
		return false
	}
	if lhs.Chord == nil {
		return true
	}
	return len(lhs.Chord.Notes) == 0 && len(rhs.Chord.Notes) == 0
}

func isRegularChord(ch *LyChord) bool { return isPowerOfTwo(ch.Start.Den()) }

type rationalRange struct {
	begin rat.Rat
	end   rat.Rat
}

// chordsInRange returns the index range of chords with begin <= start < end.
func chordsInRange(voice LyVoice, rng rationalRange) (int, int) {
	lo := len(voice)
	for i := range voice {
		if !voice[i].Start.Less(rng.begin) {
			lo = i
			break
		}
	}
	hi := len(voice)
	for i := lo; i < len(voice); i++ {
		if !voice[i].Start.Less(rng.end) {
			hi = i
			break
		}
	}
	return lo, hi
}

// partitionMeasure inserts ties so that every note of the measure decomposes
// into durations LilyPond can spell, grouping by the time signature's shape.
func partitionMeasure(measure *LyMeasure) {
	for v := range measure.Voices {
		voice := &measure.Voices[v]
		mergeRestsAndSpacers(voice)
		if len(*voice) == 0 {
			continue
		}
		breakTuplets(voice, measure)

		nBeats := measure.CurrentTime.Numerator
		ratio := timeRat(measure.CurrentTime)
		partialRatio := timeRat(measure.CurrentPartial)
		// A partial measure is aligned to the end of a full one, so the
		// grouping grid may start below zero.
		initial := partialRatio.Sub(ratio).MulInt(measure.CurrentTime.Denominator)
		last := partialRatio.MulInt(measure.CurrentTime.Denominator)

		switch irregular := withoutTrailingZeros(nBeats); {
		case irregular == 1: // regular, like 4/4 or 2/4
			partiteRegular(voice, measure, rationalRange{initial, last})
		case irregular == 3: // regular over 3, like 6/8 or 12/8
			partiteRegularOver3(voice, measure, rationalRange{initial, last})
		case nBeats%3 == 0: // consecutive 3-beat groups, like 9/4
			for i := 0; i < nBeats; i += 3 {
				partite3Beats(voice, measure, rationalRange{initial.AddInt(i), initial.AddInt(i + 3)})
			}
		case nBeats%3 == 1: // like 7/8 split as 4+3
			partiteRegular(voice, measure, rationalRange{initial, initial.AddInt(4)})
			for i := 4; i < nBeats; i += 3 {
				partite3Beats(voice, measure, rationalRange{initial.AddInt(i), initial.AddInt(i + 3)})
			}
		default: // nBeats%3 == 2, like 5/8 split as 3+2
			for i := 0; i < nBeats-2; i += 3 {
				partite3Beats(voice, measure, rationalRange{initial.AddInt(i), initial.AddInt(i + 3)})
			}
			partiteRegular(voice, measure, rationalRange{last.SubInt(2), last})
		}
	}
}

func mergeRestsAndSpacers(voice *LyVoice) {
	v := *voice
	out := 0
	for i := range v {
		if out > 0 && bothRestOrSpacer(&v[out-1], &v[i]) {
			continue
		}
		v[out] = v[i]
		out++
	}
	*voice = v[:out]
}

func partiteRegular(voice *LyVoice, measure *LyMeasure, rng rationalRange) {
	if rng.end.LessEq(rat.Zero) {
		return
	}
	breakAt(voice, measure, rng.end)
	if isSyncopated4Beat(*voice, measure, rng) {
		// Keep the syncopated rhythm in one piece
		return
	}
}

func partiteRegularOver3(voice *LyVoice, measure *LyMeasure, rng rationalRange) {
	if rng.end.LessEq(rat.Zero) {
		return
	}
	breakAt(voice, measure, rng.end)
}

func partite3Beats(voice *LyVoice, measure *LyMeasure, rng rationalRange) {
	if rng.end.LessEq(rat.Zero) {
		return
	}
	breakAt(voice, measure, rng.end)
}

// breakAt splits whatever note crosses pos into two tied notes. The first
// half keeps the chord's attributes; the second half starts at pos with
// cleared attributes. Tuplet bracket ends move onto the new chord.
func breakAt(voice *LyVoice, measure *LyMeasure, pos rat.Rat) {
	if pos.Equal(timeRat(measure.CurrentPartial).MulInt(measure.CurrentTime.Denominator)) {
		return
	}
	v := *voice
	idx := len(v)
	for i := range v {
		if !v[i].Start.Less(pos) {
			idx = i
			break
		}
	}
	if idx < len(v) && v[idx].Start.Equal(pos) {
		return
	}
	if idx == 0 {
		return
	}

	prev := &v[idx-1]
	inserted := *prev
	if prev.Chord != nil {
		chord := prev.Chord.Clone()
		chord.Attributes = model.ChordAttributes{}
		inserted.Chord = &chord
	}
	inserted.Start = pos
	if prev.Tuplet.Pos == TupletLast {
		inserted.Tuplet.Pos = TupletLast
		prev.Tuplet.Pos = TupletHead
	}
	if prev.Chord != nil {
		prev.Chord.Sustained = true
	}

	v = append(v, LyChord{})
	copy(v[idx+1:], v[idx:])
	v[idx] = inserted
	*voice = v
}

// isSyncopated4Beat recognises the 8th-4th-4th-4th-8th shape across a
// four-beat regular group.
func isSyncopated4Beat(voice LyVoice, measure *LyMeasure, rng rationalRange) bool {
	lo, hi := chordsInRange(voice, rng)
	if hi-lo != 5 {
		return false
	}
	span := voice[lo:hi]
	halfBeat := rng.end.Sub(rng.begin).DivInt(8)
	notRest := func(ch *LyChord) bool { return ch.Chord != nil && len(ch.Chord.Notes) > 0 }

	if !span[0].Start.Equal(rng.begin) {
		return false
	}
	if !span[1].Start.Equal(rng.begin.Add(halfBeat)) || !notRest(&span[1]) {
		return false
	}
	if !span[2].Start.Equal(rng.begin.Add(halfBeat.MulInt(3))) || !notRest(&span[2]) {
		return false
	}
	if !span[3].Start.Equal(rng.begin.Add(halfBeat.MulInt(5))) || !notRest(&span[3]) {
		return false
	}
	return span[4].Start.Equal(rng.begin.Add(halfBeat.MulInt(7)))
}
