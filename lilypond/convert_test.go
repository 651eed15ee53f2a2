package lilypond

import (
	"testing"

	"github.com/jsphweid/engrave/model"
	"github.com/jsphweid/engrave/parser"
	"github.com/jsphweid/engrave/rat"
	"github.com/stretchr/testify/assert"
)

func mustConvert(t *testing.T, text string) LyMusic {
	music, err := parser.ParseMusic(text)
	if err != nil {
		t.Fatalf("parse of %q failed: %v", text, err)
	}
	return ConvertToLy(music)
}

func TestConvertEmptyMusic(t *testing.T) {
	assert.Empty(t, ConvertToLy(nil))
}

func TestSustainsCollapseWithinMeasure(t *testing.T) {
	assert := assert.New(t)
	ly := mustConvert(t, "%120%C,-,-,-,")

	assert.Len(ly, 1)
	assert.Len(ly[0], 1)
	measure := ly[0][0]
	assert.Len(measure.Voices, 1)
	voice := measure.Voices[0]
	assert.Len(voice, 1)
	assert.Equal(voice[0].Start, rat.Zero)
	assert.Equal(voice[0].Chord.Notes, []model.Note{{Base: model.C, Octave: 4}})
	assert.Equal(voice[0].Chord.Attributes.Tempo, 120.0)
	assert.False(voice[0].Chord.Sustained)
}

func TestSustainAcrossMeasures(t *testing.T) {
	assert := assert.New(t)
	ly := mustConvert(t, "C,D,E,F,-,G,A,B,")

	staff := ly[0]
	assert.Len(staff, 2)

	first := staff[0].Voices[0]
	last := first[len(first)-1]
	assert.Equal(last.Chord.Notes, []model.Note{{Base: model.F, Octave: 4}})
	// The predecessor now ties into the next measure
	assert.True(last.Chord.Sustained)

	second := staff[1].Voices[0]
	assert.Equal(second[0].Start, rat.Zero)
	assert.Equal(second[0].Chord.Notes, []model.Note{{Base: model.F, Octave: 4}})
	assert.False(second[0].Chord.Sustained)
}

func TestSustainWithNoPredecessorBecomesRest(t *testing.T) {
	ly := mustConvert(t, "-,C,D,E,")
	voice := ly[0][0].Voices[0]
	assert.Empty(t, voice[0].Chord.Notes)
	assert.False(t, voice[0].Chord.Sustained)
}

func TestSustainAfterRestExtendsRest(t *testing.T) {
	assert := assert.New(t)
	ly := mustConvert(t, ".,-,C,D,")

	voice := ly[0][0].Voices[0]
	// The rest spans two beats, then c and d follow
	assert.Len(voice, 3)
	assert.Empty(voice[0].Chord.Notes)
	assert.Equal(voice[1].Start, rat.FromInt(2))
	assert.Equal(voice[2].Start, rat.FromInt(3))
}

func TestChordStartsWithinBeat(t *testing.T) {
	assert := assert.New(t)
	ly := mustConvert(t, "CD,E,F,G,")

	voice := ly[0][0].Voices[0]
	assert.Equal(voice[0].Start, rat.Zero)
	assert.Equal(voice[1].Start, rat.New(1, 2))
	assert.Equal(voice[2].Start, rat.FromInt(1))
}

func TestMissingVoicesPaddedWithSpacers(t *testing.T) {
	assert := assert.New(t)
	ly := mustConvert(t, "[C,D,;E,F,]G,A,")

	measure := ly[0][0]
	assert.Len(measure.Voices, 2)
	// After the voiced segment ends, the second voice continues as spacers
	second := measure.Voices[1]
	var spacers int
	for _, ch := range second {
		if ch.Chord == nil {
			spacers++
		}
	}
	assert.Equal(spacers, 1) // beats 2 and 3 merge into one spacer run
}

func TestVoiceDurationsCoverMeasure(t *testing.T) {
	assert := assert.New(t)
	for _, text := range []string{
		"C,D,E,F,",
		"CDE,C,(CE)G,.,",
		"%3/4%C,-,G,",
		"%6/8%C,D,E,F,G,A,",
		"[C,D,E,F,;G,-,-,-,]",
	} {
		ly := mustConvert(t, text)
		for _, staff := range ly {
			for _, measure := range staff {
				expected := rat.New(measure.CurrentPartial.Numerator, measure.CurrentPartial.Denominator)
				for _, voice := range measure.Voices {
					total := rat.Zero
					for i := range voice {
						end := rat.FromInt(measure.CurrentPartial.Numerator)
						if i+1 < len(voice) {
							end = voice[i+1].Start
						}
						dur := end.Sub(voice[i].Start).DivInt(measure.CurrentTime.Denominator)
						total = total.Add(dur)
					}
					assert.Equal(total, expected, "input %q", text)
				}
			}
		}
	}
}

func TestStartsStrictlyIncreasing(t *testing.T) {
	assert := assert.New(t)
	ly := mustConvert(t, "CDEFG,C,(CE)(DF),.,%3/4%C,-,G,")
	for _, staff := range ly {
		for _, measure := range staff {
			for _, voice := range measure.Voices {
				for i := 1; i < len(voice); i++ {
					assert.True(voice[i-1].Start.Less(voice[i].Start))
					assert.True(voice[i].Start.Less(rat.FromInt(measure.CurrentPartial.Numerator)))
				}
			}
		}
	}
}
