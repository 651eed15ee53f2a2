package parser

import (
	"testing"

	"github.com/jsphweid/engrave/apperr"
	"github.com/jsphweid/engrave/model"
	"github.com/stretchr/testify/assert"
)

func TestMeasureBoundaries(t *testing.T) {
	assert := assert.New(t)
	music := mustParse(t, "C,D,E,F,G,A,B,C,")

	assert.Len(music[0].Measures, 2)
	assert.Equal(music[0].Measures[0].StartBeat, 0)
	assert.Equal(music[0].Measures[1].StartBeat, 4)

	start, stop := music[0].BeatIndexRangeOfMeasure(0)
	assert.Equal([2]int{start, stop}, [2]int{0, 4})
	start, stop = music[0].BeatIndexRangeOfMeasure(1)
	assert.Equal([2]int{start, stop}, [2]int{4, 8})
}

func TestTimeChangeStartsNewMeasureLength(t *testing.T) {
	assert := assert.New(t)
	music := mustParse(t, "%3/4%C,D,E,%4/4%F,G,A,B,")

	assert.Len(music[0].Measures, 2)
	assert.Equal(music[0].Measures[1].StartBeat, 3)
	assert.Equal(*music[0].Measures[1].Attributes.Time, model.Time{Numerator: 4, Denominator: 4})
}

func TestMeasureLengthSum(t *testing.T) {
	music := mustParse(t, "%3//4%C,D,E,%4/4%F,G,A,B,C,D,E,F,")
	sec := music[0]

	total := 0
	for m := range sec.Measures {
		start, stop := sec.BeatIndexRangeOfMeasure(m)
		assert.Equal(t, start, total)
		total = stop
	}
	assert.Equal(t, total, len(sec.Staves[0]))
}

func TestShortStaffPaddedWithRests(t *testing.T) {
	assert := assert.New(t)
	music := mustParse(t, "C,D,E,F,;G,A,")

	assert.Len(music[0].Staves[1], 4)
	// The padded beats are single rests
	assert.Equal(music[0].Staves[1][2], model.Beat{model.Voice{model.Chord{}}})
	assert.Equal(music[0].Staves[1][3], model.Beat{model.Voice{model.Chord{}}})
}

func TestIncompleteMeasureInNonFinalSection(t *testing.T) {
	assert.Equal(t, parseErrKind(t, "{C,}{D,E,F,G,}"), apperr.IncompleteMeasure)
}

func TestIncompleteTrailingMeasureAllowed(t *testing.T) {
	music := mustParse(t, "C,D,E,F,G,")
	assert.Len(t, music[0].Measures, 2)
	assert.Len(t, music[0].Staves[0], 8)
}

func TestMisplacedAttributeInsideMeasure(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(parseErrKind(t, "C,D,%3/4%E,F,"), apperr.AttributeMisplaced)
	assert.Equal(parseErrKind(t, "C,D,%2s%E,F,"), apperr.AttributeMisplaced)
}

func TestConflictingAttrsAcrossStaves(t *testing.T) {
	kind := parseErrKind(t, "%3/4%C,E,G,;%2/4%C,E,")
	assert.Equal(t, kind, apperr.InconsistentAttrsAcrossStaves)
}

func TestAgreeingAttrsAcrossStaves(t *testing.T) {
	music := mustParse(t, "%3/4%C,E,G,;%3/4%C,E,G,")
	assert.Len(t, music[0].Measures, 1)
	assert.Len(t, music[0].Staves, 2)
}

func TestMeasurifyIsFixedPoint(t *testing.T) {
	assert := assert.New(t)
	music := mustParse(t, "%3/4%C,E,G,%4/4%C,D,E,F,")

	// Rebuild the unmeasured form from the measured output and run the
	// measurifier again; nothing should change.
	var um unmeasuredMusic
	for s := range music {
		sec := music[s]
		var umSec unmeasuredSection
		for _, staff := range sec.Staves {
			var umStaff unmeasuredStaff
			for i, beat := range staff {
				var attrs model.MeasureAttributes
				for m := range sec.Measures {
					if sec.Measures[m].StartBeat == i {
						attrs = sec.Measures[m].Attributes
					}
				}
				umStaff = append(umStaff, beatWithAttrs{beat: beat, attrs: attrs})
			}
			umSec = append(umSec, umStaff)
		}
		um = append(um, umSec)
	}

	again, err := measurify(um)
	assert.NoError(err)
	assert.Equal(again, music)
}
