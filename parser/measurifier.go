package parser

import (
	"github.com/jsphweid/engrave/apperr"
	"github.com/jsphweid/engrave/model"
)

// measurify sweeps the unmeasured beats of every section into measures,
// reconciling measure attributes announced across staves.
func measurify(input unmeasuredMusic) (model.Music, error) {
	m := &measurifier{input: input, time: model.Time{Numerator: 4, Denominator: 4}}
	return m.process()
}

type measurifier struct {
	input     unmeasuredMusic
	time      model.Time
	nMeasures int
}

func (m *measurifier) process() (model.Music, error) {
	res := make(model.Music, 0, len(m.input))
	for i := range m.input {
		sec, err := m.convertSection(i)
		if err != nil {
			return nil, err
		}
		res = append(res, sec)
	}
	return res, nil
}

// mergeCheckingConflicts merges other into attrs, failing when both set the
// same field to different values.
func mergeCheckingConflicts(attrs *model.MeasureAttributes, other model.MeasureAttributes, beat int) error {
	conflict := func(what string) error {
		return apperr.Newf(apperr.InconsistentAttrsAcrossStaves,
			"Staves announce conflicting %s at beat %d", what, beat+1)
	}
	if other.Key != nil && attrs.Key != nil && *other.Key != *attrs.Key {
		return conflict("key signatures")
	}
	if other.Time != nil && attrs.Time != nil && *other.Time != *attrs.Time {
		return conflict("time signatures")
	}
	if other.Partial != nil && attrs.Partial != nil && *other.Partial != *attrs.Partial {
		return conflict("partial measures")
	}
	attrs.MergeWith(other)
	return nil
}

func (m *measurifier) convertSection(secIdx int) (model.Section, error) {
	input := m.input[secIdx]
	var res model.Section
	var partial model.Time
	beatOfMeasure := 0

	nBeats := 0
	for _, staff := range input {
		if len(staff) > nBeats {
			nBeats = len(staff)
		}
	}
	res.Staves = make([]model.Staff, len(input))
	for j := range res.Staves {
		res.Staves[j] = make(model.Staff, nBeats)
	}

	// Collect every beat in lockstep across the staves, so attributes can be
	// reconciled per beat index.
	for i := 0; i < nBeats; i++ {
		var attrs model.MeasureAttributes
		for j := range res.Staves {
			inStaff := input[j]
			if i >= len(inStaff) {
				// This staff ends early; pad with a rest
				res.Staves[j][i] = model.Beat{model.Voice{model.Chord{}}}
				continue
			}
			inBeat := &inStaff[i]
			if beatOfMeasure != 0 && !inBeat.attrs.IsNull() {
				pos := []any{beatOfMeasure + 1, m.nMeasures, partial.Numerator, partial.Denominator}
				if inBeat.attrs.Time != nil || inBeat.attrs.Partial != nil {
					return model.Section{}, apperr.Newf(apperr.AttributeMisplaced,
						"Time signatures should only appear at the beginning of measures, "+
							"but got a time signature on beat %d, measure %d with %d/%d time", pos...)
				}
				return model.Section{}, apperr.Newf(apperr.AttributeMisplaced,
					"Key signatures should only appear at the beginning of measures, "+
						"but got a key signature on beat %d, measure %d with %d/%d time", pos...)
			}
			if err := mergeCheckingConflicts(&attrs, inBeat.attrs, i); err != nil {
				return model.Section{}, err
			}
			res.Staves[j][i] = inBeat.beat
		}
		if beatOfMeasure == 0 {
			res.Measures = append(res.Measures, model.Measure{StartBeat: i, Attributes: attrs})
			if attrs.Time != nil {
				m.time = *attrs.Time
			}
			if attrs.Partial != nil {
				// Partial measures do not count toward the measure number
				partial = *attrs.Partial
			} else {
				partial = m.time
				m.nMeasures++
			}
		}
		beatOfMeasure++
		if beatOfMeasure == partial.Numerator {
			beatOfMeasure = 0
		}
	}

	if beatOfMeasure != 0 {
		if secIdx != len(m.input)-1 {
			return model.Section{}, apperr.Newf(apperr.IncompleteMeasure,
				"The section ends on an incomplete measure, beat %d of measure %d with %d/%d time",
				beatOfMeasure, m.nMeasures, partial.Numerator, partial.Denominator)
		}
		// The music may stop mid-measure; fill the rest of the final
		// measure with rests.
		for j := range res.Staves {
			for i := beatOfMeasure; i < partial.Numerator; i++ {
				res.Staves[j] = append(res.Staves[j], model.Beat{model.Voice{model.Chord{}}})
			}
		}
	}

	return res, nil
}
