package lilypond

import (
	"github.com/jsphweid/engrave/model"
	"github.com/jsphweid/engrave/rat"
)

// ConvertToLy unrolls measured music into the engraving tree: one staff per
// staff index, clef changes placed, durations partitioned.
func ConvertToLy(music model.Music) LyMusic {
	nStaves := 0
	for i := range music {
		if n := len(music[i].Staves); n > nStaves {
			nStaves = n
		}
	}
	c := &converter{music: music}
	res := make(LyMusic, 0, nStaves)
	for i := 0; i < nStaves; i++ {
		staff := c.unrollStaff(i)
		placeClefChanges(staff)
		for m := range staff {
			partitionMeasure(&staff[m])
		}
		res = append(res, staff)
	}
	return res
}

type converter struct {
	music model.Music
}

// unrollStaff walks every section's measures in order, collecting this staff
// index's beats into engraved measures.
func (c *converter) unrollStaff(idx int) LyStaff {
	var res LyStaff
	time := model.Time{Numerator: 4, Denominator: 4}
	for s := range c.music {
		sec := &c.music[s]
		for j := range sec.Measures {
			attrs := sec.Measures[j].Attributes
			if attrs.Time != nil {
				time = *attrs.Time
			}
			partial := time
			if attrs.Partial != nil {
				partial = *attrs.Partial
			}

			res = append(res, LyMeasure{
				CurrentTime:    time,
				CurrentPartial: partial,
				Attributes:     attrs,
			})
			measure := &res[len(res)-1]
			if len(sec.Staves) <= idx {
				// This section has no such staff; leave an empty measure
				continue
			}

			begin, end := sec.BeatIndexRangeOfMeasure(j)
			inBeats := sec.Staves[idx][begin:end]
			var lastMeasure *LyMeasure
			if len(res) > 1 {
				lastMeasure = &res[len(res)-2]
			}
			unrollVoices(measure, inBeats, lastMeasure)
		}
	}
	return res
}

// unrollVoices lays the beats of one measure out as engraved voices,
// resolving sustains and padding missing voices with spacers.
func unrollVoices(measure *LyMeasure, inBeats []model.Beat, lastMeasure *LyMeasure) {
	nVoices := 0
	for _, beat := range inBeats {
		if len(beat) > nVoices {
			nVoices = len(beat)
		}
	}
	measure.Voices = make([]LyVoice, nVoices)
	for i, inBeat := range inBeats {
		for j := range inBeat {
			inVoice := inBeat[j]
			voice := &measure.Voices[j]
			for k := range inVoice {
				start := rat.FromInt(i).Add(rat.New(k, len(inVoice)))
				ch := inVoice[k].Clone()
				if ch.Sustained {
					if len(*voice) > 0 {
						if (*voice)[len(*voice)-1].Chord != nil {
							// The previous chord just lasts longer
							continue
						}
					} else if lastMeasure != nil && j < len(lastMeasure.Voices) {
						// Sustain the last chord of the previous measure,
						// unless that chord is a rest or a spacer
						if prevVoice := lastMeasure.Voices[j]; len(prevVoice) > 0 {
							if prev := prevVoice[len(prevVoice)-1].Chord; prev != nil && len(prev.Notes) > 0 {
								ch.Notes = append([]model.Note(nil), prev.Notes...)
								prev.Sustained = true
							}
						}
					}
					// No predecessor to sustain: degrade to a rest
					ch.Sustained = false
				}
				chord := ch
				*voice = append(*voice, LyChord{
					Start:  start,
					Tuplet: TupletAttributes{Ratio: rat.One},
					Chord:  &chord,
				})
			}
		}
		// Pad voices missing from this beat with spacers
		for j := len(inBeat); j < nVoices; j++ {
			measure.Voices[j] = append(measure.Voices[j], LyChord{
				Start:  rat.FromInt(i),
				Tuplet: TupletAttributes{Ratio: rat.One},
			})
		}
	}
}
