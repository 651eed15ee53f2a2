package lilypond

import (
	"sort"

	"github.com/jsphweid/engrave/rat"
)

// Tuplet partitioning: a tuplet span is a maximal run of chords whose start
// positions have non-power-of-two denominators, bounded by regular
// positions. Each span is cut at the fewest regular break points that leave
// every remainder expressible, then bracketed with a ratio of the form
// (odd)/2^k.

type positionType uint8

const (
	positionChord positionType = iota
	positionBreakPoint
	positionPlaceholder
)

type tupletPosition struct {
	start rat.Rat
	typ   positionType
}

// breakTuplets cuts every tuplet span of the voice and assigns tuplet
// ratios and bracket positions.
func breakTuplets(voice *LyVoice, measure *LyMeasure) {
	p := tupletPartitioner{voice: voice, measure: measure}
	p.breakSpans()
	p.setRatios()
}

type tupletPartitioner struct {
	voice   *LyVoice
	measure *LyMeasure
}

// nextIrregularRun finds the first run of irregular chords at or after
// from: begin is the regular chord just before the run, end the index of
// the first regular chord after it (or the voice length).
func (p *tupletPartitioner) nextIrregularRun(from int) (begin, end int, ok bool) {
	v := *p.voice
	first := -1
	for i := from; i < len(v); i++ {
		if !isRegularChord(&v[i]) {
			first = i
			break
		}
	}
	if first < 0 {
		return 0, 0, false
	}
	end = len(v)
	for i := first; i < len(v); i++ {
		if isRegularChord(&v[i]) {
			end = i
			break
		}
	}
	// The first chord of a voice always sits on a whole beat, so the run
	// has a regular predecessor.
	return first - 1, end, true
}

func (p *tupletPartitioner) breakSpans() {
	from := 0
	for {
		begin, end, ok := p.nextIrregularRun(from)
		if !ok {
			return
		}
		pos := p.constructPositions(begin, end)
		p.fillBreakPoints(&pos)
		for p.removeUnnecessaryBreaksOnce(pos) {
		}
		for _, bp := range pos {
			if bp.typ == positionBreakPoint {
				breakAt(p.voice, p.measure, bp.start)
			}
		}
		from = end
	}
}

func (p *tupletPartitioner) setRatios() {
	from := 0
	for {
		begin, end, ok := p.nextIrregularRun(from)
		if !ok {
			return
		}
		p.setRatiosInRange(begin, end)
		p.breakCompoundDurations(begin, end)
		from = end
	}
}

// constructPositions lists the chord starts of [begin, end) plus the
// position just past the run's last chord.
func (p *tupletPartitioner) constructPositions(begin, end int) []tupletPosition {
	v := *p.voice
	pos := make([]tupletPosition, 0, end-begin+1)
	for i := begin; i < end; i++ {
		pos = append(pos, tupletPosition{start: v[i].Start, typ: positionChord})
	}
	final := rat.FromInt(p.measure.CurrentPartial.Numerator)
	if end < len(v) {
		final = v[end].Start
	}
	return append(pos, tupletPosition{start: final, typ: positionChord})
}

// fillBreakPoints seeds candidate cuts at multiples of the regularized
// position-difference gcd (k/(2^n*p) regularizes to k/2^n).
func (p *tupletPartitioner) fillBreakPoints(pos *[]tupletPosition) {
	period := subrangeGcd(*pos)
	den := period.Den()
	period = period.MulInt(withoutTrailingZeros(den))

	begin := (*pos)[0].start
	end := (*pos)[len(*pos)-1].start
	for i := begin.Add(period); i.Less(end); i = i.Add(period) {
		*pos = append(*pos, tupletPosition{start: i, typ: positionBreakPoint})
	}
	sort.SliceStable(*pos, func(a, b int) bool { return (*pos)[a].start.Less((*pos)[b].start) })
}

func regularNonPlaceholder(p tupletPosition) bool {
	return p.typ != positionPlaceholder && isPowerOfTwo(p.start.Den())
}

// removeUnnecessaryBreaksOnce finds the pair of regular positions whose
// span can spare the most off-grid break points, demotes those to
// placeholders, and reports whether anything changed.
func (p *tupletPartitioner) removeUnnecessaryBreaksOnce(pos []tupletPosition) bool {
	var best []tupletPosition
	maxRemoved := 0
	for b := 0; b < len(pos); b++ {
		if !regularNonPlaceholder(pos[b]) {
			continue
		}
		for e := b + 1; e < len(pos); e++ {
			if !regularNonPlaceholder(pos[e]) {
				continue
			}
			sub := pos[b : e+1]
			if count := countUnnecessaryBreaks(sub); count > maxRemoved {
				maxRemoved = count
				best = sub
			}
		}
	}
	if maxRemoved == 0 {
		return false
	}
	forEachUnnecessaryBreak(best, func(bp *tupletPosition) { bp.typ = positionPlaceholder })
	return true
}

// forEachUnnecessaryBreak visits the break points of sub that do not lie on
// a multiple of the sub-span's own gcd.
func forEachUnnecessaryBreak(sub []tupletPosition, f func(*tupletPosition)) {
	if len(sub) <= 2 {
		return
	}
	period := subrangeGcd(sub)
	for i := 1; i < len(sub)-1; i++ {
		bp := &sub[i]
		if bp.typ != positionBreakPoint {
			continue
		}
		if !bp.start.Sub(sub[0].start).Div(period).IsInt() {
			f(bp)
		}
	}
}

func countUnnecessaryBreaks(sub []tupletPosition) int {
	count := 0
	forEachUnnecessaryBreak(sub, func(*tupletPosition) { count++ })
	return count
}

// subrangeGcd computes the gcd of position differences between consecutive
// chords and endpoints of the sub-span; placeholders and interior break
// points do not count.
func subrangeGcd(sub []tupletPosition) rat.Rat {
	res := rat.Zero
	hasPrev := false
	var prev rat.Rat
	for i := range sub {
		if !(sub[i].typ == positionChord || i == 0 || i == len(sub)-1) {
			continue
		}
		if !hasPrev {
			prev = sub[i].start
			hasPrev = true
			continue
		}
		diff := sub[i].start.Sub(prev)
		if res.IsZero() {
			res = diff
		} else {
			res = rat.Gcd(diff, res)
		}
		prev = sub[i].start
	}
	return res
}

func rationalBitCeil(value rat.Rat) int {
	num, den := value.Num(), value.Den()
	ceil := num / den
	if num%den != 0 {
		ceil++
	}
	return bitCeil(ceil)
}

// setRatiosInRange computes the span's ratio, normalized to an odd
// numerator over a power of two, and brackets the span with head/last
// markers.
func (p *tupletPartitioner) setRatiosInRange(begin, end int) {
	v := *p.voice
	period := subrangeGcd(p.constructPositions(begin, end))
	ratio := period.Inv()
	if ratio.Den() > ratio.Num() {
		ratio = ratio.MulInt(rationalBitCeil(period))
	}
	ratio = ratio.DivInt(rationalBitCeil(ratio) / 2)

	for i := begin; i < end; i++ {
		v[i].Tuplet = TupletAttributes{Ratio: ratio, Pos: TupletHead}
	}
	v[end-1].Tuplet.Pos = TupletLast
}

// breakCompoundDurations splits any duration inside the span that cannot be
// spelled as one (possibly dotted) note: longer than 4 tuplet units (a
// length of exactly 6 units is kept), or with a numerator outside
// {1, 2, 3, 4, 6}.
func (p *tupletPartitioner) breakCompoundDurations(begin, end int) {
	var breaks []rat.Rat
	v := *p.voice
	partial := p.measure.CurrentPartial
	factor := rat.FromInt(partial.Denominator).Div(v[begin].Tuplet.Ratio)
	four := rat.FromInt(4)
	for i := begin; i < end; i++ {
		pos := v[i].Start
		endPos := rat.FromInt(partial.Numerator)
		if i+1 < len(v) {
			endPos = v[i+1].Start
		}
		diff := endPos.Sub(pos).Div(factor)
		for diff.Greater(four) && !diff.EqualInt(6) {
			diff = diff.SubInt(4)
			pos = pos.Add(factor.MulInt(4))
			breaks = append(breaks, pos)
		}
		for diff.Num() > 4 && diff.Num() != 6 { // 0..4 and 6 are spellable
			dur := rat.New(bitFloor(diff.Num()), diff.Den())
			diff = diff.Sub(dur)
			pos = pos.Add(dur.Mul(factor))
			breaks = append(breaks, pos)
		}
	}
	for _, bp := range breaks {
		breakAt(p.voice, p.measure, bp)
	}
}
