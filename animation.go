package trellis

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates a set of float64 parameters simultaneously. Effect
// stages create one from SetConfig and advance it from Update; the group
// writes interpolated values straight into the stage's parameter fields.
//
// There is no global animation manager; the owning stage drives it.
type TweenGroup struct {
	tweens []*gween.Tween
	fields []*float64
	Done   bool
}

// tweenTarget pairs a parameter field with the value it should reach.
type tweenTarget struct {
	field *float64
	to    float64
}

// newTweenGroup starts tweens from each field's current value to its target.
// Targets already equal to their field are skipped.
func newTweenGroup(duration float32, fn ease.TweenFunc, targets ...tweenTarget) *TweenGroup {
	if fn == nil {
		fn = ease.Linear
	}
	g := &TweenGroup{}
	for _, t := range targets {
		if *t.field == t.to {
			continue
		}
		g.tweens = append(g.tweens, gween.New(float32(*t.field), float32(t.to), duration, fn))
		g.fields = append(g.fields, t.field)
	}
	g.Done = len(g.tweens) == 0
	return g
}

// Update advances all tweens by dt seconds and writes values to the fields.
func (g *TweenGroup) Update(dt float32) {
	if g == nil || g.Done {
		return
	}
	allDone := true
	for i, tw := range g.tweens {
		val, finished := tw.Update(dt)
		*g.fields[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone
}

// Len returns the number of parameters being animated.
func (g *TweenGroup) Len() int {
	if g == nil {
		return 0
	}
	return len(g.tweens)
}
