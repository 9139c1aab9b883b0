package internal

// BufferAdapter pairs the representation selection stream for one adaptation
// with the target buffer-size cell for its media type. The buffer-size cell
// is always observable, even for single-representation adaptations.
type BufferAdapter struct {
	Representations Observable[*Representation]
	BufferSize      *Cell[float64]
}

// BufferAdapters returns the selection outputs for the given adaptation.
// The representation stream is lazy: the resolution pipeline is wired on
// Subscribe and torn down by the returned cancel function, so an unused
// adapter holds no resources.
func (e *Engine) BufferAdapters(adpt *Adaptation) BufferAdapter {
	return BufferAdapter{
		Representations: e.resolveRepresentations(adpt),
		BufferSize:      e.bufferSizes[adpt.Type],
	}
}

func (e *Engine) resolveRepresentations(adpt *Adaptation) Observable[*Representation] {
	if len(adpt.Representations) == 0 {
		panic("abrselect: adaptation without representations")
	}
	if len(adpt.Representations) == 1 || (adpt.Type != MediaTypeAudio && adpt.Type != MediaTypeVideo) {
		return Just(&adpt.Representations[0])
	}
	cons := e.constraintFor(adpt.Type)
	ladder := adpt.Bitrates()
	return funcObservable[*Representation]{sub: func(emit func(*Representation)) func() {
		var stops []func()

		// Hysteresis over the smoothed estimate. The seed maps with no
		// margin so the very first pick is not overly conservative; later
		// values carry the safety margin, and the settling window keeps
		// noisy samples from causing oscillating switches.
		estLadder := NewCell(ClosestBitrate(ladder, cons.estimate.Get(), 0))
		first := true
		mapped := Map(Observable[float64](cons.estimate), func(v float64) int {
			threshold := e.cfg.MarginThreshold
			if first {
				first = false
				threshold = 0
			}
			return ClosestBitrate(ladder, v, threshold)
		})
		stops = append(stops,
			Debounce(Distinct(mapped, eqInt), e.cfg.DebounceWindow).Subscribe(func(v int) {
				estLadder.Set(v)
			}))

		bound := e.effectiveMaxBound(adpt, ladder)

		target := CombineLatest3(Observable[int](cons.user), bound, Observable[int](estLadder),
			func(user, max, est int) int {
				switch {
				case user != UnboundedBitrate:
					// explicit user pin wins outright
					return user
				case max != UnboundedBitrate:
					return minInt(max, est)
				default:
					return est
				}
			})

		selected := Distinct(Map(target, func(t int) *Representation {
			return adpt.RepresentationFor(ClosestBitrate(ladder, float64(t), 0))
		}), sameRepresentation)

		stops = append(stops, selected.Subscribe(func(r *Representation) {
			e.logger.Debug("representation selected",
				"mediaType", adpt.Type,
				"id", r.ID,
				"bitrate", r.Bitrate)
			e.cfg.Metrics.ObserveSwitch(adpt.Type, r.Bitrate)
			emit(r)
		}))

		return func() {
			for _, stop := range stops {
				stop()
			}
		}
	}}
}

// effectiveMaxBound combines the operator ceiling with the device-derived
// caps. For video it re-evaluates on any change to the ceiling, the viewport
// width or the visibility state; audio only carries the ceiling.
func (e *Engine) effectiveMaxBound(adpt *Adaptation, ladder []int) Observable[int] {
	cons := e.constraintFor(adpt.Type)
	if adpt.Type != MediaTypeVideo {
		return cons.max
	}
	top := ladder[len(ladder)-1]
	lowest := ladder[0]
	return CombineLatest3(Observable[int](cons.max), Observable[int](e.device.Width),
		Observable[bool](e.device.Hidden),
		func(max, width int, hidden bool) int {
			if e.cfg.ThrottleWhenHidden && hidden {
				return lowest
			}
			widthCap := top
			if e.cfg.LimitVideoWidth {
				widthCap = MaxUsefulBitrateForWidth(adpt.Representations, width)
			}
			return minInt(max, widthCap)
		})
}

func sameRepresentation(a, b *Representation) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

func eqInt(a, b int) bool { return a == b }

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
