package upload

import "context"

// startCycleLocked discards whatever the previous cycle left running and
// starts the progress ticker for f. The caller starts the read once the lock
// is released.
func (w *Widget) startCycleLocked(f *File) (context.Context, uint64) {
	w.teardownLocked()

	w.cycle++
	w.file = f
	w.progress = 0
	w.encoded = ""
	w.progressComplete = false
	w.scheduled = false
	w.phase = PhaseReading

	ctx, cancel := context.WithCancel(context.Background())
	w.cancelRead = cancel

	cycle := w.cycle
	w.ticker = w.clock.AfterFunc(w.opts.TickPeriod, func() { w.tick(cycle) })

	return ctx, cycle
}

func (w *Widget) teardownLocked() {
	if w.ticker != nil {
		w.ticker.Stop()
		w.ticker = nil
	}
	if w.completion != nil {
		w.completion.Stop()
		w.completion = nil
	}
	if w.cancelRead != nil {
		w.cancelRead()
		w.cancelRead = nil
	}
}

func (w *Widget) tick(cycle uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// A nil ticker means the cycle was aborted or the ticker already finished.
	if w.closed || cycle != w.cycle || w.ticker == nil {
		return
	}

	w.progress = min(MaxProgress, w.progress+w.opts.TickStep)
	if w.progress < MaxProgress {
		w.ticker = w.clock.AfterFunc(w.opts.TickPeriod, func() { w.tick(cycle) })
		w.notifyLocked()
		return
	}

	w.ticker = nil
	w.progressComplete = true
	w.logger.Debug().Uint64("cycle", cycle).Msg("[Upload] Progress complete")
	w.scheduleCompletionLocked(cycle)
	w.notifyLocked()
}

func (w *Widget) finishRead(cycle uint64, encoded string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || cycle != w.cycle || w.file == nil {
		return
	}
	if err == nil && encoded == "" {
		err = ErrEmptyContent
	}
	if err != nil {
		w.logger.Warn().
			Err(err).
			Uint64("cycle", cycle).
			Str("fileName", w.file.Name).
			Msg("[Upload] Failed to read file, resetting")
		w.abortLocked()
		w.notifyLocked()
		return
	}

	w.encoded = encoded
	if w.cancelRead != nil {
		w.cancelRead()
		w.cancelRead = nil
	}
	w.logger.Debug().Uint64("cycle", cycle).Int("encodedLength", len(encoded)).Msg("[Upload] File read")

	if w.progressComplete {
		w.scheduleCompletionLocked(cycle)
		w.notifyLocked()
	}
}

// abortLocked voids the current cycle and returns the widget to idle. The
// cycle number is kept, so late callbacks of this cycle still find no file
// and no timers and do nothing.
func (w *Widget) abortLocked() {
	w.teardownLocked()
	w.file = nil
	w.progress = 0
	w.encoded = ""
	w.phase = PhaseIdle
}

// scheduleCompletionLocked arms the completion timer once both the progress
// animation and the read have finished. Later calls within the same cycle are
// no-ops.
func (w *Widget) scheduleCompletionLocked(cycle uint64) {
	if w.scheduled || !w.progressComplete || w.encoded == "" {
		return
	}
	w.scheduled = true
	w.phase = PhaseAwaitingCompletion
	w.completion = w.clock.AfterFunc(w.opts.CompletionDelay, func() { w.complete(cycle) })
}

func (w *Widget) complete(cycle uint64) {
	w.mu.Lock()
	if w.closed || cycle != w.cycle || w.completion == nil {
		w.mu.Unlock()
		return
	}
	w.completion = nil
	w.phase = PhaseCompleted
	onComplete, encoded := w.onComplete, w.encoded
	w.notifyLocked()
	w.mu.Unlock()

	if onComplete == nil || encoded == "" {
		w.logger.Debug().Uint64("cycle", cycle).Msg("[Upload] Completed without callback")
		return
	}

	w.logger.Info().Uint64("cycle", cycle).Msg("[Upload] Completed")
	onComplete(encoded)
}
