package upload

// Select handles a file chosen through the file picker.
func (w *Widget) Select(f *File) Result {
	return w.accept(f, SourcePicker)
}

// Drop handles a file dropped onto the widget. The dragging indicator is
// cleared whether or not the file is accepted.
func (w *Widget) Drop(f *File) Result {
	w.mu.Lock()
	if !w.closed && w.dragging {
		w.dragging = false
		w.notifyLocked()
	}
	w.mu.Unlock()

	return w.accept(f, SourceDrop)
}

// Accept routes f to the intake path named by src.
func (w *Widget) Accept(f *File, src Source) Result {
	if src == SourceDrop {
		return w.Drop(f)
	}
	return w.Select(f)
}

func (w *Widget) DragEnter() {
	w.setDragging(true)
}

func (w *Widget) DragOver() {
	w.setDragging(true)
}

func (w *Widget) DragLeave() {
	w.setDragging(false)
}

func (w *Widget) setDragging(dragging bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if dragging && !w.auth.IsAuthorized() {
		return
	}
	if w.dragging == dragging {
		return
	}
	w.dragging = dragging
	w.notifyLocked()
}

func (w *Widget) accept(f *File, src Source) Result {
	refused := Result{ClearInput: src == SourcePicker}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return refused
	}
	if !w.auth.IsAuthorized() {
		w.mu.Unlock()
		w.logger.Debug().Str("source", string(src)).Msg("[Upload] Refused file: not authorized")
		return refused
	}
	if f == nil || !IsAllowedMediaType(f.MediaType) {
		w.mu.Unlock()
		event := w.logger.Debug().Str("source", string(src))
		if f != nil {
			event = event.Str("mediaType", f.MediaType).Str("fileName", f.Name)
		}
		event.Msg("[Upload] Refused file: media type not allowed")
		return refused
	}

	ctx, cycle := w.startCycleLocked(f)
	w.notifyLocked()
	w.mu.Unlock()

	w.logger.Info().
		Uint64("cycle", cycle).
		Str("source", string(src)).
		Str("fileName", f.Name).
		Str("mediaType", f.MediaType).
		Int64("size", f.Size).
		Msg("[Upload] File accepted")

	w.reader.Read(ctx, f, func(encoded string, err error) {
		w.finishRead(cycle, encoded, err)
	})

	return Result{Accepted: true}
}
