package dsp

// Signal delivers notifications raised on the audio goroutine, e.g. an
// envelope reaching its destination. Slots are called synchronously in
// connection order and must not block or allocate; slots that need
// non-real-time work should enqueue it elsewhere.
//
// Slots must be connected before the emitting node is processed, or from
// the audio goroutine.
type Signal[T any] struct {
	slots []func(T)
}

// Connect adds a slot.
func (s *Signal[T]) Connect(slot func(T)) {
	if slot == nil {
		return
	}
	s.slots = append(s.slots, slot)
}

// Trigger calls every slot with v.
func (s *Signal[T]) Trigger(v T) {
	for _, slot := range s.slots {
		slot(v)
	}
}

// DisconnectAll removes all slots.
func (s *Signal[T]) DisconnectAll() {
	for i := range s.slots {
		s.slots[i] = nil
	}
	s.slots = s.slots[:0]
}

// SlotCount returns the number of connected slots.
func (s *Signal[T]) SlotCount() int {
	return len(s.slots)
}
