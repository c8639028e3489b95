package state

// subscribers holds change listeners. It is guarded by the owning
// container's mutex; snapshot is taken under the lock and the listeners are
// called after it is released.
type subscribers[T any] struct {
	next  int
	funcs map[int]func(T)
	order []int
}

func (s *subscribers[T]) add(fn func(T)) int {
	if s.funcs == nil {
		s.funcs = make(map[int]func(T))
	}
	id := s.next
	s.next++
	s.funcs[id] = fn
	s.order = append(s.order, id)
	return id
}

func (s *subscribers[T]) remove(id int) {
	if _, ok := s.funcs[id]; !ok {
		return
	}
	delete(s.funcs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// snapshot returns the listeners in subscription order
func (s *subscribers[T]) snapshot() []func(T) {
	if len(s.order) == 0 {
		return nil
	}
	out := make([]func(T), 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.funcs[id])
	}
	return out
}

func notify[T any](funcs []func(T), v T) {
	for _, fn := range funcs {
		fn(v)
	}
}
