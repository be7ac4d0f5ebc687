package mutable

// Pusher collects mutations and pushes them to a queue as a single
// mutation, so they are applied within the same block.
type Pusher struct {
	mutations []Mutation
}

// Put mutations to the pusher.
func (p *Pusher) Put(mutations ...Mutation) {
	for _, m := range mutations {
		if m != nil {
			p.mutations = append(p.mutations, m)
		}
	}
}

// Len returns number of collected mutations.
func (p *Pusher) Len() int {
	return len(p.mutations)
}

// Push collected mutations to the queue and reset the pusher.
func (p *Pusher) Push(q *Queue) {
	if len(p.mutations) == 0 {
		return
	}
	batch := p.mutations
	p.mutations = nil
	q.Enqueue(func() {
		for _, m := range batch {
			m()
		}
	})
}
