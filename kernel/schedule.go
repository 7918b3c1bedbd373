package kernel

// selectNext picks the ACTIVE slot with the most remaining credits, lowest
// index first on ties, and charges it one credit. When the pool is drained
// every ACTIVE slot is refilled to its priority before the winner is charged.
//
// Scan and refill run in two separate sections; wakes and creates may land
// in between.
func (k *Kernel) selectNext() (uint8, bool) {
	a := k.atomic.Start()
	best := -1
	var most int16 = -1
	for i := range k.threads {
		t := &k.threads[i]
		if t.state == StateActive && most < t.remaining {
			most = t.remaining
			best = i
		}
	}
	if best < 0 {
		k.cyclePending = false
		a.End()
		return 0, false
	}
	if most > 0 {
		k.threads[best].remaining--
		a.End()
		return uint8(best), true
	}
	a.End()

	if k.betweenPhases != nil {
		k.betweenPhases()
	}

	a = k.atomic.Start()
	defer a.End()
	if k.threads[best].state != StateActive {
		k.cyclePending = false
		return 0, false
	}
	for i := range k.threads {
		t := &k.threads[i]
		if t.state == StateActive {
			t.remaining = int16(t.priority)
		}
	}
	k.threads[best].remaining--
	return uint8(best), true
}
