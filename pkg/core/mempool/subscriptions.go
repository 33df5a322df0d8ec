package mempool

import "github.com/stratachain/strata/pkg/mempoolevent"

// RunSubscriptions starts the event-dispatcher goroutine: an in-process
// listener registry that delivers events in the order the mempool emits
// them, after the mutation lock has already been released.
func (p *Pool) RunSubscriptions() {
	if !p.subscriptionsOn.Load() {
		p.subscriptionsOn.Store(true)
		go p.notificationDispatcher()
	}
}

// StopSubscriptions stops the dispatcher goroutine.
func (p *Pool) StopSubscriptions() {
	if p.subscriptionsOn.Load() {
		p.subscriptionsOn.Store(false)
		close(p.stopCh)
	}
}

// SubscribeForTransactions registers ch to receive every Added, Evicted,
// Mined and Restored event the mempool emits from here on.
func (p *Pool) SubscribeForTransactions(ch chan<- mempoolevent.Event) {
	if p.subscriptionsOn.Load() {
		p.subCh <- ch
	}
}

// UnsubscribeFromTransactions removes ch from the listener registry. ch
// may be safely closed by the caller afterwards.
func (p *Pool) UnsubscribeFromTransactions(ch chan<- mempoolevent.Event) {
	if p.subscriptionsOn.Load() {
		p.unsubCh <- ch
	}
}

// notificationDispatcher owns the set of subscriber channels and
// broadcasts every event to each of them, in arrival order. Dead
// subscribers are never pruned automatically here: a channel only
// leaves the set via an explicit Unsubscribe, which is how this package
// avoids the mempool retaining a reference that could form a cycle back
// into a listener's owner: the listener, not the pool, decides its own
// lifetime.
func (p *Pool) notificationDispatcher() {
	subs := make(map[chan<- mempoolevent.Event]bool)
	for {
		select {
		case <-p.stopCh:
			return
		case ch := <-p.subCh:
			subs[ch] = true
		case ch := <-p.unsubCh:
			delete(subs, ch)
		case ev := <-p.events:
			for ch := range subs {
				ch <- ev
			}
		}
	}
}
