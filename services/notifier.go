package services

import "github.com/yeremiapane/restaurant-tableorder/realtime"

// Notifier receives the realtime events produced by committed mutations.
// *realtime.Hub satisfies it.
type Notifier interface {
	Publish(realtime.Message)
}

type nopNotifier struct{}

func (nopNotifier) Publish(realtime.Message) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func publishAll(n Notifier, msgs []realtime.Message) {
	for _, m := range msgs {
		n.Publish(m)
	}
}
