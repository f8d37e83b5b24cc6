package oscwc

import "github.com/rs/zerolog"

// Notifier is the transaction lifecycle's only observability hook. It must
// not panic; the engine recovers defensively around every call so a buggy
// observer can never abort an in-progress transaction.
type Notifier interface {
	Begin(kind string, info any)
	Processed(item string, newState *string)
	Finished(kind string, aborted bool)
}

// NoopNotifier discards every lifecycle event. It is the default when a
// Project is constructed without one.
type NoopNotifier struct{}

func (NoopNotifier) Begin(string, any)        {}
func (NoopNotifier) Processed(string, *string) {}
func (NoopNotifier) Finished(string, bool)     {}

// ZerologNotifier logs transaction lifecycle events as structured events,
// the same shape of "log begin/processed/finished" lifecycle logging
// cuemby-warren's raft/VM supervisor uses rs/zerolog for.
type ZerologNotifier struct {
	Logger zerolog.Logger
}

func (n ZerologNotifier) Begin(kind string, info any) {
	n.Logger.Info().Str("kind", kind).Interface("info", info).Msg("transaction begin")
}

func (n ZerologNotifier) Processed(item string, newState *string) {
	ev := n.Logger.Info().Str("package", item)
	if newState != nil {
		ev = ev.Str("state", *newState)
	} else {
		ev = ev.Bool("removed", true)
	}

	ev.Msg("package processed")
}

func (n ZerologNotifier) Finished(kind string, aborted bool) {
	n.Logger.Info().Str("kind", kind).Bool("aborted", aborted).Msg("transaction finished")
}

// notifyBegin invokes the notifier's Begin hook, recovering from any panic
// so a faulty observer can never abort a transaction mid-flight.
func (p *Project) notifyBegin(kind string, info any) {
	defer recoverNotifier()
	p.notifier.Begin(kind, info)
}

func (p *Project) notifyProcessed(item string, newState *string) {
	defer recoverNotifier()
	p.notifier.Processed(item, newState)
}

func (p *Project) notifyFinished(kind string, aborted bool) {
	defer recoverNotifier()
	p.notifier.Finished(kind, aborted)
}

func recoverNotifier() {
	_ = recover()
}
