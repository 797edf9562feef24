package ui

// Stage is the step an input is going through.
type Stage uint8

const (
	StageNone Stage = iota
	StageRead
	StageCache
	StageParse
	StageRestore
	StageMerge
)

func (s Stage) String() string {
	switch s {
	case StageRead:
		return "reading"
	case StageCache:
		return "cache"
	case StageParse:
		return "parsing"
	case StageRestore:
		return "restoring"
	case StageMerge:
		return "merging"
	default:
		return ""
	}
}

// Status tells where an input is within its stage.
type Status uint8

const (
	StatusQueued Status = iota
	StatusWorking
	StatusDone
	StatusError
)

// Event reports progress of one input. Events without Input describe the
// whole run.
type Event struct {
	Input  string
	Stage  Stage
	Status Status
	Note   string
	Err    error
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events to Ch.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	s.Ch <- ev
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) OnEvent(Event) {}
