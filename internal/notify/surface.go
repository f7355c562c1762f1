// Package notify turns pipeline events into toasts and busy indicators.
package notify

import (
	"time"

	"tekshila/internal/pipeline"
)

// Level is the colour of a toast.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Toast is a transient message.
type Toast struct {
	Level   Level
	Text    string
	Expires time.Time
}

// Busy describes a job that is waiting on its external call.
type Busy struct {
	JobID    string
	Kind     pipeline.Kind
	Title    string
	Subtitle string
}

// Surface collects toasts and busy indicators. It holds no business state
// and must be used from the goroutine that owns the pipeline.
type Surface struct {
	Now func() time.Time

	ttl    time.Duration
	host   string
	toasts []Toast
	busy   []Busy
}

// New returns a surface whose toasts live for ttl. host names the repository
// host in the authentication and submission indicators.
func New(ttl time.Duration, host string) *Surface {
	if ttl <= 0 {
		ttl = 4 * time.Second
	}
	if host == "" {
		host = "GitHub"
	}
	return &Surface{Now: time.Now, ttl: ttl, host: host}
}

// PipelineEvent implements pipeline.Observer.
func (s *Surface) PipelineEvent(e pipeline.Event) {
	switch e.Phase {
	case pipeline.PhasePending:
		title, sub := s.busyText(e.Kind)
		s.busy = append(s.busy, Busy{JobID: e.JobID, Kind: e.Kind, Title: title, Subtitle: sub})
	case pipeline.PhaseSucceeded:
		s.done(e.JobID)
		s.push(LevelSuccess, successText(e))
	case pipeline.PhaseFailed:
		s.done(e.JobID)
		if e.Err != nil {
			s.push(LevelError, e.Err.Error())
		}
	}
}

// Info shows a neutral toast.
func (s *Surface) Info(text string) { s.push(LevelInfo, text) }

// Success shows a success toast.
func (s *Surface) Success(text string) { s.push(LevelSuccess, text) }

// Error shows err as an error toast.
func (s *Surface) Error(err error) {
	if err != nil {
		s.push(LevelError, err.Error())
	}
}

// Toasts returns the unexpired toasts, oldest first.
func (s *Surface) Toasts() []Toast {
	s.Prune()
	return append([]Toast(nil), s.toasts...)
}

// Prune drops expired toasts and reports whether any remain.
func (s *Surface) Prune() bool {
	now := s.Now()
	live := s.toasts[:0]
	for _, t := range s.toasts {
		if now.Before(t.Expires) {
			live = append(live, t)
		}
	}
	s.toasts = live
	return len(s.toasts) > 0
}

// Busy returns the most recently started pending job.
func (s *Surface) Busy() (Busy, bool) {
	if len(s.busy) == 0 {
		return Busy{}, false
	}
	return s.busy[len(s.busy)-1], true
}

// Pending reports whether a job of kind k is pending.
func (s *Surface) Pending(k pipeline.Kind) bool {
	for _, b := range s.busy {
		if b.Kind == k {
			return true
		}
	}
	return false
}

func (s *Surface) push(l Level, text string) {
	s.toasts = append(s.toasts, Toast{Level: l, Text: text, Expires: s.Now().Add(s.ttl)})
}

func (s *Surface) done(jobID string) {
	for i, b := range s.busy {
		if b.JobID == jobID {
			s.busy = append(s.busy[:i:i], s.busy[i+1:]...)
			return
		}
	}
}

func (s *Surface) busyText(k pipeline.Kind) (title, subtitle string) {
	switch k {
	case pipeline.KindGenerate:
		return "Generating documentation...", "AI is analyzing your code and creating documentation"
	case pipeline.KindAnalyze:
		return "Analyzing code quality...", "AI is examining your code for issues and improvements"
	case pipeline.KindAuthenticate:
		return "Authenticating...", "Connecting to " + s.host
	case pipeline.KindSubmit:
		return "Creating pull request...", "Pushing changes and creating PR"
	}
	return "Working...", ""
}

func successText(e pipeline.Event) string {
	switch e.Kind {
	case pipeline.KindGenerate:
		return "Documentation generated successfully!"
	case pipeline.KindAnalyze:
		return "Code analysis completed!"
	case pipeline.KindAuthenticate:
		return "Welcome, " + e.Detail + "!"
	case pipeline.KindSubmit:
		if e.Detail == "" {
			return "Pull request created successfully!"
		}
		return "Pull request created successfully! " + e.Detail
	}
	return "Done."
}
