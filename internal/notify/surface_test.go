package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tekshila/internal/forge"
	"tekshila/internal/generate"
	"tekshila/internal/model"
	"tekshila/internal/pipeline"
	"tekshila/internal/quality"
	"tekshila/internal/state"
	"tekshila/internal/upload"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newSurface() (*Surface, *clock) {
	c := &clock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	s := New(3*time.Second, "GitLab")
	s.Now = c.now
	return s, c
}

func TestSuccessToasts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		kind   pipeline.Kind
		detail string
		want   string
	}{
		{pipeline.KindGenerate, "", "Documentation generated successfully!"},
		{pipeline.KindAnalyze, "", "Code analysis completed!"},
		{pipeline.KindAuthenticate, "Mona", "Welcome, Mona!"},
		{pipeline.KindSubmit, "https://x/pr/1", "Pull request created successfully! https://x/pr/1"},
	}
	for _, tt := range tests {
		s, _ := newSurface()
		s.PipelineEvent(pipeline.Event{Kind: tt.kind, Phase: pipeline.PhaseSucceeded, JobID: "j", Detail: tt.detail})
		toasts := s.Toasts()
		require.Len(t, toasts, 1, tt.kind.String())
		assert.Equal(t, tt.want, toasts[0].Text)
		assert.Equal(t, LevelSuccess, toasts[0].Level)
	}
}

func TestBusyKeyedByJob(t *testing.T) {
	t.Parallel()
	s, _ := newSurface()

	s.PipelineEvent(pipeline.Event{Kind: pipeline.KindGenerate, Phase: pipeline.PhasePending, JobID: "g"})
	s.PipelineEvent(pipeline.Event{Kind: pipeline.KindAuthenticate, Phase: pipeline.PhasePending, JobID: "a"})

	b, ok := s.Busy()
	require.True(t, ok)
	assert.Equal(t, "Authenticating...", b.Title)
	assert.Equal(t, "Connecting to GitLab", b.Subtitle)

	// A rejected duplicate carries its own job id and clears nothing.
	s.PipelineEvent(pipeline.Event{Kind: pipeline.KindGenerate, Phase: pipeline.PhaseFailed, JobID: "dup", Err: pipeline.ErrConcurrentInvocation})
	assert.True(t, s.Pending(pipeline.KindGenerate))

	s.PipelineEvent(pipeline.Event{Kind: pipeline.KindAuthenticate, Phase: pipeline.PhaseSucceeded, JobID: "a", Detail: "m"})
	b, ok = s.Busy()
	require.True(t, ok)
	assert.Equal(t, "Generating documentation...", b.Title)

	s.PipelineEvent(pipeline.Event{Kind: pipeline.KindGenerate, Phase: pipeline.PhaseFailed, JobID: "g", Err: &pipeline.ServiceError{Message: "boom"}})
	_, ok = s.Busy()
	assert.False(t, ok)

	texts := []string{}
	for _, toast := range s.Toasts() {
		texts = append(texts, toast.Text)
	}
	assert.Equal(t, []string{"action already in progress", "Welcome, m!", "boom"}, texts)
}

func TestToastsExpire(t *testing.T) {
	t.Parallel()
	s, c := newSurface()
	s.Info("one")
	c.t = c.t.Add(2 * time.Second)
	s.Error(assert.AnError)

	assert.Len(t, s.Toasts(), 2)
	c.t = c.t.Add(time.Second)
	toasts := s.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, LevelError, toasts[0].Level)

	c.t = c.t.Add(5 * time.Second)
	assert.False(t, s.Prune())
}

func TestSurfaceObservesPipeline(t *testing.T) {
	t.Parallel()
	store := state.NewStore(model.Session{})
	p := pipeline.New(pipeline.Deps{
		Store:     store,
		Generator: generate.Offline{},
		Quality:   quality.Heuristic{},
		Host:      forge.NewOffline(),
	})
	s, _ := newSurface()
	p.Subscribe(s)

	err := p.Generate(context.Background(), pipeline.GenerateInput{ProjectName: "P"})
	require.Error(t, err)
	assert.Equal(t, "no files", s.Toasts()[0].Text)

	store.AddFiles([]model.FileRef{upload.FromBytes("main.go", []byte("package main\n"))})
	job, err := p.BeginGenerate(pipeline.GenerateInput{ProjectName: "P"})
	require.NoError(t, err)
	assert.True(t, s.Pending(pipeline.KindGenerate))

	require.NoError(t, p.Complete(job.Execute(context.Background())))
	assert.False(t, s.Pending(pipeline.KindGenerate))
	toasts := s.Toasts()
	assert.Equal(t, "Documentation generated successfully!", toasts[len(toasts)-1].Text)
}
