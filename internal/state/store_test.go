package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tekshila/internal/model"
)

func file(name string) model.FileRef {
	return model.FileRef{Name: name, Size: int64(len(name)), Handle: model.BytesHandle(name)}
}

func TestStore_GetReturnsIndependentSnapshot(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Session{})
	s.AddFiles([]model.FileRef{file("a.go")})
	s.SetArtifact(model.Artifact{Body: "# a", Files: []model.ArtifactFile{{Path: "README.md", Body: "# a"}}})

	snap := s.Get()
	snap.Uploads[0].Name = "mutated"
	snap.Artifact.Body = "mutated"
	snap.Artifact.Files[0].Body = "mutated"

	again := s.Get()
	assert.Equal(t, "a.go", again.Uploads[0].Name)
	assert.Equal(t, "# a", again.Artifact.Body)
	assert.Equal(t, "# a", again.Artifact.Files[0].Body)
}

func TestStore_NotifiesSynchronouslyInOrder(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Session{})

	var got []string
	s.Subscribe(ObserverFunc(func(c Change) { got = append(got, "first:"+c.Field.String()) }))
	s.Subscribe(ObserverFunc(func(c Change) { got = append(got, "second:"+c.Field.String()) }))

	s.SetView(model.ViewQuality)

	assert.Equal(t, []string{"first:view", "second:view"}, got)
}

func TestStore_ChangeCarriesValue(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Session{})

	var changes []Change
	s.Subscribe(ObserverFunc(func(c Change) { changes = append(changes, c) }))

	s.SetPurpose(model.PurposeCommentedCode)
	conn, err := model.NewConnection("abc", model.Identity{Handle: "octocat"})
	require.NoError(t, err)
	require.NoError(t, s.SetConnection(conn))
	s.ClearConnection()

	require.Len(t, changes, 3)
	assert.Equal(t, model.PurposeCommentedCode, changes[0].Value)
	assert.Equal(t, "abc", changes[1].Value.(*model.Connection).Token)
	assert.Nil(t, changes[2].Value.(*model.Connection))
}

func TestStore_ObserverCannotMutateStoredValue(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Session{})

	var second *model.Connection
	s.Subscribe(ObserverFunc(func(c Change) {
		if conn, ok := c.Value.(*model.Connection); ok && conn != nil {
			conn.Token = ""
		}
	}))
	s.Subscribe(ObserverFunc(func(c Change) {
		if conn, ok := c.Value.(*model.Connection); ok {
			second = conn
		}
	}))

	conn, err := model.NewConnection("abc", model.Identity{Handle: "octo"})
	require.NoError(t, err)
	require.NoError(t, s.SetConnection(conn))

	stored := s.Get().Connection
	require.NotNil(t, stored)
	assert.True(t, stored.Valid())
	assert.Equal(t, "abc", stored.Token)
	require.NotNil(t, second)
	assert.Equal(t, "abc", second.Token)
}

func TestStore_SetReportCopiesInput(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Session{})

	r := model.QualityReport{
		File:        "a.go",
		Metrics:     map[string]string{"lines": "10"},
		Issues:      []model.Issue{{Line: 1, Message: "long line"}},
		Suggestions: []string{"split it"},
	}
	s.SetReport(r)
	r.Metrics["lines"] = "999"
	r.Issues[0].Message = "mutated"
	r.Suggestions[0] = "mutated"

	got := s.Get().Report
	require.NotNil(t, got)
	assert.Equal(t, map[string]string{"lines": "10"}, got.Metrics)
	assert.Equal(t, "long line", got.Issues[0].Message)
	assert.Equal(t, "split it", got.Suggestions[0])
}

func TestStore_SetArtifactCopiesInput(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Session{})

	a := model.Artifact{Body: "# a", Files: []model.ArtifactFile{{Path: "README.md", Body: "# a"}}}
	s.SetArtifact(a)
	a.Files[0].Body = "mutated"

	s.Subscribe(ObserverFunc(func(c Change) {
		if art, ok := c.Value.(*model.Artifact); ok {
			art.Files[0].Body = "observer"
		}
	}))
	s.SetArtifact(model.Artifact{Body: "# b", Files: []model.ArtifactFile{{Path: "README.md", Body: "# b"}}})

	assert.Equal(t, "# b", s.Get().Artifact.Files[0].Body)
}

func TestStore_Unsubscribe(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Session{})

	calls := 0
	unsub := s.Subscribe(ObserverFunc(func(Change) { calls++ }))
	s.SetView(model.ViewQuality)
	unsub()
	s.SetView(model.ViewDocumentation)

	assert.Equal(t, 1, calls)
}

func TestStore_UnsubscribeDuringNotification(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Session{})

	var unsub func()
	calls, other := 0, 0
	unsub = s.Subscribe(ObserverFunc(func(Change) {
		calls++
		unsub()
	}))
	s.Subscribe(ObserverFunc(func(Change) { other++ }))

	s.SetView(model.ViewQuality)
	s.SetView(model.ViewDocumentation)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, other)
}

func TestStore_SameFieldReentryPanics(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Session{})
	s.Subscribe(ObserverFunc(func(c Change) {
		if c.Field == FieldView {
			s.SetView(model.ViewRepoIntegration)
		}
	}))

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic on re-entrant set")
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrReentrantSet))
	}()
	s.SetView(model.ViewQuality)
}

func TestStore_OtherFieldWriteFromObserverAllowed(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Session{})
	s.Subscribe(ObserverFunc(func(c Change) {
		if c.Field == FieldView {
			s.SetPurpose(model.PurposeCommentedCode)
		}
	}))

	s.SetView(model.ViewQuality)

	got := s.Get()
	assert.Equal(t, model.ViewQuality, got.View)
	assert.Equal(t, model.PurposeCommentedCode, got.Purpose)
}

func TestStore_RejectsIncompleteConnection(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Session{})

	notified := false
	s.Subscribe(ObserverFunc(func(Change) { notified = true }))

	assert.Error(t, s.SetConnection(model.Connection{Token: "abc"}))
	assert.Error(t, s.SetConnection(model.Connection{Identity: model.Identity{Handle: "octocat"}}))
	assert.Nil(t, s.Get().Connection)
	assert.False(t, notified)
}
