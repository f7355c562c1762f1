package state

import (
	"fmt"
	"testing"

	"tekshila/internal/model"
)

func TestComputeGates_PRFormVisibleExhaustive(t *testing.T) {
	t.Parallel()

	for _, connected := range []bool{false, true} {
		for _, artifact := range []bool{false, true} {
			t.Run(fmt.Sprintf("connected=%v/artifact=%v", connected, artifact), func(t *testing.T) {
				t.Parallel()
				var s model.Session
				if connected {
					s.Connection = &model.Connection{Token: "abc", Identity: model.Identity{Handle: "octocat"}}
				}
				if artifact {
					s.Artifact = &model.Artifact{Body: "# doc"}
				}

				g := ComputeGates(s)

				if g.PRFormVisible != (connected && artifact) {
					t.Errorf("PRFormVisible = %v, want %v", g.PRFormVisible, connected && artifact)
				}
				if g.RepoPanelEnabled != connected {
					t.Errorf("RepoPanelEnabled = %v, want %v", g.RepoPanelEnabled, connected)
				}
				if g.PRPanelEnabled != connected {
					t.Errorf("PRPanelEnabled = %v, want %v", g.PRPanelEnabled, connected)
				}
				if g.ExportEnabled != artifact {
					t.Errorf("ExportEnabled = %v, want %v", g.ExportEnabled, artifact)
				}
			})
		}
	}
}

func TestComputeGates_FollowLatestSnapshot(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Session{})

	var seen []Gates
	s.Subscribe(ObserverFunc(func(Change) { seen = append(seen, ComputeGates(s.Get())) }))

	s.AddFiles([]model.FileRef{file("a.go")})
	conn, _ := model.NewConnection("abc", model.Identity{Handle: "octocat"})
	_ = s.SetConnection(conn)
	s.SetArtifact(model.Artifact{Body: "# doc"})
	s.ClearConnection()

	if len(seen) != 4 {
		t.Fatalf("got %d recomputations, want 4", len(seen))
	}
	if !seen[0].GenerateEnabled || seen[0].RepoPanelEnabled {
		t.Errorf("after upload: %+v", seen[0])
	}
	if !seen[1].RepoPanelEnabled || seen[1].PRFormVisible {
		t.Errorf("after connect: %+v", seen[1])
	}
	if !seen[2].PRFormVisible {
		t.Errorf("after artifact: %+v", seen[2])
	}
	if seen[3].PRFormVisible || seen[3].RepoPanelEnabled || !seen[3].ExportEnabled {
		t.Errorf("after disconnect: %+v", seen[3])
	}
}
