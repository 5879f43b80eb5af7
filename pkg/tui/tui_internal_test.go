package tui

import (
	"context"
	"testing"

	"github.com/teslashibe/go-spellcam/pkg/camera"
	"github.com/teslashibe/go-spellcam/pkg/session"
)

type idleCommander struct{}

func (idleCommander) Dispatch(context.Context, string) error { return nil }
func (idleCommander) Snapshot() session.Snapshot { return session.Snapshot{} }

func TestPublishKeepsNewestSnapshot(t *testing.T) {
	u := New(context.Background(), idleCommander{}, nil)

	// A backlog of frames must not cost the state update.
	for i := 0; i < cap(u.inbox)+8; i++ {
		u.ShowFrame(camera.EncodedImage{Width: 640, Height: 480}, false)
	}
	for _, text := range []string{"H", "HE", "HEL"} {
		u.Publish(session.Snapshot{Text: text})
	}

	select {
	case snap := <-u.state:
		if snap.Text != "HEL" {
			t.Errorf("pending snapshot text = %q, want HEL", snap.Text)
		}
	default:
		t.Fatal("no snapshot pending")
	}
	select {
	case snap := <-u.state:
		t.Errorf("stale snapshot %q still pending", snap.Text)
	default:
	}
}
