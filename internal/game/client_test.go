package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/render"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/sim"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/store"
	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/telemetry"
	"github.com/VasilisChatzivasileiou/forlackofabettername/logging"
	simlog "github.com/VasilisChatzivasileiou/forlackofabettername/logging/simulation"
	"github.com/VasilisChatzivasileiou/forlackofabettername/logging/sinks"
)

type failingStore struct{ loadErr, saveErr error }

func (s failingStore) Load() (int, error) { return 0, s.loadErr }
func (s failingStore) Save(int) error     { return s.saveErr }

func newTestClient(t *testing.T, deps Deps) *Client {
	t.Helper()
	cfg := Config{World: sim.DefaultWorldConfig()}
	cfg.World.Hazards = false
	client, err := NewClient(cfg, deps)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientSeedsHighScore(t *testing.T) {
	highScores := &store.Memory{}
	_ = highScores.Save(12)
	client := newTestClient(t, Deps{Store: highScores})
	if client.World().HighScore() != 12 {
		t.Fatalf("expected seeded high score 12, got %d", client.World().HighScore())
	}
}

func TestNewClientFailsOnStoreError(t *testing.T) {
	_, err := NewClient(Config{}, Deps{Store: failingStore{loadErr: errors.New("disk")}})
	if err == nil {
		t.Fatalf("expected load error")
	}
}

func TestResetPublishesEventsAndSavesRecord(t *testing.T) {
	events := sinks.NewMemory()
	highScores := &store.Memory{}
	metrics := &logging.Metrics{}
	client := newTestClient(t, Deps{Store: highScores, Publisher: events, Metrics: telemetry.WrapMetrics(metrics)})
	ctx := context.Background()

	client.Frame(ctx, sim.Input{Right: true})
	// Lift the avatar well above the start so the run scores.
	for i := 0; i < 3; i++ {
		client.Frame(ctx, sim.Input{Up: i%2 == 0})
	}
	result := client.Reset(ctx)
	if !result.Reset {
		t.Fatalf("expected reset event")
	}
	if len(events.OfType(simlog.EventRunReset)) != 1 {
		t.Fatalf("expected run reset event")
	}
	if result.NewHighScore {
		if highScores.Saves() != 1 || len(events.OfType(simlog.EventHighScore)) != 1 {
			t.Fatalf("expected record saved and published")
		}
	} else if highScores.Saves() != 0 {
		t.Fatalf("expected no save without a record")
	}
	if metrics.Snapshot()[metricRunResets] != 1 {
		t.Fatalf("expected reset metric")
	}
}

func TestFallScenarioThroughClient(t *testing.T) {
	highScores := &store.Memory{}
	_ = highScores.Save(5)
	client := newTestClient(t, Deps{Store: highScores})
	client.World().ReplacePlatforms(nil, sim.InitialRowY)
	ctx := context.Background()

	var reset sim.StepEvents
	for i := 0; i < 100 && !reset.Reset; i++ {
		reset = client.Frame(ctx, sim.Input{})
	}
	if !reset.Reset {
		t.Fatalf("expected the avatar to fall out of view")
	}
	if reset.NewHighScore || highScores.Saves() != 1 {
		t.Fatalf("expected existing record kept")
	}
	if client.World().Avatar().Y != sim.StartY || len(client.World().Platforms()) != 3 {
		t.Fatalf("expected starting configuration after reset")
	}
}

func TestSaveFailureIsCounted(t *testing.T) {
	metrics := &logging.Metrics{}
	client := newTestClient(t, Deps{
		Store:   failingStore{saveErr: errors.New("read-only")},
		Metrics: telemetry.WrapMetrics(metrics),
	})
	ctx := context.Background()
	client.Frame(ctx, sim.Input{Up: true})
	for i := 0; i < 10; i++ {
		client.Frame(ctx, sim.Input{})
	}
	events := client.Reset(ctx)
	if events.NewHighScore && metrics.Snapshot()[metricSaveErrors] != 1 {
		t.Fatalf("expected save error counted")
	}
}

func TestFrameRendersSnapshot(t *testing.T) {
	recorder := &render.Recorder{}
	client := newTestClient(t, Deps{Sink: recorder})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		client.Frame(ctx, sim.Input{})
	}
	frame, count := recorder.Last()
	if count != 5 || frame.Frame != 5 {
		t.Fatalf("expected 5 frames presented, got %d (last %d)", count, frame.Frame)
	}
}

func TestLoopDrivesClient(t *testing.T) {
	client := newTestClient(t, Deps{})
	var calls int
	loop := client.NewLoop(context.Background(), InputFunc(func(sim.Snapshot) sim.Input {
		calls++
		return sim.Input{}
	}))
	ran := loop.Advance(time.Now(), 3*loop.StepDuration())
	if ran != 3 || calls != 3 || client.World().Frame() != 3 {
		t.Fatalf("expected 3 frames, got ran=%d calls=%d frame=%d", ran, calls, client.World().Frame())
	}
}

func TestClimberSteersTowardPlatformAbove(t *testing.T) {
	snap := sim.Snapshot{
		Local: sim.AvatarView{X: 100, Y: 300, Width: 30, Height: 30},
		Platforms: []sim.PlatformView{
			{X: 500, Y: 200, Width: 100, Height: 100},
			{X: 0, Y: 0, Width: 100, Height: 100},
			{X: 0, Y: 400, Width: 100, Height: 100},
		},
	}
	var climber Climber
	first := climber.Next(snap)
	if !first.Right || first.Left {
		t.Fatalf("expected to steer right, got %+v", first)
	}
	second := climber.Next(snap)
	if first.Up == second.Up {
		t.Fatalf("expected jump taps to alternate")
	}
}

func TestClimberHooksWhenFalling(t *testing.T) {
	snap := sim.Snapshot{
		CameraY: 10,
		Hooks:   1,
		Local:   sim.AvatarView{X: 100, Y: 300, Width: 30, Height: 30, VY: 2},
		Platforms: []sim.PlatformView{
			{X: 80, Y: 200, Width: 100, Height: 100},
		},
	}
	var climber Climber
	in := climber.Next(snap)
	if in.Hook == nil || in.Hook.X != 130 || in.Hook.Y != 210 {
		t.Fatalf("expected hook at platform top in viewport space, got %+v", in.Hook)
	}
}
