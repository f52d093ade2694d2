package system

import (
	"context"
	"fmt"
	"testing"
)

type recordingService struct {
	name      string
	failStart bool
	events    *[]string
}

func (s *recordingService) Name() string { return s.name }

func (s *recordingService) Start(_ context.Context) error {
	if s.failStart {
		return fmt.Errorf("boom")
	}
	*s.events = append(*s.events, "start:"+s.name)
	return nil
}

func (s *recordingService) Stop(_ context.Context) error {
	*s.events = append(*s.events, "stop:"+s.name)
	return nil
}

func TestManagerStartStopOrder(t *testing.T) {
	m := NewManager()
	var events []string

	for _, name := range []string{"a", "b", "c"} {
		if err := m.Register(&recordingService{name: name, events: &events}); err != nil {
			t.Fatalf("register %s failed: %v", name, err)
		}
	}

	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}

	want := []string{"start:a", "start:b", "start:c", "stop:c", "stop:b", "stop:a"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}
}

func TestManagerRollsBackOnStartFailure(t *testing.T) {
	m := NewManager()
	var events []string

	if err := m.Register(&recordingService{name: "a", events: &events}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := m.Register(&recordingService{name: "b", failStart: true, events: &events}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail")
	}

	want := []string{"start:a", "stop:a"}
	if len(events) != 2 || events[0] != want[0] || events[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, events)
	}
}

func TestManagerRejectsDuplicatesAndLateRegistration(t *testing.T) {
	m := NewManager()
	var events []string

	if err := m.Register(&recordingService{name: "a", events: &events}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := m.Register(NoopService{ServiceName: "a"}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := m.Register(NoopService{ServiceName: "late"}); err == nil {
		t.Fatal("expected registration after start to fail")
	}
}
