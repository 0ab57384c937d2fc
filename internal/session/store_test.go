package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"reelsmith/internal/intent"
)

func TestMemoryStoreCreate(t *testing.T) {
	s := NewMemoryStore(affirmYes)
	c, err := s.Create(context.Background(), "u1", "p1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.SessionID == "" {
		t.Error("session id not assigned")
	}
	if c.Phase != PhaseDiscovery || c.Status != StatusActive {
		t.Errorf("new session phase=%s status=%s", c.Phase, c.Status)
	}
	if len(c.MissingInfo) == 0 {
		t.Error("new session should have missing info")
	}
}

func TestLoadUnknownSession(t *testing.T) {
	s := NewMemoryStore(affirmYes)
	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateAppendsAndRecomputes(t *testing.T) {
	s := NewMemoryStore(affirmYes)
	c, _ := s.Create(context.Background(), "u1", "")

	in := knownIntent()
	got, err := s.Update(context.Background(), c.SessionID, Update{
		Message: &Message{Role: RoleUser, Content: "restaurant video for instagram"},
		Intent:  &in,
		Specs:   &intent.InferredSpecs{AspectRatio: "9:16", Duration: "15-30s"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(got.Messages))
	}
	if got.Messages[0].ID == "" || got.Messages[0].CreatedAt.IsZero() {
		t.Error("appended message missing id or timestamp")
	}
	if got.Phase != PhaseRefinement {
		t.Errorf("phase = %s, want refinement", got.Phase)
	}
	for _, field := range got.MissingInfo {
		if field == "purpose" || field == "platform" {
			t.Errorf("%s still listed as missing", field)
		}
	}
}

func TestUpdatePhaseNeverRegresses(t *testing.T) {
	s := NewMemoryStore(affirmYes)
	c, _ := s.Create(context.Background(), "u1", "")

	in := knownIntent()
	_, _ = s.Update(context.Background(), c.SessionID, Update{
		Message: &Message{Role: RoleUser, Content: "marketing video for instagram"},
		Intent:  &in,
	})

	// A later update with a weaker intent must not fall back to discovery.
	weak := intent.Default()
	got, err := s.Update(context.Background(), c.SessionID, Update{
		Message: &Message{Role: RoleUser, Content: "hmm"},
		Intent:  &weak,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Phase != PhaseRefinement {
		t.Errorf("phase regressed to %s", got.Phase)
	}
}

func TestUpdateResetPhase(t *testing.T) {
	s := NewMemoryStore(affirmYes)
	c, _ := s.Create(context.Background(), "u1", "")

	in := knownIntent()
	_, _ = s.Update(context.Background(), c.SessionID, Update{
		Message: &Message{Role: RoleUser, Content: "marketing video for instagram"},
		Intent:  &in,
	})

	got, err := s.Update(context.Background(), c.SessionID, Update{
		Message:    &Message{Role: RoleAssistant, Content: "sorry, something went wrong"},
		ResetPhase: true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Phase != PhaseDiscovery {
		t.Errorf("phase = %s, want discovery after reset", got.Phase)
	}
}

func TestTerminalStatusKeepsHistory(t *testing.T) {
	s := NewMemoryStore(affirmYes)
	c, _ := s.Create(context.Background(), "u1", "")
	_, _ = s.Update(context.Background(), c.SessionID, Update{
		Message: &Message{Role: RoleUser, Content: "hello"},
	})

	if err := s.Abandon(context.Background(), c.SessionID); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	got, err := s.Load(context.Background(), c.SessionID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Status != StatusAbandoned {
		t.Errorf("status = %s", got.Status)
	}
	if len(got.Messages) != 1 {
		t.Error("abandon must not delete history")
	}
}

func TestLoadReturnsCopy(t *testing.T) {
	s := NewMemoryStore(affirmYes)
	c, _ := s.Create(context.Background(), "u1", "")
	_, _ = s.Update(context.Background(), c.SessionID, Update{
		Message: &Message{Role: RoleUser, Content: "original"},
	})

	loaded, _ := s.Load(context.Background(), c.SessionID)
	loaded.Messages[0].Content = "tampered"
	loaded.Metadata["x"] = "y"

	again, _ := s.Load(context.Background(), c.SessionID)
	if again.Messages[0].Content != "original" {
		t.Error("caller mutation leaked into the store")
	}
	if _, ok := again.Metadata["x"]; ok {
		t.Error("metadata mutation leaked into the store")
	}
}

func TestConcurrentUpdatesSameSession(t *testing.T) {
	s := NewMemoryStore(affirmYes)
	c, _ := s.Create(context.Background(), "u1", "")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(context.Background(), c.SessionID, Update{
				Message: &Message{Role: RoleUser, Content: "turn"},
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := s.Load(context.Background(), c.SessionID)
	if len(got.Messages) != 20 {
		t.Errorf("messages = %d, want 20 (no lost appends)", len(got.Messages))
	}
}

func TestLastUserMessage(t *testing.T) {
	c := &ConversationContext{Messages: []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
		{Role: RoleAssistant, Content: "reply"},
	}}
	if got := c.LastUserMessage(); got == nil || got.Content != "second" {
		t.Errorf("LastUserMessage = %v", got)
	}
	if got := (&ConversationContext{}).LastUserMessage(); got != nil {
		t.Error("empty context should return nil")
	}
}
