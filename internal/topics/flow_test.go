package topics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeGateway struct {
	suggestFn func(ctx context.Context, path, exclude []string) ([]string, error)
	draftFn   func(ctx context.Context, path []string) (string, error)
}

func (f *fakeGateway) SuggestTopics(ctx context.Context, path, exclude []string) ([]string, error) {
	if f.suggestFn != nil {
		return f.suggestFn(ctx, path, exclude)
	}
	return []string{"Topic A", "Topic B"}, nil
}

func (f *fakeGateway) DraftFromPath(ctx context.Context, path []string) (string, error) {
	if f.draftFn != nil {
		return f.draftFn(ctx, path)
	}
	return "drafted text", nil
}

func TestStartFallsBackToDefaultTopics(t *testing.T) {
	gateway := &fakeGateway{
		suggestFn: func(ctx context.Context, path, exclude []string) ([]string, error) {
			return nil, errors.New("gateway down")
		},
	}
	manager := NewManager(gateway, time.Minute)

	flow := manager.Start(context.Background(), "user_1")
	if len(flow.Options) == 0 {
		t.Fatal("expected fallback options when the gateway is down")
	}
	if len(flow.Options) > maxOptions {
		t.Fatalf("got %d options, cap is %d", len(flow.Options), maxOptions)
	}
}

func TestStartCapsOptionsAtSix(t *testing.T) {
	gateway := &fakeGateway{
		suggestFn: func(ctx context.Context, path, exclude []string) ([]string, error) {
			return []string{"a", "b", "c", "d", "e", "f", "g", "h"}, nil
		},
	}
	manager := NewManager(gateway, time.Minute)

	flow := manager.Start(context.Background(), "user_1")
	if len(flow.Options) != maxOptions {
		t.Fatalf("got %d options, want %d", len(flow.Options), maxOptions)
	}
}

func TestSelectAppendsPathAndFetchesNextLevel(t *testing.T) {
	var gotPath []string
	gateway := &fakeGateway{
		suggestFn: func(ctx context.Context, path, exclude []string) ([]string, error) {
			gotPath = append([]string(nil), path...)
			if len(path) == 0 {
				return []string{"Health Insurance", "Motor Insurance"}, nil
			}
			return []string{"Claim rejected", "Cashless denied"}, nil
		},
	}
	manager := NewManager(gateway, time.Minute)

	flow := manager.Start(context.Background(), "user_1")
	flow, err := manager.Select(context.Background(), flow.ID, "user_1", "Health Insurance")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(flow.Path) != 1 || flow.Path[0] != "Health Insurance" {
		t.Fatalf("unexpected path: %v", flow.Path)
	}
	if len(gotPath) != 1 || gotPath[0] != "Health Insurance" {
		t.Fatalf("gateway saw path %v", gotPath)
	}
	if len(flow.Options) != 2 {
		t.Fatalf("unexpected options: %v", flow.Options)
	}
}

func TestSelectKeepsOptionsOnGatewayFailure(t *testing.T) {
	calls := 0
	gateway := &fakeGateway{
		suggestFn: func(ctx context.Context, path, exclude []string) ([]string, error) {
			calls++
			if calls == 1 {
				return []string{"Health Insurance", "Motor Insurance"}, nil
			}
			return nil, errors.New("gateway down")
		},
	}
	manager := NewManager(gateway, time.Minute)

	flow := manager.Start(context.Background(), "user_1")
	before := append([]string(nil), flow.Options...)

	flow, err := manager.Select(context.Background(), flow.ID, "user_1", "Health Insurance")
	if err != nil {
		t.Fatalf("Select should not fail when the gateway does: %v", err)
	}
	if len(flow.Path) != 1 || flow.Path[0] != "Health Insurance" {
		t.Fatalf("path should still advance: %v", flow.Path)
	}
	if len(flow.Options) != len(before) {
		t.Fatalf("options changed on failure: before %v, after %v", before, flow.Options)
	}
	for i := range before {
		if flow.Options[i] != before[i] {
			t.Fatalf("options changed on failure: before %v, after %v", before, flow.Options)
		}
	}
}

func TestRegenerateExcludesShownTopics(t *testing.T) {
	calls := 0
	var gotExclude []string
	gateway := &fakeGateway{
		suggestFn: func(ctx context.Context, path, exclude []string) ([]string, error) {
			calls++
			if calls == 1 {
				return []string{"Topic A", "Topic B"}, nil
			}
			gotExclude = append([]string(nil), exclude...)
			return []string{"Topic C", "Topic A"}, nil
		},
	}
	manager := NewManager(gateway, time.Minute)

	flow := manager.Start(context.Background(), "user_1")
	flow, err := manager.Regenerate(context.Background(), flow.ID, "user_1")
	if err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}

	if len(gotExclude) != 2 {
		t.Fatalf("gateway should have been told about 2 shown topics, got %v", gotExclude)
	}
	for _, option := range flow.Options {
		if option == "Topic A" || option == "Topic B" {
			t.Fatalf("regenerated options repeat a shown topic: %v", flow.Options)
		}
	}
	if len(flow.Options) != 1 || flow.Options[0] != "Topic C" {
		t.Fatalf("unexpected regenerated options: %v", flow.Options)
	}
}

func TestRegenerateKeepsOptionsOnGatewayFailure(t *testing.T) {
	calls := 0
	gateway := &fakeGateway{
		suggestFn: func(ctx context.Context, path, exclude []string) ([]string, error) {
			calls++
			if calls == 1 {
				return []string{"Topic A", "Topic B"}, nil
			}
			return nil, errors.New("gateway down")
		},
	}
	manager := NewManager(gateway, time.Minute)

	flow := manager.Start(context.Background(), "user_1")
	before := append([]string(nil), flow.Options...)

	flow, err := manager.Regenerate(context.Background(), flow.ID, "user_1")
	if err != nil {
		t.Fatalf("Regenerate should not fail when the gateway does: %v", err)
	}
	if len(flow.Options) != len(before) {
		t.Fatalf("options changed on failure: before %v, after %v", before, flow.Options)
	}
	for i := range before {
		if flow.Options[i] != before[i] {
			t.Fatalf("options changed on failure: before %v, after %v", before, flow.Options)
		}
	}
}

func TestRestartClearsPath(t *testing.T) {
	gateway := &fakeGateway{}
	manager := NewManager(gateway, time.Minute)

	flow := manager.Start(context.Background(), "user_1")
	flow, err := manager.Select(context.Background(), flow.ID, "user_1", "Topic A")
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	flow, err = manager.Restart(context.Background(), flow.ID, "user_1")
	if err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if len(flow.Path) != 0 {
		t.Fatalf("path should be empty after restart: %v", flow.Path)
	}
	if len(flow.Options) == 0 {
		t.Fatal("restart should present root options")
	}
}

func TestDraftFallsBackToPathText(t *testing.T) {
	gateway := &fakeGateway{
		draftFn: func(ctx context.Context, path []string) (string, error) {
			return "", errors.New("gateway down")
		},
	}
	manager := NewManager(gateway, time.Minute)

	flow := manager.Start(context.Background(), "user_1")
	if _, err := manager.Select(context.Background(), flow.ID, "user_1", "Motor Insurance"); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	draft, err := manager.Draft(context.Background(), flow.ID, "user_1")
	if err != nil {
		t.Fatalf("Draft should degrade, not fail: %v", err)
	}
	if !strings.Contains(draft, "Motor Insurance") {
		t.Fatalf("fallback draft should mention the path: %q", draft)
	}
}

func TestDraftRequiresAPath(t *testing.T) {
	manager := NewManager(&fakeGateway{}, time.Minute)
	flow := manager.Start(context.Background(), "user_1")
	if _, err := manager.Draft(context.Background(), flow.ID, "user_1"); err == nil {
		t.Fatal("drafting with an empty path should fail")
	}
}

func TestFlowOwnershipAndExpiry(t *testing.T) {
	manager := NewManager(&fakeGateway{}, time.Minute)
	now := time.Now()
	manager.now = func() time.Time { return now }

	flow := manager.Start(context.Background(), "user_1")

	if _, err := manager.Select(context.Background(), flow.ID, "user_2", "Topic A"); !errors.Is(err, ErrFlowNotFound) {
		t.Fatalf("another user's flow should be invisible, got %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := manager.Select(context.Background(), flow.ID, "user_1", "Topic A"); !errors.Is(err, ErrFlowNotFound) {
		t.Fatalf("expired flow should be gone, got %v", err)
	}
}
