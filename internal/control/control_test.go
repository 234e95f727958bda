package control

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alexbotov/gametester/internal/domain"
	"github.com/alexbotov/gametester/internal/store"
)

func setupTestControl(t *testing.T) (*Service, *domain.Test) {
	t.Helper()

	ctx := context.Background()
	st := store.NewMemory()
	if err := st.CreateDeveloper(ctx, &domain.Developer{Token: "dev123", Name: "Demo"}); err != nil {
		t.Fatalf("Failed to create developer: %v", err)
	}

	svc := New(st)
	test, err := svc.CreateTest(ctx, NewTest{
		DeveloperToken: "dev123",
		PlayerID:       "player-1",
		PlayerName:     "Player One",
		Datapoints:     []int{1, 7},
	})
	if err != nil {
		t.Fatalf("Failed to create test: %v", err)
	}

	return svc, test
}

func TestCreateTest(t *testing.T) {
	svc, test := setupTestControl(t)

	if test.ID == "" {
		t.Error("Expected test ID")
	}
	if test.State != domain.TestStateSetup {
		t.Errorf("Expected state setup, got %s", test.State)
	}

	_, err := svc.CreateTest(context.Background(), NewTest{DeveloperToken: "ghost", PlayerID: "p"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown developer, got: %v", err)
	}
}

func TestUnlock(t *testing.T) {
	svc, test := setupTestControl(t)
	ctx := context.Background()

	t.Run("FromSetup", func(t *testing.T) {
		unlocked, err := svc.Unlock(ctx, test.ID)
		if err != nil {
			t.Fatalf("Failed to unlock: %v", err)
		}
		if unlocked.State != domain.TestStateRunning {
			t.Errorf("Expected state running, got %s", unlocked.State)
		}
		if !unlocked.Unlocked() {
			t.Error("Expected UnlockedAt to be set")
		}
	})

	t.Run("AlreadyUnlocked", func(t *testing.T) {
		_, err := svc.Unlock(ctx, test.ID)
		if !errors.Is(err, ErrTestAlreadyUnlocked) {
			t.Errorf("Expected ErrTestAlreadyUnlocked, got: %v", err)
		}
	})

	t.Run("AfterFinish", func(t *testing.T) {
		if _, err := svc.Finish(ctx, "dev123", test.ID); err != nil {
			t.Fatalf("Failed to finish: %v", err)
		}
		_, err := svc.Unlock(ctx, test.ID)
		if !errors.Is(err, ErrTestAlreadyUnlocked) {
			t.Errorf("Expected ErrTestAlreadyUnlocked, got: %v", err)
		}
	})

	t.Run("UnknownTest", func(t *testing.T) {
		_, err := svc.Unlock(ctx, "missing")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got: %v", err)
		}
	})
}

func TestUnlock_NotInSetup(t *testing.T) {
	svc, test := setupTestControl(t)
	ctx := context.Background()

	if _, err := svc.Finish(ctx, "dev123", test.ID); err != nil {
		t.Fatalf("Failed to finish: %v", err)
	}

	_, err := svc.Unlock(ctx, test.ID)
	if !errors.Is(err, ErrTestNotInSetupState) {
		t.Errorf("Expected ErrTestNotInSetupState, got: %v", err)
	}
}

func TestUnlock_Concurrent(t *testing.T) {
	svc, test := setupTestControl(t)
	ctx := context.Background()

	const n = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		unlocked int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Unlock(ctx, test.ID); err == nil {
				mu.Lock()
				unlocked++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if unlocked != 1 {
		t.Errorf("Expected exactly one successful unlock, got %d", unlocked)
	}
}

func TestRecordDatapoint(t *testing.T) {
	svc, test := setupTestControl(t)
	ctx := context.Background()

	t.Run("NotRunning", func(t *testing.T) {
		_, err := svc.RecordDatapoint(ctx, test.ID, 7)
		if !errors.Is(err, ErrTestNotRunning) {
			t.Errorf("Expected ErrTestNotRunning, got: %v", err)
		}
	})

	if _, err := svc.Unlock(ctx, test.ID); err != nil {
		t.Fatalf("Failed to unlock: %v", err)
	}

	t.Run("Defined", func(t *testing.T) {
		if _, err := svc.RecordDatapoint(ctx, test.ID, 7); err != nil {
			t.Errorf("Expected datapoint 7 to be accepted, got: %v", err)
		}
	})

	t.Run("Undefined", func(t *testing.T) {
		_, err := svc.RecordDatapoint(ctx, test.ID, 8)
		if !errors.Is(err, ErrDatapointNotFound) {
			t.Errorf("Expected ErrDatapointNotFound, got: %v", err)
		}
	})

	t.Run("Finished", func(t *testing.T) {
		if _, err := svc.Finish(ctx, "dev123", test.ID); err != nil {
			t.Fatalf("Failed to finish: %v", err)
		}
		_, err := svc.RecordDatapoint(ctx, test.ID, 7)
		if !errors.Is(err, ErrTestNotRunning) {
			t.Errorf("Expected ErrTestNotRunning, got: %v", err)
		}
	})
}

func TestFinish(t *testing.T) {
	svc, test := setupTestControl(t)
	ctx := context.Background()

	t.Run("OtherDeveloper", func(t *testing.T) {
		_, err := svc.Finish(ctx, "dev456", test.ID)
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("UnknownTest", func(t *testing.T) {
		_, err := svc.Finish(ctx, "dev123", "missing")
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("FromSetup", func(t *testing.T) {
		finished, err := svc.Finish(ctx, "dev123", test.ID)
		if err != nil {
			t.Fatalf("Failed to finish: %v", err)
		}
		if finished.State != domain.TestStateFinished {
			t.Errorf("Expected state finished, got %s", finished.State)
		}
		if finished.Unlocked() {
			t.Error("A test finished from setup was never unlocked")
		}
	})

	t.Run("Again", func(t *testing.T) {
		_, err := svc.Finish(ctx, "dev123", test.ID)
		if !errors.Is(err, ErrTestAlreadyFinished) {
			t.Errorf("Expected ErrTestAlreadyFinished, got: %v", err)
		}
	})
}
