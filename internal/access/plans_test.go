package access

import (
	"os"
	"path/filepath"
	"testing"
)

const testPolicy = `
default_plan: free
plans:
  free:
    description: Starter plan
    max_calendars: 1
    features:
      - sync
  pro:
    description: Paid plan
    max_calendars: 10
    features:
      - csv_import
      - feed
inheritance:
  pro:
    - free
`

func loadTestPolicy(t *testing.T) *Plans {
	t.Helper()

	path := filepath.Join(t.TempDir(), "plans.yaml")
	if err := os.WriteFile(path, []byte(testPolicy), 0o600); err != nil {
		t.Fatalf("failed to write policy file: %v", err)
	}

	plans := &Plans{featureCache: make(map[string]map[string]bool)}
	if err := plans.LoadPolicy(path); err != nil {
		t.Fatalf("LoadPolicy failed: %v", err)
	}
	return plans
}

func TestPlans_FeatureGating(t *testing.T) {
	plans := loadTestPolicy(t)

	if !plans.Can("free", "sync") {
		t.Error("free plan should allow sync")
	}
	if plans.Can("free", "csv_import") {
		t.Error("free plan should not allow csv_import")
	}
	if !plans.Can("pro", "csv_import") {
		t.Error("pro plan should allow csv_import")
	}
	// Inherited from free
	if !plans.Can("pro", "sync") {
		t.Error("pro plan should inherit sync from free")
	}
}

func TestPlans_UnknownPlanFallsBackToDefault(t *testing.T) {
	plans := loadTestPolicy(t)

	if !plans.Can("enterprise-typo", "sync") {
		t.Error("unknown plan should fall back to the default plan")
	}
	if plans.Can("", "csv_import") {
		t.Error("empty plan should resolve to free, which lacks csv_import")
	}
}

func TestPlans_MaxCalendars(t *testing.T) {
	plans := loadTestPolicy(t)

	if got := plans.MaxCalendars("free"); got != 1 {
		t.Errorf("free max calendars = %d, want 1", got)
	}
	if got := plans.MaxCalendars("pro"); got != 10 {
		t.Errorf("pro max calendars = %d, want 10", got)
	}
}

func TestPlans_NotLoaded(t *testing.T) {
	plans := &Plans{featureCache: make(map[string]map[string]bool)}

	if plans.Can("free", "sync") {
		t.Error("unloaded policy must deny everything")
	}
	if plans.MaxCalendars("free") != 0 {
		t.Error("unloaded policy must grant zero calendars")
	}
}
