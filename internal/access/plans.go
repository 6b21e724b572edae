package access

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Subscription plan gating. Which features a plan unlocks and how many
// remote calendars it may sync are driven by a YAML policy file, so
// plan changes do not require a rebuild.

type Plan struct {
	Description  string   `yaml:"description"`
	MaxCalendars int      `yaml:"max_calendars"`
	Features     []string `yaml:"features"`
}

type PlanPolicy struct {
	DefaultPlan string              `yaml:"default_plan"`
	Plans       map[string]Plan     `yaml:"plans"`
	Inheritance map[string][]string `yaml:"inheritance"`
}

type Plans struct {
	policy *PlanPolicy
	mu     sync.RWMutex

	featureCache map[string]map[string]bool // plan -> feature -> allowed
}

var (
	plansInstance *Plans
	plansOnce     sync.Once
)

// GetPlans returns the singleton plan registry
func GetPlans() *Plans {
	plansOnce.Do(func() {
		plansInstance = &Plans{
			featureCache: make(map[string]map[string]bool),
		}
	})
	return plansInstance
}

// LoadPolicy loads the plan policy from a YAML file
func (p *Plans) LoadPolicy(filepath string) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("failed to read policy file: %w", err)
	}

	var policy PlanPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return fmt.Errorf("failed to parse policy file: %w", err)
	}

	p.mu.Lock()
	p.policy = &policy
	p.featureCache = make(map[string]map[string]bool) // Clear cache
	p.mu.Unlock()

	slog.Info("Plan policy loaded", "plans", len(policy.Plans))
	return nil
}

// resolvePlan maps an empty or unknown plan name onto the default plan.
func (p *Plans) resolvePlan(plan string) string {
	if p.policy == nil {
		return plan
	}
	if plan == "" {
		return p.policy.DefaultPlan
	}
	if _, exists := p.policy.Plans[plan]; !exists {
		slog.Warn("Unknown plan, using default", "plan", plan)
		return p.policy.DefaultPlan
	}
	return plan
}

// expandPlans returns the plan and everything it inherits from.
func (p *Plans) expandPlans(plan string, seen map[string]bool) {
	if seen[plan] {
		return
	}
	seen[plan] = true
	if p.policy == nil || p.policy.Inheritance == nil {
		return
	}
	for _, inherited := range p.policy.Inheritance[plan] {
		p.expandPlans(inherited, seen)
	}
}

// Can checks whether a plan unlocks a feature, directly or via inheritance.
func (p *Plans) Can(plan, feature string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.policy == nil {
		slog.Warn("Plan policy not loaded")
		return false
	}

	plan = p.resolvePlan(plan)

	if cache, exists := p.featureCache[plan]; exists {
		if allowed, found := cache[feature]; found {
			return allowed
		}
	}

	seen := make(map[string]bool)
	p.expandPlans(plan, seen)

	allowed := false
	for name := range seen {
		def, exists := p.policy.Plans[name]
		if !exists {
			continue
		}
		for _, f := range def.Features {
			if f == "*" || f == feature {
				allowed = true
				break
			}
		}
		if allowed {
			break
		}
	}

	if p.featureCache[plan] == nil {
		p.featureCache[plan] = make(map[string]bool)
	}
	p.featureCache[plan][feature] = allowed

	return allowed
}

// MaxCalendars returns the calendar quota for a plan: the largest
// max_calendars among the plan and its inherited plans. Zero means the
// policy grants none.
func (p *Plans) MaxCalendars(plan string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.policy == nil {
		return 0
	}

	plan = p.resolvePlan(plan)
	seen := make(map[string]bool)
	p.expandPlans(plan, seen)

	max := 0
	for name := range seen {
		if def, exists := p.policy.Plans[name]; exists && def.MaxCalendars > max {
			max = def.MaxCalendars
		}
	}
	return max
}
