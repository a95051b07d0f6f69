package scenario

import (
	"context"
	"testing"

	"github.com/elektrokombinacija/crowdsense/internal/config"
)

func TestBuildProducesRunnableDeployment(t *testing.T) {
	cfg := config.Default()
	dep, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(dep.Agents) != 3 {
		t.Errorf("len(Agents) = %d, want 3", len(dep.Agents))
	}
	if len(dep.Tasks) != 2 {
		t.Errorf("len(Tasks) = %d, want 2", len(dep.Tasks))
	}

	if err := dep.Sim.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestBuildRejectsUnknownAllocator(t *testing.T) {
	cfg := config.Default()
	cfg.Allocator = "does-not-exist"
	if _, err := Build(cfg, nil); err == nil {
		t.Fatal("expected an error for an unknown allocator name")
	}
}
