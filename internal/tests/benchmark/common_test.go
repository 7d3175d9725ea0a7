package benchmark

import (
	"context"
	"fmt"
	"runtime"
	"testing"

	"github.com/yndnr/attrmesh/internal/core/domain"
	"github.com/yndnr/attrmesh/internal/core/service"
)

// SessionCounts are the store sizes benchmarks run against.
var SessionCounts = []int{1000, 10000, 50000}

func newSession(b *testing.B) *domain.Session {
	b.Helper()
	s, err := domain.NewSession(0)
	if err != nil {
		b.Fatal(err)
	}
	return s
}

// prefill stores count sessions, each holding one attribute per partition.
func prefill(ctx context.Context, b *testing.B, repo service.SessionRepository, count int) []*domain.Session {
	b.Helper()
	sessions := make([]*domain.Session, count)
	for i := range sessions {
		s := newSession(b)
		_ = s.SetAttribute("user", fmt.Sprintf("user-%d", i%1000), domain.PartitionApplication)
		_ = s.SetAttribute("view", "list", domain.PartitionPortlet)
		if err := repo.Create(ctx, s); err != nil {
			b.Fatalf("Create failed: %v", err)
		}
		sessions[i] = s
	}
	return sessions
}

// reportMemory reports heap usage after a GC.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
}

func runWithSessionCounts(b *testing.B, fn func(b *testing.B, count int)) {
	for _, count := range SessionCounts {
		b.Run(fmt.Sprintf("sessions_%d", count), func(b *testing.B) {
			fn(b, count)
		})
	}
}
