package benchmark

import (
	"context"
	"testing"

	"github.com/yndnr/attrmesh/internal/core/domain"
	"github.com/yndnr/attrmesh/internal/core/service"
	"github.com/yndnr/attrmesh/internal/storage"
	"github.com/yndnr/attrmesh/internal/storage/memory"
	"github.com/yndnr/attrmesh/internal/telemetry/logger"
)

var repos = []struct {
	name string
	open func(b *testing.B) service.SessionRepository
}{
	{"memory", func(*testing.B) service.SessionRepository { return memory.New() }},
	{"badger", func(b *testing.B) service.SessionRepository {
		engine, err := storage.NewBadgerEngine(storage.DefaultBadgerConfig(b.TempDir()), logger.Nop())
		if err != nil {
			b.Fatal(err)
		}
		b.Cleanup(func() { _ = engine.Close() })
		return storage.NewSessionStore(engine)
	}},
}

// BenchmarkStore_Lookup measures session lookup through the service.
func BenchmarkStore_Lookup(b *testing.B) {
	for _, rf := range repos {
		b.Run(rf.name, func(b *testing.B) {
			runWithSessionCounts(b, func(b *testing.B, count int) {
				ctx := context.Background()
				repo := rf.open(b)
				svc := service.NewSessionService(repo)
				sessions := prefill(ctx, b, repo, count)

				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := svc.Lookup(ctx, sessions[i%len(sessions)].ID()); err != nil {
						b.Fatalf("Lookup failed: %v", err)
					}
				}
				b.StopTimer()
				reportMemory(b, "mem")
			})
		})
	}
}

// BenchmarkStore_Persist measures writing back a dirty session.
func BenchmarkStore_Persist(b *testing.B) {
	for _, rf := range repos {
		b.Run(rf.name, func(b *testing.B) {
			ctx := context.Background()
			repo := rf.open(b)
			svc := service.NewSessionService(repo)
			sessions := prefill(ctx, b, repo, 1000)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				s := sessions[i%len(sessions)]
				_ = s.SetAttribute("hits", i, domain.PartitionPortlet)
				if err := svc.Persist(ctx, s); err != nil {
					b.Fatalf("Persist failed: %v", err)
				}
			}
		})
	}
}
