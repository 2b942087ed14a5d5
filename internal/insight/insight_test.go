package insight

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"household/internal/cache"
	"household/internal/report"
)

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	err     error
	delay   time.Duration
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.text, g.err
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func mustPrompts(t *testing.T) *Prompts {
	t.Helper()
	p, err := LoadPrompts()
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestService_Generate(t *testing.T) {
	tests := []struct {
		name    string
		gen     *fakeGenerator
		timeout time.Duration
		want    string
		outcome string
	}{
		{"ok", &fakeGenerator{text: "  Economize 10%.\n"}, time.Second, "Economize 10%.", OutcomeOK},
		{"blank answer", &fakeGenerator{text: "   "}, time.Second, Empty, OutcomeEmpty},
		{"provider error", &fakeGenerator{err: errors.New("503")}, time.Second, Fallback, OutcomeError},
		{"timeout", &fakeGenerator{text: "late", delay: time.Second}, 20 * time.Millisecond, Fallback, OutcomeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var outcome string
			svc := NewService(tt.gen, "fake", mustPrompts(t), tt.timeout,
				WithObserver(func(_, o string, _ time.Duration) { outcome = o }))
			if got := svc.Generate(context.Background(), "prompt"); got != tt.want {
				t.Fatalf("Generate() = %q, want %q", got, tt.want)
			}
			if outcome != tt.outcome {
				t.Fatalf("outcome = %q, want %q", outcome, tt.outcome)
			}
		})
	}
}

func TestService_WithoutProvider(t *testing.T) {
	svc := NewService(nil, "none", mustPrompts(t), time.Second)
	if got := svc.Financial(context.Background(), "saldo positivo"); got != Fallback {
		t.Fatalf("got %q", got)
	}
}

func TestService_CachesSuccessOnly(t *testing.T) {
	gen := &fakeGenerator{text: "Dica"}
	svc := NewService(gen, "fake", mustPrompts(t), time.Second, WithCache(cache.NewLRU[string](8, time.Minute)))

	ctx := context.Background()
	for range 3 {
		if got := svc.Financial(ctx, "resumo"); got != "Dica" {
			t.Fatalf("got %q", got)
		}
	}
	if gen.calls() != 1 {
		t.Fatalf("expected one provider call, got %d", gen.calls())
	}

	failing := &fakeGenerator{err: errors.New("down")}
	svc = NewService(failing, "fake", mustPrompts(t), time.Second, WithCache(cache.NewLRU[string](8, time.Minute)))
	svc.Financial(ctx, "resumo")
	svc.Financial(ctx, "resumo")
	if failing.calls() != 2 {
		t.Fatalf("failures must not be cached, got %d calls", failing.calls())
	}
}

func TestPrompts(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	svc := NewService(gen, "fake", mustPrompts(t), time.Second)
	ctx := context.Background()

	svc.Productivity(ctx,
		[]report.DayProductivity{{Date: "2025-01-01", Concluidas: 1, Total: 2}},
		[]report.TagCount{{Tag: "Casa", Criadas: 3, Concluidas: 2}})

	deadline := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	desc := "guardar 10%"
	svc.Complete(ctx,
		[]GoalLine{{Title: "Reserva", Deadline: &deadline, Description: &desc}, {Title: "Viajar", Completed: true}},
		[]RoutineItem{{Title: "Academia", Status: "Concluído"}, {Title: "Ler", Status: "Pendente"}},
		"")

	if gen.calls() != 2 {
		t.Fatalf("expected 2 prompts, got %d", gen.calls())
	}
	prod, complete := gen.prompts[0], gen.prompts[1]

	for _, want := range []string{"2025-01-01: 1/2 concluídas", "Casa: 3 criadas, 2 concluídas", "sem formatação especial"} {
		if !strings.Contains(prod, want) {
			t.Errorf("productivity prompt lacks %q:\n%s", want, prod)
		}
	}
	for _, want := range []string{
		"1. Reserva - Prazo: 30/06/2025 - Responsável: Não informado - Status: Pendente - guardar 10%",
		"2. Viajar - Prazo: Sem prazo - Responsável: Não informado - Status: Concluída",
		"- Academia: feito",
		"- Ler: pendente",
		"Nenhum resumo financeiro informado.",
	} {
		if !strings.Contains(complete, want) {
			t.Errorf("complete prompt lacks %q:\n%s", want, complete)
		}
	}
}

func TestParsePromptsRejectsEmpty(t *testing.T) {
	if _, err := parsePrompts([]byte("financial: x\nproductivity: y\n")); err == nil {
		t.Fatal("expected error for missing complete prompt")
	}
}

func TestSummariesOnEmptyInput(t *testing.T) {
	if SummarizeGoals(nil) != "Nenhuma meta cadastrada." || SummarizeRoutine(nil) != "Nenhuma rotina registrada." {
		t.Fatal("unexpected empty summaries")
	}
}
