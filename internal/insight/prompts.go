package insight

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"

	"household/internal/core"
	"household/internal/report"
)

//go:embed prompts.yaml
var promptsYAML []byte

// Prompts renders the three insight prompts.
type Prompts struct {
	financial    *template.Template
	productivity *template.Template
	complete     *template.Template
	noMarkdown   string
}

type promptFile struct {
	Financial    string `yaml:"financial"`
	Productivity string `yaml:"productivity"`
	Complete     string `yaml:"complete"`
	NoMarkdown   string `yaml:"no_markdown"`
}

// LoadPrompts parses the embedded templates.
func LoadPrompts() (*Prompts, error) {
	return parsePrompts(promptsYAML)
}

func parsePrompts(data []byte) (*Prompts, error) {
	var f promptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}
	p := &Prompts{noMarkdown: strings.TrimSpace(f.NoMarkdown)}
	for _, t := range []struct {
		name string
		src  string
		dst  **template.Template
	}{
		{"financial", f.Financial, &p.financial},
		{"productivity", f.Productivity, &p.productivity},
		{"complete", f.Complete, &p.complete},
	} {
		if strings.TrimSpace(t.src) == "" {
			return nil, fmt.Errorf("prompt %q is empty", t.name)
		}
		tmpl, err := template.New(t.name).Option("missingkey=error").Parse(t.src)
		if err != nil {
			return nil, fmt.Errorf("parse prompt %q: %w", t.name, err)
		}
		*t.dst = tmpl
	}
	return p, nil
}

// GoalLine is a goal as sent by the dashboard for the complete insight.
type GoalLine struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Responsible *string    `json:"responsible,omitempty"`
	Completed   bool       `json:"completed"`
}

// RoutineItem is one task of the day's routine.
type RoutineItem struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

func (p *Prompts) Financial(summary string) (string, error) {
	return render(p.financial, map[string]string{
		"NoMarkdown": p.noMarkdown,
		"Summary":    orDefault(summary, "Nenhum resumo financeiro informado."),
	})
}

func (p *Prompts) Productivity(days []report.DayProductivity, tags []report.TagCount) (string, error) {
	return render(p.productivity, map[string]string{
		"NoMarkdown": p.noMarkdown,
		"Daily":      SummarizeDays(days),
		"Categories": SummarizeTags(tags),
	})
}

func (p *Prompts) Complete(goals []GoalLine, routine []RoutineItem, financial string) (string, error) {
	return render(p.complete, map[string]string{
		"NoMarkdown": p.noMarkdown,
		"Goals":      SummarizeGoals(goals),
		"Routine":    SummarizeRoutine(routine),
		"Financial":  orDefault(financial, "Nenhum resumo financeiro informado."),
	})
}

func render(t *template.Template, data map[string]string) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", t.Name(), err)
	}
	return b.String(), nil
}

// SummarizeDays writes one "date: done/total concluídas" line per day.
func SummarizeDays(days []report.DayProductivity) string {
	lines := make([]string, 0, len(days))
	for _, d := range days {
		lines = append(lines, fmt.Sprintf("%s: %d/%d concluídas", d.Date, d.Concluidas, d.Total))
	}
	return orDefault(strings.Join(lines, "\n"), "Nenhuma tarefa registrada.")
}

// SummarizeTags writes one "tag: n criadas, m concluídas" line per tag.
func SummarizeTags(tags []report.TagCount) string {
	lines := make([]string, 0, len(tags))
	for _, c := range tags {
		lines = append(lines, fmt.Sprintf("%s: %d criadas, %d concluídas", c.Tag, c.Criadas, c.Concluidas))
	}
	return orDefault(strings.Join(lines, "\n"), "Nenhuma categoria registrada.")
}

func SummarizeGoals(goals []GoalLine) string {
	if len(goals) == 0 {
		return "Nenhuma meta cadastrada."
	}
	lines := make([]string, 0, len(goals))
	for i, g := range goals {
		deadline := report.NoDeadline
		if g.Deadline != nil {
			deadline = g.Deadline.Format("02/01/2006")
		}
		responsible := orDefault(core.Deref(g.Responsible), report.NotInformed)
		status := "Pendente"
		if g.Completed {
			status = "Concluída"
		}
		line := fmt.Sprintf("%d. %s - Prazo: %s - Responsável: %s - Status: %s", i+1, g.Title, deadline, responsible, status)
		if d := strings.TrimSpace(core.Deref(g.Description)); d != "" {
			line += " - " + d
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func SummarizeRoutine(items []RoutineItem) string {
	if len(items) == 0 {
		return "Nenhuma rotina registrada."
	}
	lines := make([]string, 0, len(items))
	for _, r := range items {
		state := "pendente"
		if s, err := core.ParseTaskStatus(r.Status); err == nil && s == core.TaskDone {
			state = "feito"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", r.Title, state))
	}
	return strings.Join(lines, "\n")
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
