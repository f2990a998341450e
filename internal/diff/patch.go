package diff

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pgschema/ddlpatch/internal/ir"
)

// Result is the outcome of reconciling one object.
type Result struct {
	Kind       Kind
	Identifier ir.QualifiedName
	Difference Difference

	// Up and Down hold the object's DDL when Committed.
	Up        string
	Down      string
	Committed bool

	up   phases
	down phases

	// Diagnostic explains an Invalid verdict or carries the
	// *PolicyViolationError of an uncommitted Create or Update.
	Diagnostic error

	key            string
	dependencyKeys []string
}

// phases holds a script's constraint drops, body and constraint additions.
type phases [3]string

func phasesOf(s *Script) phases {
	return phases{s.DropConstraints.String(), s.Body.String(), s.AddConstraints.String()}
}

// Violation returns the policy violation of an uncommitted result, if any.
func (r *Result) Violation() *PolicyViolationError {
	var violation *PolicyViolationError
	if errors.As(r.Diagnostic, &violation) {
		return violation
	}
	return nil
}

// SchemaPatch accumulates the results of one reconciliation run. It is not
// safe for concurrent use; each run owns its own SchemaPatch.
type SchemaPatch struct {
	Rules *ir.DdlRules

	results []*Result
	worst   Difference
}

// NewSchemaPatch starts an empty run using rules.
func NewSchemaPatch(rules *ir.DdlRules) *SchemaPatch {
	return &SchemaPatch{Rules: rules}
}

func objectKey(d ir.Dialect, kind Kind, id ir.QualifiedName) string {
	return string(kind) + ":" + d.NameKey(id)
}

// record appends r in processing order. Policy violations do not raise the
// worst difference because their DDL is not part of the scripts.
func (p *SchemaPatch) record(obj Object, r *Result) {
	d := p.Rules.Dialect
	r.key = objectKey(d, obj.Kind(), obj.Identifier())
	for _, dep := range obj.Dependencies(d) {
		r.dependencyKeys = append(r.dependencyKeys, objectKey(d, KindTable, dep))
	}
	p.results = append(p.results, r)
	if r.Committed || r.Difference == Invalid {
		p.worst = Worst(p.worst, r.Difference)
	}
}

// Difference returns the worst committed or Invalid verdict of the run.
func (p *SchemaPatch) Difference() Difference {
	return p.worst
}

// Results returns every processed object's result in processing order.
func (p *SchemaPatch) Results() []*Result {
	out := make([]*Result, len(p.results))
	copy(out, p.results)
	return out
}

// Diagnostics returns the Invalid results.
func (p *SchemaPatch) Diagnostics() []*Result {
	var out []*Result
	for _, r := range p.results {
		if r.Difference == Invalid {
			out = append(out, r)
		}
	}
	return out
}

// Violations returns the policy violations of the run.
func (p *SchemaPatch) Violations() []*PolicyViolationError {
	var out []*PolicyViolationError
	for _, r := range p.results {
		if v := r.Violation(); v != nil {
			out = append(out, v)
		}
	}
	return out
}

// HasErrors reports whether any object was Invalid or violated the policy.
func (p *SchemaPatch) HasErrors() bool {
	return len(p.Diagnostics()) > 0 || len(p.Violations()) > 0
}

// UpScript renders the committed up DDL with referenced tables first. Every
// constraint drop precedes every body and every constraint addition follows
// them, so tables referencing each other apply in any order.
func (p *SchemaPatch) UpScript() string {
	ordered := topologicallySortResults(p.committed())
	return p.render(ordered, func(r *Result) phases { return r.up })
}

// DownScript renders the committed down DDL in reverse dependency order,
// phased the same way as UpScript.
func (p *SchemaPatch) DownScript() string {
	ordered := reverseSlice(topologicallySortResults(p.committed()))
	return p.render(ordered, func(r *Result) phases { return r.down })
}

func (p *SchemaPatch) committed() []*Result {
	var out []*Result
	for _, r := range p.results {
		if r.Committed && r.Difference != None {
			out = append(out, r)
		}
	}
	return out
}

func (p *SchemaPatch) render(results []*Result, script func(*Result) phases) string {
	var blocks []string
	for phase := 0; phase < len(phases{}); phase++ {
		for _, r := range results {
			if s := strings.TrimSpace(script(r)[phase]); s != "" {
				blocks = append(blocks, s)
			}
		}
	}
	if len(blocks) == 0 {
		return ""
	}

	var sb strings.Builder
	p.Rules.WriteRoleStart(&sb)
	sb.WriteString(strings.Join(blocks, "\n\n"))
	sb.WriteString("\n")
	if p.Rules.Role != "" {
		sb.WriteString("\n")
		p.Rules.WriteRoleEnd(&sb)
	}
	return sb.String()
}

// WriteFiles writes the up and down scripts. An empty path skips that script.
func (p *SchemaPatch) WriteFiles(upPath, downPath string) error {
	if err := writeScript(upPath, p.UpScript()); err != nil {
		return err
	}
	return writeScript(downPath, p.DownScript())
}

func writeScript(path, content string) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
