package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/forgepilot/swe-orchestrator/internal/ghreview"
	"github.com/forgepilot/swe-orchestrator/internal/session"
)

// specialist is one fixed review lens run against a PR, per spec.md §4.I's
// specialist-pass synthesis step. Each specialist gets the same PRContext
// but a distinct system prompt, mirroring the teacher's internal/github
// postprocess convention of one focused pass per concern rather than one
// pass trying to cover everything.
type specialist struct {
	Name   string
	Prompt string
}

var defaultSpecialists = []specialist{
	{Name: "security", Prompt: "Review this diff for security issues: injection, auth bypass, secret leakage, unsafe deserialization. Report only issues you can point to a specific file and line for."},
	{Name: "correctness", Prompt: "Review this diff for logic bugs: off-by-one errors, nil/zero-value handling, incorrect control flow, race conditions. Report only issues you can point to a specific file and line for."},
	{Name: "quality", Prompt: "Review this diff for maintainability: dead code, duplicated logic, missing error handling, API misuse. Report only issues you can point to a specific file and line for."},
	{Name: "test-coverage", Prompt: "Review this diff for test coverage gaps: new branches, edge cases, or error paths left unexercised by the accompanying tests."},
}

// specialistFinding is the structured-output shape each specialist agent
// session is asked to emit.
type specialistFinding struct {
	Findings []ghreview.Finding `json:"findings"`
}

// prContextCache holds recently-gathered PRContexts so a follow-up review
// poll arriving shortly after an initial pass (or a specialist retry) does
// not re-shell out to gh for identical data.
var prContextCache = cache.New(2*time.Minute, 5*time.Minute)

func (c *Coordinator) gatherPRContextCached(ctx context.Context, repo string, prNumber int) (*ghreview.PRContext, error) {
	key := fmt.Sprintf("%s#%d", repo, prNumber)
	if cached, ok := prContextCache.Get(key); ok {
		return cached.(*ghreview.PRContext), nil
	}
	tok, err := c.resolveToken(repo)
	if err != nil {
		return nil, err
	}
	pctx, err := (tokenedGatherer{base: c.contextGath, token: tok}).GatherPRContext(ctx, repo, prNumber)
	if err != nil {
		return nil, err
	}
	prContextCache.Set(key, pctx, cache.DefaultExpiration)
	return pctx, nil
}

// runSpecialists fans every specialist out concurrently via errgroup,
// bounding total wall-clock by cfg.SpecialistTimeout per pass, and merges
// their findings. One specialist's failure does not block the others: a
// failed pass simply contributes no findings.
// specialistsForCount returns the leading count entries of defaultSpecialists,
// or the full panel when count is 0 or at least the panel size.
func specialistsForCount(count int) []specialist {
	if count > 0 && count < len(defaultSpecialists) {
		return defaultSpecialists[:count]
	}
	return defaultSpecialists
}

func (c *Coordinator) runSpecialists(ctx context.Context, workdir, repo string, pctx *ghreview.PRContext) []ghreview.Finding {
	specialists := specialistsForCount(c.cfg.SpecialistCount)
	results := make([][]ghreview.Finding, len(specialists))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specialists {
		i, spec := i, spec
		g.Go(func() error {
			runCtx, cancel := context.WithTimeout(gctx, c.cfg.SpecialistTimeout)
			defer cancel()

			runner := c.newBilledRunner(workdir, repo, pctx.PRNumber)
			prompt := fmt.Sprintf("%s\n\nPR #%d: %s\n\n%s", spec.Prompt, pctx.PRNumber, pctx.Title, pctx.FullDiff)

			resp, err := runner.RunSession(runCtx, session.AgentRequest{
				Phase:  session.RunState("review:" + spec.Name),
				Prompt: prompt,
				Model:  c.cfg.DefaultModel,
			})
			if err != nil || resp.Errored || len(resp.StructuredOutput) == 0 {
				return nil // a specialist failure degrades coverage, not the whole review
			}
			var parsed specialistFinding
			if jsonErr := json.Unmarshal(resp.StructuredOutput, &parsed); jsonErr != nil {
				return nil
			}
			for i2 := range parsed.Findings {
				parsed.Findings[i2].SourceAgents = []string{spec.Name}
			}
			results[i] = parsed.Findings
			return nil
		})
	}
	_ = g.Wait() // errors already absorbed per-specialist above

	var merged []ghreview.Finding
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged
}
