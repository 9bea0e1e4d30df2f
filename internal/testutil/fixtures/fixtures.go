// Package fixtures generates realistic seeded data for tests and
// benchmarks by running IQL statements through the engine.
package fixtures

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/issuecraft/issuecraft/internal/engine"
)

var usernames = []string{"alice", "bob", "charlie", "diana", "eve", "frank"}

var projects = []struct {
	id   string
	name string
}{
	{"webapp", "Web App"},
	{"api", "Public API"},
	{"mobile", "Mobile App"},
}

var commonLabels = []string{
	"backend", "frontend", "urgent", "tech-debt", "documentation",
	"performance", "security", "ux", "api", "database",
}

var kinds = []string{"bug", "task", "improvement", "epic"}

var priorities = []string{"critical", "high", "medium", "low"}

var issueTitles = []string{
	"Implement login endpoint",
	"Add validation logic",
	"Fix memory leak",
	"Optimize query performance",
	"Add error logging",
	"Refactor helper functions",
	"Update documentation",
	"Handle timeout gracefully",
	"Improve search relevance",
	"Add pagination support",
}

var commentBodies = []string{
	"Looks good to me.",
	"Can you add a test for this?",
	"Reproduced on the staging environment.",
	"Duplicate of an earlier report?",
	"Fixed by the latest deploy.",
}

// Seed populates the engine's store with users, projects, and
// issueCount issues with a sprinkling of comments, closes, and
// assignments. The same seed always produces the same data.
func Seed(ctx context.Context, eng *engine.Engine, issueCount int, seed int64) error {
	rng := rand.New(rand.NewSource(seed))

	for _, u := range usernames {
		q := fmt.Sprintf("CREATE USER %s WITH EMAIL '%s@example.com'", u, u)
		if _, err := eng.Execute(ctx, q); err != nil {
			return fmt.Errorf("seeding user %s: %w", u, err)
		}
	}
	for _, p := range projects {
		q := fmt.Sprintf("CREATE PROJECT %s WITH NAME '%s' OWNER %s", p.id, p.name, usernames[rng.Intn(len(usernames))])
		if _, err := eng.Execute(ctx, q); err != nil {
			return fmt.Errorf("seeding project %s: %w", p.id, err)
		}
	}

	for i := 0; i < issueCount; i++ {
		project := projects[rng.Intn(len(projects))].id
		q := fmt.Sprintf("CREATE ISSUE OF KIND %s IN %s WITH TITLE '%s' PRIORITY %s LABELS ['%s']",
			kinds[rng.Intn(len(kinds))],
			project,
			issueTitles[rng.Intn(len(issueTitles))],
			priorities[rng.Intn(len(priorities))],
			commonLabels[rng.Intn(len(commonLabels))],
		)
		res, err := eng.Execute(ctx, q)
		if err != nil {
			return fmt.Errorf("seeding issue %d: %w", i, err)
		}
		issueID := res.Key

		if rng.Intn(3) == 0 {
			q = fmt.Sprintf("ASSIGN ISSUE %s TO %s", issueID, usernames[rng.Intn(len(usernames))])
			if _, err := eng.Execute(ctx, q); err != nil {
				return fmt.Errorf("seeding assignment for %s: %w", issueID, err)
			}
		}
		if rng.Intn(4) == 0 {
			q = fmt.Sprintf("COMMENT ON ISSUE %s WITH '%s' AUTHOR %s",
				issueID, commentBodies[rng.Intn(len(commentBodies))], usernames[rng.Intn(len(usernames))])
			if _, err := eng.Execute(ctx, q); err != nil {
				return fmt.Errorf("seeding comment for %s: %w", issueID, err)
			}
		}
		if rng.Intn(5) == 0 {
			q = fmt.Sprintf("CLOSE ISSUE %s WITH done", issueID)
			if _, err := eng.Execute(ctx, q); err != nil {
				return fmt.Errorf("seeding close for %s: %w", issueID, err)
			}
		}
	}
	return nil
}
