package report

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tabproof/internal/check"
	"github.com/KaramelBytes/tabproof/internal/frame"
)

// Request selects checks from a registry and configures the run.
type Request struct {
	Include  []string
	Exclude  []string
	Parallel bool
	Workers  int
	Verbose  bool
	Policy   Policy
	Params   map[string]check.Params
	Logger   *zap.Logger
	ID       string
}

// Inspect builds a report for t with the checks of reg that carry an
// Include tag and no Exclude tag. Empty Include selects every check.
// Params keyed by a name the registry does not know are rejected.
func Inspect(t *frame.Table, reg *check.Registry, req Request) (*Report, error) {
	if t == nil {
		return nil, fmt.Errorf("inspect: nil table")
	}
	var unknown []string
	for name := range req.Params {
		if _, ok := reg.Lookup(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("inspect: parameters for unknown checks: %s", strings.Join(unknown, ", "))
	}
	checks := reg.Select(check.ParseTags(req.Include...), check.ParseTags(req.Exclude...))
	return New(t, checks,
		WithParallel(req.Parallel),
		WithWorkers(req.Workers),
		WithVerbose(req.Verbose),
		WithPolicy(req.Policy),
		WithParams(req.Params),
		WithLogger(req.Logger),
		WithID(req.ID),
	), nil
}
