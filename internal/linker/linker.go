package linker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lambethcyclists/mailroom/internal/dedup"
	"github.com/lambethcyclists/mailroom/internal/logging"
	"github.com/lambethcyclists/mailroom/internal/store"
)

const candidateLimit = 100

// Linker connects a newly created Item to related prior Items and,
// when a location cluster grows large enough, promotes the cluster to
// a Project. Links are bidirectional and idempotent: relinking an
// already-linked pair changes nothing.
type Linker struct {
	store store.Store

	// similarity floor for the weak (fuzzy text) match
	threshold float64
	// how far back to search for candidates
	window time.Duration
	// cluster size at which a Project is created
	promotionThreshold int

	logger *slog.Logger
}

// New creates a Linker. windowDays bounds the candidate search;
// promotionThreshold is the number of clustered Items that triggers
// Project creation.
func New(s store.Store, threshold float64, windowDays, promotionThreshold int) *Linker {
	return &Linker{
		store:              s,
		threshold:          threshold,
		window:             time.Duration(windowDays) * 24 * time.Hour,
		promotionThreshold: promotionThreshold,
		logger:             logging.WithService(slog.Default(), "linker"),
	}
}

// Result describes what linking did for one Item.
type Result struct {
	RelatedIDs []string
	// ProjectID is set when the item was attached to a project,
	// whether preexisting or newly promoted.
	ProjectID string
	// Promoted is true when this linking run created the project.
	Promoted bool
}

// Link finds related Items for a freshly created Item, writes the
// links in both directions, and handles project membership. The Item
// must already exist in the store.
func (l *Linker) Link(ctx context.Context, item *store.Item) (*Result, error) {
	candidates, err := l.candidates(ctx, item)
	if err != nil {
		return nil, err
	}

	matched := l.match(item, candidates)
	result := &Result{}

	for _, m := range matched {
		result.RelatedIDs = append(result.RelatedIDs, m.ID)
	}
	if len(matched) > 0 {
		if err := l.store.AddItemRelations(ctx, item.ID, result.RelatedIDs); err != nil {
			return nil, fmt.Errorf("link item %s: %w", item.ID, err)
		}
		for _, m := range matched {
			if err := l.store.AddItemRelations(ctx, m.ID, []string{item.ID}); err != nil {
				return nil, fmt.Errorf("backlink item %s: %w", m.ID, err)
			}
		}
	}

	projectID, promoted, err := l.resolveProject(ctx, item, matched)
	if err != nil {
		return nil, err
	}
	result.ProjectID = projectID
	result.Promoted = promoted

	l.logger.Info("linking complete",
		logging.ItemID(item.ID),
		slog.Int("related", len(result.RelatedIDs)),
		slog.String("project_id", projectID),
		slog.Bool("promoted", promoted))

	return result, nil
}

// candidates returns Items in the lookback window, excluding the item
// itself.
func (l *Linker) candidates(ctx context.Context, item *store.Item) ([]*store.Item, error) {
	items, err := l.store.QueryItems(ctx, store.Query{
		Filters: []store.Filter{
			store.DateFilter(store.PropDateReceived, store.CondOnOrAfter, item.DateReceived.Add(-l.window)),
			store.SelectFilter(store.PropStatus, store.CondDoesNotEqual, string(store.ItemStatusClosed)),
		},
		Sorts: []store.Sort{{Property: store.PropDateReceived, Descending: true}},
		Limit: candidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("query link candidates: %w", err)
	}

	out := items[:0]
	for _, c := range items {
		if c.ID != item.ID {
			out = append(out, c)
		}
	}
	return out, nil
}

// match selects every candidate that relates to the item. Shared
// locations are a strong match; otherwise title+summary similarity
// above the threshold is a weak match. All matches are kept, not just
// the best.
func (l *Linker) match(item *store.Item, candidates []*store.Item) []*store.Item {
	itemLocs := normalizeSet(item.Locations)

	var matched []*store.Item
	for _, c := range candidates {
		if intersects(itemLocs, normalizeSet(c.Locations)) {
			matched = append(matched, c)
			continue
		}
		if dedup.Ratio(itemText(item), itemText(c)) > l.threshold {
			matched = append(matched, c)
		}
	}
	return matched
}

func itemText(item *store.Item) string {
	return item.Title + " " + item.Summary
}

// resolveProject attaches the item to a project. An existing project
// among the matched items wins; otherwise a location cluster reaching
// the promotion threshold creates one. Because promoted items carry
// the project link from then on, the creation path runs at most once
// per cluster.
func (l *Linker) resolveProject(ctx context.Context, item *store.Item, matched []*store.Item) (string, bool, error) {
	if item.ProjectID != "" {
		return item.ProjectID, false, nil
	}

	for _, m := range matched {
		if m.ProjectID == "" {
			continue
		}
		if err := l.attach(ctx, m.ProjectID, item.ID); err != nil {
			return "", false, err
		}
		return m.ProjectID, false, nil
	}

	loc, members := l.dominantCluster(item, matched)
	if loc == "" {
		return "", false, nil
	}

	project, err := l.promote(ctx, loc, members)
	if err != nil {
		return "", false, err
	}
	return project.ID, true, nil
}

// dominantCluster finds a location shared by at least
// promotionThreshold of the item-plus-matches set. Returns the display
// name of the location and the member items carrying it.
func (l *Linker) dominantCluster(item *store.Item, matched []*store.Item) (string, []*store.Item) {
	cluster := append([]*store.Item{item}, matched...)

	counts := make(map[string]int)
	display := make(map[string]string)
	for _, m := range cluster {
		for _, loc := range m.Locations {
			key := normalize(loc)
			if key == "" {
				continue
			}
			counts[key]++
			if _, ok := display[key]; !ok {
				display[key] = strings.TrimSpace(loc)
			}
		}
	}

	best := ""
	for key, n := range counts {
		if n >= l.promotionThreshold && (best == "" || n > counts[best]) {
			best = key
		}
	}
	if best == "" {
		return "", nil
	}

	var members []*store.Item
	for _, m := range cluster {
		for _, loc := range m.Locations {
			if normalize(loc) == best {
				members = append(members, m)
				break
			}
		}
	}
	return display[best], members
}

// promote creates a Project for a location cluster and attaches every
// member.
func (l *Linker) promote(ctx context.Context, location string, members []*store.Item) (*store.Project, error) {
	category := dominantCategory(members)

	project, err := l.store.CreateProject(ctx, &store.Project{
		Name:        location,
		Description: fmt.Sprintf("Auto-created from %d related items around %s.", len(members), location),
		Type:        string(category),
		Status:      store.ProjectActive,
		Priority:    store.PriorityMedium,
		Locations:   []string{location},
	})
	if err != nil {
		return nil, fmt.Errorf("promote cluster %q: %w", location, err)
	}

	for _, m := range members {
		if err := l.attach(ctx, project.ID, m.ID); err != nil {
			return nil, err
		}
	}

	l.logger.Info("cluster promoted to project",
		slog.String(logging.KeyProjectID, project.ID),
		slog.String("location", location),
		slog.Int("members", len(members)))

	return project, nil
}

func (l *Linker) attach(ctx context.Context, projectID, itemID string) error {
	if err := l.store.SetItemProject(ctx, itemID, projectID); err != nil {
		return fmt.Errorf("attach item %s to project %s: %w", itemID, projectID, err)
	}
	if err := l.store.AddProjectItems(ctx, projectID, []string{itemID}); err != nil {
		return fmt.Errorf("attach item %s to project %s: %w", itemID, projectID, err)
	}
	return nil
}

func dominantCategory(members []*store.Item) store.Category {
	counts := make(map[store.Category]int)
	best := store.CategoryOther
	bestN := 0
	for _, m := range members {
		if !store.ValidCategory(m.Category) {
			continue
		}
		counts[m.Category]++
		if counts[m.Category] > bestN {
			best, bestN = m.Category, counts[m.Category]
		}
	}
	return best
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeSet(locs []string) map[string]bool {
	set := make(map[string]bool, len(locs))
	for _, loc := range locs {
		if key := normalize(loc); key != "" {
			set[key] = true
		}
	}
	return set
}

func intersects(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}
