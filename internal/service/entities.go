package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"quickclip/internal/navigation"
	"quickclip/pkg/types"
)

// QueryPlaceholder is replaced with the search text when a quick link runs.
const QueryPlaceholder = "{query}"

// AppLauncher opens an installed application.
type AppLauncher interface {
	Open(ctx context.Context, appID string) error
}

// QuickLinkRunner executes a quick link with the current query.
type QuickLinkRunner interface {
	Execute(ctx context.Context, id, query string) error
}

type copier interface {
	Copy(ctx context.Context, id string) error
}

// ClipEntity is a clipboard history entry in a navigable list.
type ClipEntity struct {
	Entry types.Entry
	svc   copier
}

func (c *ClipEntity) Key() string { return "clip:" + c.Entry.ID }

// Activate copies the entry back to the system clipboard.
func (c *ClipEntity) Activate(ctx context.Context) (navigation.Outcome, error) {
	if err := c.svc.Copy(ctx, c.Entry.ID); err != nil {
		return navigation.OutcomeNone, err
	}
	return navigation.OutcomeCopied, nil
}

// AppSuggestion is an installed application matching the query.
type AppSuggestion struct {
	ID       string
	Name     string
	Category string
	Launcher AppLauncher
}

func (a *AppSuggestion) Key() string { return "app:" + a.ID }

func (a *AppSuggestion) Activate(ctx context.Context) (navigation.Outcome, error) {
	if a.Launcher == nil {
		return navigation.OutcomeRejected, nil
	}
	if err := a.Launcher.Open(ctx, a.ID); err != nil {
		return navigation.OutcomeNone, fmt.Errorf("open %s: %w", a.Name, err)
	}
	return navigation.OutcomeLaunched, nil
}

// QuickLink is a saved URL or command template.
type QuickLink struct {
	ID       string
	Name     string
	Template string
	Query    string
	Runner   QuickLinkRunner
}

func (q *QuickLink) Key() string { return "link:" + q.ID }

// NeedsQuery reports whether the template expects search text.
func (q *QuickLink) NeedsQuery() bool {
	return strings.Contains(q.Template, QueryPlaceholder)
}

// Activate runs the link. A link that needs a query is rejected while the
// query is empty.
func (q *QuickLink) Activate(ctx context.Context) (navigation.Outcome, error) {
	if q.NeedsQuery() && strings.TrimSpace(q.Query) == "" {
		return navigation.OutcomeRejected, nil
	}
	if q.Runner == nil {
		return navigation.OutcomeRejected, nil
	}
	if err := q.Runner.Execute(ctx, q.ID, q.Query); err != nil {
		return navigation.OutcomeNone, fmt.Errorf("quick link %s: %w", q.Name, err)
	}
	return navigation.OutcomeExecuted, nil
}

// Expand substitutes the escaped query into the template.
func (q *QuickLink) Expand(query string) string {
	return strings.ReplaceAll(q.Template, QueryPlaceholder, url.QueryEscape(query))
}

// Item is the rendering-neutral description of an entity sent to views.
type Item struct {
	Key      string          `json:"key"`
	Kind     string          `json:"kind"`
	Title    string          `json:"title"`
	Pinned   bool            `json:"pinned,omitempty"`
	UseCount int             `json:"use_count,omitempty"`
	Image    *types.ImageRef `json:"image,omitempty"`
}

func describe(e navigation.Entity) Item {
	switch v := e.(type) {
	case *ClipEntity:
		return Item{
			Key:      v.Key(),
			Kind:     string(v.Entry.Kind),
			Title:    v.Entry.Preview(80),
			Pinned:   v.Entry.Pinned,
			UseCount: v.Entry.UseCount,
			Image:    v.Entry.Image,
		}
	case *AppSuggestion:
		return Item{Key: v.Key(), Kind: "app", Title: v.Name}
	case *QuickLink:
		return Item{Key: v.Key(), Kind: "link", Title: v.Name}
	default:
		return Item{Key: e.Key(), Kind: "unknown", Title: e.Key()}
	}
}
