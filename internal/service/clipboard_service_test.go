package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickclip/internal/history"
	"quickclip/internal/navigation"
	"quickclip/pkg/types"
)

type fakeAccessor struct {
	mu       sync.Mutex
	text     string
	image    string
	clears   int
	writeErr error
}

func (f *fakeAccessor) ReadText(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, nil
}

func (f *fakeAccessor) ReadImage(context.Context) (*types.ImageRef, error) { return nil, nil }

func (f *fakeAccessor) WriteText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.text = text
	return nil
}

func (f *fakeAccessor) WriteImage(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.image = ref
	return nil
}

func (f *fakeAccessor) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.text = ""
	return nil
}

type viewRecorder struct {
	mu    sync.Mutex
	views []View
}

func (r *viewRecorder) HandleView(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *viewRecorder) last() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views[len(r.views)-1]
}

func setupTestService(t *testing.T, opts Options) (*ClipboardService, *fakeAccessor) {
	t.Helper()
	acc := &fakeAccessor{}
	opts.Store = history.New(history.Options{Clipboard: acc})
	opts.Clipboard = acc
	svc := New(opts)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { svc.Stop(context.Background()) })
	return svc, acc
}

func capture(t *testing.T, svc *ClipboardService, text string) types.Entry {
	t.Helper()
	res, err := svc.Store().Append(context.Background(), types.TextPayload(text))
	require.NoError(t, err)
	return res.Entry
}

func labels(groups navigation.Groups[navigation.Entity]) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g.Label)
	}
	return out
}

func TestClipboardGroups(t *testing.T) {
	svc, _ := setupTestService(t, Options{})
	ctx := context.Background()

	a := capture(t, svc, "alpha")
	capture(t, svc, "beta")
	_, err := svc.TogglePin(ctx, a.ID)
	require.NoError(t, err)

	groups := svc.Controller().Groups()
	assert.Equal(t, []string{LabelPinned, LabelRecent}, labels(groups))

	svc.SetQuery("ALP")
	groups = svc.Controller().Groups()
	assert.Equal(t, []string{LabelPinned}, labels(groups))
	assert.Equal(t, navigation.First(groups), svc.Controller().Cursor())
}

func TestActivateCopiesEntry(t *testing.T) {
	svc, acc := setupTestService(t, Options{})
	ctx := context.Background()

	first := capture(t, svc, "first")
	capture(t, svc, "second")

	nav := svc.Controller()
	nav.OnNext()
	out, err := nav.OnActivate(ctx)
	require.NoError(t, err)
	assert.Equal(t, navigation.OutcomeCopied, out)
	assert.Equal(t, "first", acc.text)

	got, _ := svc.Store().Get(first.ID)
	assert.Equal(t, 2, got.UseCount)
	assert.Equal(t, first.ID, svc.Store().ActiveID())
}

func TestCopyImageUsesRef(t *testing.T) {
	svc, acc := setupTestService(t, Options{})
	res, err := svc.Store().Append(context.Background(), types.ImagePayload(types.ImageRef{Hash: "h", Ref: "h.png"}))
	require.NoError(t, err)

	require.NoError(t, svc.Copy(context.Background(), res.Entry.ID))
	assert.Equal(t, "h.png", acc.image)
}

func TestCopyUnknown(t *testing.T) {
	svc, _ := setupTestService(t, Options{})

	err := svc.Copy(context.Background(), "nope")
	var cerr *ClipboardError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "Copy", cerr.Op)
	assert.Equal(t, "nope", cerr.ID)
}

func TestDeleteActiveReplacesClipboard(t *testing.T) {
	svc, acc := setupTestService(t, Options{})
	ctx := context.Background()

	capture(t, svc, "older")
	active := capture(t, svc, "newest")

	res, err := svc.DeleteClip(ctx, active.ID)
	require.NoError(t, err)
	assert.True(t, res.WasActive)
	assert.Equal(t, "older", acc.text)
	assert.Equal(t, 0, acc.clears)
}

func TestDeleteLastActiveClearsClipboard(t *testing.T) {
	svc, acc := setupTestService(t, Options{})
	only := capture(t, svc, "only")

	require.NoError(t, svc.Controller().OnDeleteSelected(context.Background()))
	assert.Equal(t, 0, svc.Store().Len())
	assert.Equal(t, 1, acc.clears)

	_, err := svc.DeleteClip(context.Background(), only.ID)
	assert.Error(t, err)
}

func TestPinQuotaThroughController(t *testing.T) {
	svc, _ := setupTestService(t, Options{})
	ctx := context.Background()
	nav := svc.Controller()

	for i := 0; i < 4; i++ {
		capture(t, svc, fmt.Sprintf("clip %d", i))
	}
	for i := 0; i < 3; i++ {
		// The newest unpinned clip is the first item of "Recent", right
		// after the pinned group.
		groups, _ := nav.State()
		cur := navigation.Cursor{Category: LabelRecent, Index: 0, Valid: true}
		for nav.Cursor() != cur {
			nav.OnNext()
		}
		require.True(t, navigation.Contains(groups, cur))
		out, err := nav.OnTogglePin(ctx)
		require.NoError(t, err)
		require.Equal(t, navigation.PinOutcomePinned, out)
	}

	for nav.Cursor().Category != LabelRecent {
		nav.OnNext()
	}
	out, err := nav.OnTogglePin(ctx)
	require.NoError(t, err)
	assert.Equal(t, navigation.PinOutcomeQuotaExceeded, out)
	assert.Equal(t, 3, svc.Store().PinnedCount())
}

func TestClearAll(t *testing.T) {
	svc, acc := setupTestService(t, Options{})
	capture(t, svc, "a")
	capture(t, svc, "b")

	require.NoError(t, svc.Controller().OnClearAll(context.Background()))
	assert.Equal(t, 0, svc.Store().Len())
	assert.Equal(t, 1, acc.clears)
	assert.Equal(t, navigation.None, svc.Controller().Cursor())
}

func TestViewHandlers(t *testing.T) {
	svc, _ := setupTestService(t, Options{})
	rec := &viewRecorder{}
	svc.RegisterHandler(rec)

	capture(t, svc, "hello")
	v := rec.last()
	assert.Equal(t, ModeClipboard, v.Mode)
	require.Len(t, v.Groups, 1)
	assert.Equal(t, LabelRecent, v.Groups[0].Label)
	require.NotNil(t, v.Selected)
	assert.Equal(t, "hello", v.Selected.Title)

	capture(t, svc, "world")
	svc.Controller().OnNext()
	assert.Equal(t, 1, rec.last().Cursor.Index)
}

type recordingLauncher struct{ opened []string }

func (l *recordingLauncher) Open(_ context.Context, id string) error {
	l.opened = append(l.opened, id)
	return nil
}

type recordingRunner struct{ runs []string }

func (r *recordingRunner) Execute(_ context.Context, id, query string) error {
	r.runs = append(r.runs, id+"="+query)
	return nil
}

func TestLauncherMode(t *testing.T) {
	launcher := &recordingLauncher{}
	runner := &recordingRunner{}
	svc, _ := setupTestService(t, Options{
		Apps: []AppSuggestion{
			{ID: "safari", Name: "Safari", Category: "Browsers"},
			{ID: "notes", Name: "Notes"},
			{ID: "firefox", Name: "Firefox", Category: "Browsers"},
		},
		Links: []QuickLink{
			{ID: "search", Name: "Web Search", Template: "https://example.com/?q={query}"},
			{ID: "home", Name: "Home", Template: "https://example.com"},
		},
		Launcher: launcher,
		Runner:   runner,
	})
	ctx := context.Background()
	nav := svc.Controller()

	svc.SetMode(ModeLauncher)
	assert.Equal(t, []string{"Browsers", "Other", LabelQuickLinks}, labels(nav.Groups()))

	out, err := nav.OnActivate(ctx)
	require.NoError(t, err)
	assert.Equal(t, navigation.OutcomeLaunched, out)
	assert.Equal(t, []string{"safari"}, launcher.opened)

	for nav.Cursor().Category != LabelQuickLinks {
		nav.OnNext()
	}
	out, err = nav.OnActivate(ctx)
	require.NoError(t, err)
	assert.Equal(t, navigation.OutcomeRejected, out, "search link needs a query")

	svc.SetQuery("fire")
	groups := nav.Groups()
	assert.Equal(t, []string{"Browsers", LabelQuickLinks}, labels(groups))
	require.Len(t, groups[1].Items, 1, "only the link with a placeholder matches any query")

	for nav.Cursor().Category != LabelQuickLinks {
		nav.OnNext()
	}
	out, err = nav.OnActivate(ctx)
	require.NoError(t, err)
	assert.Equal(t, navigation.OutcomeExecuted, out)
	assert.Equal(t, []string{"search=fire"}, runner.runs)

	require.NoError(t, nav.OnDeleteSelected(ctx), "delete ignores non-clip entities")
}

func TestQuickLinks(t *testing.T) {
	links := QuickLinksFromConfig(map[string]string{
		"Web Search": "https://example.com/?q={query}",
		"Docs":       "https://docs.example.com",
	})
	require.Len(t, links, 2)
	assert.Equal(t, "Docs", links[0].Name)
	assert.Equal(t, "web-search", links[1].ID)
	assert.True(t, links[1].NeedsQuery())
	assert.Equal(t, "https://example.com/?q=go+generics", links[1].Expand("go generics"))

	var opened string
	r := NewURLRunner(links)
	r.open = func(_ context.Context, target string) error {
		opened = target
		return nil
	}
	require.NoError(t, r.Execute(context.Background(), "web-search", "a&b"))
	assert.Equal(t, "https://example.com/?q=a%26b", opened)
	assert.Error(t, r.Execute(context.Background(), "missing", ""))
}

func TestOpenCommandIsNotBoundToRequest(t *testing.T) {
	cmd := openCommand("https://example.com/?q=x")
	assert.Nil(t, cmd.Cancel, "the opener must survive the request context")
	assert.Equal(t, "https://example.com/?q=x", cmd.Args[len(cmd.Args)-1])
}

func TestClipboardError(t *testing.T) {
	base := errors.New("boom")
	err := &ClipboardError{Op: "Copy", ID: "x", Message: "failed", Err: base}
	assert.Equal(t, "Copy failed for clip x: failed: boom", err.Error())
	assert.ErrorIs(t, err, base)

	noID := &ClipboardError{Op: "ClearClips", Message: "failed"}
	assert.Equal(t, "ClearClips failed: failed", noID.Error())
}
