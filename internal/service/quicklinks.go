package service

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"
)

// QuickLinksFromConfig turns a name -> template map into quick links sorted
// by name. Ids are the lower-cased, dash-joined names.
func QuickLinksFromConfig(m map[string]string) []QuickLink {
	links := make([]QuickLink, 0, len(m))
	for name, tpl := range m {
		links = append(links, QuickLink{
			ID:       strings.Join(strings.Fields(strings.ToLower(name)), "-"),
			Name:     name,
			Template: tpl,
		})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Name < links[j].Name })
	return links
}

// URLRunner runs quick links by opening the expanded template with the
// platform URL handler.
type URLRunner struct {
	links map[string]QuickLink
	open  func(ctx context.Context, target string) error
}

// NewURLRunner indexes links by id.
func NewURLRunner(links []QuickLink) *URLRunner {
	r := &URLRunner{links: make(map[string]QuickLink, len(links)), open: openURL}
	for _, l := range links {
		r.links[l.ID] = l
	}
	return r
}

// Execute implements QuickLinkRunner.
func (r *URLRunner) Execute(ctx context.Context, id, query string) error {
	l, ok := r.links[id]
	if !ok {
		return fmt.Errorf("unknown quick link %q", id)
	}
	return r.open(ctx, l.Expand(query))
}

// openURL hands target to the platform opener without waiting on it. The
// opener outlives the request that triggered it and is reaped in the
// background.
func openURL(_ context.Context, target string) error {
	cmd := openCommand(target)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

func openCommand(target string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		return exec.Command("xdg-open", target)
	}
}
