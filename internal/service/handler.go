package service

import "quickclip/internal/navigation"

// ViewHandler is implemented by components that need to be notified when
// the history or the selection changes
type ViewHandler interface {
	HandleView(view View)
}

// View is the state a front end renders: the grouped list and the current
// selection.
type View struct {
	Mode     Mode        `json:"mode"`
	Query    string      `json:"query"`
	Groups   []GroupView `json:"groups"`
	Cursor   CursorView  `json:"cursor"`
	Selected *Item       `json:"selected,omitempty"`
}

// GroupView is one labelled category of the view.
type GroupView struct {
	Label string `json:"label"`
	Items []Item `json:"items"`
}

// CursorView is the JSON form of navigation.Cursor.
type CursorView struct {
	Category string `json:"category,omitempty"`
	Index    int    `json:"index"`
	Valid    bool   `json:"valid"`
}

func buildView(mode Mode, query string, groups navigation.Groups[navigation.Entity], cur navigation.Cursor) View {
	v := View{
		Mode:   mode,
		Query:  query,
		Groups: make([]GroupView, 0, len(groups)),
		Cursor: CursorView{Category: cur.Category, Index: cur.Index, Valid: cur.Valid},
	}
	for _, g := range groups {
		gv := GroupView{Label: g.Label, Items: make([]Item, 0, len(g.Items))}
		for _, e := range g.Items {
			gv.Items = append(gv.Items, describe(e))
		}
		v.Groups = append(v.Groups, gv)
	}
	if e, ok := navigation.Resolve(groups, cur); ok {
		item := describe(e)
		v.Selected = &item
	}
	return v
}
