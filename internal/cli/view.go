package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/ordset/internal/crud"
	"github.com/roach88/ordset/internal/store"
)

// ItemView is the CLI rendering of an item.
type ItemView struct {
	ID         string   `json:"id"`
	List       string   `json:"list,omitempty"`
	Category   string   `json:"category"`
	Title      string   `json:"title"`
	Labels     []string `json:"labels,omitempty"`
	Index      int      `json:"index"`
	ArchivedAt string   `json:"archived_at,omitempty"`
}

func viewOf(item *store.Item) ItemView {
	v := ItemView{
		ID:       item.ID,
		List:     item.List(),
		Category: item.Category,
		Title:    item.Title,
		Labels:   item.Labels,
		Index:    item.Index,
	}
	if item.ArchivedAt != nil {
		v.ArchivedAt = item.ArchivedAt.UTC().Format(time.RFC3339)
	}
	return v
}

func (v ItemView) String() string {
	pos := fmt.Sprintf("%3d", v.Index)
	if v.ArchivedAt != "" {
		pos = "  -"
	}
	s := fmt.Sprintf("%s  %s  %s", pos, v.ID, v.Title)
	if len(v.Labels) > 0 {
		s += "  [" + strings.Join(v.Labels, ", ") + "]"
	}
	return s
}

func subsetLabel(list, category string) string {
	if list == "" {
		list = "(no list)"
	}
	return list + "/" + category
}

// ListView groups items by subset, in store order.
type ListView struct {
	Items []ItemView `json:"items"`
}

func (l ListView) String() string {
	if len(l.Items) == 0 {
		return "no items"
	}
	var b strings.Builder
	current := ""
	for i, it := range l.Items {
		label := subsetLabel(it.List, it.Category)
		if i == 0 || label != current {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(label + ":\n")
			current = label
		}
		b.WriteString(it.String() + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// ChangeView reports a reassign.
type ChangeView struct {
	Item        ItemView `json:"item"`
	Keys        []string `json:"keys,omitempty"`
	Watched     []string `json:"watched,omitempty"`
	Transferred bool     `json:"transferred"`
}

func changeView(item *store.Item, c crud.Change) ChangeView {
	return ChangeView{Item: viewOf(item), Keys: c.Keys, Watched: c.Watched, Transferred: c.Transferred}
}

func (c ChangeView) String() string {
	if !c.Transferred {
		return fmt.Sprintf("updated %s (no subset change)", c.Item.ID)
	}
	return fmt.Sprintf("moved %s to %s at %d (changed: %s)",
		c.Item.ID, subsetLabel(c.Item.List, c.Item.Category), c.Item.Index, strings.Join(c.Keys, ", "))
}

// CheckView is the result of "ordset check".
type CheckView struct {
	Subsets []store.SubsetReport `json:"subsets"`
	Broken  int                  `json:"broken"`
}

func (c CheckView) String() string {
	var b strings.Builder
	for _, r := range c.Subsets {
		status := "ok"
		if !r.Dense {
			status = fmt.Sprintf("BROKEN %v", r.Indices)
		}
		fmt.Fprintf(&b, "%-24s active=%d archived=%d %s\n", subsetLabel(r.List, r.Category), r.Active, r.Archived, status)
	}
	if c.Broken == 0 {
		fmt.Fprintf(&b, "%d subset(s) checked, all dense", len(c.Subsets))
	} else {
		fmt.Fprintf(&b, "%d of %d subset(s) broken", c.Broken, len(c.Subsets))
	}
	return b.String()
}
