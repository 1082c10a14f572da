// Package navigation resolves navigation menus and cross-page scroll
// requests. Sections are looked up in a fixed table, never by name
// construction.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maspithik/angkringan/internal/core/domain"
)

// SettleDelay is how long a deferred scroll waits after the route change.
const SettleDelay = 100 * time.Millisecond

var ErrUnknownSection = errors.New("unknown section")

type Section string

const (
	SectionHome    Section = "home"
	SectionAbout   Section = "about"
	SectionMenu    Section = "menu"
	SectionContact Section = "contact"
)

// Target is where a section lives.
type Target struct {
	Route  string `json:"route"`
	Anchor string `json:"anchor"`
}

var sections = map[Section]Target{
	SectionHome:    {Route: "/", Anchor: "home"},
	SectionAbout:   {Route: "/", Anchor: "about"},
	SectionMenu:    {Route: "/", Anchor: "menu"},
	SectionContact: {Route: "/", Anchor: "contact"},
}

func Lookup(section Section) (Target, error) {
	target, ok := sections[section]
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	return target, nil
}

// Item is one entry of a navigation bar. Exactly one of Section and Route
// is set.
type Item struct {
	Label   string  `json:"label"`
	Section Section `json:"section,omitempty"`
	Route   string  `json:"route,omitempty"`
}

var (
	customerMenu = []Item{
		{Label: "Beranda", Section: SectionHome},
		{Label: "Tentang", Section: SectionAbout},
		{Label: "Menu", Route: "/fullmenu"},
		{Label: "Kontak", Section: SectionContact},
	}
	adminMenu = []Item{
		{Label: "Overview", Route: "/admin/overview"},
		{Label: "Menu", Route: "/admin/menu"},
		{Label: "Payments", Route: "/admin/payments"},
		{Label: "Transactions", Route: "/admin/transactions"},
	}
)

// MenuFor returns the navigation bar for role. Guests and signed-in
// customers share the storefront menu.
func MenuFor(role domain.Role) []Item {
	var items []Item
	switch role {
	case domain.RoleAdmin:
		items = adminMenu
	default:
		items = customerMenu
	}
	return append([]Item(nil), items...)
}

// State travels with a route change and asks the next page to scroll.
type State struct {
	ScrollTo Section `json:"scrollTo"`
}

// Plan is what a client does for a scroll request: either scroll in place,
// or navigate with State and scroll once Delay has passed.
type Plan struct {
	Navigate string        `json:"navigate,omitempty"`
	State    *State        `json:"state,omitempty"`
	Anchor   string        `json:"anchor"`
	Delay    time.Duration `json:"delay"`
}

func PlanScroll(currentRoute string, section Section) (Plan, error) {
	target, err := Lookup(section)
	if err != nil {
		return Plan{}, err
	}
	if currentRoute == target.Route {
		return Plan{Anchor: target.Anchor}, nil
	}
	return Plan{
		Navigate: target.Route,
		State:    &State{ScrollTo: section},
		Anchor:   target.Anchor,
		Delay:    SettleDelay,
	}, nil
}

// Viewport is the page the coordinator drives.
type Viewport interface {
	Navigate(route string, state *State)
	ScrollTo(anchor string)
}

type Coordinator struct {
	view  Viewport
	delay time.Duration
}

func NewCoordinator(view Viewport) *Coordinator {
	return &Coordinator{view: view, delay: SettleDelay}
}

// ScrollTo scrolls to section, changing route first when needed. It blocks
// through the settle delay and gives up if ctx ends before the scroll.
func (c *Coordinator) ScrollTo(ctx context.Context, currentRoute string, section Section) error {
	plan, err := PlanScroll(currentRoute, section)
	if err != nil {
		return err
	}
	if plan.Navigate == "" {
		c.view.ScrollTo(plan.Anchor)
		return nil
	}
	c.view.Navigate(plan.Navigate, plan.State)
	return c.Arrive(ctx, plan.State)
}

// Arrive handles the navigation state a page was opened with. A nil state
// is a no-op.
func (c *Coordinator) Arrive(ctx context.Context, state *State) error {
	if state == nil || state.ScrollTo == "" {
		return nil
	}
	target, err := Lookup(state.ScrollTo)
	if err != nil {
		return err
	}

	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	c.view.ScrollTo(target.Anchor)
	return nil
}
