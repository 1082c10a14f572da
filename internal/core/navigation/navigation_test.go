package navigation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maspithik/angkringan/internal/core/domain"
)

type recordingViewport struct {
	mu    sync.Mutex
	calls []string
}

func (v *recordingViewport) Navigate(route string, state *State) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, "navigate "+route+" "+string(state.ScrollTo))
}

func (v *recordingViewport) ScrollTo(anchor string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, "scroll "+anchor)
}

func TestMenuFor(t *testing.T) {
	guest := MenuFor(domain.RoleGuest)
	assert.Equal(t, guest, MenuFor(domain.RoleUser))
	require.Len(t, guest, 4)
	assert.Equal(t, "/fullmenu", guest[2].Route)
	assert.Equal(t, SectionContact, guest[3].Section)

	admin := MenuFor(domain.RoleAdmin)
	require.Len(t, admin, 4)
	assert.Equal(t, "/admin/transactions", admin[3].Route)

	// Callers get their own copy.
	guest[0].Label = "changed"
	assert.Equal(t, "Beranda", MenuFor(domain.RoleGuest)[0].Label)
}

func TestPlanScroll(t *testing.T) {
	plan, err := PlanScroll("/", SectionAbout)
	require.NoError(t, err)
	assert.Equal(t, Plan{Anchor: "about"}, plan)

	plan, err = PlanScroll("/fullmenu", SectionContact)
	require.NoError(t, err)
	assert.Equal(t, "/", plan.Navigate)
	assert.Equal(t, &State{ScrollTo: SectionContact}, plan.State)
	assert.Equal(t, SettleDelay, plan.Delay)

	_, err = PlanScroll("/", Section("footer"))
	assert.ErrorIs(t, err, ErrUnknownSection)
}

func TestCoordinator_ScrollInPlace(t *testing.T) {
	view := &recordingViewport{}
	c := NewCoordinator(view)

	require.NoError(t, c.ScrollTo(context.Background(), "/", SectionMenu))
	assert.Equal(t, []string{"scroll menu"}, view.calls)
}

func TestCoordinator_DeferredScrollWaitsForSettle(t *testing.T) {
	view := &recordingViewport{}
	c := NewCoordinator(view)
	c.delay = 20 * time.Millisecond

	start := time.Now()
	require.NoError(t, c.ScrollTo(context.Background(), "/fullmenu", SectionHome))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, []string{"navigate / home", "scroll home"}, view.calls)
}

func TestCoordinator_CancelledBeforeSettle(t *testing.T) {
	view := &recordingViewport{}
	c := NewCoordinator(view)
	c.delay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.ScrollTo(ctx, "/fullmenu", SectionAbout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"navigate / about"}, view.calls)
}

func TestCoordinator_ArriveWithoutState(t *testing.T) {
	view := &recordingViewport{}
	c := NewCoordinator(view)

	require.NoError(t, c.Arrive(context.Background(), nil))
	assert.Empty(t, view.calls)
	assert.ErrorIs(t, c.Arrive(context.Background(), &State{ScrollTo: "nowhere"}), ErrUnknownSection)
}
