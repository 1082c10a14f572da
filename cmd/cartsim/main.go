package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/maspithik/angkringan/internal/adapter/storage"
	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/core/service"
)

const (
	redisAddr     = "localhost:6379"
	tabCount      = 5
	addsPerTab    = 10
	menuItemCount = 4
	settleTimeout = 3 * time.Second
)

var menu = []domain.MenuItem{
	{ID: 1, Title: "Nasi Kucing", Price: 5000},
	{ID: 2, Title: "Sate Usus", Price: 2000},
	{ID: 3, Title: "Wedang Jahe", Price: 6000},
	{ID: 4, Title: "Es Teh", Price: 3000},
}

func main() {
	ctx := context.Background()

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	deviceID := "cartsim-" + uuid.NewString()
	defer rdb.Del(ctx, "ls:"+deviceID+":"+service.CartStorageKey)

	// Open the tabs of one device
	tabs := make([]*service.CartStore, tabCount)
	for i := range tabs {
		tabID := fmt.Sprintf("tab-%d", i)
		tabs[i] = service.NewCartStore(tabID, storage.NewRedisLocalStorage(rdb, deviceID, tabID), nil)
		if err := tabs[i].Start(ctx); err != nil {
			log.Fatalf("failed to start %s: %v", tabID, err)
		}
		defer tabs[i].Close()
	}

	failed := false
	check := func(ok bool, format string, args ...any) {
		if ok {
			fmt.Printf("PASS: "+format+"\n", args...)
			return
		}
		failed = true
		fmt.Printf("FAIL: "+format+"\n", args...)
	}

	// Phase 1: tabs take turns, waiting for every sibling to catch up
	start := time.Now()
	for round := 0; round < addsPerTab; round++ {
		for i, tab := range tabs {
			item := menu[(round+i)%menuItemCount]
			if err := tab.Add(ctx, item.CartLine(1)); err != nil {
				log.Fatalf("add failed: %v", err)
			}
			if !settled(tabs, tab.Lines()) {
				check(false, "tabs did not converge after add in round %d", round)
			}
		}
	}
	sequential := tabs[0].Lines()
	check(sequential.ItemCount() == tabCount*addsPerTab, "sequential adds counted: %d of %d", sequential.ItemCount(), tabCount*addsPerTab)
	check(len(sequential) == menuItemCount, "one line per menu item: %d lines", len(sequential))
	fmt.Printf("Sequential phase:  %v\n", time.Since(start))

	// Phase 2: all tabs write at once; the last write wins but every tab
	// must end on the same valid cart
	start = time.Now()
	var wg sync.WaitGroup
	for i, tab := range tabs {
		wg.Add(1)
		go func(i int, tab *service.CartStore) {
			defer wg.Done()
			for n := 0; n < addsPerTab; n++ {
				tab.Add(ctx, menu[(n+i)%menuItemCount].CartLine(1))
				if n%3 == 0 {
					tab.SetQuantity(ctx, menu[n%menuItemCount].ID, -1)
				}
			}
		}(i, tab)
	}
	wg.Wait()

	stored, ok, err := storage.NewRedisLocalStorage(rdb, deviceID, "cartsim-reader").GetItem(ctx, service.CartStorageKey)
	if err != nil || !ok {
		log.Fatalf("failed to read stored cart: %v", err)
	}
	final := tabs[0].Lines()
	check(settled(tabs, final), "all %d tabs converged after concurrent writes", tabCount)
	final = tabs[0].Lines()
	check(validCart(final), "final cart has unique lines with positive quantities")
	fmt.Printf("Concurrent phase:  %v\n", time.Since(start))

	fmt.Println("========== CART SIMULATION RESULTS ==========")
	fmt.Printf("Tabs:              %d\n", tabCount)
	fmt.Printf("Adds per tab:      %d\n", addsPerTab)
	fmt.Printf("Final lines:       %d\n", len(final))
	fmt.Printf("Final item count:  %d\n", final.ItemCount())
	fmt.Printf("Final total:       %d\n", final.Total())
	fmt.Printf("Stored bytes:      %d\n", len(stored))
	fmt.Println("=============================================")

	if failed {
		fmt.Println("FAIL: cart invariants violated")
	} else {
		fmt.Println("PASS: cart invariants hold")
	}
}

// settled waits until every tab shows the same cart as want, or the
// concurrent case has quiesced on a common cart.
func settled(tabs []*service.CartStore, want domain.Cart) bool {
	deadline := time.Now().Add(settleTimeout)
	for time.Now().Before(deadline) {
		same := true
		for _, tab := range tabs {
			if !equalCarts(tab.Lines(), want) {
				same = false
				break
			}
		}
		if same {
			return true
		}
		// a later write may have superseded want
		want = tabs[len(tabs)-1].Lines()
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func equalCarts(a, b domain.Cart) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func validCart(c domain.Cart) bool {
	seen := make(map[int64]bool)
	for _, line := range c {
		if seen[line.MenuItemID] || line.Quantity < 1 {
			return false
		}
		seen[line.MenuItemID] = true
	}
	return true
}
