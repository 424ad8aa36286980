//go:build stress

package stress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/flash-sale-engine/internal/service"
)

// TestFlashSale_ConcurrentSellout hammers a small sale with many unique
// buyers at once. Exactly total_stock purchases may commit and the counter
// must land on zero with no oversell.
func TestFlashSale_ConcurrentSellout(t *testing.T) {
	const saleID = "stress-sellout"
	const stock = 5
	const buyers = 50

	newStressSale(t, saleID, stock)

	var wg sync.WaitGroup
	results := make(chan error, buyers)

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := testSvc.Purchase(context.Background(), fmt.Sprintf("stress_user_%03d", n), saleID)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	successCount, soldOutCount := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, service.ErrSoldOut):
			soldOutCount++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, stock, successCount, "exactly total_stock purchases must succeed")
	assert.Equal(t, buyers-stock, soldOutCount)
	assert.Equal(t, stock, countSuccessOrders(t, saleID), "order log must match accepted purchases")
	assert.Equal(t, int64(0), stockCounter(t, saleID), "compensations must return the counter to zero")
}

// TestFlashSale_RepeatedWaves drains a sale in several sequential bursts with
// a reset between waves. Every wave must behave identically; drift across
// resets would surface here.
func TestFlashSale_RepeatedWaves(t *testing.T) {
	const saleID = "stress-waves"
	const stock = 8
	const buyersPerWave = 30
	const waves = 3

	for wave := 0; wave < waves; wave++ {
		newStressSale(t, saleID, stock)

		var wg sync.WaitGroup
		results := make(chan error, buyersPerWave)

		for i := 0; i < buyersPerWave; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				userID := fmt.Sprintf("wave%d_user_%03d", wave, n)
				_, err := testSvc.Purchase(context.Background(), userID, saleID)
				results <- err
			}(i)
		}
		wg.Wait()
		close(results)

		successCount := 0
		for err := range results {
			if err == nil {
				successCount++
			}
		}

		assert.Equal(t, stock, successCount, "wave %d must sell exactly total_stock", wave)
		assert.Equal(t, stock, countSuccessOrders(t, saleID), "wave %d order log mismatch", wave)
	}
}

// TestFlashSale_LastUnitRace has exactly as many buyers as remaining units
// plus one. The losing buyer must see SOLD_OUT, never a short-changed
// counter.
func TestFlashSale_LastUnitRace(t *testing.T) {
	const saleID = "stress-last-unit"
	const stock = 1
	const buyers = 2

	newStressSale(t, saleID, stock)

	var wg sync.WaitGroup
	results := make(chan error, buyers)

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := testSvc.Purchase(context.Background(), fmt.Sprintf("last_unit_user_%d", n), saleID)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	successCount, soldOutCount := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, service.ErrSoldOut):
			soldOutCount++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, successCount)
	assert.Equal(t, 1, soldOutCount)
	assert.Equal(t, int64(0), stockCounter(t, saleID))
}
