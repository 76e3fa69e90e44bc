package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"admarket/internal/adapter/memory"
	"admarket/internal/core/domain"
	"admarket/internal/core/port"
	"admarket/internal/core/rules"
)

const (
	testCampaignID = "cmp-1"
	testOrderID    = "ord-1"
	testPubID      = "pub-1"
	digitalPath    = "pub-1/website/banner"
	printPath      = "pub-1/print/full-page"
)

var checkTime = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memory.Store
	engine *CompletionUseCase
}

// newFixture seeds a campaign running June 1–30 with one digital and one
// print placement, and an order whose placement statuses and goals the test
// controls. The engine clock is pinned to June 15.
func newFixture(t *testing.T, orderStatus domain.OrderStatus, placements map[string]domain.PlacementStatus, goals map[string]domain.DeliveryGoal) *fixture {
	t.Helper()
	store := memory.NewStore()

	store.PutCampaign(domain.Campaign{
		CampaignID: testCampaignID,
		Status:     domain.CampaignActive,
		Timeline: domain.NewTimeline(
			time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
		),
		SelectedInventory: domain.SelectedInventory{
			Publications: []domain.PublicationSelection{{
				PublicationID: testPubID,
				InventoryItems: []domain.InventoryItem{
					{
						ItemPath:           digitalPath,
						Channel:            domain.ChannelWebsite,
						PricingModel:       domain.PricingCPM,
						Rate:               20,
						MonthlyImpressions: 100000,
					},
					{
						ItemPath:         printPath,
						Channel:          domain.ChannelPrint,
						PricingModel:     domain.PricingPerOccurrence,
						Rate:             500,
						CurrentFrequency: 4,
					},
				},
			}},
		},
	})

	require.NoError(t, store.InsertOrders(context.Background(), []domain.InsertionOrder{{
		ID:                testOrderID,
		CampaignID:        testCampaignID,
		PublicationID:     testPubID,
		Status:            orderStatus,
		PlacementStatuses: placements,
		DeliveryGoals:     goals,
		Version:           1,
	}}))

	engine := NewCompletionUseCase(store, store, store, store, rules.ScopeOrderWide, testLogger())
	engine.now = func() time.Time { return checkTime }
	return &fixture{store: store, engine: engine}
}

func (f *fixture) recordImpressions(t *testing.T, itemPath string, counts ...int64) {
	t.Helper()
	for _, n := range counts {
		require.NoError(t, f.store.RecordEntry(context.Background(), &domain.PerformanceEntry{
			OrderID:  testOrderID,
			ItemPath: itemPath,
			Date:     checkTime.AddDate(0, 0, -1),
			Metrics:  domain.PerformanceMetrics{Impressions: n},
		}))
	}
}

func (f *fixture) attachProofs(t *testing.T, itemPath string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		require.NoError(t, f.store.AttachProof(context.Background(), &domain.ProofOfPerformance{
			OrderID:  testOrderID,
			ItemPath: itemPath,
			Kind:     domain.ProofTearSheet,
		}))
	}
}

func (f *fixture) order(t *testing.T) *domain.InsertionOrder {
	t.Helper()
	order, err := f.store.GetOrder(context.Background(), testOrderID)
	require.NoError(t, err)
	return order
}

func TestDigitalCompletionGoalMet(t *testing.T) {
	f := newFixture(t, domain.OrderInProduction,
		map[string]domain.PlacementStatus{digitalPath: domain.PlacementInProduction},
		map[string]domain.DeliveryGoal{digitalPath: {GoalValue: 1000, Metric: "impressions"}})
	f.recordImpressions(t, digitalPath, 600, 400)

	result := f.engine.CheckAndCompleteIfReady(context.Background(), testOrderID, digitalPath, domain.ChannelWebsite)
	require.True(t, result.Completed, result.Reason)
	require.Contains(t, result.Reason, "goal")

	order := f.order(t)
	require.Equal(t, domain.PlacementDelivered, order.PlacementStatus(digitalPath))
	// Sole active placement delivered: the order itself is delivered.
	require.Equal(t, domain.OrderDelivered, order.Status)
	require.NotEmpty(t, order.PlacementStatusHistory)
	require.Equal(t, domain.SystemActor, order.PlacementStatusHistory[0].ChangedBy)
}

func TestDigitalCompletionEndDateBackstop(t *testing.T) {
	f := newFixture(t, domain.OrderInProduction,
		map[string]domain.PlacementStatus{digitalPath: domain.PlacementInProduction},
		map[string]domain.DeliveryGoal{digitalPath: {GoalValue: 1000}})
	f.recordImpressions(t, digitalPath, 200)
	// Campaign ended yesterday relative to the check.
	f.engine.now = func() time.Time { return time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC) }

	result := f.engine.CheckAndCompleteIfReady(context.Background(), testOrderID, digitalPath, domain.ChannelWebsite)
	require.True(t, result.Completed, "end of campaign is an unconditional backstop")
	require.Contains(t, result.Reason, "ended")
	require.Equal(t, domain.PlacementDelivered, f.order(t).PlacementStatus(digitalPath))
}

func TestDigitalCompletionReportsProgress(t *testing.T) {
	f := newFixture(t, domain.OrderInProduction,
		map[string]domain.PlacementStatus{digitalPath: domain.PlacementInProduction},
		map[string]domain.DeliveryGoal{digitalPath: {GoalValue: 1000}})
	f.recordImpressions(t, digitalPath, 400)

	result := f.engine.CheckAndCompleteIfReady(context.Background(), testOrderID, digitalPath, domain.ChannelWebsite)
	require.False(t, result.Completed)
	require.NotNil(t, result.Progress)
	require.Equal(t, int64(400), result.Progress.Delivered)
	require.Equal(t, int64(1000), result.Progress.Expected)
	require.InDelta(t, 40.0, result.Progress.Percent, 1e-9)
	require.Equal(t, domain.PlacementInProduction, f.order(t).PlacementStatus(digitalPath))
}

func TestOfflineCompletionPartialProofs(t *testing.T) {
	f := newFixture(t, domain.OrderInProduction,
		map[string]domain.PlacementStatus{printPath: domain.PlacementInProduction}, nil)
	f.attachProofs(t, printPath, 2)

	result := f.engine.CheckAndCompleteIfReady(context.Background(), testOrderID, printPath, domain.ChannelPrint)
	require.False(t, result.Completed)
	require.NotNil(t, result.Progress)
	require.InDelta(t, 50.0, result.Progress.Percent, 1e-9, "2 of 4 proofs is 50%%")
}

func TestOfflineCompletionOrderWideProofsCount(t *testing.T) {
	f := newFixture(t, domain.OrderInProduction,
		map[string]domain.PlacementStatus{printPath: domain.PlacementInProduction}, nil)
	f.attachProofs(t, printPath, 1)
	f.attachProofs(t, "", 3) // order-level proofs, no item path

	result := f.engine.CheckAndCompleteIfReady(context.Background(), testOrderID, printPath, domain.ChannelPrint)
	require.True(t, result.Completed, result.Reason)
	require.Contains(t, result.Reason, "proof")
	require.Equal(t, domain.PlacementDelivered, f.order(t).PlacementStatus(printPath))
}

func TestOfflineCompletionPlacementScopeIgnoresOrderProofs(t *testing.T) {
	f := newFixture(t, domain.OrderInProduction,
		map[string]domain.PlacementStatus{printPath: domain.PlacementInProduction}, nil)
	f.attachProofs(t, printPath, 1)
	f.attachProofs(t, "", 3)
	f.engine.proofScope = rules.ScopePlacement

	result := f.engine.CheckAndCompleteIfReady(context.Background(), testOrderID, printPath, domain.ChannelPrint)
	require.False(t, result.Completed)
	require.Equal(t, int64(1), result.Progress.Delivered)
}

func TestGracePeriodLockout(t *testing.T) {
	f := newFixture(t, domain.OrderConfirmed,
		map[string]domain.PlacementStatus{digitalPath: domain.PlacementAccepted}, nil)
	// Campaign starts June 1; 10 days earlier is outside the 7-day window.
	f.engine.now = func() time.Time { return time.Date(2025, time.May, 22, 0, 0, 0, 0, time.UTC) }

	result := f.engine.CheckAndCompleteIfReady(context.Background(), testOrderID, digitalPath, domain.ChannelWebsite)
	require.False(t, result.Completed)
	require.Contains(t, result.Reason, "has not started")

	order := f.order(t)
	require.Equal(t, domain.PlacementAccepted, order.PlacementStatus(digitalPath))
	require.Equal(t, domain.OrderConfirmed, order.Status)
}

func TestAcceptedPlacementPromotedInsideGraceWindow(t *testing.T) {
	f := newFixture(t, domain.OrderConfirmed,
		map[string]domain.PlacementStatus{digitalPath: domain.PlacementAccepted},
		map[string]domain.DeliveryGoal{digitalPath: {GoalValue: 1000}})
	// Five days before start: inside the window.
	f.engine.now = func() time.Time { return time.Date(2025, time.May, 27, 0, 0, 0, 0, time.UTC) }

	result := f.engine.CheckAndCompleteIfReady(context.Background(), testOrderID, digitalPath, domain.ChannelWebsite)
	require.False(t, result.Completed, "no impressions yet; promotion only")

	order := f.order(t)
	require.Equal(t, domain.PlacementInProduction, order.PlacementStatus(digitalPath))
	require.Equal(t, domain.OrderInProduction, order.Status, "confirmed order follows its placement into production")
	require.Equal(t, "Activity detected", order.PlacementStatusHistory[0].Notes)
}

func TestPendingPlacementIsNotReady(t *testing.T) {
	f := newFixture(t, domain.OrderConfirmed,
		map[string]domain.PlacementStatus{digitalPath: domain.PlacementPending}, nil)

	result := f.engine.CheckAndCompleteIfReady(context.Background(), testOrderID, digitalPath, domain.ChannelWebsite)
	require.False(t, result.Completed)
	require.Contains(t, result.Reason, "in-production")
}

func TestAlreadyDeliveredIsNoOp(t *testing.T) {
	f := newFixture(t, domain.OrderDelivered,
		map[string]domain.PlacementStatus{digitalPath: domain.PlacementDelivered}, nil)

	result := f.engine.CheckAndCompleteIfReady(context.Background(), testOrderID, digitalPath, domain.ChannelWebsite)
	require.False(t, result.Completed)
	require.True(t, result.AlreadyDelivered)
}

func TestSuspendedPlacementBlocksCompletion(t *testing.T) {
	f := newFixture(t, domain.OrderInProduction,
		map[string]domain.PlacementStatus{printPath: domain.PlacementSuspended}, nil)
	f.attachProofs(t, printPath, 10)

	result := f.engine.CheckAndCompleteIfReady(context.Background(), testOrderID, printPath, domain.ChannelPrint)
	require.False(t, result.Completed)
	require.Contains(t, result.Reason, "suspended")
}

func TestMissingOrderIsReportedNotThrown(t *testing.T) {
	f := newFixture(t, domain.OrderInProduction,
		map[string]domain.PlacementStatus{digitalPath: domain.PlacementInProduction}, nil)

	result := f.engine.CheckAndCompleteIfReady(context.Background(), "no-such-order", digitalPath, domain.ChannelWebsite)
	require.False(t, result.Completed)
	require.Contains(t, result.Reason, "not found")
}

// conflictingOrders wraps the memory store and fails every write with a
// version conflict, as if another sweep won the race.
type conflictingOrders struct {
	*memory.Store
}

func (c *conflictingOrders) UpdateOrder(ctx context.Context, order *domain.InsertionOrder, expectedVersion int64) error {
	return port.ErrVersionConflict
}

func TestVersionConflictIsRetryable(t *testing.T) {
	f := newFixture(t, domain.OrderInProduction,
		map[string]domain.PlacementStatus{digitalPath: domain.PlacementInProduction},
		map[string]domain.DeliveryGoal{digitalPath: {GoalValue: 100}})
	f.recordImpressions(t, digitalPath, 100)
	f.engine.orders = &conflictingOrders{Store: f.store}

	result := f.engine.CheckAndCompleteIfReady(context.Background(), testOrderID, digitalPath, domain.ChannelWebsite)
	require.False(t, result.Completed)
	require.True(t, result.Retryable)
	require.Contains(t, result.Reason, "concurrently")
}

// timingOutPerformance simulates a ledger read running past its deadline.
type timingOutPerformance struct {
	*memory.Store
}

func (p *timingOutPerformance) SumImpressions(ctx context.Context, orderID, itemPath string) (int64, error) {
	return 0, context.DeadlineExceeded
}

func TestStoreTimeoutIsRetryable(t *testing.T) {
	f := newFixture(t, domain.OrderInProduction,
		map[string]domain.PlacementStatus{digitalPath: domain.PlacementInProduction},
		map[string]domain.DeliveryGoal{digitalPath: {GoalValue: 100}})
	f.engine.performance = &timingOutPerformance{Store: f.store}

	result := f.engine.CheckAndCompleteIfReady(context.Background(), testOrderID, digitalPath, domain.ChannelWebsite)
	require.False(t, result.Completed)
	require.True(t, result.Retryable)
	require.Contains(t, result.Reason, "timeout")
}

func TestCheckAllPlacementsInOrder(t *testing.T) {
	f := newFixture(t, domain.OrderInProduction,
		map[string]domain.PlacementStatus{
			digitalPath: domain.PlacementInProduction,
			printPath:   domain.PlacementInProduction,
		},
		map[string]domain.DeliveryGoal{digitalPath: {GoalValue: 500}})
	f.recordImpressions(t, digitalPath, 500)
	// No proofs: the print placement stays open.

	batch := f.engine.CheckAllPlacementsInOrder(context.Background(), testOrderID)
	require.Equal(t, 2, batch.Checked)
	require.Equal(t, 1, batch.Completed)
	require.True(t, batch.Results[digitalPath].Completed)
	require.False(t, batch.Results[printPath].Completed)

	order := f.order(t)
	require.Equal(t, domain.PlacementDelivered, order.PlacementStatus(digitalPath))
	require.Equal(t, domain.PlacementInProduction, order.PlacementStatus(printPath))
	require.Equal(t, domain.OrderInProduction, order.Status, "print placement still open")
}

func TestCheckDigitalPlacementsForCampaignEnd(t *testing.T) {
	f := newFixture(t, domain.OrderInProduction,
		map[string]domain.PlacementStatus{
			digitalPath: domain.PlacementInProduction,
			printPath:   domain.PlacementInProduction,
		},
		map[string]domain.DeliveryGoal{digitalPath: {GoalValue: 1000}})
	f.recordImpressions(t, digitalPath, 100)
	f.engine.now = func() time.Time { return time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC) }

	batch := f.engine.CheckDigitalPlacementsForCampaignEnd(context.Background(), testOrderID)
	require.Equal(t, 1, batch.Checked, "print placements are outside this sweep")
	require.Equal(t, 1, batch.Completed)
	require.Contains(t, batch.Results[digitalPath].Reason, "ended")

	order := f.order(t)
	require.Equal(t, domain.PlacementDelivered, order.PlacementStatus(digitalPath))
	require.Equal(t, domain.PlacementInProduction, order.PlacementStatus(printPath))
}

func TestDetectActivityIsPure(t *testing.T) {
	campaign := &domain.Campaign{
		Timeline: domain.NewTimeline(
			time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC),
		),
	}
	order := &domain.InsertionOrder{
		PlacementStatuses: map[string]domain.PlacementStatus{digitalPath: domain.PlacementAccepted},
	}

	outside := time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC)
	require.Nil(t, DetectActivity(order, digitalPath, campaign, outside))

	inside := time.Date(2025, time.May, 26, 0, 0, 0, 0, time.UTC)
	transition := DetectActivity(order, digitalPath, campaign, inside)
	require.NotNil(t, transition)
	require.Equal(t, domain.PlacementInProduction, transition.To)
	// Deciding must not mutate the order.
	require.Equal(t, domain.PlacementAccepted, order.PlacementStatus(digitalPath))
}
