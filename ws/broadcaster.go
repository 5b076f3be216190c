package ws

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AnalyticsSource produces the snapshots broadcast to subscribers. Implemented
// by the analytics service; declared here to keep the dependency pointing
// inward.
type AnalyticsSource interface {
	DashboardSnapshot(ctx context.Context) (interface{}, error)
	ProductSnapshot(ctx context.Context, productID uint) (interface{}, error)
}

// Broadcaster re-runs the dashboard and product aggregates on fixed intervals
// and pushes them to subscribed rooms. Purely advisory; a failed refresh is
// logged and retried on the next tick.
type Broadcaster struct {
	hub            *Hub
	source         AnalyticsSource
	logger         *zap.Logger
	dashboardEvery time.Duration
	productEvery   time.Duration
	stop           chan struct{}
}

func NewBroadcaster(hub *Hub, source AnalyticsSource, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		hub:            hub,
		source:         source,
		logger:         logger,
		dashboardEvery: 30 * time.Second,
		productEvery:   10 * time.Second,
		stop:           make(chan struct{}),
	}
}

func (b *Broadcaster) Start() {
	go b.loop()
}

func (b *Broadcaster) Stop() {
	close(b.stop)
}

func (b *Broadcaster) loop() {
	dashboard := time.NewTicker(b.dashboardEvery)
	product := time.NewTicker(b.productEvery)
	defer dashboard.Stop()
	defer product.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-dashboard.C:
			b.refreshDashboard()
		case <-product.C:
			b.refreshProducts()
		}
	}
}

func (b *Broadcaster) refreshDashboard() {
	if b.hub.RoomSize(RoomDashboard) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot, err := b.source.DashboardSnapshot(ctx)
	if err != nil {
		b.logger.Warn("Dashboard snapshot failed", zap.Error(err))
		return
	}
	b.hub.BroadcastToRoom(RoomDashboard, EventDashboardUpdate, snapshot)
}

func (b *Broadcaster) refreshProducts() {
	for _, room := range b.hub.Rooms() {
		id, ok := parseProductRoom(room)
		if !ok {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		snapshot, err := b.source.ProductSnapshot(ctx, id)
		cancel()
		if err != nil {
			b.logger.Warn("Product snapshot failed", zap.Uint("product_id", id), zap.Error(err))
			continue
		}
		b.hub.BroadcastToRoom(room, EventProductAnalytics, snapshot)
	}
}

func parseProductRoom(room string) (uint, bool) {
	const prefix = "product_"
	if !strings.HasPrefix(room, prefix) {
		return 0, false
	}
	id, err := strconv.ParseUint(room[len(prefix):], 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// PushInitial sends the current snapshot for a room to one client right after
// it subscribes.
func (b *Broadcaster) PushInitial(c *Client, room string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if room == RoomDashboard {
		snapshot, err := b.source.DashboardSnapshot(ctx)
		if err != nil {
			b.logger.Warn("Dashboard snapshot failed", zap.Error(err))
			return
		}
		c.Send(b.hub, EventDashboardUpdate, snapshot)
		return
	}
	if id, ok := parseProductRoom(room); ok {
		snapshot, err := b.source.ProductSnapshot(ctx, id)
		if err != nil {
			b.logger.Warn("Product snapshot failed", zap.Uint("product_id", id), zap.Error(err))
			return
		}
		c.Send(b.hub, EventProductAnalytics, snapshot)
	}
}
