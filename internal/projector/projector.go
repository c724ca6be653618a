// Package projector assembles the single ResolvedCircle read model
// every presentation surface consumes. It fans out the independent
// ledger and price fetches, joins them, and runs resolution,
// membership aggregation, scheduling, and deposit status over the
// results. Nothing here holds state across projections: each call
// produces a fresh, immutable snapshot.
package projector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"circle-resolver/internal/deposit"
	"circle-resolver/internal/domain"
	"circle-resolver/internal/ledger"
	"circle-resolver/internal/membership"
	"circle-resolver/internal/observability"
	"circle-resolver/internal/price"
	"circle-resolver/internal/resolution"
	"circle-resolver/internal/schedule"
)

// Projector orchestrates one circle's state resolution.
type Projector struct {
	client   ledger.Client
	quotes   price.Source
	types    ledger.EventTypes
	members  *membership.Collector
	deposits *deposit.Resolver
	metrics  *observability.Metrics
	logger   *log.Logger
	now      func() time.Time
}

// Options for creating a Projector.
type Options struct {
	Client  ledger.Client
	Quotes  price.Source
	Types   ledger.EventTypes
	Metrics *observability.Metrics // optional
	Logger  *log.Logger            // optional
	Now     func() time.Time       // optional, for tests
}

// New creates a Projector.
func New(opts Options) *Projector {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Projector{
		client:   opts.Client,
		quotes:   opts.Quotes,
		types:    opts.Types,
		members:  membership.NewCollector(opts.Client, opts.Types),
		deposits: deposit.NewResolver(opts.Client, opts.Types, logger),
		metrics:  opts.Metrics,
		logger:   logger,
		now:      now,
	}
}

// rawInputs collects the fan-out fetch results. Each field is filled
// by exactly one goroutine; absent or failed fetches leave zero
// values, which resolution treats as missing sources.
type rawInputs struct {
	object        *ledger.Object
	configObject  *ledger.Object
	creationEvent *ledger.Event
	txInputs      []ledger.TransactionInput
	joinEvents    []ledger.Event
	joinTruncated bool
	joinErr       error
	custodyWallet string
	quote         price.Quote
}

// Project resolves one circle into an immutable snapshot. A viewer
// address, when non-empty, additionally resolves that member's
// deposit status. Identity resolution failure returns
// ErrCircleNotFound; every other source failure degrades to a flagged
// partial snapshot so callers can always render something.
func (p *Projector) Project(ctx context.Context, circleID, viewer string) (*domain.ResolvedCircle, error) {
	start := p.now()

	raw := p.fetchAll(ctx, circleID)

	rate := 0.0
	var flags domain.SnapshotFlags
	switch raw.quote.Status {
	case price.StatusOK:
		rate = raw.quote.Value
	case price.StatusStale:
		rate = raw.quote.Value
		flags.RateStale = true
	case price.StatusError:
		flags.RateUnavailable = true
	}

	cfg, info, err := resolution.Resolve(circleID, resolution.Sources{
		TxInputs:           raw.txInputs,
		CreationEvent:      raw.creationEvent,
		DynamicFieldObject: raw.configObject,
		DirectFields:       directFields(raw.object),
	}, rate)
	if err != nil {
		var missing *domain.MissingFieldError
		if errors.As(err, &missing) {
			p.observe(domain.OutcomeNotFound, start, flags)
			return nil, fmt.Errorf("%w: %v", domain.ErrCircleNotFound, err)
		}
		p.observe(domain.OutcomeError, start, flags)
		return nil, fmt.Errorf("resolve config: %w", err)
	}
	flags.NativeFallback = info.NativeFallback
	flags.RateUnavailable = flags.RateUnavailable || info.RateUnavailable

	members := p.assembleMembership(cfg, raw, &flags)
	p.assembleSchedule(cfg, &flags)

	snapshot := &domain.ResolvedCircle{
		Config:         *cfg,
		Members:        members.Set,
		CurrentMembers: members.Count(),
		CustodyWallet:  raw.custodyWallet,
		Flags:          flags,
		ResolvedAtMs:   p.now().UnixMilli(),
	}

	if viewer != "" {
		rec := p.deposits.Resolve(ctx, circleID, memberTableID(raw.object), viewer, cfg.SecurityDepositNative)
		snapshot.Deposit = &rec
	}

	outcome := domain.OutcomeOK
	if flags.Degraded() {
		outcome = domain.OutcomeDegraded
	}
	p.observe(outcome, start, flags)

	return snapshot, nil
}

// fetchAll issues the independent fetches concurrently and joins
// them. Config sources, join events, custody events, and the price
// quote share no state, so they run as a plain fan-out.
func (p *Projector) fetchAll(ctx context.Context, circleID string) *rawInputs {
	raw := &rawInputs{}
	var wg sync.WaitGroup

	wg.Add(5)

	go func() {
		defer wg.Done()
		obj, err := p.client.GetObject(ctx, circleID)
		if err != nil {
			p.logger.Printf("[projector] object fetch failed for %s: %v", circleID, err)
			return
		}
		raw.object = obj
	}()

	go func() {
		defer wg.Done()
		raw.configObject = p.fetchConfigObject(ctx, circleID)
	}()

	go func() {
		defer wg.Done()
		raw.creationEvent, raw.txInputs = p.fetchCreation(ctx, circleID)
	}()

	go func() {
		defer wg.Done()
		raw.joinEvents, raw.joinTruncated, raw.joinErr = p.members.Fetch(ctx)
	}()

	go func() {
		defer wg.Done()
		raw.custodyWallet = p.fetchCustodyWallet(ctx, circleID)
	}()

	// The quote source caches internally; fetch it on the joining
	// goroutine so the metrics update stays ordered after it.
	raw.quote = p.quotes.GetPrice(ctx)
	if p.metrics != nil {
		p.metrics.QuoteRequests.Inc()
		switch raw.quote.Status {
		case price.StatusStale:
			p.metrics.QuoteStale.Inc()
		case price.StatusError:
			p.metrics.QuoteErrors.Inc()
		default:
			p.metrics.LastQuoteUSD.Set(raw.quote.Value)
		}
	}

	wg.Wait()
	return raw
}

// fetchConfigObject locates and fetches the CircleConfig dynamic
// field. Any failure yields nil: the layer is simply absent.
func (p *Projector) fetchConfigObject(ctx context.Context, circleID string) *ledger.Object {
	fields, err := p.client.GetDynamicFields(ctx, circleID)
	if err != nil {
		p.logger.Printf("[projector] dynamic field listing failed for %s: %v", circleID, err)
		return nil
	}

	info := resolution.FindConfigField(fields)
	if info == nil {
		return nil
	}

	obj, err := p.client.GetDynamicFieldObject(ctx, circleID, info.Name)
	if err != nil {
		p.logger.Printf("[projector] config field fetch failed for %s: %v", circleID, err)
		return nil
	}
	return obj
}

// fetchCreation finds the circle's creation event and, when its
// digest validates, the creation transaction's typed inputs. The
// creation feed is package-wide, so the scan pages until the circle's
// event turns up or the membership paging bounds run out.
func (p *Projector) fetchCreation(ctx context.Context, circleID string) (*ledger.Event, []ledger.TransactionInput) {
	filter := p.types.Filter(ledger.EventCircleCreated)

	var event *ledger.Event
	var cursor *ledger.EventCursor

	for page := 0; page < membership.MaxPages; page++ {
		pg, err := p.client.QueryEvents(ctx, filter, cursor, membership.PageLimit)
		if err != nil {
			p.logger.Printf("[projector] creation event query failed for %s: %v", circleID, err)
			return nil, nil
		}

		for i := range pg.Events {
			if pg.Events[i].StringField("circle_id") == circleID {
				event = &pg.Events[i]
				break
			}
		}

		if event != nil || !pg.HasNextPage || pg.NextCursor == nil {
			break
		}
		cursor = pg.NextCursor
	}
	if event == nil {
		return nil, nil
	}

	if !ledger.IsValidDigest(event.TxDigest) {
		p.logger.Printf("[projector] creation event for %s carries malformed digest %q", circleID, event.TxDigest)
		return event, nil
	}

	block, err := p.client.GetTransactionBlock(ctx, event.TxDigest)
	if err != nil {
		p.logger.Printf("[projector] creation tx fetch failed for %s: %v", circleID, err)
		return event, nil
	}
	if block == nil {
		return event, nil
	}
	return event, block.Inputs
}

// fetchCustodyWallet finds the circle's escrow wallet from custody
// creation events, trusting only wallets whose authority key is a
// valid curve point.
func (p *Projector) fetchCustodyWallet(ctx context.Context, circleID string) string {
	page, err := p.client.QueryEvents(ctx, p.types.Filter(ledger.EventCustodyWalletCreated), nil, 50)
	if err != nil {
		p.logger.Printf("[projector] custody wallet query failed for %s: %v", circleID, err)
		return ""
	}

	for _, e := range page.Events {
		if e.StringField("circle_id") != circleID {
			continue
		}
		walletID := e.StringField("wallet_id")
		if walletID == "" {
			continue
		}
		if authority := e.StringField("authority"); authority != "" && !ledger.IsValidAuthorityKey(authority) {
			p.logger.Printf("[projector] rejecting custody wallet %s: invalid authority key", walletID)
			continue
		}
		return walletID
	}
	return ""
}

// assembleMembership turns raw join events into the membership result
// and mirrors its degradation flags onto the snapshot.
func (p *Projector) assembleMembership(cfg *domain.CircleConfig, raw *rawInputs, flags *domain.SnapshotFlags) membership.Result {
	result := membership.Assemble(cfg.Admin, cfg.CircleID, raw.joinEvents, raw.joinTruncated, raw.joinErr, cfg.ReportedMemberCount)

	if result.Approximate {
		p.logger.Printf("[projector] join event query failed, using reported count %d: %v", cfg.ReportedMemberCount, raw.joinErr)
		flags.MembershipApproximate = true
		if p.metrics != nil {
			p.metrics.MembershipFallbacks.Inc()
		}
	}
	if result.Truncated {
		flags.MembershipTruncated = true
		if p.metrics != nil {
			p.metrics.MembershipTruncated.Inc()
		}
	}

	return result
}

// assembleSchedule fills NextPayoutAt when the ledger did not already
// provide it. A cycle-day invariant violation degrades to an
// unavailable schedule instead of failing the projection: config and
// membership remain useful on their own.
func (p *Projector) assembleSchedule(cfg *domain.CircleConfig, flags *domain.SnapshotFlags) {
	if !cfg.NextPayoutAt.IsZero() {
		return
	}

	next, err := schedule.NextPayout(cfg.CycleType, cfg.CycleDay, p.now(), cfg.IsActive)
	if err != nil {
		p.logger.Printf("[projector] schedule unavailable for %s: %v", cfg.CircleID, err)
		flags.NextPayoutUnavailable = true
		if p.metrics != nil {
			p.metrics.ScheduleFailures.Inc()
		}
		return
	}
	cfg.NextPayoutAt = next
}

func (p *Projector) observe(outcome domain.ResolutionOutcome, start time.Time, flags domain.SnapshotFlags) {
	if p.metrics == nil {
		return
	}
	p.metrics.ProjectionsTotal.WithLabelValues(string(outcome)).Inc()
	p.metrics.ProjectionDuration.Observe(p.now().Sub(start).Seconds())
	if flags.NativeFallback {
		p.metrics.NativeFallbacks.Inc()
	}
	if outcome == domain.OutcomeOK || outcome == domain.OutcomeDegraded {
		p.metrics.LastSuccessfulProjection.Set(float64(p.now().Unix()))
	}
}

// directFields returns the circle object's own field bag.
func directFields(obj *ledger.Object) map[string]interface{} {
	if obj == nil {
		return nil
	}
	return obj.Fields
}

// memberTableID digs the members table object id out of the circle
// object, probing the nested shape table references are served in.
func memberTableID(obj *ledger.Object) string {
	if obj == nil || obj.Fields == nil {
		return ""
	}
	members, ok := obj.Fields["members"].(map[string]interface{})
	if !ok {
		return ""
	}
	fields, ok := members["fields"].(map[string]interface{})
	if !ok {
		return ""
	}
	switch id := fields["id"].(type) {
	case string:
		return id
	case map[string]interface{}:
		s, _ := id["id"].(string)
		return s
	}
	return ""
}
