package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/smallbiznis/signbilling/internal/charge"
	classifierdomain "github.com/smallbiznis/signbilling/internal/classifier/domain"
	"github.com/smallbiznis/signbilling/internal/clock"
	"github.com/smallbiznis/signbilling/internal/config"
	contractdomain "github.com/smallbiznis/signbilling/internal/contract/domain"
	ledgerdomain "github.com/smallbiznis/signbilling/internal/ledger/domain"
	"github.com/smallbiznis/signbilling/internal/lock"
	obslogger "github.com/smallbiznis/signbilling/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/signbilling/internal/observability/metrics"
	"github.com/smallbiznis/signbilling/internal/period"
	ratingdomain "github.com/smallbiznis/signbilling/internal/rating/domain"
	usagedomain "github.com/smallbiznis/signbilling/internal/usage/domain"
	"github.com/smallbiznis/signbilling/pkg/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tracerName = "github.com/smallbiznis/signbilling/internal/rating"

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	RatingConfig *config.RatingConfigHolder
	AppConfig    config.Config       `optional:"true"`
	Locker       lock.Locker         `optional:"true"`
	Metrics      *obsmetrics.Metrics `optional:"true"`

	Repo         ratingdomain.Repository
	ContractRepo contractdomain.Repository
	UsageRepo    usagedomain.Repository
	LedgerRepo   ledgerdomain.Repository
	Classifier   classifierdomain.Service
	Ledger       ledgerdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	ratingCfg *config.RatingConfigHolder
	locker    lock.Locker
	lockTTL   time.Duration
	metrics   *obsmetrics.Metrics
	tracer    trace.Tracer

	repo         ratingdomain.Repository
	contractRepo contractdomain.Repository
	usageRepo    usagedomain.Repository
	ledgerRepo   ledgerdomain.Repository
	classifier   classifierdomain.Service
	ledger       ledgerdomain.Service

	chargeStore        repository.Repository[ratingdomain.Charge]
	invoiceStore       repository.Repository[ratingdomain.Invoice]
	packageChargeStore repository.Repository[ledgerdomain.PrepaidPackageCharge]
	orderPackageStore  repository.Repository[contractdomain.OrderPackage]
}

func NewService(p ServiceParam) ratingdomain.Service {
	locker := p.Locker
	if locker == nil {
		locker = lock.NewLocalLocker(p.Clock)
	}
	lockTTL := p.AppConfig.SchedulerLockTTL
	if lockTTL <= 0 {
		lockTTL = ratingdomain.DefaultLockTTL
	}

	return &Service{
		db:        p.DB,
		log:       p.Log.Named("rating.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		ratingCfg: p.RatingConfig,
		locker:    locker,
		lockTTL:   lockTTL,
		metrics:   p.Metrics,
		tracer:    otel.Tracer(tracerName),

		repo:         p.Repo,
		contractRepo: p.ContractRepo,
		usageRepo:    p.UsageRepo,
		ledgerRepo:   p.LedgerRepo,
		classifier:   p.Classifier,
		ledger:       p.Ledger,

		chargeStore:        repository.ProvideStore[ratingdomain.Charge](p.DB),
		invoiceStore:       repository.ProvideStore[ratingdomain.Invoice](p.DB),
		packageChargeStore: repository.ProvideStore[ledgerdomain.PrepaidPackageCharge](p.DB),
		orderPackageStore:  repository.ProvideStore[contractdomain.OrderPackage](p.DB),
	}
}

// Rate recomputes every charge of clientID for the period. The whole run,
// including the removal of earlier results, commits or rolls back as one unit.
func (s *Service) Rate(ctx context.Context, periodLabel string, clientID int64) (*ratingdomain.RunResult, error) {
	started := s.clock.Now()
	result := &ratingdomain.RunResult{
		State:    ratingdomain.StateInit,
		Period:   periodLabel,
		ClientID: clientID,
	}

	ctx, span := s.tracer.Start(ctx, "rating.rate", trace.WithAttributes(
		attribute.Int64("client_id", clientID),
		attribute.String("period", periodLabel),
	))
	defer span.End()
	log := obslogger.WithRun(obslogger.WithContext(ctx, s.log), clientID, periodLabel)

	p, err := period.Parse(periodLabel)
	if err != nil {
		return s.finish(ctx, span, log, result, started, &ratingdomain.ConfigurationError{Err: err})
	}

	key := ratingdomain.LockKey(clientID)
	token, ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		return s.finish(ctx, span, log, result, started, fmt.Errorf("acquire %s: %w", key, err))
	}
	if !ok {
		return s.finish(ctx, span, log, result, started, fmt.Errorf("%w: %s", ratingdomain.ErrClientLocked, key))
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			log.Warn("release lock failed", zap.String("key", key), zap.Error(err))
		}
	}()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.run(ctx, tx, log, p, result)
	})
	return s.finish(ctx, span, log, result, started, err)
}

func (s *Service) run(ctx context.Context, tx *gorm.DB, log *zap.Logger, p period.Period, result *ratingdomain.RunResult) error {
	client, err := s.contractRepo.FindClient(ctx, tx, result.ClientID)
	if err != nil {
		if errors.Is(err, contractdomain.ErrClientNotFound) {
			result.State = ratingdomain.StateRejected
		}
		return err
	}
	result.State = ratingdomain.StateClientLoaded

	result.UnreconciledVendors = client.UnreconciledVendorIDs()
	if len(result.UnreconciledVendors) > 0 {
		log.Warn("client has unreconciled vendors", zap.Int64s("vendor_ids", result.UnreconciledVendors))
	}

	if err := s.clearPeriod(ctx, tx, log, client.ClientID, p, result); err != nil {
		return err
	}

	orders, err := s.contractRepo.ListRatingOrders(ctx, tx, client.ClientID, p.Start(), p.End())
	if err != nil {
		return err
	}
	result.State = ratingdomain.StateOrdersLoaded

	for _, order := range orders {
		if _, err := order.PaymentType(); err != nil {
			result.State = ratingdomain.StateRejected
			return &ratingdomain.ConfigurationError{Err: fmt.Errorf("order %d: %w", order.OrderID, err)}
		}
	}

	if dups := duplicateAssignments(orders); len(dups) > 0 {
		result.State = ratingdomain.StateRejected
		return &ratingdomain.ValidationError{ClientID: client.ClientID, DuplicateIDs: dups}
	}
	result.State = ratingdomain.StateValidated

	balances, err := s.loadBalances(ctx, tx, orders)
	if err != nil {
		return err
	}

	cfg := s.ratingCfg.Get()
	strategies, err := charge.Build(charge.BuildInput{
		Orders:   orders,
		Balances: balances,
		Pricing: charge.Pricing{
			LegalEntityServiceID: cfg.LegalEntityServiceID,
			BiometricServiceID:   cfg.BiometricServiceID,
		},
		RenewalEnabled: cfg.RenewalEnabled,
	})
	if err != nil {
		result.State = ratingdomain.StateRejected
		return &ratingdomain.ConfigurationError{Err: err}
	}
	result.State = ratingdomain.StateStrategiesBuilt

	txns, err := s.loadTransactions(ctx, tx, log, client, p, result)
	if err != nil {
		return err
	}
	result.State = ratingdomain.StateTransactionsLoaded

	for _, t := range txns {
		if charge.Route(strategies, t) == nil {
			result.Skipped = append(result.Skipped, t.Event.ID)
			continue
		}
		result.Processed++
	}
	summarize(strategies, result)
	result.State = ratingdomain.StateRated

	if err := s.persist(ctx, tx, log, client.ClientID, p, strategies, result); err != nil {
		return err
	}
	result.State = ratingdomain.StatePersisted
	return nil
}

// clearPeriod reverts the period's pending renewals and removes every row an
// earlier run of the period wrote.
func (s *Service) clearPeriod(ctx context.Context, tx *gorm.DB, log *zap.Logger, clientID int64, p period.Period, result *ratingdomain.RunResult) error {
	packageIDs, err := s.contractRepo.ListClientPackageIDs(ctx, tx, clientID)
	if err != nil {
		return err
	}

	renewals, err := s.ledger.PendingRenewalsTx(ctx, tx, packageIDs, p.String())
	if err != nil {
		return err
	}
	for _, renewed := range renewals {
		if err := s.contractRepo.DetachPackage(ctx, tx, renewed.ID); err != nil {
			return &ratingdomain.PersistenceError{Op: "detach_package", Err: err}
		}
		if err := s.ledger.RevertRenewalTx(ctx, tx, renewed); err != nil {
			return err
		}
		result.RevertedRenewals++
	}
	if len(renewals) > 0 {
		log.Info("reverted pending renewals", zap.Int("count", len(renewals)))
	}

	if err := s.ledgerRepo.DeletePendingDrawDowns(ctx, tx, packageIDs, p.Start(), p.End()); err != nil {
		return &ratingdomain.PersistenceError{Op: "delete_package_charges", Err: err}
	}
	charges, err := s.repo.DeleteCharges(ctx, tx, clientID, p.String())
	if err != nil {
		return &ratingdomain.PersistenceError{Op: "delete_charges", Err: err}
	}
	invoices, err := s.repo.DeleteInvoices(ctx, tx, clientID, p.String())
	if err != nil {
		return &ratingdomain.PersistenceError{Op: "delete_invoices", Err: err}
	}
	log.Debug("cleared period", zap.Int64("charges", charges), zap.Int64("invoices", invoices))
	return nil
}

// duplicateAssignments returns vs ids assigned to more than one active order.
func duplicateAssignments(orders []contractdomain.Order) []int64 {
	var ids []int64
	for _, o := range orders {
		if !o.IsActive {
			continue
		}
		ids = append(ids, lo.Uniq(o.VendorServiceIDs())...)
	}
	dups := lo.FindDuplicates(ids)
	slices.Sort(dups)
	return dups
}

func (s *Service) loadBalances(ctx context.Context, tx *gorm.DB, orders []contractdomain.Order) (map[int64]ledgerdomain.Balances, error) {
	balances := make(map[int64]ledgerdomain.Balances)
	for _, o := range orders {
		for _, link := range o.Packages {
			pkg := link.PrepaidPackage
			if pkg == nil || pkg.Status != ledgerdomain.PackageStatusActive {
				continue
			}
			if _, ok := balances[pkg.ID]; ok {
				continue
			}
			b, err := s.ledger.BalancesTx(ctx, tx, pkg.ID)
			if err != nil {
				return nil, err
			}
			balances[pkg.ID] = b
		}
	}
	return balances, nil
}

func (s *Service) loadTransactions(
	ctx context.Context,
	tx *gorm.DB,
	log *zap.Logger,
	client *contractdomain.Client,
	p period.Period,
	result *ratingdomain.RunResult,
) ([]*classifierdomain.ClassifiedTransaction, error) {
	vendorIDs := client.VendorIDs()

	filters, err := s.classifier.LoadFilters(ctx, tx, vendorIDs)
	if err != nil {
		if errors.Is(err, classifierdomain.ErrInvalidFilterConfig) {
			return nil, &ratingdomain.ConfigurationError{Err: err}
		}
		return nil, err
	}
	result.DroppedRules = filters.Dropped

	events, err := s.usageRepo.ListByVendors(ctx, tx, vendorIDs, p.Start(), p.End())
	if err != nil {
		return nil, err
	}

	classified := s.classifier.Classify(events, filters)
	if err := s.classifier.ResolveVendorServices(ctx, tx, &classified); err != nil {
		return nil, err
	}
	result.FullyClassified = classified.FullyClassified
	result.Unclassified = classified.Unclassified
	result.Unmapped = classified.Unmapped

	if !classified.FullyClassified {
		log.Warn("usage not fully classified", zap.Int("unclassified", len(classified.Unclassified)))
	}
	if len(classified.Unmapped) > 0 {
		log.Warn("classified usage without vendor service", zap.Int64s("event_ids", classified.Unmapped))
	}

	txns := make([]*classifierdomain.ClassifiedTransaction, 0, len(classified.Transactions))
	for i := range classified.Transactions {
		if classified.Transactions[i].Resolved() {
			txns = append(txns, &classified.Transactions[i])
		}
	}
	return txns, nil
}

func summarize(strategies []charge.Strategy, result *ratingdomain.RunResult) {
	var total charge.Accumulator
	result.Strategies = make([]ratingdomain.StrategySummary, 0, len(strategies))
	for _, st := range strategies {
		summary := ratingdomain.StrategySummary{
			OrderID:      st.Order().OrderID,
			PaymentType:  st.PaymentType().String(),
			Transactions: st.Transactions(),
			Total:        st.TotalCharged(),
		}
		if pp, ok := st.(*charge.PrepaidStrategy); ok {
			pkgID := pp.Package().ID
			balance := pp.Balance()
			summary.PackageID = &pkgID
			summary.Provisional = pp.Provisional()
			summary.Balance = &balance
		}
		result.Strategies = append(result.Strategies, summary)

		for _, line := range st.Breakdown() {
			total.Merge(line)
		}
	}
	result.Breakdown = total.Lines()
}

func (s *Service) persist(
	ctx context.Context,
	tx *gorm.DB,
	log *zap.Logger,
	clientID int64,
	p period.Period,
	strategies []charge.Strategy,
	result *ratingdomain.RunResult,
) error {
	chargeDate := p.ChargeDate()

	renewedTo, err := s.executeRenewals(ctx, tx, log, p, strategies, result)
	if err != nil {
		return err
	}

	charges := s.buildCharges(clientID, p, strategies)
	if err := s.repo.InsertCharges(ctx, tx, charges); err != nil {
		return &ratingdomain.PersistenceError{Op: "insert_charges", Err: err}
	}
	result.ChargesWritten = len(charges)

	invoices, err := s.buildInvoices(ctx, tx, log, clientID, p, strategies)
	if err != nil {
		return err
	}
	if err := s.repo.InsertInvoices(ctx, tx, invoices); err != nil {
		return &ratingdomain.PersistenceError{Op: "insert_invoices", Err: err}
	}
	result.InvoicesWritten = len(invoices)

	var drawDowns []ledgerdomain.PrepaidPackageCharge
	for _, st := range strategies {
		pp, ok := st.(*charge.PrepaidStrategy)
		if !ok || !pp.TotalCharged().IsPositive() {
			continue
		}
		target := pp.Package().ID
		if renewed, ok := renewedTo[target]; ok {
			target = renewed
		}
		drawDowns = append(drawDowns, ledgerdomain.PrepaidPackageCharge{
			ID:               s.genID.Generate().Int64(),
			PrepaidPackageID: target,
			ChargeDate:       chargeDate,
			ChargedUnits:     pp.TotalCharged(),
			IsCredit:         false,
			Status:           ledgerdomain.ChargeStatusPending,
		})
	}
	if err := s.ledgerRepo.CreateCharges(ctx, tx, drawDowns); err != nil {
		return &ratingdomain.PersistenceError{Op: "insert_package_charges", Err: err}
	}
	result.PackageChargesWritten = len(drawDowns)

	log.Info("rating persisted",
		zap.Int("charges", result.ChargesWritten),
		zap.Int("invoices", result.InvoicesWritten),
		zap.Int("package_charges", result.PackageChargesWritten),
		zap.Int("renewals", len(result.RenewedPackages)),
	)
	return nil
}

// executeRenewals renews, once per source package, every package whose
// provisional strategies charged anything and maps each source package to
// its successor. Orders sharing the source all get the successor attached.
func (s *Service) executeRenewals(
	ctx context.Context,
	tx *gorm.DB,
	log *zap.Logger,
	p period.Period,
	strategies []charge.Strategy,
	result *ratingdomain.RunResult,
) (map[int64]int64, error) {
	type plan struct {
		source    *ledgerdomain.PrepaidPackage
		renewDate time.Time
		orderIDs  []int64
	}
	var sources []int64
	plans := make(map[int64]*plan)
	for _, st := range strategies {
		pp, ok := st.(*charge.PrepaidStrategy)
		if !ok || !pp.Provisional() {
			continue
		}
		renewDate, ok := pp.RenewalDate()
		if !ok {
			continue
		}
		source := pp.Package()
		pl, ok := plans[source.ID]
		if !ok {
			pl = &plan{source: source, renewDate: renewDate}
			plans[source.ID] = pl
			sources = append(sources, source.ID)
		}
		if renewDate.Before(pl.renewDate) {
			pl.renewDate = renewDate
		}
		if !slices.Contains(pl.orderIDs, pp.Order().OrderID) {
			pl.orderIDs = append(pl.orderIDs, pp.Order().OrderID)
		}
	}

	renewedTo := make(map[int64]int64, len(plans))
	for _, sourceID := range sources {
		pl := plans[sourceID]
		next, err := s.ledger.RenewTx(ctx, tx, ledgerdomain.RenewRequest{
			PackageID: sourceID,
			RenewDate: pl.renewDate,
			Period:    p.String(),
		})
		if err != nil {
			return nil, &ratingdomain.PersistenceError{Op: "renew_package", Err: err}
		}
		if next == nil {
			return nil, fmt.Errorf("renew package %d: %w", sourceID, ledgerdomain.ErrInvalidTransfer)
		}

		for _, orderID := range pl.orderIDs {
			if err := s.contractRepo.AttachPackage(ctx, tx, &contractdomain.OrderPackage{
				ID:               s.genID.Generate().Int64(),
				OrderID:          orderID,
				PrepaidPackageID: next.ID,
			}); err != nil {
				return nil, &ratingdomain.PersistenceError{Op: "attach_package", Err: err}
			}
		}

		renewedTo[sourceID] = next.ID
		result.RenewedPackages = append(result.RenewedPackages, next.ID)
		log.Info("package renewed during rating",
			zap.Int64("package_id", sourceID),
			zap.Int64("renewed_package_id", next.ID),
			zap.Time("renew_date", pl.renewDate),
			zap.Int64s("order_ids", pl.orderIDs),
		)
	}
	return renewedTo, nil
}

// buildCharges merges the breakdown of every strategy of an order into one
// row per (order, vendor, service).
func (s *Service) buildCharges(clientID int64, p period.Period, strategies []charge.Strategy) []ratingdomain.Charge {
	var orderIDs []int64
	orders := make(map[int64]*contractdomain.Order)
	lines := make(map[int64]*charge.Accumulator)
	for _, st := range strategies {
		order := st.Order()
		acc, ok := lines[order.OrderID]
		if !ok {
			acc = &charge.Accumulator{}
			lines[order.OrderID] = acc
			orders[order.OrderID] = order
			orderIDs = append(orderIDs, order.OrderID)
		}
		for _, line := range st.Breakdown() {
			acc.Merge(line)
		}
	}

	var charges []ratingdomain.Charge
	for _, orderID := range orderIDs {
		order := orders[orderID]
		for _, line := range lines[orderID].Lines() {
			charges = append(charges, ratingdomain.Charge{
				ID:            s.genID.Generate().Int64(),
				Period:        p.String(),
				ClientID:      clientID,
				OrderID:       orderID,
				ChargeDate:    p.ChargeDate(),
				PaymentTypeID: order.PaymentTypeID,
				VendorID:      line.VendorID,
				ServiceID:     line.ServiceID,
				ServiceCount:  line.Count,
				ChargedUnits:  line.Amount,
			})
		}
	}
	return charges
}

// buildInvoices creates one pending invoice per invoicing strategy that
// accepted usage. Orders already holding an issued invoice keep it.
func (s *Service) buildInvoices(
	ctx context.Context,
	tx *gorm.DB,
	log *zap.Logger,
	clientID int64,
	p period.Period,
	strategies []charge.Strategy,
) ([]ratingdomain.Invoice, error) {
	issued, err := s.invoiceStore.WithTrx(tx).Find(ctx, &ratingdomain.Invoice{
		Period:   p.String(),
		ClientID: clientID,
		Status:   ratingdomain.InvoiceStatusIssued,
	})
	if err != nil {
		return nil, err
	}
	issuedOrders := make(map[int64]struct{}, len(issued))
	for _, inv := range issued {
		issuedOrders[inv.OrderID] = struct{}{}
	}

	var invoices []ratingdomain.Invoice
	for _, st := range strategies {
		inv, ok := st.(*charge.InvoiceStrategy)
		if !ok || inv.Transactions() == 0 {
			continue
		}
		order := inv.Order()
		if _, ok := issuedOrders[order.OrderID]; ok {
			log.Warn("order already invoiced for period", zap.Int64("order_id", order.OrderID))
			continue
		}
		invoices = append(invoices, ratingdomain.Invoice{
			ID:           s.genID.Generate().Int64(),
			Period:       p.String(),
			ClientID:     clientID,
			OrderID:      order.OrderID,
			InvoiceDate:  p.ChargeDate(),
			Currency:     order.Currency,
			ChargedUnits: inv.TotalCharged(),
			Status:       ratingdomain.InvoiceStatusPending,
		})
	}
	return invoices, nil
}

func (s *Service) finish(
	ctx context.Context,
	span trace.Span,
	log *zap.Logger,
	result *ratingdomain.RunResult,
	started time.Time,
	err error,
) (*ratingdomain.RunResult, error) {
	elapsed := s.clock.Now().Sub(started)
	outcome := ratingdomain.Outcome(err)
	s.metrics.RecordRun(ctx, outcome, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		if outcome == "rejected" {
			log.Warn("rating rejected", zap.String("state", string(result.State)), zap.Error(err))
		} else {
			log.Error("rating failed", zap.String("state", string(result.State)), zap.Error(err))
		}
		return result, err
	}

	processed := make(map[string]int)
	for _, st := range result.Strategies {
		processed[st.PaymentType] += st.Transactions
	}
	for pt, n := range processed {
		s.metrics.RecordTransactions(ctx, pt, n, 0)
	}
	if len(result.Skipped) > 0 {
		s.metrics.RecordTransactions(ctx, "none", 0, len(result.Skipped))
	}
	s.metrics.RecordRowsWritten(ctx, "order_charges", result.ChargesWritten)
	s.metrics.RecordRowsWritten(ctx, "invoices", result.InvoicesWritten)
	s.metrics.RecordRowsWritten(ctx, "prepaid_package_charges", result.PackageChargesWritten)

	span.SetAttributes(
		attribute.Int("processed", result.Processed),
		attribute.Int("skipped", len(result.Skipped)),
	)
	log.Info("rating completed",
		zap.Int("processed", result.Processed),
		zap.Int("skipped", len(result.Skipped)),
		zap.Bool("fully_classified", result.FullyClassified),
		zap.String("total", result.Total().String()),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}
