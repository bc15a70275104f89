package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"textile-erp/internal/events"
	"textile-erp/internal/lock"
	"textile-erp/internal/model"
	"textile-erp/internal/pipeline"
	"textile-erp/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- Transaction manager ---

// snapshotter is a fake store that can be rolled back
type snapshotter interface {
	snapshot() (restore func())
}

type fakeTxKey struct{}

// fakeTx serialises transactions and restores every registered store when fn fails
type fakeTx struct {
	mu        sync.Mutex
	stores    []snapshotter
	commits   int
	rollbacks int
}

func (f *fakeTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	restores := make([]func(), 0, len(f.stores))
	for _, s := range f.stores {
		restores = append(restores, s.snapshot())
	}
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		for _, restore := range restores {
			restore()
		}
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

// --- Generic CRUD store ---

type record[T any] interface {
	*T
	BeforeCreate(*gorm.DB) error
	GetID() uuid.UUID
}

// fakeRepo keeps copies of T in insertion order. keys returns the unique values of a row,
// the first being its human readable number.
type fakeRepo[T any, PT record[T]] struct {
	mu     sync.Mutex
	rows   map[uuid.UUID]T
	order  []uuid.UUID
	keys   func(*T) []string
	status func(*T) string
	refs   func(uuid.UUID) repository.References
	fail   map[string]error
}

func newFakeRepo[T any, PT record[T]](keys func(*T) []string) *fakeRepo[T, PT] {
	return &fakeRepo[T, PT]{rows: map[uuid.UUID]T{}, keys: keys, fail: map[string]error{}}
}

func (r *fakeRepo[T, PT]) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make(map[uuid.UUID]T, len(r.rows))
	for k, v := range r.rows {
		rows[k] = v
	}
	order := append([]uuid.UUID(nil), r.order...)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows = rows
		r.order = order
	}
}

func (r *fakeRepo[T, PT]) duplicate(e *T, self uuid.UUID) bool {
	want := r.keys(e)
	for id, row := range r.rows {
		if id == self {
			continue
		}
		for _, k := range r.keys(&row) {
			for _, w := range want {
				if k != "" && k == w {
					return true
				}
			}
		}
	}
	return false
}

func (r *fakeRepo[T, PT]) Create(_ context.Context, e *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["Create"]; err != nil {
		return err
	}
	_ = PT(e).BeforeCreate(nil)
	id := PT(e).GetID()
	if _, ok := r.rows[id]; ok || r.duplicate(e, uuid.Nil) {
		return gorm.ErrDuplicatedKey
	}
	r.rows[id] = *e
	r.order = append(r.order, id)
	return nil
}

func (r *fakeRepo[T, PT]) Update(_ context.Context, e *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail["Update"]; err != nil {
		return err
	}
	id := PT(e).GetID()
	if _, ok := r.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	if r.duplicate(e, id) {
		return gorm.ErrDuplicatedKey
	}
	r.rows[id] = *e
	return nil
}

func (r *fakeRepo[T, PT]) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.rows, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeRepo[T, PT]) FindByID(_ context.Context, id uuid.UUID) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (r *fakeRepo[T, PT]) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*T, error) {
	return r.FindByID(ctx, id)
}

// List honours the status filter and pagination only
func (r *fakeRepo[T, PT]) List(_ context.Context, f repository.ListFilter) ([]T, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]T, 0, len(r.order))
	for _, id := range r.order {
		row := r.rows[id]
		if f.Status != "" && r.status != nil && r.status(&row) != f.Status {
			continue
		}
		all = append(all, row)
	}
	total := int64(len(all))
	if f.Limit > 0 {
		start := f.Offset()
		if start > len(all) {
			start = len(all)
		}
		end := start + f.Limit
		if end > len(all) {
			end = len(all)
		}
		all = all[start:end]
	}
	return all, total, nil
}

func (r *fakeRepo[T, PT]) ExistsByNumber(_ context.Context, number string, excludeID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, row := range r.rows {
		if id != excludeID && r.keys(&row)[0] == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo[T, PT]) NextNumber(_ context.Context, prefix string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if strings.HasPrefix(r.keys(&row)[0], prefix) {
			n++
		}
	}
	return prefix + leftPad(n+1), nil
}

func leftPad(n int) string {
	s := decimal.NewFromInt(int64(n)).String()
	for len(s) < 5 {
		s = "0" + s
	}
	return s
}

func (r *fakeRepo[T, PT]) Sum(context.Context, repository.ListFilter, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (r *fakeRepo[T, PT]) CountByStatus(context.Context, repository.ListFilter) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int64{}
	if r.status == nil {
		return counts, nil
	}
	for _, row := range r.rows {
		counts[r.status(&row)]++
	}
	return counts, nil
}

func (r *fakeRepo[T, PT]) CountReferences(_ context.Context, id uuid.UUID) (repository.References, error) {
	if r.refs == nil {
		return nil, nil
	}
	return r.refs(id), nil
}

func (r *fakeRepo[T, PT]) count(match func(*T) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, row := range r.rows {
		if match(&row) {
			n++
		}
	}
	return n
}

func (r *fakeRepo[T, PT]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// --- Entity specific stores ---

type fakeStitchingRepo struct {
	*fakeRepo[model.StitchingChallan, *model.StitchingChallan]
	failUpdateStatus error
}

func (r *fakeStitchingRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to pipeline.StitchingStatus, fields map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdateStatus != nil {
		return false, r.failUpdateStatus
	}
	row, ok := r.rows[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	if at, ok := fields["converted_at"].(time.Time); ok {
		row.ConvertedAt = &at
	}
	r.rows[id] = row
	return true, nil
}

type fakeInventoryRepo struct {
	*fakeRepo[model.InventoryItem, *model.InventoryItem]
}

func (r *fakeInventoryRepo) FindBySourceChallanID(_ context.Context, challanID uuid.UUID) (*model.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.SourceChallanID == challanID {
			return &row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeAuditRepo struct {
	mu   sync.Mutex
	rows []model.AuditLog
}

func (r *fakeAuditRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := append([]model.AuditLog(nil), r.rows...)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows = rows
	}
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.rows = append(r.rows, *entry)
	return nil
}

func (r *fakeAuditRepo) List(context.Context, repository.ListFilter) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AuditLog(nil), r.rows...), int64(len(r.rows)), nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row.Action)
	}
	return out
}

func (r *fakeAuditRepo) countAction(action string) int {
	n := 0
	for _, a := range r.actions() {
		if a == action {
			n++
		}
	}
	return n
}

type fakeConversionLogRepo struct {
	mu   sync.Mutex
	rows []model.ConversionLog
	fail error
}

func (r *fakeConversionLogRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := append([]model.ConversionLog(nil), r.rows...)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows = rows
	}
}

func (r *fakeConversionLogRepo) Create(_ context.Context, entry *model.ConversionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	for _, row := range r.rows {
		if row.ChallanID == entry.ChallanID {
			return gorm.ErrDuplicatedKey
		}
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.rows = append(r.rows, *entry)
	return nil
}

func (r *fakeConversionLogRepo) FindByChallanID(_ context.Context, challanID uuid.UUID) (*model.ConversionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ChallanID == challanID {
			return &row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeConversionLogRepo) List(context.Context, repository.ListFilter) ([]model.ConversionLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ConversionLog(nil), r.rows...), int64(len(r.rows)), nil
}

func (r *fakeConversionLogRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// --- Events ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) ofType(typ string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// --- Environment ---

type testEnv struct {
	tx        *fakeTx
	ledgers   *fakeRepo[model.Ledger, *model.Ledger]
	purchases *fakeRepo[model.Purchase, *model.Purchase]
	weavers   *fakeRepo[model.WeaverChallan, *model.WeaverChallan]
	shortings *fakeRepo[model.ShortingEntry, *model.ShortingEntry]
	stitching *fakeStitchingRepo
	inventory *fakeInventoryRepo
	expenses  *fakeRepo[model.Expense, *model.Expense]
	vouchers  *fakeRepo[model.PaymentVoucher, *model.PaymentVoucher]
	audit     *fakeAuditRepo
	convLogs  *fakeConversionLogRepo
	events    *recordingPublisher
	locker    lock.Locker
}

func newTestEnv() *testEnv {
	env := &testEnv{
		ledgers: newFakeRepo[model.Ledger](func(l *model.Ledger) []string {
			return []string{l.Name}
		}),
		purchases: newFakeRepo[model.Purchase](func(p *model.Purchase) []string {
			return []string{p.PurchaseNo}
		}),
		weavers: newFakeRepo[model.WeaverChallan](func(w *model.WeaverChallan) []string {
			return []string{w.ChallanNo}
		}),
		shortings: newFakeRepo[model.ShortingEntry](func(e *model.ShortingEntry) []string {
			return []string{e.EntryNo}
		}),
		stitching: &fakeStitchingRepo{fakeRepo: newFakeRepo[model.StitchingChallan](func(c *model.StitchingChallan) []string {
			return []string{c.ChallanNo}
		})},
		inventory: &fakeInventoryRepo{fakeRepo: newFakeRepo[model.InventoryItem](func(i *model.InventoryItem) []string {
			return []string{i.InventoryNo, "source:" + i.SourceChallanID.String()}
		})},
		expenses: newFakeRepo[model.Expense](func(e *model.Expense) []string {
			return []string{e.ExpenseNo}
		}),
		vouchers: newFakeRepo[model.PaymentVoucher](func(v *model.PaymentVoucher) []string {
			return []string{v.VoucherNo}
		}),
		audit:    &fakeAuditRepo{},
		convLogs: &fakeConversionLogRepo{},
		events:   &recordingPublisher{},
		locker:   lock.NewLocalLocker(2 * time.Second),
	}
	env.weavers.status = func(w *model.WeaverChallan) string { return string(w.Status) }
	env.stitching.status = func(c *model.StitchingChallan) string { return string(c.Status) }

	env.ledgers.refs = func(id uuid.UUID) repository.References {
		return nonZero(
			repository.Reference{Entity: "purchases", Count: env.purchases.count(func(p *model.Purchase) bool { return p.VendorLedgerID == id })},
			repository.Reference{Entity: "weaver challans", Count: env.weavers.count(func(w *model.WeaverChallan) bool { return w.WeaverLedgerID == id })},
			repository.Reference{Entity: "stitching challans", Count: env.stitching.count(func(c *model.StitchingChallan) bool { return c.LedgerID == id })},
			repository.Reference{Entity: "expenses", Count: env.expenses.count(func(e *model.Expense) bool { return e.LedgerID == id })},
			repository.Reference{Entity: "payment vouchers", Count: env.vouchers.count(func(v *model.PaymentVoucher) bool { return v.LedgerID == id })},
		)
	}
	env.purchases.refs = func(id uuid.UUID) repository.References {
		return nonZero(
			repository.Reference{Entity: "weaver challans", Count: env.weavers.count(func(w *model.WeaverChallan) bool { return sameID(w.PurchaseID, id) })},
			repository.Reference{Entity: "shorting entries", Count: env.shortings.count(func(e *model.ShortingEntry) bool { return sameID(e.PurchaseID, id) })},
		)
	}
	env.weavers.refs = func(id uuid.UUID) repository.References {
		return nonZero(repository.Reference{Entity: "shorting entries", Count: env.shortings.count(func(e *model.ShortingEntry) bool { return sameID(e.WeaverChallanID, id) })})
	}
	env.shortings.refs = func(id uuid.UUID) repository.References {
		return nonZero(repository.Reference{Entity: "stitching challans", Count: env.stitching.count(func(c *model.StitchingChallan) bool { return sameID(c.ShortingEntryID, id) })})
	}

	env.tx = &fakeTx{stores: []snapshotter{
		env.ledgers, env.purchases, env.weavers, env.shortings, env.stitching.fakeRepo,
		env.inventory.fakeRepo, env.expenses, env.vouchers, env.audit, env.convLogs,
	}}
	return env
}

func nonZero(refs ...repository.Reference) repository.References {
	var out repository.References
	for _, r := range refs {
		if r.Count > 0 {
			out = append(out, r)
		}
	}
	return out
}

func sameID(ref *uuid.UUID, id uuid.UUID) bool {
	return ref != nil && *ref == id
}

func (env *testEnv) ledgerService() LedgerService {
	return NewLedgerService(env.ledgers, env.audit, env.tx)
}

func (env *testEnv) purchaseService() PurchaseService {
	return NewPurchaseService(env.purchases, env.ledgers, env.audit, env.tx)
}

func (env *testEnv) weaverService() WeaverChallanService {
	return NewWeaverChallanService(env.weavers, env.purchases, env.ledgers, env.audit, env.tx, env.events)
}

func (env *testEnv) shortingService() ShortingEntryService {
	return NewShortingEntryService(env.shortings, env.weavers, env.purchases, env.audit, env.tx)
}

func (env *testEnv) stitchingService() StitchingChallanService {
	return NewStitchingChallanService(env.stitching, env.shortings, env.ledgers, env.audit, env.tx, env.events)
}

func (env *testEnv) conversionService() ConversionService {
	return NewConversionService(env.stitching, env.inventory, env.convLogs, env.audit, env.tx, env.locker, env.events)
}

func (env *testEnv) inventoryService() InventoryService {
	return NewInventoryService(env.inventory, env.audit, env.tx)
}

func (env *testEnv) expenseService() ExpenseService {
	return NewExpenseService(env.expenses, env.ledgers, env.weavers, env.stitching, env.audit, env.tx)
}

func (env *testEnv) voucherService() PaymentVoucherService {
	return NewPaymentVoucherService(env.vouchers, env.ledgers, env.weavers, env.stitching, env.audit, env.tx)
}

func (env *testEnv) analyticsService() AnalyticsService {
	return NewAnalyticsService(env.purchases, env.weavers, env.shortings, env.stitching, env.inventory, env.expenses, env.vouchers)
}

// --- Seeds ---

const testUser = "6f1c2a9e-4b7d-4a51-9d1e-0c3f5b7a9e21"

func (env *testEnv) seedLedger(t *testing.T, ledgerType string) *model.Ledger {
	t.Helper()
	l := &model.Ledger{Name: ledgerType + "-" + uuid.NewString()[:8], LedgerType: ledgerType, IsActive: true}
	if err := env.ledgers.Create(context.Background(), l); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
	return l
}

// seedStitching stores a challan directly in status with the given counts
func (env *testEnv) seedStitching(t *testing.T, status pipeline.StitchingStatus, received, good, bad, wastage int) *model.StitchingChallan {
	t.Helper()
	stitcher := env.seedLedger(t, model.LedgerTypeStitcher)
	c := &model.StitchingChallan{
		ChallanNo:              "SC-" + uuid.NewString()[:8],
		ChallanDate:            time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		LedgerID:               stitcher.ID,
		ProductName:            "Kurta",
		SKU:                    "KRT-M",
		QuantitySentPieces:     100,
		QuantityReceivedPieces: received,
		GoodPieces:             good,
		BadPieces:              bad,
		WastagePieces:          wastage,
		RatePerPiece:           decimal.NewFromInt(10),
		Status:                 status,
	}
	if err := env.stitching.Create(context.Background(), c); err != nil {
		t.Fatalf("seed stitching challan: %v", err)
	}
	return c
}

func ptr[T any](v T) *T {
	return &v
}
