package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"fabworks/internal/model"
	"fabworks/internal/notify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory repository fakes. They honor the same contracts the GORM
// implementations do (not-found errors, conditional updates reporting
// whether a row matched) so the lifecycle guards can be exercised
// without a database.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- quotation repo ---

type fakeQuotationRepo struct {
	mu         sync.Mutex
	quotations map[uuid.UUID]*model.Quotation
	inquiries  *fakeInquiryRepo
	seq        int
}

// newFakeQuotationRepo mirrors the GORM repo's Preload("Inquiry") by
// attaching the inquiry on every lookup.
func newFakeQuotationRepo(inquiries *fakeInquiryRepo) *fakeQuotationRepo {
	return &fakeQuotationRepo{quotations: make(map[uuid.UUID]*model.Quotation), inquiries: inquiries}
}

func (r *fakeQuotationRepo) preload(q *model.Quotation) *model.Quotation {
	if q.Inquiry == nil && r.inquiries != nil {
		q.Inquiry = r.inquiries.get(q.InquiryID)
	}
	return q
}

func (r *fakeQuotationRepo) Create(_ context.Context, q *model.Quotation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.quotations {
		if existing.InquiryID == q.InquiryID {
			return gorm.ErrDuplicatedKey
		}
	}
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	r.quotations[q.ID] = q
	return nil
}

func (r *fakeQuotationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Quotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.preload(q), nil
}

func (r *fakeQuotationRepo) FindByInquiryID(_ context.Context, inquiryID uuid.UUID) (*model.Quotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.quotations {
		if q.InquiryID == inquiryID {
			return r.preload(q), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeQuotationRepo) Save(_ context.Context, q *model.Quotation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotations[q.ID] = q
	return nil
}

func (r *fakeQuotationRepo) ReplaceItems(_ context.Context, quotationID uuid.UUID, items []model.QuotationItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.quotations[quotationID]; ok {
		q.Items = items
	}
	return nil
}

func (r *fakeQuotationRepo) UpdateStatusIf(_ context.Context, id uuid.UUID, fromStatuses []string, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.quotations[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, status := range fromStatuses {
		if q.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	for column, value := range updates {
		switch column {
		case "status":
			q.Status = value.(string)
		case "sent_at":
			t := value.(time.Time)
			q.SentAt = &t
		case "accepted_at":
			t := value.(time.Time)
			q.AcceptedAt = &t
		case "rejected_at":
			t := value.(time.Time)
			q.RejectedAt = &t
		case "order_created_at":
			t := value.(time.Time)
			q.OrderCreatedAt = &t
		case "rejection_notes":
			q.RejectionNotes = value.(string)
		}
	}
	return true, nil
}

func (r *fakeQuotationRepo) NextQuotationNo(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return time.Now().Format("QT060102") + padSeq(r.seq), nil
}

func (r *fakeQuotationRepo) List(_ context.Context, statuses []string, page, limit int) ([]model.Quotation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Quotation
	for _, q := range r.quotations {
		if len(statuses) > 0 && !containsStatus(statuses, q.Status) {
			continue
		}
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuotationNo < out[j].QuotationNo })
	return out, int64(len(out)), nil
}

// --- order repo ---

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*model.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*model.Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.QuotationID == o.QuotationID {
			return gorm.ErrDuplicatedKey
		}
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) FindByQuotationID(_ context.Context, quotationID uuid.UUID) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.QuotationID == quotationID {
			return o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrderRepo) Save(_ context.Context, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) UpdateStatusIf(_ context.Context, id uuid.UUID, fromStatuses []string, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, status := range fromStatuses {
		if o.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	if status, ok := updates["status"]; ok {
		o.Status = status.(string)
	}
	return true, nil
}

func (r *fakeOrderRepo) List(_ context.Context, statuses []string, customerID *uuid.UUID, page, limit int) ([]model.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Order
	for _, o := range r.orders {
		if len(statuses) > 0 && !containsStatus(statuses, o.Status) {
			continue
		}
		if customerID != nil && o.CustomerID != *customerID {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNo < out[j].OrderNo })
	return out, int64(len(out)), nil
}

// --- inquiry repo ---

type fakeInquiryRepo struct {
	mu        sync.Mutex
	inquiries map[uuid.UUID]*model.Inquiry
}

func newFakeInquiryRepo() *fakeInquiryRepo {
	return &fakeInquiryRepo{inquiries: make(map[uuid.UUID]*model.Inquiry)}
}

func (r *fakeInquiryRepo) Create(_ context.Context, inquiry *model.Inquiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inquiry.ID == uuid.Nil {
		inquiry.ID = uuid.New()
	}
	r.inquiries[inquiry.ID] = inquiry
	return nil
}

func (r *fakeInquiryRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Inquiry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inquiry, ok := r.inquiries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return inquiry, nil
}

func (r *fakeInquiryRepo) get(id uuid.UUID) *model.Inquiry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inquiries[id]
}

func (r *fakeInquiryRepo) Save(_ context.Context, inquiry *model.Inquiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inquiries[inquiry.ID] = inquiry
	return nil
}

func (r *fakeInquiryRepo) DeleteByID(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inquiries, id)
	return nil
}

func (r *fakeInquiryRepo) List(_ context.Context, statuses []string, customerID *uuid.UUID, page, limit int) ([]model.Inquiry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Inquiry
	for _, inquiry := range r.inquiries {
		if len(statuses) > 0 && !containsStatus(statuses, inquiry.Status) {
			continue
		}
		if customerID != nil && inquiry.CustomerID != *customerID {
			continue
		}
		out = append(out, *inquiry)
	}
	return out, int64(len(out)), nil
}

// --- audit repo ---

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, action string, page, limit int) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AuditLog
	for _, entry := range r.entries {
		if action != "" && entry.Action != action {
			continue
		}
		out = append(out, entry)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.Action)
	}
	return out
}

// --- notification repo ---

type fakeNotificationRepo struct {
	mu   sync.Mutex
	rows []model.Notification
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.rows = append(r.rows, *n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for _, row := range r.rows {
		if row.UserID != userID {
			continue
		}
		if unreadOnly && row.Read {
			continue
		}
		out = append(out, row)
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id && r.rows[i].UserID == userID {
			r.rows[i].Read = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, row := range r.rows {
		if row.UserID == userID && !row.Read {
			n++
		}
	}
	return n, nil
}

// --- user repo ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	u, ok := r.users[uid]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) ListByRoles(_ context.Context, roles []string) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		for _, role := range roles {
			if u.Role == role {
				out = append(out, *u)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeUserRepo) List(_ context.Context, page, limit int) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	uid, err := uuid.Parse(id)
	if err != nil {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, uid)
	return nil
}

func (r *fakeUserRepo) CreateRefreshToken(_ context.Context, _ *model.RefreshToken) error { return nil }
func (r *fakeUserRepo) GetRefreshToken(_ context.Context, _ string) (*model.RefreshToken, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeUserRepo) DeleteRefreshToken(_ context.Context, _ string) error         { return nil }
func (r *fakeUserRepo) DeleteRefreshTokensForUser(_ context.Context, _ string) error { return nil }

// --- notifier double ---

type sentNotification struct {
	Channel  string
	Template string
}

// recordingNotifier captures outbound deliveries instead of sending.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, channel, template string, _ notify.Recipient, _ notify.Payload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{Channel: channel, Template: template})
}

func (n *recordingNotifier) templates(channel string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		if s.Channel == channel {
			out = append(out, s.Template)
		}
	}
	return out
}

func newTestEvents(users ...*model.User) (*WorkflowNotifier, *recordingNotifier, *fakeNotificationRepo) {
	delivered := &recordingNotifier{}
	inbox := &fakeNotificationRepo{}
	return NewWorkflowNotifier(delivered, inbox, newFakeUserRepo(users...)), delivered, inbox
}

// --- fixtures ---

var testTime = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testTime }

func newTestCustomer() *model.User {
	return &model.User{
		ID:       uuid.New(),
		Username: "acme-parts",
		Email:    "buyer@acme.test",
		Phone:    "+15550100",
		Role:     model.RoleCustomer,
	}
}

func newTestInquiry(customer *model.User) *model.Inquiry {
	return &model.Inquiry{
		ID:         uuid.New(),
		CustomerID: customer.ID,
		Customer:   customer,
		Status:     model.InquiryStatusPending,
		Items: []model.InquiryItem{
			{Material: "SS304", ThicknessMM: 2.0, Quantity: 50},
		},
		Address: model.DeliveryAddress{Line1: "12 Mill Rd", City: "Pune", Country: "IN"},
	}
}

func newTestQuotation(inquiry *model.Inquiry, status string) *model.Quotation {
	unit := decimal.NewFromFloat(12.50)
	qty := 50
	total := unit.Mul(decimal.NewFromInt(int64(qty)))
	q := &model.Quotation{
		ID:          uuid.New(),
		QuotationNo: "QT260314001",
		InquiryID:   inquiry.ID,
		Inquiry:     inquiry,
		Items: []model.QuotationItem{
			{Material: "SS304", ThicknessMM: 2.0, Quantity: qty, UnitPrice: unit, TotalPrice: total},
		},
		TotalAmount: total,
		Currency:    "USD",
		ValidUntil:  testTime.AddDate(0, 0, model.QuotationValidityDays),
		Status:      status,
	}
	if status != model.QuotationStatusDraft {
		sent := testTime.Add(-time.Hour)
		q.SentAt = &sent
	}
	return q
}

func newTestOrder(quotation *model.Quotation, customer *model.User, status string) *model.Order {
	return &model.Order{
		ID:          uuid.New(),
		OrderNo:     "ORD1773748800000",
		QuotationID: quotation.ID,
		InquiryID:   quotation.InquiryID,
		CustomerID:  customer.ID,
		Customer:    customer,
		Items: []model.OrderItem{
			{Material: "SS304", ThicknessMM: 2.0, Quantity: 50,
				UnitPrice: decimal.NewFromFloat(12.50), TotalPrice: decimal.NewFromFloat(625)},
		},
		TotalAmount: decimal.NewFromFloat(625),
		Currency:    "USD",
		Status:      status,
		Payment: model.PaymentDetail{
			Method: model.PaymentMethodPending,
			Status: model.PaymentStatusPending,
			Amount: decimal.NewFromFloat(625),
		},
	}
}

func mustParseUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("parse uuid %q: %v", s, err)
	}
	return id
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func padSeq(n int) string {
	digits := []byte{'0', '0', '0'}
	for i := 2; i >= 0 && n > 0; i-- {
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits)
}
