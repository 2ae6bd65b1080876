package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"truowners/internal/models"
	"truowners/internal/repository"
)

// Заглушки репозиториев в памяти.

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[int64]*models.User
	tokens map[string]int64
	nextID int64
	// owners получает профили из CreateOwnerUser
	owners *fakeOwners
	// ownerErr откатывает CreateOwnerUser целиком один раз
	ownerErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]*models.User{}, tokens: map[string]int64{}, owners: newFakeOwners()}
}

func (f *fakeUsers) CreateOwnerUser(ctx context.Context, u *models.User, o *models.Owner) error {
	f.mu.Lock()
	if err := f.ownerErr; err != nil {
		f.ownerErr = nil
		f.mu.Unlock()
		return err
	}
	f.mu.Unlock()
	if err := f.CreateUser(ctx, u); err != nil {
		return err
	}
	o.UserID = &u.ID
	return f.owners.CreateOwner(ctx, o)
}

func (f *fakeUsers) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.byID {
		if strings.EqualFold(e.Email, u.Email) {
			return repository.ErrConflict
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) IsEmailTaken(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdateCredentials(_ context.Context, id int64, passwordHash, accessKeyHash, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash, u.AccessKeyHash, u.Role = passwordHash, accessKeyHash, role
	return nil
}

func (f *fakeUsers) SaveRefreshToken(_ context.Context, userID int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = userID
	return nil
}

func (f *fakeUsers) IsRefreshTokenValid(_ context.Context, userID int64, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tokens[token]
	return ok && id == userID, nil
}

func (f *fakeUsers) DeleteRefreshToken(_ context.Context, _ int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
	return nil
}

func (f *fakeUsers) ListUsers(_ context.Context, role string, _, _ int) ([]models.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.User{}
	for _, u := range f.byID {
		if role == "" || u.Role == role {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakeUsers) GetSystemStats(_ context.Context) (*models.SystemStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &models.SystemStats{PropertiesByStatus: map[string]int{}}
	for _, u := range f.byID {
		s.TotalUsers++
		switch u.Role {
		case models.RoleAdmin:
			s.Admins++
		case models.RoleOwner:
			s.Owners++
		default:
			s.RegularUsers++
		}
	}
	return s, nil
}

type fakeOwners struct {
	mu     sync.Mutex
	byID   map[int64]*models.Owner
	nextID int64
}

func newFakeOwners() *fakeOwners { return &fakeOwners{byID: map[int64]*models.Owner{}} }

func (f *fakeOwners) CreateOwner(_ context.Context, o *models.Owner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o.ID = f.nextID
	cp := *o
	f.byID[o.ID] = &cp
	return nil
}

func (f *fakeOwners) GetOwnerByID(_ context.Context, id int64) (*models.Owner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOwners) GetOwnerByUserID(_ context.Context, userID int64) (*models.Owner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if o.UserID != nil && *o.UserID == userID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeOwners) GetOwnerByEmail(_ context.Context, email string) (*models.Owner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if strings.EqualFold(o.Email, email) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeOwners) UpdateOwner(_ context.Context, o *models.Owner) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[o.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *o
	f.byID[o.ID] = &cp
	return nil
}

func (f *fakeOwners) SetVerified(_ context.Context, id int64, verified bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Verified = verified
	return nil
}

func (f *fakeOwners) FillElectricityBill(_ context.Context, id int64, number, imageURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !isFilled(o.ElectricityBill) && number != "" {
		o.ElectricityBill = number
	}
	if !isFilled(o.ElectricityBillImageURL) && imageURL != "" {
		o.ElectricityBillImageURL = imageURL
	}
	return nil
}

type fakeProperties struct {
	mu         sync.Mutex
	byID       map[int64]*models.Property
	owners     *fakeOwners
	nextID     int64
	lastFilter models.CatalogFilter
	lastAdmin  models.AdminPropertyFilter
}

func newFakeProperties(owners *fakeOwners) *fakeProperties {
	return &fakeProperties{byID: map[int64]*models.Property{}, owners: owners}
}

func (f *fakeProperties) CreateProperty(_ context.Context, p *models.Property) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	p.CreatedAt = time.Now()
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeProperties) GetPropertyByID(_ context.Context, id int64) (*models.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProperties) UpdateProperty(_ context.Context, p *models.Property) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeProperties) SetStatus(_ context.Context, id int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	return nil
}

func (f *fakeProperties) DeleteOwnedProperty(_ context.Context, id, ownerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok || p.OwnerID == nil || *p.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeProperties) ListByOwner(_ context.Context, ownerID int64) ([]models.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Property{}
	for _, p := range f.byID {
		if p.OwnerID != nil && *p.OwnerID == ownerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProperties) public(p *models.Property) models.PublicProperty {
	pub := models.PublicProperty{
		ID:          p.ID,
		Title:       p.Title,
		Location:    p.Location,
		ListingType: p.ListingType,
		Rent:        p.Rent,
		Price:       p.Price,
	}
	if p.OwnerID != nil && f.owners != nil {
		if o, ok := f.owners.byID[*p.OwnerID]; ok {
			pub.OwnerVerified = o.Verified
		}
	}
	return pub
}

func (f *fakeProperties) ListPublished(_ context.Context, flt models.CatalogFilter) ([]models.PublicProperty, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = flt
	out := []models.PublicProperty{}
	for _, p := range f.byID {
		if p.Status != models.PropertyPublished {
			continue
		}
		if flt.City != "" && p.Location.City != flt.City {
			continue
		}
		if flt.ListingType != "" && p.ListingType != flt.ListingType {
			continue
		}
		out = append(out, f.public(p))
	}
	return out, len(out), nil
}

func (f *fakeProperties) GetPublished(_ context.Context, id int64) (*models.PublicProperty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok || p.Status != models.PropertyPublished {
		return nil, repository.ErrNotFound
	}
	pub := f.public(p)
	return &pub, nil
}

func (f *fakeProperties) ListAdmin(_ context.Context, flt models.AdminPropertyFilter) ([]models.Property, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAdmin = flt
	out := []models.Property{}
	for _, p := range f.byID {
		if flt.Status == "" || p.Status == flt.Status {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (f *fakeProperties) CountByStatus(_ context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int{}
	for _, p := range f.byID {
		out[p.Status]++
	}
	return out, nil
}

type fakeBookings struct {
	mu     sync.Mutex
	byID   map[int64]*models.Booking
	nextID int64
}

func newFakeBookings() *fakeBookings { return &fakeBookings{byID: map[int64]*models.Booking{}} }

func (f *fakeBookings) CreateBooking(_ context.Context, b *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b.ID = f.nextID
	cp := *b
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeBookings) GetBookingByID(_ context.Context, id int64) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) HasOpenBooking(_ context.Context, userID, propertyID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.byID {
		if b.UserID == userID && b.PropertyID == propertyID &&
			(b.Status == models.BookingPending || b.Status == models.BookingApproved) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookings) ListByUser(_ context.Context, userID int64) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Booking{}
	for _, b := range f.byID {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookings) ListBookings(_ context.Context, status string, _, _ int) ([]models.Booking, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Booking{}
	for _, b := range f.byID {
		if status == "" || b.Status == status {
			out = append(out, *b)
		}
	}
	return out, len(out), nil
}

func (f *fakeBookings) Breakdown(_ context.Context) (*models.BookingBreakdown, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bd := &models.BookingBreakdown{}
	for _, b := range f.byID {
		bd.Total++
		switch b.Status {
		case models.BookingPending:
			bd.Pending++
		case models.BookingApproved:
			bd.Approved++
		case models.BookingRejected:
			bd.Rejected++
		case models.BookingCompleted:
			bd.Completed++
		}
	}
	return bd, nil
}

func (f *fakeBookings) SetBookingStatus(_ context.Context, id int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.Status = status
	return nil
}

func (f *fakeBookings) DeletePendingBooking(_ context.Context, id, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok || b.UserID != userID || b.Status != models.BookingPending {
		return repository.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakePlans struct {
	mu        sync.Mutex
	byID      map[int64]*models.SubscriptionPlan
	nextID    int64
	listCalls int
}

func newFakePlans() *fakePlans { return &fakePlans{byID: map[int64]*models.SubscriptionPlan{}} }

func (f *fakePlans) UpsertPlan(_ context.Context, p *models.SubscriptionPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, e := range f.byID {
		if e.Name == p.Name {
			p.ID = id
			cp := *p
			f.byID[id] = &cp
			return nil
		}
	}
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakePlans) ListActivePlans(_ context.Context) ([]models.SubscriptionPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := []models.SubscriptionPlan{}
	for _, p := range f.byID {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}

func (f *fakePlans) GetPlanByID(_ context.Context, id int64) (*models.SubscriptionPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlans) plan(id int64) *models.SubscriptionPlan {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.byID[id]; ok {
		cp := *p
		return &cp
	}
	return nil
}

type fakeSubs struct {
	mu     sync.Mutex
	byID   map[int64]*models.UserSubscription
	plans  *fakePlans
	nextID int64
}

func newFakeSubs(plans *fakePlans) *fakeSubs {
	return &fakeSubs{byID: map[int64]*models.UserSubscription{}, plans: plans}
}

func (f *fakeSubs) withPlan(s *models.UserSubscription) *models.UserSubscription {
	cp := *s
	cp.Plan = f.plans.plan(s.PlanID)
	return &cp
}

func (f *fakeSubs) insert(s *models.UserSubscription) *models.UserSubscription {
	f.nextID++
	s.ID = f.nextID
	cp := *s
	f.byID[s.ID] = &cp
	return &cp
}

// addActive создаёт активную подписку напрямую, минуя оплату.
func (f *fakeSubs) addActive(userID, planID int64, start time.Time, days int) *models.UserSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	end := start.AddDate(0, 0, days)
	return f.insert(&models.UserSubscription{
		UserID: userID, PlanID: planID, StartDate: &start, EndDate: &end, Status: models.SubscriptionActive,
	})
}

func (f *fakeSubs) get(id int64) *models.UserSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byID[id]; ok {
		cp := *s
		return &cp
	}
	return nil
}

func (f *fakeSubs) GetActiveSubscription(_ context.Context, userID int64) (*models.UserSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *models.UserSubscription
	for _, s := range f.byID {
		if s.UserID == userID && s.Status == models.SubscriptionActive && (found == nil || s.ID > found.ID) {
			found = s
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return f.withPlan(found), nil
}

func (f *fakeSubs) GetSubscriptionByID(_ context.Context, id int64) (*models.UserSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return f.withPlan(s), nil
}

func (f *fakeSubs) ListByUser(_ context.Context, userID int64) ([]models.UserSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.UserSubscription{}
	for _, s := range f.byID {
		if s.UserID == userID {
			out = append(out, *f.withPlan(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeSubs) MarkExpired(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byID[id]; ok && s.Status == models.SubscriptionActive {
		s.Status = models.SubscriptionExpired
	}
	return nil
}

func (f *fakeSubs) CancelActive(_ context.Context, userID int64, now time.Time) (*models.UserSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byID {
		if s.UserID == userID && s.Status == models.SubscriptionActive {
			s.Status = models.SubscriptionCancelled
			s.EndDate = &now
			return f.withPlan(s), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSubs) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.byID {
		if s.Status == models.SubscriptionActive && s.EndDate != nil && !now.Before(*s.EndDate) {
			s.Status = models.SubscriptionExpired
			n++
		}
	}
	return n, nil
}

func (f *fakeSubs) cancelOthers(userID, keep int64, now time.Time) {
	for _, s := range f.byID {
		if s.UserID == userID && s.ID != keep && s.Status == models.SubscriptionActive {
			s.Status = models.SubscriptionCancelled
			s.EndDate = &now
		}
	}
}

func (f *fakeSubs) GrantActive(_ context.Context, userID int64, plan *models.SubscriptionPlan, now time.Time) (*models.UserSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelOthers(userID, 0, now)
	end := now.AddDate(0, 0, plan.ValidityDays)
	return f.insert(&models.UserSubscription{
		UserID: userID, PlanID: plan.ID, StartDate: &now, EndDate: &end, Status: models.SubscriptionActive,
	}), nil
}

func (f *fakeSubs) ListUsersWithSubscriptions(_ context.Context, _, _ int) ([]models.UserWithSubscription, int, error) {
	return []models.UserWithSubscription{}, 0, nil
}

type fakePayments struct {
	mu     sync.Mutex
	byTxn  map[string]*models.Payment
	subs   *fakeSubs
	nextID int64
	settle int
	// settleErr возвращается из Settle один раз, платёж остаётся pending
	settleErr error
}

func newFakePayments(subs *fakeSubs) *fakePayments {
	return &fakePayments{byTxn: map[string]*models.Payment{}, subs: subs}
}

func (f *fakePayments) CreateCheckout(_ context.Context, p *models.Payment, s *models.UserSubscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byTxn[p.MerchantTransactionID]; ok {
		return repository.ErrConflict
	}
	f.subs.mu.Lock()
	s.Status = models.SubscriptionPending
	stored := f.subs.insert(s)
	f.subs.mu.Unlock()

	f.nextID++
	p.ID = f.nextID
	p.Status = models.PaymentPending
	p.SubscriptionID = &stored.ID
	p.CreatedAt = time.Now()

	f.subs.mu.Lock()
	f.subs.byID[stored.ID].PaymentID = &p.ID
	f.subs.mu.Unlock()
	s.PaymentID = &p.ID

	cp := *p
	f.byTxn[p.MerchantTransactionID] = &cp
	return nil
}

func (f *fakePayments) GetByMerchantTransactionID(_ context.Context, txn string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byTxn[txn]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) SaveCallbackData(_ context.Context, txn string, raw json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.byTxn[txn]; ok && p.Status == models.PaymentPending {
		p.CallbackData = raw
	}
	return nil
}

func (f *fakePayments) Settle(_ context.Context, txn string, out models.PaymentOutcome, now time.Time) (*models.Payment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byTxn[txn]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	if p.Status != models.PaymentPending {
		cp := *p
		return &cp, false, nil
	}
	if err := f.settleErr; err != nil {
		f.settleErr = nil
		return nil, false, err
	}
	f.settle++
	p.Status = out.Status
	if len(out.Raw) > 0 {
		p.CallbackData = out.Raw
	}
	p.ResponseCode = out.ResponseCode
	p.ResponseMessage = out.ResponseMessage
	if out.GatewayTransactionID != "" {
		p.GatewayTransactionID = out.GatewayTransactionID
	}
	if out.PaymentMethod != "" {
		p.PaymentMethod = out.PaymentMethod
	}

	if p.SubscriptionID != nil {
		f.subs.mu.Lock()
		sub := f.subs.byID[*p.SubscriptionID]
		if sub != nil && sub.Status == models.SubscriptionPending {
			switch out.Status {
			case models.PaymentSuccess:
				f.subs.cancelOthers(p.UserID, sub.ID, now)
				days := 0
				if plan := f.subs.plans.byID[sub.PlanID]; plan != nil {
					days = plan.ValidityDays
				}
				end := now.AddDate(0, 0, days)
				start := now
				sub.Status = models.SubscriptionActive
				sub.StartDate = &start
				sub.EndDate = &end
				sub.ContactsViewed = 0
			case models.PaymentFailed, models.PaymentCancelled:
				sub.Status = models.SubscriptionCancelled
			}
		}
		f.subs.mu.Unlock()
	}
	cp := *p
	return &cp, true, nil
}

func (f *fakePayments) ListByUser(_ context.Context, userID int64) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Payment{}
	for _, p := range f.byTxn {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakePayments) ListPayments(_ context.Context, status string, _, _ int) ([]models.Payment, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Payment{}
	for _, p := range f.byTxn {
		if status == "" || p.Status == status {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (f *fakePayments) ListPendingBefore(_ context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Payment{}
	for _, p := range f.byTxn {
		if p.Status == models.PaymentPending && p.CreatedAt.Before(cutoff) && len(out) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeViews struct {
	mu     sync.Mutex
	views  []models.PropertyView
	subs   *fakeSubs
	nextID int64
}

func newFakeViews(subs *fakeSubs) *fakeViews { return &fakeViews{subs: subs} }

func (f *fakeViews) RecordView(_ context.Context, userID, propertyID, subscriptionID int64, limit int) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs.mu.Lock()
	defer f.subs.mu.Unlock()

	sub, ok := f.subs.byID[subscriptionID]
	if !ok || sub.UserID != userID {
		return 0, false, repository.ErrNotFound
	}
	if sub.Status != models.SubscriptionActive {
		return sub.ContactsViewed, false, repository.ErrSubscriptionClosed
	}
	for _, v := range f.views {
		if v.UserID == userID && v.PropertyID == propertyID && v.SubscriptionID == subscriptionID {
			return sub.ContactsViewed, true, nil
		}
	}
	if sub.ContactsViewed >= limit {
		return sub.ContactsViewed, false, repository.ErrQuotaExhausted
	}
	f.nextID++
	f.views = append(f.views, models.PropertyView{
		ID: f.nextID, UserID: userID, PropertyID: propertyID, SubscriptionID: subscriptionID, ViewedAt: time.Now(),
	})
	sub.ContactsViewed++
	return sub.ContactsViewed, false, nil
}

func (f *fakeViews) ListBySubscription(_ context.Context, subscriptionID int64) ([]models.PropertyView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.PropertyView{}
	for i := len(f.views) - 1; i >= 0; i-- {
		if f.views[i].SubscriptionID == subscriptionID {
			out = append(out, f.views[i])
		}
	}
	return out, nil
}

func (f *fakeViews) ListByUser(_ context.Context, userID int64) ([]models.PropertyView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.PropertyView{}
	for i := len(f.views) - 1; i >= 0; i-- {
		if f.views[i].UserID == userID {
			out = append(out, f.views[i])
		}
	}
	return out, nil
}

type fakeGateway struct {
	mu          sync.Mutex
	payResp     *PayResponse
	payErr      error
	states      map[string]*OrderStatus
	statusErr   error
	payCalls    []PayRequest
	statusCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		payResp: &PayResponse{OrderID: "OMO123", State: OrderStatePending, RedirectURL: "https://pay.example/checkout"},
		states:  map[string]*OrderStatus{},
	}
}

func (g *fakeGateway) Pay(_ context.Context, req PayRequest) (*PayResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payCalls = append(g.payCalls, req)
	if g.payErr != nil {
		return nil, g.payErr
	}
	cp := *g.payResp
	return &cp, nil
}

func (g *fakeGateway) OrderStatus(_ context.Context, id string) (*OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	if st, ok := g.states[id]; ok {
		return st, nil
	}
	return &OrderStatus{OrderID: id, State: OrderStatePending}, nil
}

func (g *fakeGateway) setState(id, state string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.states[id] = &OrderStatus{
		OrderID: "OMO-" + id,
		State:   state,
		PaymentDetails: []PaymentAttempt{
			{TransactionID: "TX-" + id, PaymentMode: "UPI_QR", State: state},
		},
		Raw: json.RawMessage(`{"orderId":"OMO-` + id + `","state":"` + state + `"}`),
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePublisher) Publish(_ context.Context, eventType string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == eventType {
			n++
		}
	}
	return n
}

type fakeBlocklist struct {
	blocked map[string]time.Duration
}

func (b *fakeBlocklist) Block(_ context.Context, token string, ttl time.Duration) error {
	if b.blocked == nil {
		b.blocked = map[string]time.Duration{}
	}
	b.blocked[token] = ttl
	return nil
}

func (b *fakeBlocklist) IsBlocked(_ context.Context, token string) (bool, error) {
	_, ok := b.blocked[token]
	return ok, nil
}

type fakePlanCache struct {
	plans         []models.SubscriptionPlan
	cached        bool
	invalidations int
}

func (c *fakePlanCache) Get(context.Context) ([]models.SubscriptionPlan, bool) {
	return c.plans, c.cached
}

func (c *fakePlanCache) Set(_ context.Context, plans []models.SubscriptionPlan) error {
	c.plans, c.cached = plans, true
	return nil
}

func (c *fakePlanCache) Invalidate(context.Context) error {
	c.plans, c.cached = nil, false
	c.invalidations++
	return nil
}

type fakeValidator struct {
	err error
}

func (v fakeValidator) Validate(string, []byte) error { return v.err }

// fixedClock — часы для тестов.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
