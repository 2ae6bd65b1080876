package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"truowners/internal/events"
	"truowners/internal/models"
	"truowners/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminFixture struct {
	svc        *AdminService
	users      *fakeUsers
	owners     *fakeOwners
	properties *fakeProperties
	bookings   *fakeBookings
	plans      *fakePlans
	subs       *fakeSubs
	pub        *fakePublisher
}

func newAdminFixture() *adminFixture {
	f := &adminFixture{
		users:    newFakeUsers(),
		owners:   newFakeOwners(),
		bookings: newFakeBookings(),
		plans:    newFakePlans(),
		pub:      &fakePublisher{},
	}
	f.users.owners = f.owners
	f.properties = newFakeProperties(f.owners)
	f.subs = newFakeSubs(f.plans)
	payments := newFakePayments(f.subs)
	f.svc = NewAdminService(AdminDeps{
		Users:         f.users,
		Owners:        f.owners,
		Properties:    f.properties,
		Bookings:      f.bookings,
		Plans:         f.plans,
		Subscriptions: f.subs,
		Payments:      payments,
		Views:         newFakeViews(f.subs),
		Events:        f.pub,
	})
	return f
}

func completeOwner(verified bool) *models.Owner {
	return &models.Owner{
		Name:            "Ravi",
		Email:           "ravi@example.com",
		Phone:           "9000000001",
		IDProofType:     "aadhaar",
		IDProofNumber:   "1234-5678",
		IDProofImageURL: "https://img.example/id.png",
		Verified:        verified,
	}
}

func (f *adminFixture) addProperty(t *testing.T, owner *models.Owner, status string) *models.Property {
	t.Helper()
	p := &models.Property{Title: "Flat", ListingType: models.ListingRent, Status: status}
	if owner != nil {
		require.NoError(t, f.owners.CreateOwner(context.Background(), owner))
		p.OwnerID = &owner.ID
	}
	require.NoError(t, f.properties.CreateProperty(context.Background(), p))
	return p
}

func TestUpdatePropertyStatus_PublishGating(t *testing.T) {
	incomplete := func(verified bool) *models.Owner {
		o := completeOwner(verified)
		o.IDProofNumber = models.DetailPending
		return o
	}
	noPhone := func() *models.Owner {
		o := completeOwner(true)
		o.Phone = ""
		return o
	}

	cases := []struct {
		name    string
		owner   *models.Owner
		from    string
		to      string
		wantErr bool
	}{
		{"первая публикация с полными данными", completeOwner(false), models.PropertyApproved, models.PropertyPublished, false},
		{"первая публикация без документа", incomplete(true), models.PropertyApproved, models.PropertyPublished, true},
		{"pending без проверки владельца", completeOwner(false), models.PropertyPending, models.PropertyPublished, true},
		{"pending у проверенного владельца", incomplete(true), models.PropertyPending, models.PropertyPublished, false},
		{"проверенному нужен телефон", noPhone(), models.PropertyRejected, models.PropertyPublished, true},
		{"повторная публикация после продажи", completeOwner(false), models.PropertySold, models.PropertyPublished, false},
		{"повторная публикация без данных", incomplete(false), models.PropertySold, models.PropertyPublished, true},
		{"без владельца", nil, models.PropertyApproved, models.PropertyPublished, true},
		{"продажа только из published", completeOwner(false), models.PropertyApproved, models.PropertySold, true},
		{"продажа опубликованного", completeOwner(false), models.PropertyPublished, models.PropertySold, false},
		{"тот же статус", nil, models.PropertyRejected, models.PropertyRejected, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAdminFixture()
			p := f.addProperty(t, tc.owner, tc.from)

			got, err := f.svc.UpdatePropertyStatus(context.Background(), p.ID, tc.to)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrBadRequest))
				stored, _ := f.properties.GetPropertyByID(context.Background(), p.ID)
				assert.Equal(t, tc.from, stored.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.to, got.Status)
		})
	}
}

func TestUpdatePropertyStatus_UserVerifiedCounts(t *testing.T) {
	f := newAdminFixture()
	u := &models.User{Name: "Ravi", Email: "ravi@example.com", Phone: "9000000001", Role: models.RoleOwner, Verified: true}
	require.NoError(t, f.users.CreateUser(context.Background(), u))
	owner := &models.Owner{UserID: &u.ID, IDProofType: models.DetailPending}
	p := f.addProperty(t, owner, models.PropertyPending)

	got, err := f.svc.UpdatePropertyStatus(context.Background(), p.ID, models.PropertyPublished)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyPublished, got.Status)
	assert.Equal(t, 1, f.pub.count(events.PropertyStatusChanged))

	_, err = f.svc.UpdatePropertyStatus(context.Background(), p.ID, models.PropertyPublished)
	require.NoError(t, err)
	assert.Equal(t, 1, f.pub.count(events.PropertyStatusChanged), "повтор того же статуса ничего не меняет")

	_, err = f.svc.UpdatePropertyStatus(context.Background(), p.ID, models.PropertyApproved)
	assert.True(t, errors.Is(err, ErrBadRequest))
}

func TestReviewProperty(t *testing.T) {
	f := newAdminFixture()
	p := f.addProperty(t, nil, models.PropertyPending)

	got, err := f.svc.ReviewProperty(context.Background(), p.ID, models.PropertyApproved)
	require.NoError(t, err)
	assert.Equal(t, models.PropertyApproved, got.Status)

	_, err = f.svc.ReviewProperty(context.Background(), p.ID, models.PropertyPublished)
	assert.True(t, errors.Is(err, ErrBadRequest))

	_, err = f.svc.ReviewProperty(context.Background(), 999, models.PropertyRejected)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func adminInput(email string) AdminPropertyInput {
	return AdminPropertyInput{
		Owner: models.OwnerInput{Name: "Meera", Email: email, Phone: "9888888888"},
		Property: models.PropertyInput{
			Title:       strp("Office space"),
			Location:    &models.Location{City: "pune"},
			ListingType: strp(models.ListingCommercial),
			Price:       f64(1500000),
			Bedrooms:    intp(3),
		},
	}
}

func TestCreatePropertyWithOwner_CreatesOwnerUser(t *testing.T) {
	f := newAdminFixture()

	got, err := f.svc.CreatePropertyWithOwner(context.Background(), adminInput("Meera@Example.com"))
	require.NoError(t, err)

	assert.Equal(t, models.PropertyPending, got.Status)
	assert.Equal(t, "Pune", got.Location.City)
	assert.Nil(t, got.Bedrooms)
	assert.Nil(t, got.PropertyType, "коммерческий объект без типа жилья")
	require.NotNil(t, got.Owner)
	require.NotNil(t, got.OwnerUser)
	assert.Equal(t, "meera@example.com", got.OwnerUser.Email)
	assert.Equal(t, models.RoleOwner, got.OwnerUser.Role)
	assert.NotEmpty(t, got.OwnerUser.PasswordHash)
	assert.Equal(t, models.DetailPending, got.Owner.IDProofType)

	again, err := f.svc.CreatePropertyWithOwner(context.Background(), adminInput("meera@example.com"))
	require.NoError(t, err)
	assert.Equal(t, got.Owner.ID, again.Owner.ID, "существующий владелец переиспользуется")
}

func TestCreatePropertyWithOwner_OwnerUserIsAtomic(t *testing.T) {
	f := newAdminFixture()

	f.users.ownerErr = errors.New("db down")
	_, err := f.svc.CreatePropertyWithOwner(context.Background(), adminInput("meera@example.com"))
	require.Error(t, err)

	_, err = f.users.GetUserByEmail(context.Background(), "meera@example.com")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.Empty(t, f.owners.byID)
	assert.Empty(t, f.properties.byID)

	got, err := f.svc.CreatePropertyWithOwner(context.Background(), adminInput("meera@example.com"))
	require.NoError(t, err)
	require.NotNil(t, got.OwnerUser)
	assert.Equal(t, got.OwnerUser.ID, *got.Owner.UserID)
}

func TestCreatePropertyWithOwner_Validation(t *testing.T) {
	f := newAdminFixture()
	plain := &models.User{Email: "user@example.com", Role: models.RoleUser}
	require.NoError(t, f.users.CreateUser(context.Background(), plain))

	_, err := f.svc.CreatePropertyWithOwner(context.Background(), adminInput("user@example.com"))
	assert.True(t, errors.Is(err, ErrBadRequest), "обычный пользователь не может стать владельцем")

	in := adminInput("x@example.com")
	in.Property.Price = nil
	_, err = f.svc.CreatePropertyWithOwner(context.Background(), in)
	assert.True(t, errors.Is(err, ErrBadRequest))

	in = adminInput("")
	in.Property.ListingType = nil
	in.Property.Rent = f64(18000)
	got, err := f.svc.CreatePropertyWithOwner(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, got.Owner)
	assert.Nil(t, got.Owner.UserID, "без email создаётся владелец без учётной записи")
	assert.Equal(t, models.ListingRent, got.ListingType)
	require.NotNil(t, got.PropertyType)
	assert.Equal(t, "apartment", *got.PropertyType)
}

func TestUpdatePropertyForAdmin_AttachesOwner(t *testing.T) {
	f := newAdminFixture()
	p := f.addProperty(t, nil, models.PropertyPending)

	got, err := f.svc.UpdatePropertyForAdmin(context.Background(), p.ID,
		models.PropertyInput{Description: strp("Обновлено")},
		models.OwnerInput{Name: "Anil", Phone: "9777777777"})
	require.NoError(t, err)
	require.NotNil(t, got.Owner)
	assert.Equal(t, "Anil", got.Owner.Name)

	got, err = f.svc.UpdatePropertyForAdmin(context.Background(), p.ID, models.PropertyInput{},
		models.OwnerInput{Phone: "9666666666"})
	require.NoError(t, err)
	assert.Equal(t, "Anil", got.Owner.Name)
	assert.Equal(t, "9666666666", got.Owner.Phone)
}

func TestManageSiteVisit(t *testing.T) {
	f := newAdminFixture()
	b := &models.Booking{UserID: 1, PropertyID: 1, Status: models.BookingPending}
	require.NoError(t, f.bookings.CreateBooking(context.Background(), b))

	_, err := f.svc.ManageSiteVisit(context.Background(), b.ID, models.BookingCompleted)
	assert.True(t, errors.Is(err, ErrBadRequest), "завершить можно только одобренный визит")

	got, err := f.svc.ManageSiteVisit(context.Background(), b.ID, models.BookingApproved)
	require.NoError(t, err)
	assert.Equal(t, models.BookingApproved, got.Status)

	got, err = f.svc.ManageSiteVisit(context.Background(), b.ID, models.BookingCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, got.Status)

	_, err = f.svc.ManageSiteVisit(context.Background(), b.ID, models.BookingRejected)
	assert.True(t, errors.Is(err, ErrBadRequest))
}

func TestGrantSubscription_ReplacesActive(t *testing.T) {
	f := newAdminFixture()
	u := &models.User{Email: "user@example.com", Role: models.RoleUser}
	require.NoError(t, f.users.CreateUser(context.Background(), u))
	plan := &models.SubscriptionPlan{Name: "Gold Plan", ContactLimit: 19, ValidityDays: 15, IsActive: true}
	require.NoError(t, f.plans.UpsertPlan(context.Background(), plan))

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	f.svc.now = fixedClock(now)
	old := f.subs.addActive(u.ID, plan.ID, now.AddDate(0, 0, -1), 15)

	sub, err := f.svc.GrantSubscription(context.Background(), u.ID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, now.AddDate(0, 0, 15), *sub.EndDate)
	assert.Equal(t, models.SubscriptionCancelled, f.subs.get(old.ID).Status)
	assert.Equal(t, 1, f.pub.count(events.SubscriptionActivated))

	_, err = f.svc.GrantSubscription(context.Background(), u.ID, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListProperties_UnknownSortFallsBackToCreatedAt(t *testing.T) {
	f := newAdminFixture()
	f.addProperty(t, nil, models.PropertyPending)

	items, total, err := f.svc.ListProperties(context.Background(), models.AdminPropertyFilter{SortBy: "price; DROP TABLE"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, items, 1)
	assert.Equal(t, "createdAt", f.properties.lastAdmin.SortBy)

	_, _, err = f.svc.ListProperties(context.Background(), models.AdminPropertyFilter{})
	require.NoError(t, err)
	assert.Equal(t, "createdAt", f.properties.lastAdmin.SortBy)

	_, _, err = f.svc.ListProperties(context.Background(), models.AdminPropertyFilter{SortBy: "title"})
	require.NoError(t, err)
	assert.Equal(t, "title", f.properties.lastAdmin.SortBy)
}
