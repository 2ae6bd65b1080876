package routes

import (
	"net/http"

	"truowners/internal/handlers"
	"truowners/internal/middleware"
	"truowners/internal/models"

	"github.com/gorilla/mux"
)

// Handlers — все HTTP-хендлеры приложения.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Owner        *handlers.OwnerHandler
	Catalog      *handlers.CatalogHandler
	Admin        *handlers.AdminHandler
	Booking      *handlers.BookingHandler
	Subscription *handlers.SubscriptionHandler
	Payment      *handlers.PaymentHandler
	PropertyView *handlers.PropertyViewHandler
	Logs         *handlers.AdminLogsHandler
}

func InitRoutes(router *mux.Router, h Handlers, jwtSecret string, blocklist middleware.TokenBlocklist) {
	router.Use(middleware.RequestID, middleware.Recoverer, middleware.Logging)

	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	// --- Публичные маршруты ---
	api.HandleFunc("/auth/register", h.Auth.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.Auth.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/admin/login", h.Auth.AdminLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/refresh", h.Auth.Refresh).Methods(http.MethodPost)

	api.HandleFunc("/properties", h.Catalog.ListProperties).Methods(http.MethodGet)
	api.HandleFunc("/properties/{id:[0-9]+}", h.Catalog.GetProperty).Methods(http.MethodGet)
	api.HandleFunc("/subscriptions/plans", h.Subscription.ListPlans).Methods(http.MethodGet)

	// callback PhonePe приходит без JWT
	api.HandleFunc("/payments/callback", h.Payment.Callback).Methods(http.MethodPost)

	// --- Защищённые JWT ---
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.JWTAuth(jwtSecret, blocklist), middleware.AdminFastLane)

	protected.HandleFunc("/auth/logout", h.Auth.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/profile", h.Auth.Profile).Methods(http.MethodGet)
	protected.HandleFunc("/profile/password", h.Auth.ChangePassword).Methods(http.MethodPost)

	protected.HandleFunc("/properties/{id:[0-9]+}/owner", h.PropertyView.ViewOwnerDetails).Methods(http.MethodGet)
	protected.HandleFunc("/property-views", h.PropertyView.ViewedProperties).Methods(http.MethodGet)

	protected.HandleFunc("/bookings", h.Booking.RequestVisit).Methods(http.MethodPost)
	protected.HandleFunc("/bookings", h.Booking.MyBookings).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{id:[0-9]+}", h.Booking.CancelBooking).Methods(http.MethodDelete)

	protected.HandleFunc("/subscriptions/my", h.Subscription.MySubscription).Methods(http.MethodGet)
	protected.HandleFunc("/subscriptions/subscribe", h.Subscription.Subscribe).Methods(http.MethodPost)
	protected.HandleFunc("/subscriptions/upgrade", h.Subscription.Upgrade).Methods(http.MethodPost)
	protected.HandleFunc("/subscriptions/cancel", h.Subscription.Cancel).Methods(http.MethodPost)

	protected.HandleFunc("/payments/status/{merchantTransactionId}", h.Payment.CheckStatus).Methods(http.MethodGet)
	protected.HandleFunc("/payments/history", h.Payment.History).Methods(http.MethodGet)
	protected.HandleFunc("/payments/sandbox/{merchantTransactionId}", h.Payment.SandboxComplete).Methods(http.MethodPost)

	owner := protected.PathPrefix("/owner").Subrouter()
	owner.Use(middleware.OnlyRole(models.RoleOwner))
	owner.HandleFunc("/properties", h.Owner.UploadProperty).Methods(http.MethodPost)
	owner.HandleFunc("/properties", h.Owner.ListMyProperties).Methods(http.MethodGet)
	owner.HandleFunc("/properties/{id:[0-9]+}", h.Owner.GetMyProperty).Methods(http.MethodGet)
	owner.HandleFunc("/properties/{id:[0-9]+}", h.Owner.UpdateMyProperty).Methods(http.MethodPut)
	owner.HandleFunc("/properties/{id:[0-9]+}", h.Owner.DeleteMyProperty).Methods(http.MethodDelete)

	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.OnlyRole(models.RoleAdmin))
	admin.HandleFunc("/owners/check", h.Admin.CheckOwnerExists).Methods(http.MethodGet)
	admin.HandleFunc("/owners/{id:[0-9]+}/verify", h.Admin.VerifyOwner).Methods(http.MethodPatch)
	admin.HandleFunc("/properties", h.Admin.CreateProperty).Methods(http.MethodPost)
	admin.HandleFunc("/properties", h.Admin.ListProperties).Methods(http.MethodGet)
	admin.HandleFunc("/properties/counts", h.Admin.StatusCounts).Methods(http.MethodGet)
	admin.HandleFunc("/properties/{id:[0-9]+}", h.Admin.GetProperty).Methods(http.MethodGet)
	admin.HandleFunc("/properties/{id:[0-9]+}", h.Admin.UpdateProperty).Methods(http.MethodPut)
	admin.HandleFunc("/properties/{id:[0-9]+}/review", h.Admin.ReviewProperty).Methods(http.MethodPatch)
	admin.HandleFunc("/properties/{id:[0-9]+}/status", h.Admin.UpdatePropertyStatus).Methods(http.MethodPatch)
	admin.HandleFunc("/bookings", h.Admin.ListBookings).Methods(http.MethodGet)
	admin.HandleFunc("/bookings/{id:[0-9]+}", h.Admin.ManageSiteVisit).Methods(http.MethodPatch)
	admin.HandleFunc("/users", h.Admin.ListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id:[0-9]+}/history", h.Admin.UserHistory).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id:[0-9]+}/subscription", h.Admin.GrantSubscription).Methods(http.MethodPost)
	admin.HandleFunc("/payments", h.Admin.ListPayments).Methods(http.MethodGet)
	admin.HandleFunc("/stats", h.Admin.Stats).Methods(http.MethodGet)
	admin.HandleFunc("/subscriptions/plans/seed", h.Subscription.SeedPlans).Methods(http.MethodPost)

	admin.HandleFunc("/logs/days", h.Logs.ListDays).Methods(http.MethodGet)
	admin.HandleFunc("/logs", h.Logs.GetLogs).Methods(http.MethodGet)
	admin.HandleFunc("/logs/stats", h.Logs.Stats).Methods(http.MethodGet)
	admin.HandleFunc("/logs/summary", h.Logs.StatsSummary).Methods(http.MethodGet)
	admin.HandleFunc("/logs/download", h.Logs.DownloadRaw).Methods(http.MethodGet)
}
