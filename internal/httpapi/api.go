// Package httpapi is the HTTP surface of the Snaphomz backend.
package httpapi

import (
	"net/http"

	"snaphomz.org/internal/auth"
	"snaphomz.org/internal/identity"
	"snaphomz.org/internal/notification"
	"snaphomz.org/internal/obs"
	"snaphomz.org/internal/property"
	"snaphomz.org/internal/realtime"
	"snaphomz.org/internal/subscription"
	"snaphomz.org/internal/zipforms"
)

// Services bundles the domain services the API fronts. Zip and Gateway may
// be nil; their routes 404 when absent.
type Services struct {
	Codec         *auth.Codec
	Resolver      *auth.Resolver
	Identity      *identity.Service
	Notifications *notification.Service
	Properties    *property.Service
	Subscriptions *subscription.Service
	Zip           *zipforms.Client
	Gateway       *realtime.Gateway
}

// Config tunes the middleware chain.
type Config struct {
	Version        string
	AllowedOrigins []string
	MaxBodyBytes   int64
	RateBurst      int
	RatePerSecond  int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	cfg        Config

	codec         *auth.Codec
	resolver      *auth.Resolver
	identity      *identity.Service
	notifications *notification.Service
	properties    *property.Service
	subscriptions *subscription.Service
	zip           *zipforms.Client
	gateway       *realtime.Gateway
}

func New(svc Services, rp ReadyProbe, cfg Config) *API {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 50
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 25
	}
	a := &API{
		mux:           http.NewServeMux(),
		readyProbe:    rp,
		cfg:           cfg,
		codec:         svc.Codec,
		resolver:      svc.Resolver,
		identity:      svc.Identity,
		notifications: svc.Notifications,
		properties:    svc.Properties,
		subscriptions: svc.Subscriptions,
		zip:           svc.Zip,
		gateway:       svc.Gateway,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/notifications", a.handleNotifications)
	a.mux.HandleFunc("/v1/notifications/", a.handleNotificationSubroutes)

	a.mux.Handle("/v1/users/preference",
		RequireRole(identity.AccountTypeBuyer, identity.AccountTypeSeller)(http.HandlerFunc(a.savePropertyPreference)))
	a.mux.HandleFunc("/v1/users/", a.handleUserSubroutes)
	a.mux.HandleFunc("/v1/agents/search", a.handleAgentSearch)
	a.mux.HandleFunc("/v1/agents/connected", a.handleAgentsConnected)
	a.mux.HandleFunc("/v1/agents/", a.handleAgentSubroutes)

	a.mux.HandleFunc("/v1/properties", a.handleProperties)
	a.mux.HandleFunc("/v1/properties/", a.handlePropertyByID)
	a.mux.HandleFunc("/v1/saved-properties", a.handleSavedProperties)
	a.mux.HandleFunc("/v1/saved-properties/", a.handleSavedPropertyByID)

	a.mux.HandleFunc("/v1/subscriptions", a.handleSubscriptions)
	a.mux.HandleFunc("/v1/subscriptions/plans", a.handlePlans)
	a.mux.HandleFunc("/v1/subscriptions/current", a.handleCurrentSubscription)
	a.mux.HandleFunc("/v1/subscriptions/", a.handleSubscriptionByID)

	a.mux.HandleFunc("/v1/zipforms/auth", a.handleZipAuth)
	a.mux.HandleFunc("/v1/zipforms/transactions", a.handleZipTransaction)
	a.mux.HandleFunc("/v1/zipforms/webhooks/", a.handleZipWebhook)

	if a.gateway != nil {
		a.mux.HandleFunc("/ws/notifications", a.gateway.HandleWS)
	}

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = obs.Instrument(a.mux)
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.cfg.MaxBodyBytes)
	h = RateLimit(h, a.cfg.RateBurst, a.cfg.RatePerSecond)
	h = CORS(a.cfg.AllowedOrigins)(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}
