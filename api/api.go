package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/tuition-lms/api/middleware"
	"github.com/irsalhamdi/tuition-lms/api/web"
	"github.com/irsalhamdi/tuition-lms/core/auth"
	"github.com/irsalhamdi/tuition-lms/core/enrollment"
	"github.com/irsalhamdi/tuition-lms/core/material"
	"github.com/irsalhamdi/tuition-lms/core/month"
	"github.com/irsalhamdi/tuition-lms/core/order"
	"github.com/irsalhamdi/tuition-lms/core/payment"
	"github.com/irsalhamdi/tuition-lms/core/user"
	"github.com/irsalhamdi/tuition-lms/gateway"
	"github.com/irsalhamdi/tuition-lms/rate"
	"github.com/irsalhamdi/tuition-lms/sequence"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin string
	Log        logrus.FieldLogger
	DB         *sqlx.DB
	Session    *scs.SessionManager
	Issuer     *sequence.Issuer
	Limiter    *rate.Limiter
	Payhere    *gateway.PayhereGateway
	Stripe     *gateway.StripeGateway
	Paypal     *gateway.PaypalGateway
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	admin := auth.Admin(cfg.Session)

	var limit web.Middleware
	if cfg.Limiter != nil {
		limit = middleware.RateLimit(cfg.Limiter)
	}

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session, cfg.Issuer), limit)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limit)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodGet, "/users/{id}", user.HandleShow(cfg.DB), authen)

	a.Handle(http.MethodGet, "/months/owned", enrollment.HandleListOwned(cfg.DB), authen)
	a.Handle(http.MethodGet, "/months/{month_id}/materials", material.HandleListByMonth(cfg.DB), authen)
	a.Handle(http.MethodGet, "/months/{id}", month.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/months", month.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/months", month.HandleCreate(cfg.DB), admin)

	a.Handle(http.MethodGet, "/materials/{id}", material.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPost, "/materials", material.HandleCreate(cfg.DB), admin)

	// Provider callbacks authenticate by signature and bypass the client limiter.
	adapters := make(map[order.Method]gateway.Adapter)
	if cfg.Payhere != nil {
		adapters[order.MethodPayhere] = cfg.Payhere
		a.Handle(http.MethodPost, "/payments/payhere/notify", payment.HandleNotify(cfg.Log, cfg.DB, cfg.Payhere))
	}
	if cfg.Stripe != nil {
		adapters[order.MethodStripe] = cfg.Stripe
		a.Handle(http.MethodPost, "/payments/stripe/webhook", payment.HandleNotify(cfg.Log, cfg.DB, cfg.Stripe))
	}
	if cfg.Paypal != nil {
		adapters[order.MethodPaypal] = cfg.Paypal
		a.Handle(http.MethodPost, "/payments/paypal/{id}/capture", payment.HandlePaypalCapture(cfg.Log, cfg.DB, cfg.Paypal), authen)
	}

	a.Handle(http.MethodPost, "/orders", order.HandleCreate(cfg.DB), authen)
	a.Handle(http.MethodGet, "/orders", order.HandleList(cfg.DB), authen)
	a.Handle(http.MethodGet, "/orders/{id}", order.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPost, "/orders/{id}/checkout", payment.HandleCheckout(cfg.DB, adapters), authen)

	a.Handle(http.MethodGet, "/admin/orders", order.HandleQuery(cfg.DB), admin)
	a.Handle(http.MethodPost, "/admin/orders/{id}/confirm", payment.HandleConfirm(cfg.DB), admin)
	a.Handle(http.MethodPost, "/admin/orders/{id}/cancel", payment.HandleCancel(cfg.DB), admin)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
