// Package auth keeps the logged in account in an scs session and turns it
// into request claims.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/tuition-lms/api/web"
	"github.com/irsalhamdi/tuition-lms/api/weberr"
	"github.com/irsalhamdi/tuition-lms/core/claims"
	"github.com/irsalhamdi/tuition-lms/core/user"
	"github.com/irsalhamdi/tuition-lms/sequence"
	"github.com/irsalhamdi/tuition-lms/validate"
	"github.com/jmoiron/sqlx"
)

const (
	userIDKey = "userID"
	roleKey   = "role"
)

// LoadAndSave adapts the scs middleware to the web handler chain.
func LoadAndSave(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var herr error
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				herr = handler(r.Context(), w, r)
			})

			sm.LoadAndSave(next).ServeHTTP(w, r.WithContext(ctx))
			return herr
		}
		return h
	}
	return m
}

func Authenticate(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, ok := sessionClaims(ctx, sm)
			if !ok {
				return weberr.NotAuthorized(errors.New("no active session"))
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

// Admin requires an authenticated session holding the admin role. A missing
// session is an authentication failure, a missing role an authorization one.
func Admin(sm *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, ok := sessionClaims(ctx, sm)
			if !ok {
				return weberr.NotAuthorized(errors.New("no active session"))
			}

			if !clm.IsAdmin() {
				return weberr.Forbidden(fmt.Errorf("user[%s] with role[%s] is not an admin", clm.UserID, clm.Role))
			}

			return handler(claims.Set(ctx, clm), w, r)
		}
		return h
	}
	return m
}

func sessionClaims(ctx context.Context, sm *scs.SessionManager) (claims.Claims, bool) {
	id := sm.GetString(ctx, userIDKey)
	if id == "" {
		return claims.Claims{}, false
	}
	return claims.Claims{UserID: id, Role: sm.GetString(ctx, roleKey)}, true
}

func login(ctx context.Context, sm *scs.SessionManager, usr user.User) error {
	if err := sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}
	sm.Put(ctx, userIDKey, usr.ID)
	sm.Put(ctx, roleKey, usr.Role)
	return nil
}

func HandleSignup(db *sqlx.DB, sm *scs.SessionManager, iss *sequence.Issuer) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var su user.UserSignup
		if err := web.Decode(w, r, &su); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(su); err != nil {
			return weberr.Unprocessable(err)
		}

		usr, err := user.Register(ctx, db, iss, su, claims.RoleUser)
		if err != nil {
			if errors.Is(err, user.ErrEmailTaken) {
				return weberr.Conflict(err, "email already registered")
			}
			return fmt.Errorf("registering user: %w", err)
		}

		if err := login(ctx, sm, usr); err != nil {
			return err
		}

		return web.Respond(ctx, w, usr, http.StatusCreated)
	}
}

func HandleLogin(db *sqlx.DB, sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in user.UserLogin
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.Unprocessable(err)
		}

		usr, err := user.Authenticate(ctx, db, in.Email, in.Password)
		if err != nil {
			if errors.Is(err, user.ErrAuthentication) {
				return weberr.NotAuthorized(err)
			}
			return fmt.Errorf("authenticating user: %w", err)
		}

		if err := login(ctx, sm, usr); err != nil {
			return err
		}

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

func HandleLogout(sm *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := sm.Destroy(ctx); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
