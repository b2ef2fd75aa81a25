package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gorilla/securecookie"

	"github.com/dukerupert/magiclink/internal/auth"
	"github.com/dukerupert/magiclink/internal/metrics"
	"github.com/dukerupert/magiclink/internal/middleware"
	"github.com/dukerupert/magiclink/internal/model"
)

const pendingLoginCookie = "kody_pending_login"

// pendingLogin remembers who asked for a link, so the link can only be
// redeemed by the browser that requested it.
type pendingLogin struct {
	Email string     `json:"email"`
	Team  model.Team `json:"team"`
}

type MagicLinks interface {
	Issue(emailAddress, domainURL string) (string, error)
	Validate(expectedEmail, link string) error
}

type SessionCreator interface {
	Create(ctx context.Context, data auth.SessionData) (*model.Session, error)
}

type SessionDeleter interface {
	Delete(ctx context.Context, id string) error
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, email, firstName string, team model.Team) (*model.User, error)
	Update(ctx context.Context, id string, upd model.UserUpdate) (*model.User, error)
}

type Mailer interface {
	Configured() bool
	SendMagicLink(ctx context.Context, toEmail, link string) error
}

type AuthConfig struct {
	BaseURL       string
	CookieSecure  bool
	SessionSecret string
}

type AuthHandler struct {
	links    MagicLinks
	sessions SessionCreator
	deleter  SessionDeleter
	users    UserStore
	mailer   Mailer
	cookies  *securecookie.SecureCookie
	cfg      AuthConfig
	metrics  metrics.Recorder
	logger   *slog.Logger
}

func NewAuthHandler(
	links MagicLinks,
	sessions SessionCreator,
	deleter SessionDeleter,
	users UserStore,
	mailer Mailer,
	cfg AuthConfig,
	rec metrics.Recorder,
	logger *slog.Logger,
) *AuthHandler {
	sc := securecookie.New([]byte(cfg.SessionSecret), nil)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int(auth.LinkExpiration.Seconds()))

	return &AuthHandler{
		links:    links,
		sessions: sessions,
		deleter:  deleter,
		users:    users,
		mailer:   mailer,
		cookies:  sc,
		cfg:      cfg,
		metrics:  rec,
		logger:   logger,
	}
}

// Login issues a magic link for the posted email address.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	addr := strings.TrimSpace(r.FormValue("email"))
	if addr == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}
	if parsed, err := mail.ParseAddress(addr); err != nil || parsed.Address != addr {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	team, err := model.ParseTeam(r.FormValue("team"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid team")
		return
	}

	link, err := h.links.Issue(addr, h.cfg.BaseURL)
	if err != nil {
		h.logger.Error("issue magic link", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to process request")
		return
	}
	h.metrics.LinkIssued()

	if h.mailer != nil && h.mailer.Configured() {
		if err := h.mailer.SendMagicLink(r.Context(), addr, link); err != nil {
			h.logger.Error("send magic link", "error", err)
			writeError(w, http.StatusBadGateway, "Unable to send magic link")
			return
		}
	} else {
		h.logger.Info("magic link generated", "email", addr, "link", link)
	}

	encoded, err := h.cookies.Encode(pendingLoginCookie, pendingLogin{Email: addr, Team: team})
	if err != nil {
		h.logger.Error("encode pending login", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to process request")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     pendingLoginCookie,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(auth.LinkExpiration.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusAccepted, map[string]string{"email": addr})
}

// Magic redeems a magic link and starts a session.
func (h *AuthHandler) Magic(w http.ResponseWriter, r *http.Request) {
	pending := h.readPendingLogin(r)

	link := h.cfg.BaseURL + r.URL.RequestURI()
	if err := h.links.Validate(pending.Email, link); err != nil {
		h.metrics.LinkValidated(auth.KindOf(err).String())
		writeError(w, http.StatusBadRequest, auth.UserMessage(err))
		return
	}
	h.metrics.LinkValidated("ok")

	ctx := r.Context()
	user, err := h.users.GetByEmail(ctx, pending.Email)
	if err != nil {
		h.logger.Error("get user by email", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to process request")
		return
	}
	if user == nil {
		user, err = h.users.Create(ctx, pending.Email, "", pending.Team)
		if err != nil {
			h.logger.Error("create user", "error", err)
			writeError(w, http.StatusInternalServerError, "Unable to process request")
			return
		}
		h.logger.Info("user created", "user_id", user.ID)
	}

	sess, err := h.sessions.Create(ctx, auth.SessionData{UserID: user.ID})
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to process request")
		return
	}
	h.metrics.SessionCreated()

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpirationDate,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     pendingLoginCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	writeJSON(w, http.StatusOK, user)
}

// Logout deletes the current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if id := auth.SessionID(r.Context()); id != "" {
		if err := h.deleter.Delete(r.Context(), id); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, auth.User(r.Context()))
}

// UpdateMe applies a partial update to the authenticated user.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var upd model.UserUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.Update(r.Context(), auth.UserID(r.Context()), upd)
	if err != nil {
		h.logger.Error("update user", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to process request")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "No user found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Teams lists the selectable teams.
func (h *AuthHandler) Teams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Teams)
}

// readPendingLogin returns the zero value when the cookie is missing,
// stale, or forged; validation then fails on the email check.
func (h *AuthHandler) readPendingLogin(r *http.Request) pendingLogin {
	var p pendingLogin
	cookie, err := r.Cookie(pendingLoginCookie)
	if err != nil {
		return p
	}
	if err := h.cookies.Decode(pendingLoginCookie, cookie.Value, &p); err != nil {
		h.logger.Warn("decode pending login", "error", err)
		return pendingLogin{}
	}
	return p
}
