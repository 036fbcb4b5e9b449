package store

import (
	"context"
	"encoding/json"
	"sync"

	"storefront-client/internal/apperr"
	"storefront-client/internal/broker"
	"storefront-client/internal/models"
	"storefront-client/internal/scratch"
	"storefront-client/internal/util"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SessionPhase is the synchronous session state exposed to route guards.
type SessionPhase string

const (
	// SessionUnknown means the initial session restore has not finished.
	// Guards must not treat it as anonymous, or they redirect users who
	// are about to be restored.
	SessionUnknown       SessionPhase = "unknown"
	SessionAnonymous     SessionPhase = "anonymous"
	SessionAuthenticated SessionPhase = "authenticated"
)

// sessionKey is the scratch key holding the persisted session snapshot.
// The session controller is its single writer.
const sessionKey = "session"

// SessionController owns the authentication identity: at most one
// authenticated user at a time, with the credential stripped before the
// record enters any shared state.
type SessionController struct {
	mu         sync.Mutex
	gw         Gateway
	scratch    scratch.Store
	reconciler *Reconciler
	orders     *OrderStore
	activity   *broker.ActivityPublisher
	logger     *zap.Logger

	phase SessionPhase
	user  models.User
}

// NewSessionController creates a controller in the unknown phase; call
// Restore to resolve it.
func NewSessionController(gw Gateway, sc scratch.Store, reconciler *Reconciler, orders *OrderStore, activity *broker.ActivityPublisher) *SessionController {
	return &SessionController{
		gw:         gw,
		scratch:    sc,
		reconciler: reconciler,
		orders:     orders,
		activity:   activity,
		logger:     util.GetLogger(),
		phase:      SessionUnknown,
	}
}

// Restore resolves the initial unknown phase from the persisted session
// snapshot. Until it runs, Phase reports SessionUnknown so consumers can
// distinguish "still restoring" from "no session".
func (sc *SessionController) Restore(ctx context.Context) {
	ctx, span := util.StartSpan(ctx, "SessionController.Restore")
	defer span.End()

	blob, ok := sc.scratch.Get(sessionKey)
	if !ok {
		sc.setPhase(SessionAnonymous, models.User{})
		return
	}

	var user models.User
	if err := json.Unmarshal(blob, &user); err != nil || user.ID == 0 {
		sc.logger.Warn("Discarding unreadable session snapshot")
		sc.scratch.Remove(sessionKey)
		sc.setPhase(SessionAnonymous, models.User{})
		return
	}

	sc.setPhase(SessionAuthenticated, user.Sanitized())
	sc.logger.Info("Session restored", zap.Int64("user_id", user.ID))

	if err := sc.reconciler.OnLogin(ctx, user.ID); err != nil {
		// the session stands; the cart stays guest-sourced until the
		// next successful attach
		sc.logger.Warn("Cart attach failed during session restore", zap.Error(err))
	}
}

// Login authenticates by email lookup and credential comparison. The
// credential is stripped before the user record is persisted or exposed,
// and the cart reconciler runs on success.
func (sc *SessionController) Login(ctx context.Context, email, password string) (models.User, error) {
	ctx, span := util.StartSpan(ctx, "SessionController.Login")
	defer span.End()

	sc.mu.Lock()
	if sc.phase == SessionAuthenticated {
		sc.mu.Unlock()
		return models.User{}, apperr.New(apperr.KindValidation, "a session is already active")
	}
	sc.mu.Unlock()

	var users []models.User
	if err := sc.gw.Filter(ctx, collectionUsers, "email", email, &users); err != nil {
		util.SessionLoginsTotal.WithLabelValues("error").Inc()
		return models.User{}, err
	}
	if len(users) == 0 {
		util.SessionLoginsTotal.WithLabelValues("rejected").Inc()
		return models.User{}, apperr.New(apperr.KindValidation, "invalid email or password")
	}

	account := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)); err != nil {
		util.SessionLoginsTotal.WithLabelValues("rejected").Inc()
		return models.User{}, apperr.New(apperr.KindValidation, "invalid email or password")
	}
	if !account.Active {
		util.SessionLoginsTotal.WithLabelValues("rejected").Inc()
		return models.User{}, apperr.New(apperr.KindValidation, "account is disabled")
	}

	user := account.Sanitized()
	blob, err := json.Marshal(user)
	if err == nil {
		sc.scratch.Set(sessionKey, blob)
	}
	sc.setPhase(SessionAuthenticated, user)

	util.SessionLoginsTotal.WithLabelValues("success").Inc()
	sc.logger.Info("Session started",
		zap.Int64("user_id", user.ID), zap.String("role", user.Role))
	sc.activity.SessionStarted(ctx, user.ID, user.Role)

	if err := sc.reconciler.OnLogin(ctx, user.ID); err != nil {
		sc.logger.Warn("Cart reconciliation failed after login", zap.Error(err))
	}
	return user, nil
}

// Register creates an account with a hashed credential. It does not start
// a session; callers log in afterwards.
func (sc *SessionController) Register(ctx context.Context, name, email, password string) (models.User, error) {
	ctx, span := util.StartSpan(ctx, "SessionController.Register")
	defer span.End()

	if name == "" || email == "" {
		return models.User{}, apperr.New(apperr.KindValidation, "name and email are required")
	}
	if len(password) < 6 {
		return models.User{}, apperr.New(apperr.KindValidation, "password must be at least 6 characters")
	}

	var existing []models.User
	if err := sc.gw.Filter(ctx, collectionUsers, "email", email, &existing); err != nil {
		return models.User{}, err
	}
	if len(existing) > 0 {
		return models.User{}, apperr.New(apperr.KindValidation, "email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, apperr.Wrap(apperr.KindValidation, "failed to hash credential", err)
	}

	account := models.User{
		Name:     name,
		Email:    email,
		Password: string(hash),
		Role:     models.RoleUser,
		Active:   true,
	}
	var created models.User
	if err := sc.gw.Create(ctx, collectionUsers, account, &created); err != nil {
		return models.User{}, err
	}

	sc.logger.Info("User registered", zap.Int64("user_id", created.ID))
	return created.Sanitized(), nil
}

// Logout clears the identity and every per-identity cache, then restores
// the guest cart snapshot.
func (sc *SessionController) Logout(ctx context.Context) {
	sc.mu.Lock()
	if sc.phase != SessionAuthenticated {
		sc.mu.Unlock()
		return
	}
	userID := sc.user.ID
	sc.phase = SessionAnonymous
	sc.user = models.User{}
	sc.mu.Unlock()

	sc.scratch.Remove(sessionKey)
	sc.orders.Reset()
	sc.reconciler.OnLogout()

	sc.activity.SessionEnded(ctx, userID)
	sc.logger.Info("Session ended", zap.Int64("user_id", userID))
}

func (sc *SessionController) setPhase(phase SessionPhase, user models.User) {
	sc.mu.Lock()
	sc.phase = phase
	sc.user = user
	sc.mu.Unlock()
}

// Phase reports the session state synchronously for route guards.
func (sc *SessionController) Phase() SessionPhase {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.phase
}

// CurrentUser returns the sanitized authenticated user, if any.
func (sc *SessionController) CurrentUser() (models.User, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.phase != SessionAuthenticated {
		return models.User{}, false
	}
	return sc.user, true
}

// IsAdmin reports whether the authenticated user holds the admin role.
func (sc *SessionController) IsAdmin() bool {
	user, ok := sc.CurrentUser()
	return ok && user.Role == models.RoleAdmin
}
