// Package auth logs in to the brokerage API and keeps the HTTP client's
// Authorization header in sync with the stored session.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/robinhood-client/robinhood-client-go/pkg/httpclient"
	"github.com/robinhood-client/robinhood-client-go/pkg/logger"
	"github.com/robinhood-client/robinhood-client-go/pkg/session"
)

var tracer = otel.Tracer("rhclient/pkg/auth")

const (
	DefaultClientID            = "c82SH0WZOsabOXGP2sxqcj34FxkvfnWRZBKlBjFS"
	DefaultProfile             = "default"
	DefaultScope               = "internal"
	DefaultExpiresIn           = 86400 * time.Second
	DefaultPollInterval        = 5 * time.Second
	DefaultVerificationTimeout = 2 * time.Minute

	tokenPath    = "oauth2/token/"
	accountsPath = "accounts/"
)

// Credentials identify the account to log in to.
type Credentials struct {
	Username string
	Password string

	// MFACode is the one time code of accounts with app based MFA.
	MFACode string

	// ExpiresIn is the requested token lifetime. Zero uses DefaultExpiresIn.
	ExpiresIn time.Duration

	// Scope is the requested token scope. Empty uses DefaultScope.
	Scope string
}

// ChallengePrompt asks the user for the code sent through channel, such as "sms" or "email".
type ChallengePrompt func(ctx context.Context, channel string) (string, error)

// Authenticator performs logins and owns the current session.
type Authenticator struct {
	client *httpclient.Client
	store  session.Store
	logger logger.Logger

	profile             string
	clientID            string
	persist             bool
	prompt              ChallengePrompt
	pollInterval        time.Duration
	verificationTimeout time.Duration
	now                 func() time.Time

	mu      sync.RWMutex
	session *session.Session
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Authenticator) {
		a.logger = l
	}
}

// WithProfile sets the name the session is stored under.
func WithProfile(profile string) Option {
	return func(a *Authenticator) {
		a.profile = profile
	}
}

// WithClientID overrides the OAuth client id.
func WithClientID(clientID string) Option {
	return func(a *Authenticator) {
		a.clientID = clientID
	}
}

// WithPersistSession controls whether sessions are loaded from and saved to the store. It defaults to true.
func WithPersistSession(persist bool) Option {
	return func(a *Authenticator) {
		a.persist = persist
	}
}

// WithChallengePrompt sets the function that collects sms and email verification codes.
func WithChallengePrompt(prompt ChallengePrompt) Option {
	return func(a *Authenticator) {
		a.prompt = prompt
	}
}

// WithPollInterval sets the delay between verification status checks.
func WithPollInterval(interval time.Duration) Option {
	return func(a *Authenticator) {
		a.pollInterval = interval
	}
}

// WithVerificationTimeout bounds how long Login waits for a verification workflow.
func WithVerificationTimeout(timeout time.Duration) Option {
	return func(a *Authenticator) {
		a.verificationTimeout = timeout
	}
}

// New returns an Authenticator that sets the Authorization header of client and persists sessions in store.
func New(client *httpclient.Client, store session.Store, opts ...Option) *Authenticator {
	a := &Authenticator{
		client:              client,
		store:               store,
		logger:              logger.NewNoopLogger(),
		profile:             DefaultProfile,
		clientID:            DefaultClientID,
		persist:             true,
		pollInterval:        DefaultPollInterval,
		verificationTimeout: DefaultVerificationTimeout,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Session returns the current session, or nil when logged out.
func (a *Authenticator) Session() *session.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// Authenticated reports whether a session is active.
func (a *Authenticator) Authenticated() bool {
	return a.Session() != nil
}

// Resume activates the stored session if it is still accepted by the API.
func (a *Authenticator) Resume(ctx context.Context) (*session.Session, error) {
	ctx, span := tracer.Start(ctx, "auth.Resume")
	defer span.End()

	stored, err := a.store.Load(ctx, a.profile)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if !stored.Valid(a.now()) {
		a.logger.InfoWithContext(ctx, "stored session has expired", zap.String("profile", a.profile))
		return nil, ErrNoSession
	}

	a.client.SetAuthorization(stored.Authorization())
	if _, err := a.client.Get(ctx, accountsPath, url.Values{"nonzero": {"true"}}); err != nil {
		a.client.ClearAuthorization()
		if httpclient.IsStatus(err, http.StatusUnauthorized) || httpclient.IsStatus(err, http.StatusForbidden) {
			a.logger.WarnWithContext(ctx, "stored session was rejected", zap.String("profile", a.profile))
			return nil, ErrNoSession
		}
		return nil, err
	}

	a.setSession(stored)
	a.logger.DebugWithContext(ctx, "resumed stored session", zap.String("profile", a.profile))

	return stored, nil
}

// Login activates a session for creds. A stored session is reused when
// persistence is enabled and the API still accepts it; otherwise a password
// grant is performed, answering a verification workflow if the API starts one.
func (a *Authenticator) Login(ctx context.Context, creds Credentials) (*session.Session, error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer span.End()

	a.logger.InfoWithContext(ctx, "logging in", zap.String("profile", a.profile))

	deviceToken := ""
	if a.persist {
		s, err := a.Resume(ctx)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrNoSession) {
			return nil, err
		}
		if stored, err := a.store.Load(ctx, a.profile); err == nil {
			deviceToken = stored.DeviceToken
		}
	}

	if creds.Username == "" || creds.Password == "" {
		return nil, &AuthenticationError{Message: "username and password are required"}
	}
	if deviceToken == "" {
		deviceToken = uuid.NewString()
	}

	form := a.tokenForm(creds, deviceToken)
	body, status, err := a.requestToken(ctx, form)
	if err != nil {
		return nil, err
	}

	if workflowID := gjson.GetBytes(body, "verification_workflow.id"); workflowID.Exists() {
		a.logger.InfoWithContext(ctx, "verification workflow required, check the mobile app")
		if err := a.verify(ctx, deviceToken, workflowID.String()); err != nil {
			return nil, err
		}
		body, status, err = a.requestToken(ctx, form)
		if err != nil {
			return nil, err
		}
	}

	token := gjson.ParseBytes(body)
	if !token.Get("access_token").Exists() {
		if token.Get("mfa_required").Bool() {
			return nil, ErrMFARequired
		}
		if detail := token.Get("detail"); detail.Exists() {
			return nil, &AuthenticationError{Message: detail.String(), StatusCode: status}
		}
		return nil, &AuthenticationError{Message: "unexpected token response: " + string(body), StatusCode: status}
	}

	s := &session.Session{
		TokenType:    token.Get("token_type").String(),
		AccessToken:  token.Get("access_token").String(),
		RefreshToken: token.Get("refresh_token").String(),
		DeviceToken:  deviceToken,
		ExpiresIn:    time.Duration(token.Get("expires_in").Int()) * time.Second,
		CreatedAt:    a.now().UTC(),
	}
	a.client.SetAuthorization(s.Authorization())
	s.AccountNumber = a.accountNumber(ctx)

	if a.persist {
		if err := a.store.Save(ctx, a.profile, s); err != nil {
			a.client.ClearAuthorization()
			return nil, fmt.Errorf("failed to save session: %w", err)
		}
	}

	a.setSession(s)
	a.logger.InfoWithContext(ctx, "logged in", zap.String("profile", a.profile))

	return s, nil
}

// Logout forgets the current session and removes the stored one.
func (a *Authenticator) Logout(ctx context.Context) error {
	a.client.ClearAuthorization()
	a.setSession(nil)

	if err := a.store.Delete(ctx, a.profile); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	a.logger.InfoWithContext(ctx, "logged out", zap.String("profile", a.profile))
	return nil
}

func (a *Authenticator) setSession(s *session.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = s
}

func (a *Authenticator) tokenForm(creds Credentials, deviceToken string) url.Values {
	expiresIn := creds.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}
	scope := creds.Scope
	if scope == "" {
		scope = DefaultScope
	}

	form := url.Values{
		"client_id":                        {a.clientID},
		"expires_in":                       {strconv.FormatInt(int64(expiresIn/time.Second), 10)},
		"grant_type":                       {"password"},
		"password":                         {creds.Password},
		"scope":                            {scope},
		"username":                         {creds.Username},
		"device_token":                     {deviceToken},
		"try_passkeys":                     {"false"},
		"token_request_path":               {"/login"},
		"create_read_only_secondary_token": {"true"},
	}
	if creds.MFACode != "" {
		form.Set("mfa_code", creds.MFACode)
	}
	return form
}

// requestToken posts the password grant. Client errors carry a JSON body the
// login flow inspects, so they are returned as a body rather than an error.
func (a *Authenticator) requestToken(ctx context.Context, form url.Values) ([]byte, int, error) {
	var raw json.RawMessage
	err := a.client.PostForm(ctx, tokenPath, form, &raw)
	if err == nil {
		return raw, http.StatusOK, nil
	}

	var transportErr *httpclient.TransportError
	if errors.As(err, &transportErr) && transportErr.StatusCode >= 400 && transportErr.StatusCode < 500 && gjson.ValidBytes(transportErr.Body) {
		return transportErr.Body, transportErr.StatusCode, nil
	}
	return nil, 0, err
}

// accountNumber returns the number of the first account, or "" if it cannot be read.
func (a *Authenticator) accountNumber(ctx context.Context) string {
	body, err := a.client.Get(ctx, accountsPath, url.Values{"default_to_all_accounts": {"true"}})
	if err != nil {
		a.logger.WarnWithContext(ctx, "failed to read account number", zap.Error(err))
		return ""
	}
	return gjson.GetBytes(body, "results.0.account_number").String()
}
