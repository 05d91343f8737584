// Package session manages the authenticated account and its API key.
package session

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/simex/internal/activity"
	"github.com/vadiminshakov/simex/internal/domain"
	"github.com/vadiminshakov/simex/internal/events"
)

// Store durable credential storage.
type Store interface {
	Save(creds domain.Credentials) error
	Load() (domain.Credentials, bool, error)
}

// KeyIssuer exchanges a signed nonce for an API key.
type KeyIssuer interface {
	CreateAPIKey(ctx context.Context, signature, message string) (domain.APIKeyGrant, error)
}

// Signer signs the nonce message with the wallet key.
type Signer interface {
	Address() string
	SignNonce() (signature, message string, err error)
}

// Service holds the current credentials and notifies subscribers on change.
type Service struct {
	mu       sync.RWMutex
	creds    domain.Credentials
	store    Store
	issuer   KeyIssuer
	activity *activity.Log
	logger   *zap.Logger
	subs     *events.Broadcaster[domain.Credentials]
}

// NewService creates a session backed by store.
func NewService(store Store, issuer KeyIssuer, log *activity.Log, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if log == nil {
		log = activity.NewLog(logger, 0)
	}
	return &Service{
		store:    store,
		issuer:   issuer,
		activity: log,
		logger:   logger,
		subs:     events.NewBroadcaster[domain.Credentials](4),
	}
}

// Restore loads the persisted credentials. Incomplete records are ignored.
func (s *Service) Restore() error {
	creds, ok, err := s.store.Load()
	if err != nil {
		return errors.Wrap(err, "restore session")
	}
	if !ok || !creds.Complete() {
		return nil
	}

	s.set(creds)
	s.logger.Info("session restored", zap.String("address", creds.Address))
	return nil
}

// Credentials returns the current credentials.
func (s *Service) Credentials() domain.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// APIKey returns the current API key, empty when not connected.
func (s *Service) APIKey() string {
	return s.Credentials().APIKey
}

// Connected reports whether an API key is available.
func (s *Service) Connected() bool {
	return s.Credentials().Complete()
}

// SetManual stores a manually entered address and API key.
func (s *Service) SetManual(address, apiKey string) error {
	creds := domain.Credentials{
		Address: strings.TrimSpace(address),
		APIKey:  strings.TrimSpace(apiKey),
	}
	if creds.Address == "" {
		return &domain.ValidationError{Field: "address", Reason: "required"}
	}
	if creds.APIKey == "" {
		return &domain.ValidationError{Field: "api_key", Reason: "required"}
	}

	if err := s.persist(creds); err != nil {
		return err
	}
	s.activity.Record("api key set manually for " + creds.Address)
	return nil
}

// ConnectWallet signs a nonce with signer and exchanges it for an API key.
func (s *Service) ConnectWallet(ctx context.Context, signer Signer) (domain.Credentials, error) {
	signature, message, err := signer.SignNonce()
	if err != nil {
		return domain.Credentials{}, errors.Wrap(err, "sign nonce")
	}

	grant, err := s.issuer.CreateAPIKey(ctx, signature, message)
	if err != nil {
		s.activity.Fail(err, domain.LevelCritical)
		return domain.Credentials{}, errors.Wrap(err, "create api key")
	}

	creds := domain.Credentials{Address: grant.Account, APIKey: grant.APIKey}
	if creds.Address == "" {
		creds.Address = signer.Address()
	}
	if !creds.Complete() {
		return domain.Credentials{}, errors.New("api key response is incomplete")
	}

	if err := s.persist(creds); err != nil {
		return domain.Credentials{}, err
	}
	s.activity.Clear()
	s.activity.Record("wallet connected: " + creds.Address)
	return creds, nil
}

// Disconnect forgets the credentials.
func (s *Service) Disconnect() error {
	if err := s.store.Save(domain.Credentials{}); err != nil {
		return errors.Wrap(err, "clear session")
	}
	s.set(domain.Credentials{})
	s.activity.Record("disconnected")
	return nil
}

// Subscribe returns a channel receiving every credential change.
func (s *Service) Subscribe() chan domain.Credentials {
	return s.subs.Subscribe()
}

// Unsubscribe stops delivery to ch.
func (s *Service) Unsubscribe(ch chan domain.Credentials) {
	s.subs.Unsubscribe(ch)
}

func (s *Service) persist(creds domain.Credentials) error {
	if err := s.store.Save(creds); err != nil {
		return errors.Wrap(err, "save session")
	}
	s.set(creds)
	return nil
}

func (s *Service) set(creds domain.Credentials) {
	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
	s.subs.Publish(creds)
}
