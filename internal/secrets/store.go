package secrets

import (
	"context"

	"github.com/wxmp-assistant/relay/internal/store"
)

// SealedStore seals the credential fields of Settings before they reach the
// wrapped store and opens them again on read.
type SealedStore struct {
	store.Store
	sealer *Sealer
}

func NewSealedStore(inner store.Store, sealer *Sealer) *SealedStore {
	return &SealedStore{Store: inner, sealer: sealer}
}

func (s *SealedStore) GetSettings(ctx context.Context) (*store.Settings, error) {
	settings, err := s.Store.GetSettings(ctx)
	if err != nil || settings == nil {
		return settings, err
	}
	opened := settings.Clone()
	for _, field := range credentialFields(&opened) {
		plain, err := s.sealer.Open(*field)
		if err != nil {
			return nil, err
		}
		*field = plain
	}
	return &opened, nil
}

func (s *SealedStore) SaveSettings(ctx context.Context, settings store.Settings) error {
	sealed := settings.Clone()
	for _, field := range credentialFields(&sealed) {
		value, err := s.sealer.Seal(*field)
		if err != nil {
			return err
		}
		*field = value
	}
	return s.Store.SaveSettings(ctx, sealed)
}

func credentialFields(settings *store.Settings) []*string {
	return []*string{&settings.APIKey, &settings.UnsplashKey, &settings.PixabayKey}
}
