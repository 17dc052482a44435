// Package services – SettingsService
//
// SettingsService holds the process-wide WhatsApp settings. They are read
// once at startup from the local cache database, merged with defaults, and
// rewritten wholesale by Update. Get hands out copies, so callers never
// observe a half-applied update.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/domain"
	"github.com/tbourn/go-shipment-tracker/internal/notify"
)

// SettingsService loads, serves and persists WhatsAppSettings.
type SettingsService struct {
	DB       *gorm.DB
	Store    KVStore
	Defaults domain.WhatsAppSettings
	Now      func() time.Time

	mu     sync.RWMutex
	cur    domain.WhatsAppSettings
	loaded bool
}

// Load reads the persisted blob. A missing or unreadable blob leaves the
// defaults in place; only the unreadable case is logged.
func (s *SettingsService) Load(ctx context.Context) domain.WhatsAppSettings {
	tr := otel.Tracer("services/SettingsService")
	ctx, span := tr.Start(ctx, "Load")
	defer span.End()

	next := s.Defaults.Clone()
	raw, err := s.Store.GetKV(ctx, s.DB, SettingsKey)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		log.Warn().Err(err).Str("component", "settings").Msg("settings read failed; using defaults")
	default:
		decoded, derr := domain.DecodeSettings([]byte(raw), s.Defaults)
		if derr != nil {
			log.Warn().Err(derr).Str("component", "settings").Msg("stored settings unreadable; using defaults")
		} else {
			next = decoded
		}
	}

	s.mu.Lock()
	s.cur, s.loaded = next, true
	s.mu.Unlock()
	return next.Clone()
}

// Get returns a copy of the current settings.
func (s *SettingsService) Get() domain.WhatsAppSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return s.Defaults.Clone()
	}
	return s.cur.Clone()
}

// Update replaces the settings with the submitted document. Absent fields
// take defaults and templates for uncovered statuses are filled from the
// defaults. A non-empty whatsappNumber must be a valid phone.
//
// The new settings are persisted before they become visible.
func (s *SettingsService) Update(ctx context.Context, raw []byte) (domain.WhatsAppSettings, error) {
	tr := otel.Tracer("services/SettingsService")
	ctx, span := tr.Start(ctx, "Update")
	defer span.End()

	next, err := domain.DecodeSettings(raw, s.Defaults)
	if err != nil {
		return domain.WhatsAppSettings{}, invalid("settings", ErrInvalidSettings, "must be a JSON object")
	}
	next.WhatsAppNumber = strings.TrimSpace(next.WhatsAppNumber)
	if next.WhatsAppNumber != "" {
		if _, perr := notify.NormalizePhone(next.WhatsAppNumber); perr != nil {
			return domain.WhatsAppSettings{}, invalid("whatsappNumber", ErrInvalidPhone,
				fmt.Sprintf("must contain at least %d digits", notify.MinPhoneDigits))
		}
	}

	b, err := json.Marshal(next)
	if err != nil {
		return domain.WhatsAppSettings{}, fmt.Errorf("encode settings: %w", err)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if err := s.Store.PutKV(ctx, s.DB, SettingsKey, string(b), now()); err != nil {
		return domain.WhatsAppSettings{}, fmt.Errorf("%w: save settings: %v", ErrBackendUnavailable, err)
	}

	s.mu.Lock()
	s.cur, s.loaded = next, true
	s.mu.Unlock()

	log.Info().
		Str("component", "settings").
		Bool("notifications_enabled", next.NotificationsEnabled).
		Bool("auto_notify", next.AutoNotify).
		Int("templates", len(next.MessageTemplates)).
		Msg("settings updated")
	return next.Clone(), nil
}
