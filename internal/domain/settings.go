package domain

import (
	"encoding/json"
	"fmt"
)

// MessageTemplate is the message body used when an order reaches Status.
// Template may contain the tokens [cliente], [comercio], [pedido], [fecha]
// and [tracking].
type MessageTemplate struct {
	Status   ShippingStatus `json:"status"   yaml:"status"`
	Template string         `json:"template" yaml:"template"`
	Enabled  bool           `json:"enabled"  yaml:"enabled"`
}

// WhatsAppSettings is the process-wide notification configuration.
type WhatsAppSettings struct {
	WhatsAppNumber       string            `json:"whatsappNumber"`
	NotificationsEnabled bool              `json:"notificationsEnabled"`
	AutoNotify           bool              `json:"autoNotify"`
	MessageTemplates     []MessageTemplate `json:"messageTemplates"`
}

// ActiveTemplate returns the first enabled template for status, in stored
// order.
func (s WhatsAppSettings) ActiveTemplate(status ShippingStatus) (MessageTemplate, bool) {
	for _, t := range s.MessageTemplates {
		if t.Enabled && t.Status == status {
			return t, true
		}
	}
	return MessageTemplate{}, false
}

// ShouldAutoNotify reports whether a status change triggers a dispatch.
func (s WhatsAppSettings) ShouldAutoNotify() bool {
	return s.NotificationsEnabled && s.AutoNotify
}

// Clone returns a copy that shares no slices with s.
func (s WhatsAppSettings) Clone() WhatsAppSettings {
	out := s
	if s.MessageTemplates != nil {
		out.MessageTemplates = make([]MessageTemplate, len(s.MessageTemplates))
		copy(out.MessageTemplates, s.MessageTemplates)
	}
	return out
}

// DefaultSettings returns the settings used when nothing is persisted:
// notifications on, auto-notify on, no sender number, and the given
// templates.
func DefaultSettings(templates []MessageTemplate) WhatsAppSettings {
	s := WhatsAppSettings{
		NotificationsEnabled: true,
		AutoNotify:           true,
		MessageTemplates:     templates,
	}
	return s.Clone()
}

// settingsDoc is the tolerant decode target. Pointers distinguish absent
// fields from zero values so older blobs pick up new defaults.
type settingsDoc struct {
	WhatsAppNumber       *string            `json:"whatsappNumber"`
	NotificationsEnabled *bool              `json:"notificationsEnabled"`
	AutoNotify           *bool              `json:"autoNotify"`
	MessageTemplates     *[]MessageTemplate `json:"messageTemplates"`
}

// DecodeSettings parses a persisted or submitted settings document and
// merges it onto defaults. Absent fields take the default value. Templates
// whose status is unknown are dropped, and every status with a default
// template but none in the document gets the default appended.
//
// An empty or null document yields defaults.
func DecodeSettings(raw []byte, defaults WhatsAppSettings) (WhatsAppSettings, error) {
	out := defaults.Clone()
	if len(raw) == 0 {
		return out, nil
	}

	var doc *settingsDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return out, fmt.Errorf("decode settings: %w", err)
	}
	if doc == nil {
		return out, nil
	}

	if doc.WhatsAppNumber != nil {
		out.WhatsAppNumber = *doc.WhatsAppNumber
	}
	if doc.NotificationsEnabled != nil {
		out.NotificationsEnabled = *doc.NotificationsEnabled
	}
	if doc.AutoNotify != nil {
		out.AutoNotify = *doc.AutoNotify
	}
	if doc.MessageTemplates != nil {
		out.MessageTemplates = MergeTemplates(*doc.MessageTemplates, defaults.MessageTemplates)
	}
	return out, nil
}

// MergeTemplates keeps the valid entries of given in order and appends the
// default for each status given does not cover.
func MergeTemplates(given, defaults []MessageTemplate) []MessageTemplate {
	out := make([]MessageTemplate, 0, len(given)+len(defaults))
	seen := make(map[ShippingStatus]bool, len(given))
	for _, t := range given {
		if !t.Status.Valid() {
			continue
		}
		out = append(out, t)
		seen[t.Status] = true
	}
	for _, t := range defaults {
		if !seen[t.Status] {
			out = append(out, t)
			seen[t.Status] = true
		}
	}
	return out
}
