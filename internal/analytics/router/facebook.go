package router

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pixcheckout-backend/internal/analytics/types"
	"github.com/angelmondragon/pixcheckout-backend/internal/siteconfig"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
	"github.com/angelmondragon/pixcheckout-backend/pkg/facebook"
	"github.com/angelmondragon/pixcheckout-backend/pkg/logger"
	"github.com/angelmondragon/pixcheckout-backend/pkg/outbox/payloads"
)

// PixelForwarder mirrors a funnel event to the ad platform. It reports whether
// the event was actually delivered.
type PixelForwarder interface {
	Forward(ctx context.Context, envelope types.Envelope, event payloads.PixelEvent, contentIDs []string) (bool, error)
}

type eventSender interface {
	SendEvents(ctx context.Context, pixelID, accessToken string, events ...facebook.Event) (*facebook.Response, error)
}

type settingsLoader interface {
	Load(ctx context.Context) (siteconfig.Settings, error)
}

// FacebookForwarder sends pixel events through the Conversions API using the
// access token currently stored in the site configuration.
type FacebookForwarder struct {
	client   eventSender
	settings settingsLoader
	logg     *logger.Logger
}

func NewFacebookForwarder(client eventSender, settings settingsLoader, logg *logger.Logger) (*FacebookForwarder, error) {
	if client == nil {
		return nil, errors.New("facebook client is required")
	}
	if settings == nil {
		return nil, errors.New("site config is required")
	}
	return &FacebookForwarder{client: client, settings: settings, logg: logg}, nil
}

// Forward skips events without a token and drops events the API rejects as
// invalid; only transient failures are returned for redelivery.
func (f *FacebookForwarder) Forward(ctx context.Context, envelope types.Envelope, event payloads.PixelEvent, contentIDs []string) (bool, error) {
	name := envelope.EventType.PixelEventName()
	if name == "" || strings.TrimSpace(event.PixelID) == "" {
		return false, nil
	}
	settings, err := f.settings.Load(ctx)
	if err != nil {
		return false, err
	}
	if settings.FacebookToken == "" {
		return false, nil
	}

	fbEvent := facebook.Event{
		EventName:      name,
		EventTime:      envelope.OccurredAt.Unix(),
		EventID:        envelope.EventID,
		ActionSource:   facebook.ActionSourceWebsite,
		EventSourceURL: event.EventSourceURL,
		UserData: facebook.UserData{
			EmailHashes: nonEmpty(event.EmailHash),
			PhoneHashes: nonEmpty(event.PhoneHash),
		},
		CustomData: facebook.CustomData{
			Currency:    event.Currency,
			Value:       decimal.New(event.ValueMinor, -2).InexactFloat64(),
			ContentName: event.ContentName,
			ContentIDs:  contentIDs,
		},
	}
	if envelope.Actor != nil {
		fbEvent.UserData.ClientIPAddress = envelope.Actor.IPAddress
		fbEvent.UserData.ClientUserAgent = envelope.Actor.UserAgent
	}

	if _, err := f.client.SendEvents(ctx, event.PixelID, settings.FacebookToken, fbEvent); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			if f.logg != nil {
				f.logg.Warn(f.logg.WithField(ctx, "error", err.Error()), "pixel event rejected")
			}
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func nonEmpty(value string) []string {
	if value == "" {
		return nil
	}
	return []string{value}
}
