package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"weatherbot/internal/telegram"
	"weatherbot/internal/weather"
)

// MaxVoiceDuration is the longest voice note, in seconds, the bot will transcribe.
const MaxVoiceDuration = 30

// Outcome is the branch a message ended in
type Outcome string

const (
	OutcomeHelp          Outcome = "help"
	OutcomeWeather       Outcome = "weather"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeVoiceTooLong  Outcome = "voice_too_long"
	OutcomeUnsupported   Outcome = "unsupported"
	OutcomeUpstreamError Outcome = "upstream_error"
)

type WeatherGetter interface {
	GetWeather(ctx context.Context, place string) (weather.Summary, error)
}

type FileRetriever interface {
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

type Speech interface {
	Recognize(ctx context.Context, audio []byte) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Responder interface {
	SendMessage(ctx context.Context, chatID, replyTo int64, text string) error
	SendVoice(ctx context.Context, chatID, replyTo int64, voice []byte) error
}

// Config tunes the dispatcher
type Config struct {
	ZoneLabel        string // Suffix after sun times, defaults to МСК
	MaxVoiceDuration int    // Seconds, defaults to MaxVoiceDuration
}

// Dispatcher answers one incoming message with one reply
type Dispatcher struct {
	weather   WeatherGetter
	files     FileRetriever
	speech    Speech
	responder Responder
	zoneLabel string
	maxVoice  int
	log       *zap.Logger
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(cfg Config, weatherSvc WeatherGetter, files FileRetriever, speech Speech, responder Responder, log *zap.Logger) *Dispatcher {
	if cfg.ZoneLabel == "" {
		cfg.ZoneLabel = "МСК"
	}
	if cfg.MaxVoiceDuration <= 0 {
		cfg.MaxVoiceDuration = MaxVoiceDuration
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Dispatcher{
		weather:   weatherSvc,
		files:     files,
		speech:    speech,
		responder: responder,
		zoneLabel: cfg.ZoneLabel,
		maxVoice:  cfg.MaxVoiceDuration,
		log:       log,
	}
}

type reply struct {
	chatID  int64
	replyTo int64
}

// Dispatch classifies the message and sends exactly one reply. Unknown places,
// long voice notes and unsupported content are answered with a fixed message;
// failures of the weather, speech or Telegram APIs are returned.
func (d *Dispatcher) Dispatch(ctx context.Context, m *telegram.Message) (Outcome, error) {
	if m == nil {
		return OutcomeUnsupported, telegram.ErrNoMessage
	}

	r := reply{chatID: m.Chat.ID, replyTo: m.MessageID}
	log := d.log.With(zap.Int64("chat_id", r.chatID), zap.Int64("message_id", r.replyTo))

	var (
		outcome Outcome
		err     error
	)
	switch p := telegram.Classify(m).(type) {
	case telegram.CommandPayload:
		outcome, err = OutcomeHelp, d.sendText(ctx, r, message(MessageHelp))
	case telegram.TextPayload:
		outcome, err = d.handlePlace(ctx, r, p.Text)
	case telegram.VoicePayload:
		outcome, err = d.handleVoice(ctx, r, p.Voice, log)
	case telegram.LocationPayload:
		outcome, err = d.handlePlace(ctx, r, PlaceFromLocation(p.Location))
	case telegram.UnsupportedPayload:
		outcome, err = OutcomeUnsupported, d.sendText(ctx, r, message(MessageUnsupported))
	default:
		return OutcomeUnsupported, fmt.Errorf("unhandled payload %T", p)
	}

	if err != nil {
		log.Warn("dispatch failed", zap.String("outcome", string(outcome)), zap.Error(err))
		return OutcomeUpstreamError, err
	}
	log.Info("message answered", zap.String("outcome", string(outcome)))
	return outcome, nil
}

// PlaceFromLocation formats coordinates as the "lat,lon" place descriptor.
func PlaceFromLocation(l telegram.Location) string {
	return strconv.FormatFloat(l.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(l.Longitude, 'f', -1, 64)
}

func (d *Dispatcher) handlePlace(ctx context.Context, r reply, place string) (Outcome, error) {
	summary, err := d.weather.GetWeather(ctx, place)
	if errors.Is(err, weather.ErrNotFound) {
		return OutcomeNotFound, d.sendText(ctx, r, message(MessageUnknownPlace))
	}
	if err != nil {
		return OutcomeUpstreamError, fmt.Errorf("get weather: %w", err)
	}
	return OutcomeWeather, d.sendText(ctx, r, FormatTextReport(summary, d.zoneLabel))
}

func (d *Dispatcher) handleVoice(ctx context.Context, r reply, v telegram.Voice, log *zap.Logger) (Outcome, error) {
	if v.Duration > d.maxVoice {
		return OutcomeVoiceTooLong, d.sendText(ctx, r, message(MessageVoiceTooLong))
	}

	audio, err := d.files.DownloadFile(ctx, v.FileID)
	if err != nil {
		return OutcomeUpstreamError, fmt.Errorf("retrieve voice: %w", err)
	}

	place, err := d.speech.Recognize(ctx, audio)
	if err != nil {
		return OutcomeUpstreamError, fmt.Errorf("recognize voice: %w", err)
	}
	log.Debug("voice recognized", zap.String("place", place))

	summary, err := d.weather.GetWeather(ctx, place)
	if errors.Is(err, weather.ErrNotFound) {
		return OutcomeNotFound, d.sendSpoken(ctx, r, message(MessageUnknownPlace), log)
	}
	if err != nil {
		return OutcomeUpstreamError, fmt.Errorf("get weather: %w", err)
	}

	speech, err := d.speech.Synthesize(ctx, FormatSpokenReport(place, summary))
	if err != nil {
		return OutcomeUpstreamError, fmt.Errorf("synthesize report: %w", err)
	}
	if err := d.responder.SendVoice(ctx, r.chatID, r.replyTo, speech); err != nil {
		return OutcomeWeather, fmt.Errorf("send voice: %w", err)
	}
	return OutcomeWeather, nil
}

// sendSpoken answers in voice, falling back to text when synthesis fails.
func (d *Dispatcher) sendSpoken(ctx context.Context, r reply, text string, log *zap.Logger) error {
	speech, err := d.speech.Synthesize(ctx, text)
	if err != nil {
		log.Warn("synthesis failed, replying with text", zap.Error(err))
		return d.sendText(ctx, r, text)
	}
	if err := d.responder.SendVoice(ctx, r.chatID, r.replyTo, speech); err != nil {
		return fmt.Errorf("send voice: %w", err)
	}
	return nil
}

func (d *Dispatcher) sendText(ctx context.Context, r reply, text string) error {
	if err := d.responder.SendMessage(ctx, r.chatID, r.replyTo, text); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
