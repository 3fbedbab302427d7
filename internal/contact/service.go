// Package contact は公開問い合わせフォームの送信処理を提供する。
// ハニーポット判定、入力検証、呼び出し元ごとのレート制限、メール中継を順に行う。
package contact

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	mailpkg "github.com/hitoshi/castline/internal/mail"
	"github.com/hitoshi/castline/internal/model"
	"github.com/hitoshi/castline/internal/ratelimit"
)

// 送信結果のラベル
const (
	OutcomeSent        = "sent"
	OutcomeHoneypot    = "honeypot"
	OutcomeInvalid     = "invalid"
	OutcomeRateLimited = "rate_limited"
	OutcomeRelayFailed = "relay_failed"
)

const (
	maxNameLength    = 200
	maxMessageLength = 5000
)

// Submission は問い合わせフォームの入力。
type Submission struct {
	Name    string
	Email   string
	Message string
	// Honeypot は画面に表示しないダミー項目。値が入っていればボットとみなす。
	Honeypot string
}

// Admitter は呼び出し元キーごとに送信を許可するかを判定する。
type Admitter interface {
	Admit(ctx context.Context, key string) (ratelimit.Decision, error)
}

// Sender はメールを送信する。
type Sender interface {
	Send(ctx context.Context, msg mailpkg.Message) error
}

// Sanitizer はメール本文に埋め込むテキストをサニタイズする。
type Sanitizer interface {
	Text(raw string) string
	Paragraphs(raw string) string
}

// Recorder は送信結果を記録する。
type Recorder interface {
	RecordSubmission(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordSubmission(string) {}

// Config は送信先などの設定。
type Config struct {
	Recipient string
	From      string
}

// RateLimitedError は送信回数の上限に達したことを表す。
type RateLimitedError struct {
	*model.APIError
	RetryAfter time.Duration
}

// Unwrap はAPIErrorを返す。
func (e *RateLimitedError) Unwrap() error {
	return e.APIError
}

// Service は問い合わせフォームの送信処理を行う。
type Service struct {
	limiter   Admitter
	sender    Sender
	sanitizer Sanitizer
	recorder  Recorder
	config    Config
	logger    *slog.Logger
}

// NewService はServiceを生成する。recorderはnilでもよい。
func NewService(limiter Admitter, sender Sender, sanitizer Sanitizer, recorder Recorder, config Config, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		limiter:   limiter,
		sender:    sender,
		sanitizer: sanitizer,
		recorder:  recorder,
		config:    config,
		logger:    logger,
	}
}

// Submit は問い合わせを受け付ける。callerKeyはレート制限のキー（通常はクライアントIP）。
//
// ハニーポット項目に値がある場合は、レート制限にも送信にも触れずに成功として返す。
// レート制限のストアが利用できない場合は許可する。
func (s *Service) Submit(ctx context.Context, callerKey string, sub Submission) error {
	if strings.TrimSpace(sub.Honeypot) != "" {
		s.logger.Info("contact submission trapped by honeypot",
			slog.String("caller", callerKey),
		)
		s.recorder.RecordSubmission(OutcomeHoneypot)
		return nil
	}

	if err := validate(sub); err != nil {
		s.recorder.RecordSubmission(OutcomeInvalid)
		return err
	}

	decision, err := s.limiter.Admit(ctx, callerKey)
	if err != nil {
		s.logger.Error("rate limit store error",
			slog.String("caller", callerKey),
			slog.String("error", err.Error()),
		)
	}
	if !decision.Allowed {
		s.logger.Warn("contact rate limit exceeded",
			slog.String("caller", callerKey),
		)
		s.recorder.RecordSubmission(OutcomeRateLimited)
		return &RateLimitedError{
			APIError:   model.NewRateLimitedError(),
			RetryAfter: decision.RetryAfter,
		}
	}

	msg := s.compose(sub)
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("contact relay failed",
			slog.String("caller", callerKey),
			slog.String("error", err.Error()),
		)
		s.recorder.RecordSubmission(OutcomeRelayFailed)
		return model.NewRelayFailedError()
	}

	s.recorder.RecordSubmission(OutcomeSent)
	return nil
}

func validate(sub Submission) error {
	var missing []string
	if strings.TrimSpace(sub.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(sub.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(sub.Message) == "" {
		missing = append(missing, "message")
	}
	if len(missing) > 0 {
		return model.NewInvalidRequestError(fmt.Sprintf("必須項目が未入力です: %s", strings.Join(missing, ", ")))
	}

	if _, err := mail.ParseAddress(strings.TrimSpace(sub.Email)); err != nil {
		return model.NewInvalidRequestError("メールアドレスの形式が正しくありません")
	}
	if len([]rune(sub.Name)) > maxNameLength {
		return model.NewInvalidRequestError("お名前が長すぎます")
	}
	if len([]rune(sub.Message)) > maxMessageLength {
		return model.NewInvalidRequestError("本文が長すぎます")
	}
	return nil
}

func (s *Service) compose(sub Submission) mailpkg.Message {
	name := s.sanitizer.Text(sub.Name)
	email := s.sanitizer.Text(sub.Email)

	var html strings.Builder
	html.WriteString("<p><strong>お名前:</strong> ")
	html.WriteString(name)
	html.WriteString("<br><strong>メール:</strong> ")
	html.WriteString(email)
	html.WriteString("</p>")
	html.WriteString(s.sanitizer.Paragraphs(sub.Message))

	return mailpkg.Message{
		From:    s.config.From,
		To:      []string{s.config.Recipient},
		ReplyTo: strings.TrimSpace(sub.Email),
		Subject: fmt.Sprintf("お問い合わせ: %s", strings.Join(strings.Fields(sub.Name), " ")),
		HTML:    html.String(),
		Text:    fmt.Sprintf("お名前: %s\nメール: %s\n\n%s", strings.TrimSpace(sub.Name), strings.TrimSpace(sub.Email), sub.Message),
	}
}
