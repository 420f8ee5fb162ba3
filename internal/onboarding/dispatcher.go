// Package onboarding runs the side effects of a new account: the welcome mail,
// the chat workspace invite and the mailing list subscription. Each one is a
// background job that fails on its own without affecting the others.
package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"operationcode_backend/internal/common"
	"operationcode_backend/internal/jobs"
	"operationcode_backend/internal/shared"

	"go.uber.org/zap"
)

const (
	KindWelcomeEmail jobs.Kind = "onboarding:welcome_email"
	KindChatInvite   jobs.Kind = "onboarding:chat_invite"
	KindMailingList  jobs.Kind = "onboarding:mailing_list"
)

// Kinds lists every onboarding job, in no particular order of execution.
var Kinds = []jobs.Kind{KindWelcomeEmail, KindChatInvite, KindMailingList}

// Payload is the body of every onboarding job.
type Payload struct {
	Email string `json:"email"`
}

// UserLookup finds local accounts by email. A missing account is reported as common.ErrNotFound.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*shared.User, error)
}

// Dispatcher executes onboarding jobs.
type Dispatcher struct {
	cfg       Config
	mailer    Mailer
	users     UserLookup
	chat      *chatInviteClient
	mailchimp *mailchimpClient
	logger    *zap.Logger
}

// NewDispatcher wires the dispatcher. httpClient may be nil, in which case one with
// cfg.HTTPTimeout is created.
func NewDispatcher(cfg Config, mailer Mailer, users UserLookup, httpClient *http.Client, logger *zap.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &Dispatcher{
		cfg:    cfg,
		mailer: mailer,
		users:  users,
		chat: &chatInviteClient{
			baseURL: cfg.PybotURL,
			token:   cfg.PybotAuthToken,
			http:    httpClient,
		},
		mailchimp: &mailchimpClient{
			apiKey:  cfg.MailchimpAPIKey,
			listID:  cfg.MailchimpListID,
			baseURL: cfg.MailchimpBaseURL,
			timeout: httpClient.Timeout,
			next:    httpClient.Transport,
		},
		logger: logger.Named("onboarding"),
	}
}

// RegisterHandlers binds the three onboarding kinds on reg.
func (d *Dispatcher) RegisterHandlers(reg jobs.Registrar) error {
	handlers := map[jobs.Kind]func(context.Context, string) jobs.Outcome{
		KindWelcomeEmail: d.SendWelcomeEmail,
		KindChatInvite:   d.SendChatInvite,
		KindMailingList:  d.SubscribeMailingList,
	}
	for kind, op := range handlers {
		if err := reg.Handle(kind, d.handler(kind, op)); err != nil {
			return fmt.Errorf("register %s: %w", kind, err)
		}
	}
	return nil
}

func (d *Dispatcher) handler(kind jobs.Kind, op func(context.Context, string) jobs.Outcome) jobs.HandlerFunc {
	return func(ctx context.Context, raw []byte) jobs.Outcome {
		var p Payload
		if err := json.Unmarshal(raw, &p); err != nil || p.Email == "" {
			if err == nil {
				err = errors.New("payload has no email")
			}
			d.logger.Error("Discarding malformed onboarding job", zap.String("kind", string(kind)), zap.Error(err))
			return jobs.Fail(err)
		}
		return op(ctx, p.Email)
	}
}

// guard logs the outcome of op with job context and turns a panic into a permanent failure.
func (d *Dispatcher) guard(kind jobs.Kind, email string, op func(log *zap.Logger) jobs.Outcome) (out jobs.Outcome) {
	log := d.logger.With(zap.String("kind", string(kind)), zap.String("email", email))
	defer func() {
		if r := recover(); r != nil {
			out = jobs.Fail(fmt.Errorf("panic: %v", r))
		}
		switch out.Status {
		case jobs.StatusSucceeded:
			log.Info("Onboarding job finished")
		case jobs.StatusRetryable:
			log.Warn("Onboarding job failed, retryable", zap.Error(out.Err))
		default:
			log.Error("Onboarding job failed", zap.Error(out.Err))
		}
	}()
	return op(log)
}

// SendWelcomeEmail mails the fixed welcome message to email.
func (d *Dispatcher) SendWelcomeEmail(ctx context.Context, email string) jobs.Outcome {
	return d.guard(KindWelcomeEmail, email, func(log *zap.Logger) jobs.Outcome {
		log.Info("Sending welcome email")
		text, html, err := renderWelcome()
		if err != nil {
			return jobs.Fail(fmt.Errorf("render welcome templates: %w", err))
		}
		err = d.mailer.Send(ctx, Message{
			From:    d.cfg.MailFrom,
			To:      []string{email},
			Subject: d.cfg.WelcomeSubject,
			Text:    text,
			HTML:    html,
		})
		switch {
		case err == nil:
			return jobs.Succeeded()
		case errors.Is(err, ErrInvalidAddress):
			return jobs.Fail(err)
		default:
			return jobs.Retry(err)
		}
	})
}

// SendChatInvite asks pybot to invite email to the chat workspace. Whatever pybot
// answers below 500 is logged and accepted.
func (d *Dispatcher) SendChatInvite(ctx context.Context, email string) jobs.Outcome {
	return d.guard(KindChatInvite, email, func(log *zap.Logger) jobs.Outcome {
		log.Info("Sending chat invite")
		res, err := d.chat.Invite(ctx, email)
		if errors.Is(err, errPybotNotConfigured) {
			return jobs.Fail(err)
		}
		if err != nil {
			return jobs.Retry(err)
		}
		log.Info("Chat invite response", zap.Int("status", res.Status), zap.String("body", res.Body))
		if res.Status >= http.StatusInternalServerError {
			return jobs.Retry(fmt.Errorf("pybot responded %d", res.Status))
		}
		return jobs.Succeeded()
	})
}

// SubscribeMailingList subscribes the local user with this email to the mailing list,
// passing their first and last name as merge fields. Unknown emails are not sent.
func (d *Dispatcher) SubscribeMailingList(ctx context.Context, email string) jobs.Outcome {
	return d.guard(KindMailingList, email, func(log *zap.Logger) jobs.Outcome {
		u, err := d.users.GetUserByEmail(ctx, email)
		if errors.Is(err, common.ErrNotFound) {
			return jobs.Fail(fmt.Errorf("no user with email %q", email))
		}
		if err != nil {
			return jobs.Retry(fmt.Errorf("look up user: %w", err))
		}

		status, problem, err := d.mailchimp.Subscribe(ctx, email, u.FirstName, u.LastName)
		switch {
		case errors.Is(err, errMailchimpNotConfigured), errors.Is(err, errMailchimpBadKey):
			return jobs.Fail(err)
		case err != nil:
			return jobs.Retry(err)
		case problem == nil:
			log.Info("Added user to mailing list", zap.Int("status", status))
			return jobs.Succeeded()
		}

		if status == 0 {
			status = problem.Status
		}
		perr := fmt.Errorf("mailchimp responded %d %s: %s", status, problem.Title, problem.Detail)
		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			return jobs.Retry(perr)
		}
		if problem.Title == memberExistsTitle {
			log.Info("Address is already on the mailing list")
		}
		return jobs.Fail(perr)
	})
}
