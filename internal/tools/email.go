package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rahul/taskpilot/pkg/config"
	mail "github.com/wneessen/go-mail"
)

// Attachment is one file attached to an outgoing email.
type Attachment struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// EmailOutput is the email tool's result shape.
type EmailOutput struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

type EmailTool struct {
	Client *mail.Client
	From   string
	Host   string
}

func NewEmailTool(cfg config.SMTPConfig) (*EmailTool, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
	}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}

	return &EmailTool{Client: client, From: cfg.From, Host: cfg.Host}, nil
}

func (e *EmailTool) Name() string {
	return "email"
}

func (e *EmailTool) Description() string {
	return "Send an email with a subject, plain-text body and optional file attachments."
}

func (e *EmailTool) Execute(ctx context.Context, args map[string]any, tc Context) (any, error) {
	to, err := requireString(args, "to")
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %v", err)
	}
	subject := stringArg(args, "subject")
	body := stringArg(args, "body")

	msg := mail.NewMsg()
	if err := msg.From(e.From); err != nil {
		return nil, fmt.Errorf("failed to send email: invalid sender %q: %v", e.From, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("failed to send email: invalid recipient %q: %v", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody(body))

	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), e.Host)
	msg.SetMessageIDWithValue(id)

	for _, att := range parseAttachments(args["attachments"]) {
		msg.AttachFile(att.Path, mail.WithFileName(att.Filename))
	}

	if err := e.Client.DialAndSendWithContext(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to send email: %v", err)
	}

	return &EmailOutput{Sent: true, Message: id}, nil
}

// htmlBody renders the plain-text body as a minimal HTML alternative.
func htmlBody(body string) string {
	return strings.ReplaceAll(body, "\n", "<br>")
}

// parseAttachments accepts the loose shapes the executor and the planner
// model put into args: a typed slice or a JSON-decoded []any of objects.
func parseAttachments(v any) []Attachment {
	switch list := v.(type) {
	case []Attachment:
		return list
	case []any:
		var atts []Attachment
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			att := Attachment{}
			if f, ok := m["filename"].(string); ok {
				att.Filename = f
			}
			if p, ok := m["path"].(string); ok {
				att.Path = p
			}
			if att.Path != "" {
				atts = append(atts, att)
			}
		}
		return atts
	}
	return nil
}
