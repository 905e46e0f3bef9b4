// Package mailer implements the email I/O edge: IMAP for reading the inbox,
// SMTP for sending. One short-lived IMAP session per fetch keeps the client
// free of connection state.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/smtp"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	contractx "github.com/tanpawarit/orbita/agent/contract"
)

const maxBodyBytes = 4096

type Config struct {
	IMAPAddr string        `envconfig:"IMAP_ADDR" split_words:"true" required:"true"`
	SMTPAddr string        `envconfig:"SMTP_ADDR" split_words:"true" required:"true"`
	Username string        `split_words:"true" required:"true"`
	Password string        `split_words:"true" required:"true"`
	From     string        `split_words:"true" required:"true"`
	Mailbox  string        `split_words:"true" default:"INBOX"`
	Timeout  time.Duration `split_words:"true" default:"15s"`
}

type Client struct {
	cfg Config
}

var _ contractx.MailTransport = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.IMAPAddr) == "" {
		return nil, errors.New("imap address is required")
	}
	if strings.TrimSpace(cfg.SMTPAddr) == "" {
		return nil, errors.New("smtp address is required")
	}
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, errors.New("mail credentials are required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		cfg.From = cfg.Username
	}
	if strings.TrimSpace(cfg.Mailbox) == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{cfg: cfg}, nil
}

// Fetch reads the latest k messages, newest first. With from set, only
// messages from that sender count toward k.
func (c *Client) Fetch(ctx context.Context, k int, from string) ([]contractx.EmailMessage, error) {
	if k < 1 {
		k = 1
	}

	conn, err := imapclient.DialTLS(c.cfg.IMAPAddr, nil)
	if err != nil {
		return nil, fmt.Errorf("mailer: dial imap %s: %w", c.cfg.IMAPAddr, err)
	}
	defer conn.Logout()
	conn.Timeout = c.cfg.Timeout

	if err := conn.Login(c.cfg.Username, c.cfg.Password); err != nil {
		return nil, fmt.Errorf("mailer: imap login: %w", err)
	}
	mbox, err := conn.Select(c.cfg.Mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("mailer: select %s: %w", c.cfg.Mailbox, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	seqset, err := c.targetSeqs(conn, mbox, k, from)
	if err != nil {
		return nil, err
	}
	if seqset == nil {
		return nil, nil
	}

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	messages := make(chan *imap.Message, k)
	fetchErr := make(chan error, 1)
	go func() {
		fetchErr <- conn.Fetch(seqset, items, messages)
	}()

	var out []contractx.EmailMessage
	for msg := range messages {
		out = append(out, toEmail(msg, section))
	}
	if err := <-fetchErr; err != nil {
		return nil, fmt.Errorf("mailer: fetch: %w", err)
	}

	// newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, ctx.Err()
}

func (c *Client) targetSeqs(conn *imapclient.Client, mbox *imap.MailboxStatus, k int, from string) (*imap.SeqSet, error) {
	seqset := new(imap.SeqSet)

	if strings.TrimSpace(from) == "" {
		low := uint32(1)
		if mbox.Messages > uint32(k) {
			low = mbox.Messages - uint32(k) + 1
		}
		seqset.AddRange(low, mbox.Messages)
		return seqset, nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("From", strings.TrimSpace(from))
	ids, err := conn.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("mailer: search from=%s: %w", from, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > k {
		ids = ids[len(ids)-k:]
	}
	seqset.AddNum(ids...)
	return seqset, nil
}

func toEmail(msg *imap.Message, section *imap.BodySectionName) contractx.EmailMessage {
	out := contractx.EmailMessage{}
	if msg.Envelope != nil {
		out.ID = msg.Envelope.MessageId
		out.Subject = msg.Envelope.Subject
		if len(msg.Envelope.From) > 0 {
			out.From = msg.Envelope.From[0].Address()
		}
	}
	if body := msg.GetBody(section); body != nil {
		raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
		if err == nil {
			out.Body = strings.TrimSpace(string(raw))
		}
	}
	return out
}

// Send delivers a plain-text message over authenticated SMTP.
func (c *Client) Send(_ context.Context, to, subject, body string) error {
	host := c.cfg.SMTPAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, host)

	msg := strings.Join([]string{
		"From: " + c.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"utf-8\"",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(c.cfg.SMTPAddr, auth, c.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("mailer: send to=%s: %w", to, err)
	}
	return nil
}
