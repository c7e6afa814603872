package mail

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dkremnev/overstory/internal/errs"
	"github.com/dkremnev/overstory/internal/mailstore"
	"github.com/dkremnev/overstory/pkg/types"
)

// Client is the higher-level mail API agents and the watchdog call
// (spec §4.3 "client layer"). It never touches the mail table directly;
// every operation goes through mailstore.Store.
type Client struct {
	store    *mailstore.Store
	sessions activeAgentLister
}

// NewClient wires a mail client against a mail store and the session
// store used for group address resolution.
func NewClient(store *mailstore.Store, sessions activeAgentLister) *Client {
	return &Client{store: store, sessions: sessions}
}

// Send resolves `to` (a plain agent name or a group address), inserts
// one row per resolved recipient, and returns the new ids. An empty
// resolution is a no-op returning a nil slice (spec §4.3, P9).
func (c *Client) Send(from, to, subject, body string, mailType types.MailType, priority types.MailPriority) ([]string, error) {
	recipients, err := resolveRecipients(c.sessions, to, from)
	if err != nil {
		return nil, errs.MailWrap("resolve recipients", err).With("to", to).With("from", from)
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		m := &types.MailMessage{
			From:     from,
			To:       recipient,
			Subject:  subject,
			Body:     body,
			Type:     mailType,
			Priority: priority,
		}
		if err := c.store.Insert(m); err != nil {
			return ids, errs.MailWrap("insert message", err).With("to", recipient)
		}
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// SendProtocol serializes payload as the message's JSON payload column
// and tags it with mailType (spec §4.3 "send_protocol<T>").
func SendProtocol[T any](c *Client, from, to string, mailType types.MailType, priority types.MailPriority, subject string, payload T) ([]string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.MailWrap("marshal protocol payload", err).With("type", string(mailType))
	}

	recipients, err := resolveRecipients(c.sessions, to, from)
	if err != nil {
		return nil, errs.MailWrap("resolve recipients", err).With("to", to)
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	payloadStr := string(raw)
	ids := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		m := &types.MailMessage{
			From:     from,
			To:       recipient,
			Subject:  subject,
			Type:     mailType,
			Priority: priority,
			Payload:  &payloadStr,
		}
		if err := c.store.Insert(m); err != nil {
			return ids, errs.MailWrap("insert protocol message", err).With("to", recipient)
		}
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// Check is the atomic read-and-mark primitive: fetch agent's unread
// mail and mark every returned message read, returning the pre-mark
// snapshot (spec §4.3 "check(agent)").
func (c *Client) Check(agent string) ([]*types.MailMessage, error) {
	unread, err := c.store.CheckAndMark(agent)
	if err != nil {
		return nil, errs.MailWrap("check and mark unread", err).With("agent", agent)
	}
	return unread, nil
}

// CheckInject formats agent's unread mail as a single string suitable
// for injection into an agent's context window (spec §4.3
// "check_inject(agent)").
func (c *Client) CheckInject(agent string) (string, error) {
	unread, err := c.Check(agent)
	if err != nil {
		return "", err
	}
	if len(unread) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, m := range unread {
		fmt.Fprintf(&sb, "[%s] from %s: %s\n%s\n\n", m.Type, m.From, m.Subject, m.Body)
	}
	return sb.String(), nil
}

// Reply looks up messageID, inherits or originates the thread, and
// sends body back to the original sender as a status message with
// normal priority; neither type nor priority can be overridden.
//
// Thread root resolution: if the original message already belongs to a
// thread, replies join that thread's root rather than the immediate
// parent, so a reply-to-a-reply still threads under the original
// conversation root.
func (c *Client) Reply(messageID, from, body string) (string, error) {
	original, err := c.store.GetByID(messageID)
	if err != nil {
		return "", errs.MailWrap("lookup original message", err).With("message_id", messageID)
	}

	threadID := original.ID
	if original.ThreadID != nil {
		threadID = *original.ThreadID
	}

	m := &types.MailMessage{
		From:     from,
		To:       original.From,
		Subject:  "Re: " + original.Subject,
		Body:     body,
		Type:     types.MailStatus,
		Priority: types.PriorityNormal,
		ThreadID: &threadID,
	}
	if err := c.store.Insert(m); err != nil {
		return "", errs.MailWrap("insert reply", err).With("thread_id", threadID)
	}
	return m.ID, nil
}
