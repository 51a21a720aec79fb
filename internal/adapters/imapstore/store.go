package imapstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/inboxguard/inboxguard/internal/config"
	"github.com/inboxguard/inboxguard/internal/core"
	"go.uber.org/zap"
)

// Store is an IMAP implementation of the MailStore interface. One Store wraps
// one connection; calls are not safe for concurrent use.
type Store struct {
	client *client.Client
	logger *zap.Logger
}

// NewStore dials the IMAP server over TLS and logs in
func NewStore(cfg config.IMAPConfig, logger *zap.Logger) (*Store, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.Server, cfg.Port), nil)
	if err != nil {
		return nil, &core.ConnectionError{Op: "dial", Err: err}
	}

	if err := c.Login(cfg.Username, cfg.Password); err != nil {
		c.Logout()
		return nil, &core.ConnectionError{Op: "login", Err: err}
	}

	logger.Info("Connected to IMAP server",
		zap.String("server", cfg.Server),
		zap.Int("port", cfg.Port),
		zap.String("username", cfg.Username))

	return &Store{client: c, logger: logger}, nil
}

// SelectFolder makes the named folder the context for subsequent calls
func (s *Store) SelectFolder(ctx context.Context, folder string) error {
	if _, err := s.client.Select(folder, false); err != nil {
		return fmt.Errorf("failed to select folder %s: %w", folder, err)
	}
	return nil
}

// ListRecentUIDs returns the identifiers of at most max of the newest
// messages in the folder, oldest first
func (s *Store) ListRecentUIDs(ctx context.Context, folder string, max int) ([]string, error) {
	mbox, err := s.client.Select(folder, false)
	if err != nil {
		return nil, fmt.Errorf("failed to select folder %s: %w", folder, err)
	}

	if mbox.Messages == 0 || max <= 0 {
		return []string{}, nil
	}

	from := uint32(1)
	if mbox.Messages > uint32(max) {
		from = mbox.Messages - uint32(max) + 1
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, mbox.Messages)

	messages := make(chan *imap.Message, max)
	done := make(chan error, 1)
	go func() {
		done <- s.client.Fetch(seqSet, []imap.FetchItem{imap.FetchUid}, messages)
	}()

	var uids []string
	for msg := range messages {
		uids = append(uids, strconv.FormatUint(uint64(msg.Uid), 10))
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message identifiers: %w", err)
	}

	return uids, nil
}

// Fetch retrieves and decodes one message by identifier
func (s *Store) Fetch(ctx context.Context, uid string) (*core.EmailRecord, error) {
	uidNum, err := strconv.ParseUint(uid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid message identifier %q: %w", uid, err)
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uint32(uidNum))

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		msg = m
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", uid, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("message %s not found", uid)
	}

	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("message %s has no body section", uid)
	}

	record, err := parseMessage(body, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %s: %w", uid, err)
	}
	record.UID = uid

	return record, nil
}

// Apply performs one mailbox mutation. Flag and label changes that are
// already in place on the server are left as no-ops.
func (s *Store) Apply(ctx context.Context, m core.Mutation) error {
	uidNum, err := strconv.ParseUint(m.UID, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid message identifier %q: %w", m.UID, err)
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uint32(uidNum))

	switch m.Op {
	case core.OpMarkFlagged:
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		flags := []interface{}{imap.FlaggedFlag}
		if err := s.client.UidStore(seqSet, item, flags, nil); err != nil {
			return fmt.Errorf("failed to flag message %s: %w", m.UID, err)
		}

	case core.OpAddLabel:
		if err := s.storeLabels(seqSet, "+X-GM-LABELS", m.Name); err != nil {
			return fmt.Errorf("failed to add label %s to message %s: %w", m.Name, m.UID, err)
		}

	case core.OpRemoveLabel:
		if err := s.storeLabels(seqSet, "-X-GM-LABELS", m.Name); err != nil {
			return fmt.Errorf("failed to remove label %s from message %s: %w", m.Name, m.UID, err)
		}

	case core.OpMoveToFolder:
		if err := s.client.UidCopy(seqSet, m.Name); err != nil {
			return fmt.Errorf("failed to copy message %s to %s: %w", m.UID, m.Name, err)
		}
		if err := s.markDeleted(seqSet); err != nil {
			return fmt.Errorf("failed to remove message %s from source folder: %w", m.UID, err)
		}

	case core.OpDeletePermanently:
		if err := s.markDeleted(seqSet); err != nil {
			return fmt.Errorf("failed to delete message %s: %w", m.UID, err)
		}

	default:
		return fmt.Errorf("unsupported mutation %s", m.Op)
	}

	s.logger.Debug("Applied mailbox mutation",
		zap.String("uid", m.UID),
		zap.String("op", m.Op.String()),
		zap.String("name", m.Name))

	return nil
}

// EnsureLabel creates a label or folder if it does not already exist
func (s *Store) EnsureLabel(ctx context.Context, name string) error {
	err := s.client.Create(name)
	if err == nil {
		return nil
	}
	if isAlreadyExists(err) {
		return nil
	}
	return fmt.Errorf("failed to create label %s: %w", name, err)
}

// Close terminates the connection
func (s *Store) Close() error {
	return s.client.Logout()
}

// storeLabels issues a Gmail X-GM-LABELS store. System labels such as \Inbox
// must go over the wire unquoted.
func (s *Store) storeLabels(seqSet *imap.SeqSet, item string, label string) error {
	var value interface{} = label
	if strings.HasPrefix(label, `\`) {
		value = imap.RawString(label)
	}
	return s.client.UidStore(seqSet, imap.StoreItem(item), []interface{}{value}, nil)
}

// markDeleted flags the messages as deleted and expunges the folder
func (s *Store) markDeleted(seqSet *imap.SeqSet) error {
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.DeletedFlag}
	if err := s.client.UidStore(seqSet, item, flags, nil); err != nil {
		return err
	}
	return s.client.Expunge(nil)
}

// isAlreadyExists reports whether a folder create failed only because the
// folder is already there
func isAlreadyExists(err error) bool {
	text := strings.ToUpper(err.Error())
	return strings.Contains(text, "ALREADYEXISTS") || strings.Contains(text, "ALREADY EXISTS")
}
