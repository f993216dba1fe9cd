package imap

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/nhle/trackmate/internal/model"
	"github.com/nhle/trackmate/internal/source"
)

// Client wraps go-imap v2 for connecting to and querying IMAP servers.
type Client struct {
	host     string
	port     string
	username string
	password string
	tls      bool
}

// NewClient creates a new IMAP client configuration.
func NewClient(host, port, username, password string, tls bool) *Client {
	return &Client{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
	}
}

// Connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client. The caller is responsible for
// calling Logout on the returned client.
func (c *Client) Connect(ctx context.Context) (*imapclient.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr := c.host + ":" + c.port

	var client *imapclient.Client
	var err error

	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &source.AuthError{
			SourceType: model.SourceTypeIMAP,
			Message:    fmt.Sprintf("authentication failed for %s: %v", c.username, err),
		}
	}

	// Abort blocked commands when the caller gives up.
	go func() {
		<-ctx.Done()
		_ = client.Close()
	}()

	return client, nil
}

// Message is one message as returned by FETCH.
type Message struct {
	UID          imap.UID
	Flags        []string
	InternalDate time.Time
	EnvelopeDate time.Time
	Raw          []byte
}

// Fetch connects, selects mailbox, and returns every message matching
// criteria, newest first, capped at limit (0 means no cap).
func (c *Client) Fetch(
	ctx context.Context,
	mailbox string,
	criteria *imap.SearchCriteria,
	limit int,
) ([]Message, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	// Limit the number of UIDs to fetch (take most recent).
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:     true,
		Flags:        true,
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), fetchOpts)
	defer fetchCmd.Close()

	var messages []Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		m := Message{
			UID:          buf.UID,
			InternalDate: buf.InternalDate,
			Raw:          buf.FindBodySection(bodySection),
		}
		if buf.Envelope != nil {
			m.EnvelopeDate = buf.Envelope.Date
		}
		for _, flag := range buf.Flags {
			m.Flags = append(m.Flags, string(flag))
		}
		messages = append(messages, m)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching messages: %w", err)
	}

	slices.SortFunc(messages, func(a, b Message) int {
		return cmp.Compare(b.UID, a.UID)
	})
	return messages, nil
}
