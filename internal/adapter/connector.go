// ABOUTME: HTTP connector implementation of the channel adapter
// ABOUTME: Posts activities to the conversation's service URL with a signed bearer token

package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/courierbot/courier/internal/activity"
	"github.com/courierbot/courier/internal/refstore"
)

const (
	requestTimeout = 10 * time.Second
	tokenLifetime  = 10 * time.Minute
)

// Connector posts activities to the channel's REST surface. One instance is
// shared by the bot (replies) and the dispatcher (proactive sends); the
// embedded http.Client is safe for concurrent use.
type Connector struct {
	appID  string
	secret []byte
	client *http.Client
	logger *slog.Logger
}

// NewConnector creates a connector authenticating as appID with the given
// app password.
func NewConnector(appID, appPassword string) *Connector {
	return &Connector{
		appID:  appID,
		secret: []byte(appPassword),
		client: &http.Client{Timeout: requestTimeout},
		logger: slog.Default().With("component", "connector"),
	}
}

// ContinueConversation addresses the activity to the stored reference and
// posts it to the conversation's activity collection.
func (c *Connector) ContinueConversation(ctx context.Context, ref *refstore.ConversationReference, act *activity.Activity) error {
	activity.ApplyReference(act, ref)
	// Proactive sends authenticate as the configured app even when the
	// stored reference predates a credential rotation.
	if act.From.ID == "" {
		act.From = activity.Account{ID: c.appID}
	}

	endpoint, err := activityURL(ref.ServiceURL, ref.Conversation.ID, "")
	if err != nil {
		return err
	}
	return c.post(ctx, endpoint, act)
}

// ReplyTo posts a reply into the conversation the inbound activity came from.
func (c *Connector) ReplyTo(ctx context.Context, inbound, reply *activity.Activity) error {
	reply.ChannelID = inbound.ChannelID
	reply.ServiceURL = inbound.ServiceURL
	reply.Conversation = inbound.Conversation
	reply.From = inbound.Recipient
	reply.Recipient = inbound.From
	reply.ReplyToID = inbound.ID

	endpoint, err := activityURL(inbound.ServiceURL, inbound.Conversation.ID, inbound.ID)
	if err != nil {
		return err
	}
	return c.post(ctx, endpoint, reply)
}

func (c *Connector) post(ctx context.Context, endpoint string, act *activity.Activity) error {
	body, err := json.Marshal(act)
	if err != nil {
		return fmt.Errorf("encoding activity: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.bearerToken()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting activity: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		// The channel dropped the conversation or removed the bot from it.
		return fmt.Errorf("%w: %s", ErrConversationGone, readError(resp.Body))
	default:
		return fmt.Errorf("channel rejected activity: status %d: %s", resp.StatusCode, readError(resp.Body))
	}
}

// bearerToken mints a short-lived HS256 token identifying the app.
func (c *Connector) bearerToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": c.appID,
		"sub": c.appID,
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing bearer token: %w", err)
	}
	return token, nil
}

// activityURL builds the activity-collection URL for a conversation, or the
// reply URL when replyToID is set.
func activityURL(serviceURL, conversationID, replyToID string) (string, error) {
	base, err := url.Parse(serviceURL)
	if err != nil || base.Host == "" {
		return "", fmt.Errorf("invalid service url %q", serviceURL)
	}

	p := "/v3/conversations/" + url.PathEscape(conversationID) + "/activities"
	if replyToID != "" {
		p += "/" + url.PathEscape(replyToID)
	}
	base.Path = strings.TrimSuffix(base.Path, "/") + p
	return base.String(), nil
}

func readError(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(data) == 0 {
		return "no response body"
	}
	return strings.TrimSpace(string(data))
}
