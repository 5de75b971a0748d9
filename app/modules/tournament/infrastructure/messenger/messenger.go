// Package messenger talks to the chat gateway over NATS request/reply. The
// gateway owns the Discord session; this side only sends requests.
package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	timerservice "github.com/Black-And-White-Club/tourney-bot/app/modules/timer/application"
	tournamentservice "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/application"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"
)

var (
	_ tournamentservice.Messenger = (*Client)(nil)
	_ timerservice.Messenger      = (*Client)(nil)
)

// GatewayError is a failure reported by the gateway.
type GatewayError struct {
	Op      string
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway %s failed (%s): %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway %s failed: %s", e.Op, e.Message)
}

// Requester is the part of *nats.Conn the client uses.
type Requester interface {
	RequestMsgWithContext(ctx context.Context, msg *nats.Msg) (*nats.Msg, error)
}

type Config struct {
	SubjectPrefix     string
	Timeout           time.Duration
	OrganiserRole     string
	RequestsPerSecond float64
	Burst             int
}

func DefaultConfig() Config {
	return Config{
		SubjectPrefix:     "discord.api",
		Timeout:           5 * time.Second,
		OrganiserRole:     "MC-TO",
		RequestsPerSecond: 20,
		Burst:             10,
	}
}

type Client struct {
	conn    Requester
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(conn Requester, cfg Config, logger *slog.Logger) *Client {
	def := DefaultConfig()
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = def.SubjectPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.OrganiserRole == "" {
		cfg.OrganiserRole = def.OrganiserRole
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	return &Client{
		conn:    conn,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger,
	}
}

func (c *Client) call(ctx context.Context, op string, req request) (*reply, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	msg := nats.NewMsg(c.cfg.SubjectPrefix + "." + op)
	msg.Data = data
	if id := attr.CorrelationIDFrom(ctx); id != "" {
		msg.Header.Set(CorrelationHeader, id)
	}

	c.logger.DebugContext(ctx, "Gateway request",
		attr.String("subject", msg.Subject),
		attr.ExtractCorrelationID(ctx),
	)

	resp, err := c.conn.RequestMsgWithContext(ctx, msg)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return nil, &GatewayError{Op: op, Message: "no gateway is listening"}
		}
		return nil, fmt.Errorf("gateway %s request failed: %w", op, err)
	}

	var out reply
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s reply: %w", op, err)
	}
	if !out.OK {
		switch out.Code {
		case codeBlockedDMs:
			return nil, tournamentdomain.ErrBlockedDMs
		case codeUnknownMessage:
			return nil, tournamentdomain.ErrMessageNotFound
		}
		return nil, &GatewayError{Op: op, Code: out.Code, Message: out.Error}
	}
	return &out, nil
}

func toFile(a tournamentdomain.Attachment) *file {
	return &file{Filename: a.Filename, Content: a.Content}
}

func (c *Client) SendMessage(ctx context.Context, channel tournamentdomain.ChannelID, content string) (tournamentdomain.MessageID, error) {
	out, err := c.call(ctx, opSendMessage, request{ChannelID: string(channel), Content: content})
	if err != nil {
		return "", err
	}
	return tournamentdomain.MessageID(out.MessageID), nil
}

func (c *Client) SendFile(ctx context.Context, channel tournamentdomain.ChannelID, content string, f tournamentdomain.Attachment) (tournamentdomain.MessageID, error) {
	out, err := c.call(ctx, opSendMessage, request{ChannelID: string(channel), Content: content, File: toFile(f)})
	if err != nil {
		return "", err
	}
	return tournamentdomain.MessageID(out.MessageID), nil
}

func (c *Client) EditMessage(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, content string) error {
	_, err := c.call(ctx, opEditMessage, request{ChannelID: string(channel), MessageID: string(message), Content: content})
	return err
}

// DeleteMessage treats an already deleted message as success.
func (c *Client) DeleteMessage(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) error {
	_, err := c.call(ctx, opDeleteMessage, request{ChannelID: string(channel), MessageID: string(message)})
	if errors.Is(err, tournamentdomain.ErrMessageNotFound) {
		return nil
	}
	return err
}

func (c *Client) MessageExists(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID) (bool, error) {
	out, err := c.call(ctx, opMessageExists, request{ChannelID: string(channel), MessageID: string(message)})
	if errors.Is(err, tournamentdomain.ErrMessageNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.Exists, nil
}

func (c *Client) DirectMessage(ctx context.Context, user tournamentdomain.DiscordID, content string) error {
	_, err := c.call(ctx, opDirectMessage, request{UserID: string(user), Content: content})
	return err
}

func (c *Client) DirectFile(ctx context.Context, user tournamentdomain.DiscordID, content string, f tournamentdomain.Attachment) error {
	_, err := c.call(ctx, opDirectMessage, request{UserID: string(user), Content: content, File: toFile(f)})
	return err
}

func (c *Client) AddReaction(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, emoji string) error {
	_, err := c.call(ctx, opAddReaction, request{ChannelID: string(channel), MessageID: string(message), Emoji: emoji})
	return err
}

func (c *Client) RemoveUserReaction(ctx context.Context, channel tournamentdomain.ChannelID, message tournamentdomain.MessageID, emoji string, user tournamentdomain.DiscordID) error {
	_, err := c.call(ctx, opRemoveUserReaction, request{
		ChannelID: string(channel),
		MessageID: string(message),
		Emoji:     emoji,
		UserID:    string(user),
	})
	if errors.Is(err, tournamentdomain.ErrMessageNotFound) {
		return nil
	}
	return err
}

// Username falls back to the mention when the gateway cannot resolve the user.
func (c *Client) Username(ctx context.Context, user tournamentdomain.DiscordID) (string, error) {
	out, err := c.call(ctx, opUsername, request{UserID: string(user)})
	if err != nil {
		return "", err
	}
	if out.Username == "" {
		return tournamentdomain.MentionUser(user), nil
	}
	return out.Username, nil
}

// PlayerRoleName is the participant role of a tournament.
func PlayerRoleName(id tournamentdomain.TournamentID) string {
	return "MC-Tournament-" + string(id)
}

func (c *Client) PlayerRole(ctx context.Context, t *tournamentdomain.Tournament) (tournamentdomain.RoleID, error) {
	out, err := c.call(ctx, opPlayerRole, request{ServerID: string(t.ServerID), RoleName: PlayerRoleName(t.ID)})
	if err != nil {
		return "", err
	}
	return tournamentdomain.RoleID(out.RoleID), nil
}

func (c *Client) GrantRole(ctx context.Context, server tournamentdomain.ServerID, user tournamentdomain.DiscordID, role tournamentdomain.RoleID) error {
	_, err := c.call(ctx, opGrantRole, request{ServerID: string(server), UserID: string(user), RoleID: string(role)})
	return err
}

func (c *Client) RemoveRole(ctx context.Context, server tournamentdomain.ServerID, user tournamentdomain.DiscordID, role tournamentdomain.RoleID) error {
	_, err := c.call(ctx, opRemoveRole, request{ServerID: string(server), UserID: string(user), RoleID: string(role)})
	return err
}

func (c *Client) DeletePlayerRole(ctx context.Context, t *tournamentdomain.Tournament) error {
	_, err := c.call(ctx, opDeleteRole, request{ServerID: string(t.ServerID), RoleName: PlayerRoleName(t.ID)})
	return err
}

// IsOrganiser reports whether user holds the organiser role. The gateway
// creates the role on first use.
func (c *Client) IsOrganiser(ctx context.Context, server tournamentdomain.ServerID, user tournamentdomain.DiscordID) (bool, error) {
	out, err := c.call(ctx, opIsOrganiser, request{ServerID: string(server), UserID: string(user), OrganiserFor: c.cfg.OrganiserRole})
	if err != nil {
		return false, err
	}
	return out.Organiser, nil
}
